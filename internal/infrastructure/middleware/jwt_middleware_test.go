package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medichat_server/internal/model"
	"medichat_server/pkg/errorx"
	"medichat_server/pkg/util/jwt"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIdentity(t *testing.T) {
	jwt.Init("middleware-secret", "")
	token, err := jwt.GenerateAccessToken("nurse", 3, time.Minute)
	require.NoError(t, err)

	identity, err := ResolveIdentity("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, model.NurseOf(3), identity)

	for _, header := range []string{"", "Bearer", "Token " + token, "Bearer garbage"} {
		_, err := ResolveIdentity(header)
		assert.Equal(t, errorx.CodeUnauthorized, errorx.GetCode(err), header)
	}

	badRole, err := jwt.GenerateAccessToken("PATIENT", 3, time.Minute)
	require.NoError(t, err)
	_, err = ResolveIdentity("Bearer " + badRole)
	assert.Equal(t, errorx.CodeUnauthorized, errorx.GetCode(err))

	noID, err := jwt.GenerateAccessToken("DOCTOR", 0, time.Minute)
	require.NoError(t, err)
	_, err = ResolveIdentity("Bearer " + noID)
	assert.Equal(t, errorx.CodeUnauthorized, errorx.GetCode(err))
}

func TestJWTAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	jwt.Init("middleware-secret", "")
	r := gin.New()
	r.GET("/me", JWTAuth(), func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, identity.Token())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.GenerateAccessToken("DOCTOR", 7, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DOCTOR_7", w.Body.String())
}

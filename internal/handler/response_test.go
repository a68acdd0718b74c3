package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"medichat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h gin.HandlerFunc) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)
	h(c)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHandleErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{errorx.New(errorx.CodeInvalidParam, "bad"), http.StatusBadRequest, errorx.CodeInvalidParam},
		{errorx.ErrUnauthorized, http.StatusUnauthorized, errorx.CodeUnauthorized},
		{errorx.New(errorx.CodeNotFound, "missing"), http.StatusNotFound, errorx.CodeNotFound},
		{errorx.Wrap(errors.New("disk"), errorx.CodeUploadFailed, "upload"), http.StatusInternalServerError, errorx.CodeUploadFailed},
		{errors.New("boom"), http.StatusInternalServerError, errorx.CodeServerBusy},
	}
	for _, tc := range cases {
		status, body := serve(t, func(c *gin.Context) { HandleError(c, tc.err) })
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.EqualValues(t, tc.code, body["code"])
	}
}

func TestHandleSuccessAndCreated(t *testing.T) {
	status, body := serve(t, func(c *gin.Context) { HandleSuccess(c, gin.H{"ok": true}) })
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, errorx.CodeSuccess, body["code"])

	status, _ = serve(t, func(c *gin.Context) { HandleCreated(c, nil) })
	assert.Equal(t, http.StatusCreated, status)
}

func TestHandleParamErrorTranslates(t *testing.T) {
	require.NoError(t, InitTrans("en"))
	type req struct {
		ReceiverId string `form:"receiverId" binding:"required"`
	}
	status, body := serve(t, func(c *gin.Context) {
		var r req
		HandleParamError(c, c.ShouldBindQuery(&r))
	})
	assert.Equal(t, http.StatusBadRequest, status)
	msg, ok := body["msg"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, msg, "receiverId")
}

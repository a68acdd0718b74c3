package logger

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"medichat_server/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitRejectsNilConfig(t *testing.T) {
	require.Error(t, Init(nil, "dev"))
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	cfg := &config.LogConfig{LogPath: t.TempDir(), Level: "verbose"}
	require.Error(t, Init(cfg, "release"))
}

func TestInitReplacesGlobalLogger(t *testing.T) {
	before := zap.L()
	cfg := &config.LogConfig{LogPath: t.TempDir()}
	require.NoError(t, Init(cfg, "release"))
	t.Cleanup(func() { zap.ReplaceGlobals(before) })

	assert.Equal(t, filepath.Join(cfg.LogPath, "medichat.log"), filepath.Clean(cfg.FileName))
	assert.Equal(t, "info", cfg.Level)
	assert.NotSame(t, before, zap.L())
}

func TestIsBrokenPipeError(t *testing.T) {
	wrapped := &net.OpError{Op: "write", Err: os.NewSyscallError("write", syscall.EPIPE)}
	assert.True(t, isBrokenPipeError(wrapped))
	assert.True(t, isBrokenPipeError(errors.New("read: connection reset by peer")))
	assert.False(t, isBrokenPipeError(errors.New("boom")))
	assert.False(t, isBrokenPipeError(nil))
}

func TestGinRecoveryReturns500(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinRecovery(false))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

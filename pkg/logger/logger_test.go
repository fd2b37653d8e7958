package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	assert.True(t, New("production", "").Core().Enabled(zapcore.InfoLevel))
	assert.False(t, New("production", "").Core().Enabled(zapcore.DebugLevel))
	assert.True(t, New("development", "").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("development", "warn").Core().Enabled(zapcore.InfoLevel))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(GinMiddleware(zap.New(core)))
	router.GET("/api/v1/sessions/:id/holds", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/missing", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc/holds", nil)
	req.Header.Set("X-Request-ID", "req-1")
	router.ServeHTTP(httptest.NewRecorder(), req)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "abc", fields["session_id"])
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

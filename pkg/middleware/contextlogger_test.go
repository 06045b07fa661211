package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

func TestContextLoggerMiddleware_AddsCorrelationFields(t *testing.T) {
	logger, logs := newObservedLogger()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TracingMiddleware(logger, "pdf-toolkit"))
	router.Use(OwnerMiddleware())
	router.Use(ContextLoggerMiddleware(logger, "pdf-toolkit"))
	router.GET("/api/v1/tools/:slug", func(c *gin.Context) {
		logging.FromContext(c.Request.Context()).Info("running tool")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tools/merge", nil)
	req.Header.Set(TraceIDHeader, "trace-1")
	req.Header.Set(ClientIDHeader, "client-7")
	router.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("running tool").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "pdf-toolkit", fields["service"])
	assert.Equal(t, "/api/v1/tools/:slug", fields["route"])
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "client-7", fields["owner"])
	assert.NotContains(t, fields, "request_id")
}

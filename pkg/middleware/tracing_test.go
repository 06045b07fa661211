package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

func TestTracingMiddleware_GeneratesTraceID(t *testing.T) {
	logger, _ := logging.NewLogger("info", "json")
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TracingMiddleware(logger, "test-service"))
	router.GET("/test", func(c *gin.Context) {
		traceID := GetTraceIDFromGin(c)
		c.JSON(http.StatusOK, gin.H{"trace_id": traceID})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestTracingMiddleware_UsesExistingTraceID(t *testing.T) {
	logger, _ := logging.NewLogger("info", "json")
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TracingMiddleware(logger, "test-service"))
	router.GET("/test", func(c *gin.Context) {
		traceID := GetTraceIDFromGin(c)
		c.JSON(http.StatusOK, gin.H{"trace_id": traceID})
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Trace-ID", "existing-trace-id")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "existing-trace-id", w.Header().Get("X-Trace-ID"))
}

func TestTracingMiddleware_StoresTraceIDOnRequestContext(t *testing.T) {
	logger, _ := logging.NewLogger("info", "json")
	gin.SetMode(gin.TestMode)

	var fromCtx string
	router := gin.New()
	router.Use(TracingMiddleware(logger, "pdf-toolkit"))
	router.GET("/test", func(c *gin.Context) {
		fromCtx = GetTraceID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(TraceIDHeader, "trace-from-gateway")
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "trace-from-gateway", fromCtx)
}

func TestTracingMiddleware_TraceParent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TracingMiddleware(logging.NewNopLogger(), "pdf-toolkit"))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "w3c traceparent",
			headers: map[string]string{"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"},
			want:    "4bf92f3577b34da6a3ce929d0e0e4736",
		},
		{
			name: "x-trace-id wins",
			headers: map[string]string{
				"X-Trace-ID":  "abc-123",
				"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			},
			want: "abc-123",
		},
		{
			name: "invalid x-trace-id falls back to traceparent",
			headers: map[string]string{
				"X-Trace-ID":  "bad id\nwith newline",
				"traceparent": "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			},
			want: "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Header().Get(TraceIDHeader))
		})
	}
}

func TestTracingMiddleware_RejectsAllZeroTraceParent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(TracingMiddleware(logging.NewNopLogger(), "pdf-toolkit"))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("traceparent", "00-00000000000000000000000000000000-00f067aa0ba902b7-01")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	got := w.Header().Get(TraceIDHeader)
	assert.NotEmpty(t, got)
	assert.NotEqual(t, zeroTraceParentID, got)
}

func TestValidTraceID(t *testing.T) {
	assert.True(t, ValidTraceID("0190c1f4-7a2b-7cde-8f00-123456789abc"))
	assert.False(t, ValidTraceID(""))
	assert.False(t, ValidTraceID("has space"))
	assert.False(t, ValidTraceID(string(make([]byte, maxTraceIDLength+1))))
}

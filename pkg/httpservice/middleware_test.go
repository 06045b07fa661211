package httpservice

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimitMiddleware(RateLimitConfig{RPS: 2, Burst: 2}))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	time.Sleep(600 * time.Millisecond)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitMiddleware_SeparateKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimitMiddleware(RateLimitConfig{
		RPS:     1,
		Burst:   1,
		KeyFunc: func(c *gin.Context) string { return c.GetHeader("X-Client-ID") },
	}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, client := range []string{"a", "b"} {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Client-ID", client)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, client)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
}

func TestRequestSizeLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestSizeLimitMiddleware(8, logging.NewNopLogger()))
	router.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/", strings.NewReader("0123456789")))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), string(errors.ErrorCodePayloadTooLarge))
	assert.Contains(t, w.Body.String(), "10 Bytes exceeds the 8 Bytes limit")
}

func TestHTTPMethodWhitelistMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMethodWhitelistMiddleware([]string{"get", "POST"}, logging.NewNopLogger()))
	router.Any("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "GET, POST", w.Header().Get("Allow"))
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		cfg            CORSConfig
		origin         string
		expectedOrigin string
	}{
		{
			name:           "Allow All",
			cfg:            CORSConfig{AllowedOrigins: []string{"*"}},
			origin:         "http://example.com",
			expectedOrigin: "*",
		},
		{
			name:           "Allow Specific",
			cfg:            CORSConfig{AllowedOrigins: []string{"http://example.com"}},
			origin:         "http://example.com",
			expectedOrigin: "http://example.com",
		},
		{
			name:           "Disallow Specific",
			cfg:            CORSConfig{AllowedOrigins: []string{"http://example.com"}},
			origin:         "http://evil.com",
			expectedOrigin: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(CORSMiddleware(tt.cfg))
			router.GET("/", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Origin", tt.origin)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSMiddleware_ExposesResultHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORSMiddleware(CORSConfig{ExposedHeaders: []string{"X-Result-Size", "Content-Disposition"}}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, "X-Result-Size, Content-Disposition", w.Header().Get("Access-Control-Expose-Headers"))
}

func TestBodyLoggingMiddleware_SkipsBinaryBodies(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(BodyLoggingMiddleware(logging.NewZapLogger(zap.New(core))))
	router.POST("/pdf", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/pdf", []byte("%PDF-1.7 binary"))
	})
	router.POST("/json", func(c *gin.Context) {
		var body map[string]interface{}
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusOK, gin.H{"echo": body["tool"]})
	})

	req := httptest.NewRequest("POST", "/pdf", bytes.NewReader([]byte("%PDF-1.4 upload")))
	req.Header.Set("Content-Type", "application/pdf")
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("POST", "/json", strings.NewReader(`{"tool":"merge"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	entries := logs.All()
	require.Len(t, entries, 2)

	pdfFields := entries[0].ContextMap()
	assert.NotContains(t, pdfFields, "request_body")
	assert.NotContains(t, pdfFields, "request_body_raw")
	assert.NotContains(t, pdfFields, "response_body_raw")

	jsonFields := entries[1].ContextMap()
	assert.Equal(t, map[string]interface{}{"tool": "merge"}, jsonFields["request_body"])
	assert.Equal(t, map[string]interface{}{"echo": "merge"}, jsonFields["response_body"])
}

func TestWrap_ConvertsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/bad", Wrap("bad", func(c *gin.Context) error {
		return errors.NewValidationError("select at least one page")
	}))
	router.GET("/boom", Wrap("boom", func(c *gin.Context) error {
		return stderrors.New("boom")
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"code":"VALIDATION_ERROR","error":"select at least one page"}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWrap_HandlerFieldReachesRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	base := logging.NewZapLogger(zap.New(core))

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), base))
		c.Next()
	})
	router.GET("/run", Wrap("tools.run", func(c *gin.Context) error {
		logging.FromContext(c.Request.Context()).Info("engine call")
		return nil
	}))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/run", nil))

	entries := logs.FilterMessage("engine call").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tools.run", entries[0].ContextMap()["handler"])
}

func TestValidateStruct_NamesEachField(t *testing.T) {
	type req struct {
		Mode  string `validate:"omitempty,oneof=each pages ranges"`
		Angle int    `validate:"oneof=90 180 270"`
	}

	assert.NoError(t, ValidateStruct(&req{Mode: "ranges", Angle: 90}))

	err := ValidateStruct(&req{Mode: "halves", Angle: 45})
	require.Error(t, err)
	appErr := errors.FromError(err)
	assert.Equal(t, errors.ErrorCodeValidation, appErr.Code)
	assert.Contains(t, appErr.Message, "Mode must be one of [each pages ranges]")
	assert.Contains(t, appErr.Message, "Angle must be one of [90 180 270]")
}

func TestNewRouter_Health(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(ServerConfig{
		Logger:      logging.NewNopLogger(),
		ServiceName: "pdf-toolkit",
		HealthChecks: map[string]HealthCheck{
			"history": func(ctx context.Context) error { return nil },
			"queue":   func(ctx context.Context) error { return stderrors.New("unreachable") },
		},
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"queue":"unreachable"`)
	assert.Contains(t, w.Body.String(), `"history":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

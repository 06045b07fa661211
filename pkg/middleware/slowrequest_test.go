package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
)

type recordingTelemetry struct {
	mu     sync.Mutex
	slow   []string
	errors []int
}

func (r *recordingTelemetry) RecordSlowRequest(_ context.Context, path string, _ int64, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slow = append(r.slow, path)
}

func (r *recordingTelemetry) RecordError(_ context.Context, _ string, _ string, statusCode int, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, statusCode)
}

func TestSlowRequestMiddleware(t *testing.T) {
	logger, _ := newObservedLogger()
	gin.SetMode(gin.TestMode)

	telemetry := &recordingTelemetry{}
	router := gin.New()
	router.Use(SlowRequestMiddleware(5, telemetry, nil, logger))
	router.Use(ErrorHandlerMiddleware(logger))
	router.POST("/api/v1/tools/:slug", func(c *gin.Context) {
		switch c.Param("slug") {
		case "compress":
			time.Sleep(20 * time.Millisecond)
			c.Status(http.StatusOK)
		case "word-to-pdf":
			SetError(c, errors.NewNotImplementedError("not available"))
		default:
			SetError(c, errors.NewInternalError("boom"))
		}
	})

	for _, slug := range []string{"compress", "word-to-pdf", "merge"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/tools/"+slug, nil))
	}

	assert.Equal(t, []string{"/api/v1/tools/:slug#compress"}, telemetry.slow)
	assert.Equal(t, []int{http.StatusInternalServerError}, telemetry.errors)
}

package httpservice

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// maxLoggedBody caps how much of a JSON body ends up in a log line.
const maxLoggedBody = 4 * 1024

// responseWriter wraps gin.ResponseWriter to capture JSON response bodies.
type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if isJSON(w.Header().Get("Content-Type")) && w.body.Len() < maxLoggedBody {
		w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// BodyLoggingMiddleware logs every request with its outcome. JSON bodies are
// logged (truncated); uploads and PDF responses are logged by size only.
func BodyLoggingMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var requestBody []byte
		if c.Request.Body != nil && isJSON(c.ContentType()) {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxLoggedBody+1))
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(requestBody), c.Request.Body))
		}

		rw := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw

		c.Next()

		fields := []logging.Field{
			logging.NewField("method", c.Request.Method),
			logging.NewField("path", c.Request.URL.Path),
			logging.NewField("status", c.Writer.Status()),
			logging.NewField("latency_ms", time.Since(start).Milliseconds()),
			logging.NewField("request_bytes", c.Request.ContentLength),
			logging.NewField("response_bytes", c.Writer.Size()),
		}
		if requestBody != nil {
			fields = append(fields, bodyField("request_body", requestBody))
		}
		if rw.body.Len() > 0 {
			fields = append(fields, bodyField("response_body", rw.body.Bytes()))
		}

		ctx := c.Request.Context()
		switch status := c.Writer.Status(); {
		case status >= 500:
			logger.ErrorWithContext(ctx, "HTTP request", fields...)
		case status >= 400:
			logger.WarnWithContext(ctx, "HTTP request", fields...)
		default:
			logger.InfoWithContext(ctx, "HTTP request", fields...)
		}
	}
}

func bodyField(key string, body []byte) logging.Field {
	if len(body) > maxLoggedBody {
		return logging.NewField(key+"_raw", string(body[:maxLoggedBody])+"...")
	}
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		return logging.NewField(key, parsed)
	}
	return logging.NewField(key+"_raw", string(body))
}

func isJSON(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json")
}

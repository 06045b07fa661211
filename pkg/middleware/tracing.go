package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/utils"
)

const (
	TraceIDKey        = "trace_id"
	TraceIDHeader     = "X-Trace-ID"
	TraceParentHeader = "traceparent"
	maxTraceIDLength  = 128
	zeroTraceParentID = "00000000000000000000000000000000"
)

var (
	traceIDPattern     = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)
	traceParentPattern = regexp.MustCompile(`^[0-9a-f]{2}-([0-9a-f]{32})-[0-9a-f]{16}-[0-9a-f]{2}$`)
)

// TracingMiddleware attaches a trace ID to the request context and echoes it
// in X-Trace-ID. It is taken from X-Trace-ID, then from a W3C traceparent
// header, and generated when neither carries a usable value.
func TracingMiddleware(logger logging.Logger, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := incomingTraceID(c)
		if traceID == "" {
			traceID = utils.GenerateUUID()
			logger.Debug("Trace ID missing, generated new one",
				logging.NewField("service", serviceName),
				logging.NewField("trace_id", traceID),
			)
		}

		ctx := logging.WithCorrelation(c.Request.Context(), logging.TraceIDKey, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

func incomingTraceID(c *gin.Context) string {
	if id := strings.TrimSpace(c.GetHeader(TraceIDHeader)); ValidTraceID(id) {
		return id
	}
	m := traceParentPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(c.GetHeader(TraceParentHeader))))
	if m == nil || m[1] == zeroTraceParentID {
		return ""
	}
	return m[1]
}

// ValidTraceID reports whether id is safe to log and echo back. Client
// supplied IDs end up in headers, logs and queued job messages.
func ValidTraceID(id string) bool {
	return id != "" && len(id) <= maxTraceIDLength && traceIDPattern.MatchString(id)
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	return logging.Correlation(ctx, logging.TraceIDKey)
}

// GetTraceIDFromGin retrieves the trace ID from Gin context.
func GetTraceIDFromGin(c *gin.Context) string {
	return c.GetString(TraceIDKey)
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// ContextLoggerMiddleware attaches a logger carrying the service, route and
// correlation IDs to the request context. It must run after the tracing,
// request ID and owner middleware.
func ContextLoggerMiddleware(baseLogger logging.Logger, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := []logging.Field{
			logging.NewField("service", serviceName),
		}
		if route := c.FullPath(); route != "" {
			fields = append(fields, logging.NewField("route", route))
		}
		if traceID := GetTraceIDFromGin(c); traceID != "" {
			fields = append(fields, logging.NewField("trace_id", traceID))
		}
		if requestID := GetRequestIDFromGin(c); requestID != "" {
			fields = append(fields, logging.NewField("request_id", requestID))
		}
		if owner := GetOwnerFromGin(c); owner != "" {
			fields = append(fields, logging.NewField("owner", owner))
		}

		ctx := logging.WithLogger(c.Request.Context(), baseLogger.With(fields...))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

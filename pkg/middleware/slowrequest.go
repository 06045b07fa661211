package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// TelemetryClient records slow requests and server errors.
type TelemetryClient interface {
	RecordSlowRequest(ctx context.Context, path string, durationMs int64, traceID, requestID string)
	RecordError(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string)
}

// AlertClient sends human-facing alerts.
type AlertClient interface {
	SendSlowRequestAlert(ctx context.Context, path string, durationMs int64, traceID, requestID string) error
	SendErrorAlert(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string) error
}

// SlowRequestMiddleware reports requests slower than slowThresholdMs and 5xx
// responses. Tool stubs answering 501 are expected and never alert.
func SlowRequestMiddleware(
	slowThresholdMs int64,
	telemetryClient TelemetryClient,
	alertClient AlertClient,
	logger logging.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latencyMs := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if slug := c.Param("slug"); slug != "" {
			path += "#" + slug
		}

		traceID := GetTraceIDFromGin(c)
		requestID := GetRequestIDFromGin(c)
		// Alerts run after the response is written; detach from the request
		// so a disconnecting client does not cancel them.
		ctx := context.WithoutCancel(c.Request.Context())

		if slowThresholdMs > 0 && latencyMs > slowThresholdMs {
			logger.WarnWithContext(ctx, "Slow request detected",
				logging.NewField("path", path),
				logging.NewField("duration_ms", latencyMs),
				logging.NewField("threshold_ms", slowThresholdMs),
			)

			if telemetryClient != nil {
				telemetryClient.RecordSlowRequest(ctx, path, latencyMs, traceID, requestID)
			}
			if alertClient != nil {
				if err := alertClient.SendSlowRequestAlert(ctx, path, latencyMs, traceID, requestID); err != nil {
					logger.Error("Failed to send slow request alert", logging.NewField("error", err))
				}
			}
		}

		if statusCode < 500 || c.GetString(ErrorCodeKey) == string(errors.ErrorCodeNotImplemented) {
			return
		}

		errorMsg := "Internal server error"
		if len(c.Errors) > 0 {
			errorMsg = c.Errors.Last().Error()
		}

		if telemetryClient != nil {
			telemetryClient.RecordError(ctx, path, errorMsg, statusCode, traceID, requestID)
		}
		if alertClient != nil {
			if err := alertClient.SendErrorAlert(ctx, path, errorMsg, statusCode, traceID, requestID); err != nil {
				logger.Error("Failed to send error alert", logging.NewField("error", err))
			}
		}
	}
}

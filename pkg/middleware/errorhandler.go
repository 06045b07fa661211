package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// ErrorCodeKey is the gin key under which the handled error code is recorded
// for later middleware (slow request alerts, telemetry).
const ErrorCodeKey = "error_code"

// ErrorHandlerMiddleware converts the last error attached to the gin context
// into a JSON ErrorResponse. Client errors are logged at warn, server errors at
// error.
func ErrorHandlerMiddleware(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		appErr := errors.FromError(c.Errors.Last().Err)
		c.Set(ErrorCodeKey, string(appErr.Code))

		fields := []logging.Field{
			logging.NewField("code", string(appErr.Code)),
			logging.NewField("status_code", appErr.HTTPStatus),
			logging.NewField("path", c.FullPath()),
		}
		if op, ok := appErr.Details["operation"].(string); ok {
			fields = append(fields, logging.NewField("operation", op))
		}
		if appErr.Err != nil {
			fields = append(fields, logging.NewField("cause", appErr.Err))
		}

		ctx := c.Request.Context()
		if appErr.HTTPStatus >= 500 {
			logger.ErrorWithContext(ctx, appErr.Message, fields...)
		} else {
			logger.WarnWithContext(ctx, appErr.Message, fields...)
		}

		if !c.Writer.Written() {
			c.JSON(appErr.HTTPStatus, appErr.ToErrorResponse())
		}
	}
}

// SetError sets an error in the Gin context to be handled by ErrorHandlerMiddleware.
func SetError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

package httpservice

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// HandlerFunc is a handler function that returns an error.
type HandlerFunc func(c *gin.Context) error

// Wrap adapts a HandlerFunc to gin. The request context logger gains a
// handler field, so document engine and storage logs name the endpoint that
// caused them. Entry and exit are logged at debug; a returned error goes
// through HandleError.
func Wrap(handlerName string, fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := GetLogger(c).With(logging.NewField("handler", handlerName))
		c.Request = c.Request.WithContext(logging.WithLogger(c.Request.Context(), logger))
		start := time.Now()

		logger.Debug("Handler started",
			logging.NewField("method", c.Request.Method),
			logging.NewField("path", c.Request.URL.Path),
		)

		if err := fn(c); err != nil {
			logger.Debug("Handler returned error",
				logging.NewField("latency_ms", time.Since(start).Milliseconds()),
				logging.NewField("error", err),
			)
			HandleError(c, err)
			return
		}

		logger.Debug("Handler completed",
			logging.NewField("latency_ms", time.Since(start).Milliseconds()),
		)
	}
}

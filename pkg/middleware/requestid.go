package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/utils"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestIDMiddleware reuses a well-formed incoming request ID or generates a
// new one, and echoes it on headerName.
func RequestIDMiddleware(headerName string) gin.HandlerFunc {
	if headerName == "" {
		headerName = RequestIDHeader
	}

	return func(c *gin.Context) {
		requestID := c.GetHeader(headerName)
		if !utils.IsValidUUID(requestID) {
			requestID = utils.GenerateRequestID()
		}

		ctx := logging.WithCorrelation(c.Request.Context(), logging.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(RequestIDKey, requestID)
		c.Header(headerName, requestID)

		c.Next()
	}
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	return logging.Correlation(ctx, logging.RequestIDKey)
}

// GetRequestIDFromGin retrieves the request ID from Gin context.
func GetRequestIDFromGin(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

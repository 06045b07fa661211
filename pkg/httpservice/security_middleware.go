package httpservice

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/filesize"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// RequestSizeLimitMiddleware rejects bodies larger than maxBytes. Declared
// lengths are checked up front; chunked bodies are cut off while reading and
// surface as a multipart read error in the handler.
func RequestSizeLimitMiddleware(maxBytes int64, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			logger.Warn("Request body too large",
				logging.NewField("content_length", c.Request.ContentLength),
				logging.NewField("max_bytes", maxBytes),
				logging.NewField("ip", c.ClientIP()),
			)
			appErr := errors.NewPayloadTooLargeError(fmt.Sprintf("Upload of %s exceeds the %s limit",
				filesize.Format(c.Request.ContentLength), filesize.Format(maxBytes))).
				WithDetails(map[string]interface{}{"maxBytes": maxBytes})
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToErrorResponse())
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// HTTPMethodWhitelistMiddleware restricts HTTP methods to an allowed list and
// advertises the list in Allow on rejection.
func HTTPMethodWhitelistMiddleware(allowedMethods []string, logger logging.Logger) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedMethods))
	for _, method := range allowedMethods {
		allowed[strings.ToUpper(method)] = true
	}
	allowHeader := strings.ToUpper(strings.Join(allowedMethods, ", "))

	return func(c *gin.Context) {
		if !allowed[c.Request.Method] {
			logger.Warn("HTTP method not allowed",
				logging.NewField("method", c.Request.Method),
				logging.NewField("path", c.Request.URL.Path),
				logging.NewField("ip", c.ClientIP()),
			)
			c.Header("Allow", allowHeader)
			appErr := errors.NewAppError(errors.ErrorCodeBadRequest, "Method not allowed", http.StatusMethodNotAllowed)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToErrorResponse())
			return
		}
		c.Next()
	}
}

package httpservice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// Handler defines an interface for registering HTTP handlers.
type Handler interface {
	Register(router *gin.Engine)
}

// GetLogger retrieves the contextual logger from the request.
func GetLogger(c *gin.Context) logging.Logger {
	return logging.FromContext(c.Request.Context())
}

// HandleError records err on the gin context, for the error handler
// middleware to log, and writes the ErrorResponse.
func HandleError(c *gin.Context, err error) {
	appErr := errors.FromError(err)
	_ = c.Error(appErr)
	if !c.Writer.Written() {
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToErrorResponse())
		return
	}
	c.Abort()
}

// SuccessResponse sends a success response.
func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// CreatedResponse sends a created response.
func CreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// AcceptedResponse sends a 202 for work that continues in the background.
func AcceptedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, gin.H{"data": data})
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/jwt"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

const (
	OwnerKey       = "owner"
	ClientIDHeader = "X-Client-ID"
	AnonymousOwner = "anonymous"

	maxClientIDLength = 128
)

// OwnerMiddleware resolves who a request acts for, in order: the user_id of a
// validated bearer token, the X-Client-ID header, then "anonymous". History
// and batch jobs are scoped to this owner.
func OwnerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := resolveOwner(c)

		ctx := logging.WithCorrelation(c.Request.Context(), logging.OwnerKey, owner)
		c.Request = c.Request.WithContext(ctx)
		c.Set(OwnerKey, owner)

		c.Next()
	}
}

func resolveOwner(c *gin.Context) string {
	if userID, ok := jwt.GetUserID(c); ok && userID != "" {
		return userID
	}
	clientID := strings.TrimSpace(c.GetHeader(ClientIDHeader))
	if clientID != "" && len(clientID) <= maxClientIDLength && isPrintableASCII(clientID) {
		return clientID
	}
	return AnonymousOwner
}

func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// GetOwnerFromGin returns the owner resolved by OwnerMiddleware, or
// "anonymous" when the middleware did not run.
func GetOwnerFromGin(c *gin.Context) string {
	if owner := c.GetString(OwnerKey); owner != "" {
		return owner
	}
	return AnonymousOwner
}

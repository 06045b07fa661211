package jwt

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

const (
	// Context keys for storing JWT claims
	ContextKeyUserID = "user_id"
	ContextKeyClaims = "jwt_claims"
)

// JWTMiddleware validates the bearer token. With required=false a missing or
// invalid token lets the request through unauthenticated; with required=true
// it is rejected with 401.
func JWTMiddleware(jwtService *JWTService, required bool, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, present := bearerToken(c.GetHeader("Authorization"))
		if !present {
			if required {
				abort(c, apperrors.NewUnauthorizedError("Authorization header is required"))
				return
			}
			c.Next()
			return
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("Token validation failed",
				logging.NewField("error", err),
				logging.NewField("ip", c.ClientIP()),
				logging.NewField("path", c.Request.URL.Path),
			)
			if required {
				abort(c, unauthorized(err))
				return
			}
			c.Next()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireScope rejects authenticated requests whose token does not grant
// scope. Unauthenticated requests pass; JWTMiddleware decides whether they
// are allowed at all.
func RequireScope(scope string, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if ok && !claims.HasScope(scope) {
			logger.Warn("Access denied: missing scope",
				logging.NewField("user_id", claims.UserID),
				logging.NewField("scope", scope),
				logging.NewField("path", c.Request.URL.Path),
			)
			err := apperrors.NewAppError(apperrors.ErrorCodeUnauthorized, "Token does not grant "+scope, http.StatusForbidden)
			abort(c, err)
			return
		}
		c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(ContextKeyUserID)
	return userID, userID != ""
}

// GetClaims extracts full JWT claims from context
func GetClaims(c *gin.Context) (*Claims, bool) {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	jwtClaims, ok := claims.(*Claims)
	return jwtClaims, ok
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func unauthorized(err error) *apperrors.AppError {
	switch err {
	case ErrExpiredToken:
		return apperrors.NewUnauthorizedError("Token has expired")
	case ErrTokenTooLarge:
		return apperrors.NewPayloadTooLargeError("Token size exceeds maximum allowed")
	default:
		return apperrors.NewUnauthorizedError("Invalid token")
	}
}

func abort(c *gin.Context, err *apperrors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToErrorResponse())
}

package jwt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

var (
	ErrMissingSecret    = errors.New("jwt secret is not configured")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrMissingClaims    = errors.New("required claims are missing")
	ErrTokenTooLarge    = errors.New("token size exceeds maximum allowed")
)

const (
	// MaxTokenSize bounds the Authorization header we are willing to parse.
	MaxTokenSize = 16 * 1024
	// MinSecretKeyLength for HS256 signing keys.
	MinSecretKeyLength = 32
	// DefaultIssuer is used when no issuer is configured.
	DefaultIssuer = "pdf-toolkit"
)

// Scopes understood by the toolkit.
const (
	ScopeTools   = "tools"
	ScopeJobs    = "jobs"
	ScopeHistory = "history"
)

// Claims identifies the workspace a request acts for.
type Claims struct {
	UserID string   `json:"user_id"`
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope. A token without any
// scopes grants all of them.
func (c *Claims) HasScope(scope string) bool {
	if len(c.Scopes) == 0 {
		return true
	}
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// JWTService issues and validates HS256 tokens.
type JWTService struct {
	secretKey []byte
	issuer    string
	expiry    time.Duration
	logger    logging.Logger
}

// NewJWTService creates a new JWT service instance.
func NewJWTService(secretKey, issuer string, expiry time.Duration, logger logging.Logger) (*JWTService, error) {
	if len(secretKey) < MinSecretKeyLength {
		return nil, fmt.Errorf("secret key must be at least %d characters long", MinSecretKeyLength)
	}

	return &JWTService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		expiry:    expiry,
		logger:    logger,
	}, nil
}

// GenerateAccessToken issues a token for userID limited to scopes.
func (j *JWTService) GenerateAccessToken(userID string, scopes ...string) (string, error) {
	if err := validateUserID(userID); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   userID,
			ID:        generateTokenID(),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		j.logger.Error("Failed to sign token", logging.NewField("error", err))
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	if len(tokenString) > MaxTokenSize {
		return "", ErrTokenTooLarge
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (j *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if len(tokenString) > MaxTokenSize {
		return nil, ErrTokenTooLarge
	}
	if strings.TrimSpace(tokenString) == "" || strings.Count(tokenString, ".") != 2 {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithIssuer(j.issuer))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrInvalidToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		}
		j.logger.Warn("Token validation failed", logging.NewField("error", err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrMissingClaims)
	}
	if err := validateUserID(claims.UserID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}

	return claims, nil
}

// validateUserID rejects IDs that cannot safely be used as a history owner
// or a blob path segment.
func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user_id cannot be empty")
	}
	if len(userID) > 255 {
		return errors.New("user_id exceeds maximum length")
	}
	if strings.ContainsAny(userID, "/\\") || strings.Contains(userID, "..") {
		return errors.New("user_id contains path characters")
	}
	return nil
}

// generateTokenID generates a unique token ID (JTI claim).
func generateTokenID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}

package jwt

import (
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// Config holds JWT configuration
type Config struct {
	SecretKey       string
	Issuer          string
	TokenExpiryMins int
}

// NewJWTServiceFromConfig creates a new JWT service from configuration.
func NewJWTServiceFromConfig(cfg Config, logger logging.Logger) (*JWTService, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingSecret
	}

	expiry := time.Duration(cfg.TokenExpiryMins) * time.Minute
	if expiry == 0 {
		expiry = 60 * time.Minute
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}

	return NewJWTService(cfg.SecretKey, issuer, expiry, logger)
}

package httpservice

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	RPS   float64 // Requests per second
	Burst int     // Maximum burst size
	// KeyFunc picks the bucket for a request; defaults to the client IP.
	KeyFunc func(c *gin.Context) string
}

// RateLimitMiddleware limits requests per second per key.
func RateLimitMiddleware(cfg RateLimitConfig) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	go func() {
		for range time.Tick(time.Minute) {
			mu.Lock()
			for key, cl := range clients {
				if time.Since(cl.lastSeen) > 3*time.Minute {
					delete(clients, key)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		key := keyFunc(c)

		mu.Lock()
		cl, found := clients[key]
		if !found {
			cl = &client{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			clients[key] = cl
		}
		cl.lastSeen = time.Now()
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.Header("Retry-After", "1")
			appErr := errors.NewAppError(errors.ErrorCodeBadRequest, "Too many requests", http.StatusTooManyRequests)
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToErrorResponse())
			return
		}
		c.Next()
	}
}

// SecurityHeadersMiddleware adds security-related headers to responses.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}

// RecoveryMiddleware recovers from panics and logs the error.
func RecoveryMiddleware(logger logging.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.ErrorWithContext(c.Request.Context(), "Panic recovered",
			logging.NewField("panic", recovered),
			logging.NewField("path", c.Request.URL.Path),
			logging.NewField("method", c.Request.Method),
		)

		appErr := errors.NewInternalError("Internal server error")
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToErrorResponse())
	})
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
}

// CORSMiddleware adds CORS headers with configuration.
func CORSMiddleware(cfg CORSConfig) gin.HandlerFunc {
	allowAll := len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*")

	headers := "Content-Type, Content-Length, Authorization, Accept, Origin, X-Request-ID, X-Trace-ID, X-Client-ID"
	if len(cfg.AllowedHeaders) > 0 {
		headers = strings.Join(cfg.AllowedHeaders, ", ")
	}
	methods := "GET, POST, DELETE, OPTIONS"
	if len(cfg.AllowedMethods) > 0 {
		methods = strings.Join(cfg.AllowedMethods, ", ")
	}
	exposed := strings.Join(cfg.ExposedHeaders, ", ")

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		allowed := false

		if allowAll {
			allowed = true
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			for _, o := range cfg.AllowedOrigins {
				if o == origin {
					allowed = true
					c.Header("Access-Control-Allow-Origin", origin)
					c.Header("Access-Control-Allow-Credentials", "true")
					c.Header("Vary", "Origin")
					break
				}
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Headers", headers)
			c.Header("Access-Control-Allow-Methods", methods)
			if exposed != "" {
				c.Header("Access-Control-Expose-Headers", exposed)
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

package httpservice

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/middleware"
)

// Server wraps a Gin server with configuration and middleware.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
	port       int
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Logger       logging.Logger
	ServiceName  string
	Version      string

	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
	ExposedHeaders []string
	MaxBodySize    int64 // bytes; 0 disables the limit

	// Auth runs before owner resolution, typically jwt.JWTMiddleware.
	Auth gin.HandlerFunc

	SlowRequestThresholdMs int64
	Telemetry              middleware.TelemetryClient
	Alerts                 middleware.AlertClient

	// HealthChecks are run by GET /health; any failure answers 503.
	HealthChecks map[string]HealthCheck
}

// NewServer creates a new HTTP server with the standard middleware chain and
// the given handlers registered.
func NewServer(cfg ServerConfig, handlers ...Handler) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := NewRouter(cfg)

	for _, handler := range handlers {
		handler.Register(router)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		router:     router,
		httpServer: httpServer,
		logger:     cfg.Logger,
		port:       cfg.Port,
	}, nil
}

// NewRouter builds the gin engine with the middleware chain and /health but
// no application routes. Tests use it directly.
func NewRouter(cfg ServerConfig) *gin.Engine {
	logger := cfg.Logger
	router := gin.New()

	router.Use(RecoveryMiddleware(logger))
	if cfg.MaxBodySize > 0 {
		router.Use(RequestSizeLimitMiddleware(cfg.MaxBodySize, logger))
	}
	router.Use(middleware.TracingMiddleware(logger, cfg.ServiceName))
	router.Use(middleware.RequestIDMiddleware(middleware.RequestIDHeader))
	if cfg.Auth != nil {
		router.Use(cfg.Auth)
	}
	router.Use(middleware.OwnerMiddleware())
	router.Use(middleware.ContextLoggerMiddleware(logger, cfg.ServiceName))
	router.Use(BodyLoggingMiddleware(logger))
	router.Use(SecurityHeadersMiddleware())
	router.Use(HTTPMethodWhitelistMiddleware([]string{"GET", "POST", "DELETE", "OPTIONS", "HEAD"}, logger))
	router.Use(CORSMiddleware(CORSConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		ExposedHeaders: cfg.ExposedHeaders,
	}))
	if cfg.RateLimitRPS > 0 {
		router.Use(RateLimitMiddleware(RateLimitConfig{
			RPS:     cfg.RateLimitRPS,
			Burst:   cfg.RateLimitBurst,
			KeyFunc: rateLimitKey,
		}))
	}
	router.Use(middleware.SlowRequestMiddleware(cfg.SlowRequestThresholdMs, cfg.Telemetry, cfg.Alerts, logger))
	router.Use(middleware.ErrorHandlerMiddleware(logger))

	router.GET("/health", healthHandler(cfg))

	return router
}

// rateLimitKey buckets identified owners separately and everyone else by IP.
func rateLimitKey(c *gin.Context) string {
	if owner := middleware.GetOwnerFromGin(c); owner != middleware.AnonymousOwner {
		return "owner:" + owner
	}
	return "ip:" + c.ClientIP()
}

func healthHandler(cfg ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(map[string]string, len(cfg.HealthChecks))
		for name, check := range cfg.HealthChecks {
			if err := check(ctx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": cfg.ServiceName,
			"version": cfg.Version,
			"checks":  checks,
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", logging.NewField("port", s.port))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// Router returns the underlying Gin router for advanced configuration.
func (s *Server) Router() *gin.Engine {
	return s.router
}

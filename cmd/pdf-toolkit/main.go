package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/pdf-toolkit/pkg/api"
	"github.com/yourorg/pdf-toolkit/pkg/batch"
	"github.com/yourorg/pdf-toolkit/pkg/blobclient"
	"github.com/yourorg/pdf-toolkit/pkg/config"
	"github.com/yourorg/pdf-toolkit/pkg/db"
	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/history"
	"github.com/yourorg/pdf-toolkit/pkg/httpservice"
	"github.com/yourorg/pdf-toolkit/pkg/jwt"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/pagespec"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
	"github.com/yourorg/pdf-toolkit/pkg/servicebusclient"
	"github.com/yourorg/pdf-toolkit/pkg/telemetry"
	"github.com/yourorg/pdf-toolkit/pkg/utils"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	database  db.DB
	history   history.Store
	bus       servicebusclient.ServiceBusClient
	worker    *batch.Worker
	server    *httpservice.Server
	newRelic  *telemetry.NewRelicClient
	slack     *telemetry.SlackClient
	healthChk map[string]httpservice.HealthCheck
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync(logger)

	logger.Info("Starting PDF toolkit",
		logging.NewField("version", cfg.AppVersion),
		logging.NewField("environment", cfg.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", logging.NewField("error", err))
		os.Exit(1)
	}

	app.worker.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", logging.NewField("error", err))
		}
	}

	app.shutdown()
}

// loadConfig reads the environment, layered over CONFIG_FILE when set.
func loadConfig() (*config.Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return config.LoadConfigFromFile(path)
	}
	return config.LoadConfigFromEnv()
}

func newApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	app := &App{
		config:    cfg,
		logger:    logger,
		healthChk: map[string]httpservice.HealthCheck{},
	}

	var err error
	app.newRelic, err = telemetry.NewNewRelicClient(telemetry.NewRelicConfig{
		LicenseKey:  cfg.NewRelicLicenseKey,
		AppName:     cfg.NewRelicAppName,
		ServiceName: cfg.AppName,
		Enabled:     cfg.NewRelicEnabled,
	}, logger)
	if err != nil {
		return nil, err
	}
	app.slack = telemetry.NewSlackClient(telemetry.SlackConfig{
		WebhookURL:  cfg.SlackWebhookURL,
		ServiceName: cfg.AppName,
		Channel:     cfg.SlackChannel,
		Enabled:     cfg.SlackEnabled,
	}, logger)

	if err := app.initHistory(ctx); err != nil {
		return nil, err
	}

	limits := processor.Limits{MaxFileSize: cfg.MaxFileSizeBytes(), MaxFiles: cfg.MaxFiles}
	proc := processor.New(docengine.NewPDFLibrary(logger), logger,
		processor.WithPageSpecPolicy(pagespec.ParsePolicy(cfg.PageSpecPolicy)),
		processor.WithLimits(limits),
		processor.WithRecorder(app.newRelic),
		processor.WithTimeout(time.Duration(cfg.ToolTimeout)*time.Second),
	)

	submitter, err := app.initBatch(ctx, proc, limits)
	if err != nil {
		return nil, err
	}

	var auth gin.HandlerFunc
	if cfg.JWTSecret != "" {
		jwtService, err := jwt.NewJWTServiceFromConfig(jwt.Config{SecretKey: cfg.JWTSecret, Issuer: cfg.AppName}, logger)
		if err != nil {
			return nil, fmt.Errorf("jwt: %w", err)
		}
		auth = jwt.JWTMiddleware(jwtService, cfg.AuthRequired, logger)
	}

	app.server, err = httpservice.NewServer(httpservice.ServerConfig{
		Port:                   cfg.HTTPPort,
		ReadTimeout:            time.Duration(cfg.HTTPReadTimeout) * time.Second,
		WriteTimeout:           time.Duration(cfg.HTTPWriteTimeout) * time.Second,
		IdleTimeout:            time.Duration(cfg.HTTPIdleTimeout) * time.Second,
		Logger:                 logger,
		ServiceName:            cfg.AppName,
		Version:                cfg.AppVersion,
		RateLimitRPS:           cfg.RateLimitRPS,
		RateLimitBurst:         cfg.RateLimitBurst,
		AllowedOrigins:         cfg.CORSOrigins,
		ExposedHeaders:         api.ExposedHeaders,
		MaxBodySize:            int64(cfg.MaxBodySizeMB) * 1024 * 1024,
		Auth:                   auth,
		SlowRequestThresholdMs: int64(cfg.SlowRequestThresholdMs),
		Telemetry:              app.newRelic,
		Alerts:                 app.slack,
		HealthChecks:           app.healthChk,
	},
		api.NewToolsHandler(proc, app.history),
		api.NewHistoryHandler(app.history),
		api.NewJobsHandler(submitter),
	)
	if err != nil {
		return nil, err
	}
	return app, nil
}

// initHistory uses Postgres when DATABASE_URL is set and memory otherwise.
func (a *App) initHistory(ctx context.Context) error {
	if a.config.DatabaseURL == "" {
		a.logger.Info("Keeping history in memory (DATABASE_URL not set)")
		a.history = history.NewMemoryStore(a.config.HistoryLimit)
		return nil
	}

	database, err := db.NewPostgresDB(ctx, a.config.DatabaseURL, db.DefaultPoolConfig())
	if err != nil {
		return err
	}
	store, err := history.NewPostgresStore(ctx, database, a.config.HistoryLimit)
	if err != nil {
		database.Close()
		return err
	}
	a.database = database
	a.history = store
	a.healthChk["database"] = database.Ping
	return nil
}

// initBatch wires Azure storage and queueing when configured. Without them
// jobs run on an in-process queue, which is enough for one instance.
func (a *App) initBatch(ctx context.Context, proc *processor.Processor, limits processor.Limits) (*batch.Submitter, error) {
	cfg := a.config
	var blobs blobclient.BlobClient

	if cfg.BatchEnabled() {
		azBlobs, err := blobclient.NewAzureBlobClient(ctx, blobclient.AzureConfig{
			AccountName:      cfg.BlobStorageAccountName,
			AccountKey:       cfg.BlobStorageAccountKey,
			ConnectionString: cfg.BlobConnectionString,
			Container:        cfg.BlobContainer,
			AccessTier:       cfg.BlobAccessTier,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		bus, err := servicebusclient.NewAzureServiceBusClient(servicebusclient.AzureConfig{
			ConnectionString: cfg.ServiceBusConnectionString,
			Namespace:        cfg.ServiceBusNamespace,
			KeyName:          cfg.ServiceBusKeyName,
			KeyValue:         cfg.ServiceBusKeyValue,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		blobs, a.bus = azBlobs, bus
	} else {
		a.logger.Info("Using in-process job queue (blob storage or Service Bus not configured)")
		blobs, a.bus = blobclient.NewMockBlobClient(), servicebusclient.NewMockServiceBusClient()
	}

	retry := utils.RetryConfig{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: time.Duration(cfg.RetryInitialDelay) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.RetryMaxDelay) * time.Millisecond,
		Multiplier:   2.0,
	}
	jobs := batch.NewMemoryJobStore()

	worker, err := batch.NewWorker(batch.WorkerDeps{
		Blobs:   blobs,
		Bus:     a.bus,
		Jobs:    jobs,
		Runner:  proc,
		History: a.history,
		Alerter: a.slack,
	}, batch.WorkerConfig{
		Queue:         cfg.JobQueue,
		Workers:       cfg.JobWorkers,
		MaxDeliveries: uint32(cfg.JobMaxDeliveries),
		Retry:         retry,
	}, a.logger)
	if err != nil {
		return nil, err
	}
	a.worker = worker

	return batch.NewSubmitter(blobs, a.bus, jobs, batch.SubmitterConfig{
		Queue:  cfg.JobQueue,
		Limits: limits,
		Retry:  retry,
	}, a.logger), nil
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", logging.NewField("error", err))
	}
	if err := a.worker.Stop(ctx); err != nil {
		a.logger.Error("Worker shutdown error", logging.NewField("error", err))
	}
	if err := a.bus.Close(ctx); err != nil {
		a.logger.Warn("Service Bus close error", logging.NewField("error", err))
	}
	if a.database != nil {
		if err := a.database.Close(); err != nil {
			a.logger.Warn("Database close error", logging.NewField("error", err))
		}
	}
	a.newRelic.Shutdown(10 * time.Second)
	a.logger.Info("Shutdown complete")
}

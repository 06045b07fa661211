package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
)

// NewRelicClient wraps the New Relic agent.
type NewRelicClient struct {
	app         *newrelic.Application
	logger      logging.Logger
	serviceName string
	enabled     bool
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	LicenseKey  string
	AppName     string
	ServiceName string
	Enabled     bool
}

// ToolRun describes one finished tool invocation.
type ToolRun struct {
	Tool         string
	Source       string // "http", "job" or "cli"
	DurationMs   int64
	Files        int
	OriginalSize int64
	ResultSize   int64
	ErrorCode    string
}

// NewNewRelicClient creates a new New Relic client. A disabled client is
// returned when no license key is configured; all its methods are no-ops.
func NewNewRelicClient(cfg NewRelicConfig, logger logging.Logger) (*NewRelicClient, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		logger.Info("New Relic disabled or license key not provided")
		return &NewRelicClient{
			enabled:     false,
			logger:      logger,
			serviceName: cfg.ServiceName,
		}, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	logger.Info("New Relic client initialized",
		logging.NewField("app_name", cfg.AppName),
		logging.NewField("service", cfg.ServiceName),
	)

	return &NewRelicClient{
		app:         app,
		logger:      logger,
		serviceName: cfg.ServiceName,
		enabled:     true,
	}, nil
}

// Enabled reports whether events are actually sent.
func (n *NewRelicClient) Enabled() bool {
	return n.enabled && n.app != nil
}

func (n *NewRelicClient) recordTransaction(ctx context.Context, name string, durationMs int64, statusCode int, traceID, requestID string) {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		txn = n.app.StartTransaction(name)
		defer txn.End()
	}

	txn.AddAttribute("trace_id", traceID)
	txn.AddAttribute("request_id", requestID)
	txn.AddAttribute("status_code", statusCode)
	txn.AddAttribute("duration_ms", durationMs)
	txn.AddAttribute("service", n.serviceName)

	if statusCode >= 500 {
		txn.NoticeError(fmt.Errorf("HTTP %d", statusCode))
	}
}

// RecordToolRun records a PdfToolRun custom event.
func (n *NewRelicClient) RecordToolRun(run ToolRun) {
	if !n.Enabled() {
		return
	}

	n.app.RecordCustomEvent("PdfToolRun", map[string]interface{}{
		"service":       n.serviceName,
		"tool":          run.Tool,
		"source":        run.Source,
		"duration_ms":   run.DurationMs,
		"files":         run.Files,
		"original_size": run.OriginalSize,
		"result_size":   run.ResultSize,
		"error_code":    run.ErrorCode,
		"success":       run.ErrorCode == "",
	})
}

// RecordSlowRequest records a slow request event.
func (n *NewRelicClient) RecordSlowRequest(ctx context.Context, path string, durationMs int64, traceID, requestID string) {
	if !n.Enabled() {
		return
	}

	n.app.RecordCustomEvent("SlowRequest", map[string]interface{}{
		"service":     n.serviceName,
		"path":        path,
		"duration_ms": durationMs,
		"trace_id":    traceID,
		"request_id":  requestID,
	})
	n.recordTransaction(ctx, path, durationMs, 200, traceID, requestID)
}

// RecordError records an error event.
func (n *NewRelicClient) RecordError(ctx context.Context, path, errorMsg string, statusCode int, traceID, requestID string) {
	if !n.Enabled() {
		return
	}

	n.app.RecordCustomEvent("ServiceError", map[string]interface{}{
		"service":     n.serviceName,
		"path":        path,
		"error":       errorMsg,
		"status_code": statusCode,
		"trace_id":    traceID,
		"request_id":  requestID,
	})
	n.recordTransaction(ctx, path, 0, statusCode, traceID, requestID)
}

// Shutdown flushes pending events.
func (n *NewRelicClient) Shutdown(timeout time.Duration) {
	if n.Enabled() {
		n.app.Shutdown(timeout)
	}
}

package logging

import (
	"context"
)

type contextKey string

const loggerKey contextKey = "logger"

// ContextKey is the type of correlation ID keys stored on a context.
type ContextKey string

const (
	TraceIDKey   ContextKey = "trace_id"
	RequestIDKey ContextKey = "request_id"
	JobIDKey     ContextKey = "job_id"
	OwnerKey     ContextKey = "owner"
)

var correlationKeys = []ContextKey{TraceIDKey, RequestIDKey, JobIDKey, OwnerKey}

// WithCorrelation stores a correlation ID on ctx so the *WithContext log
// methods pick it up.
func WithCorrelation(ctx context.Context, key ContextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// Correlation returns the correlation ID stored under key, or "".
func Correlation(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from the context.
// Returns a no-op logger if not found.
func FromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return &noOpLogger{}
}

// noOpLogger is a logger that does nothing.
type noOpLogger struct{}

func (n *noOpLogger) Debug(msg string, fields ...Field)                                 {}
func (n *noOpLogger) Info(msg string, fields ...Field)                                  {}
func (n *noOpLogger) Warn(msg string, fields ...Field)                                  {}
func (n *noOpLogger) Error(msg string, fields ...Field)                                 {}
func (n *noOpLogger) Fatal(msg string, fields ...Field)                                 {}
func (n *noOpLogger) With(fields ...Field) Logger                                       { return n }
func (n *noOpLogger) InfoWithContext(ctx context.Context, msg string, fields ...Field)  {}
func (n *noOpLogger) WarnWithContext(ctx context.Context, msg string, fields ...Field)  {}
func (n *noOpLogger) ErrorWithContext(ctx context.Context, msg string, fields ...Field) {}

package logging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger

	// Context variants append any correlation IDs found on ctx
	// (trace_id, request_id, job_id, owner).
	InfoWithContext(ctx context.Context, msg string, fields ...Field)
	WarnWithContext(ctx context.Context, msg string, fields ...Field)
	ErrorWithContext(ctx context.Context, msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// NewField creates a new log field.
func NewField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// zapLogger is the zap-based implementation of Logger.
type zapLogger struct {
	logger *zap.Logger
}

// NewLogger builds a zap logger. level is any zap level name (debug, info,
// warn, error) and falls back to info; format is json or console ("text" is
// accepted as console).
func NewLogger(level, format string) (Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	switch format {
	case "text", "console":
		format = "console"
	case "", "json":
		format = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.Encoding = format
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	config.DisableCaller = true
	config.DisableStacktrace = true

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &zapLogger{logger: logger}, nil
}

// NewZapLogger wraps an existing zap logger.
func NewZapLogger(l *zap.Logger) Logger {
	return &zapLogger{logger: l}
}

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &noOpLogger{}
}

func (z *zapLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug(msg, z.fieldsToZap(fields)...)
}

func (z *zapLogger) Info(msg string, fields ...Field) {
	z.logger.Info(msg, z.fieldsToZap(fields)...)
}

func (z *zapLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn(msg, z.fieldsToZap(fields)...)
}

func (z *zapLogger) Error(msg string, fields ...Field) {
	z.logger.Error(msg, z.fieldsToZap(fields)...)
}

// Fatal logs a fatal message and exits.
func (z *zapLogger) Fatal(msg string, fields ...Field) {
	z.logger.Fatal(msg, z.fieldsToZap(fields)...)
}

// With creates a new logger with additional fields.
func (z *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: z.logger.With(z.fieldsToZap(fields)...)}
}

func (z *zapLogger) InfoWithContext(ctx context.Context, msg string, fields ...Field) {
	z.logger.Info(msg, z.fieldsToZap(z.enrichFields(ctx, fields))...)
}

func (z *zapLogger) WarnWithContext(ctx context.Context, msg string, fields ...Field) {
	z.logger.Warn(msg, z.fieldsToZap(z.enrichFields(ctx, fields))...)
}

func (z *zapLogger) ErrorWithContext(ctx context.Context, msg string, fields ...Field) {
	z.logger.Error(msg, z.fieldsToZap(z.enrichFields(ctx, fields))...)
}

// enrichFields appends correlation IDs stored on ctx to fields.
func (z *zapLogger) enrichFields(ctx context.Context, fields []Field) []Field {
	if ctx == nil {
		return fields
	}
	for _, key := range correlationKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, NewField(string(key), v))
		}
	}
	return fields
}

// fieldsToZap converts Field slice to zap fields.
func (z *zapLogger) fieldsToZap(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			zapFields = append(zapFields, zap.String(f.Key, v))
		case int:
			zapFields = append(zapFields, zap.Int(f.Key, v))
		case int64:
			zapFields = append(zapFields, zap.Int64(f.Key, v))
		case uint32:
			zapFields = append(zapFields, zap.Uint32(f.Key, v))
		case time.Duration:
			zapFields = append(zapFields, zap.Duration(f.Key, v))
		case []string:
			zapFields = append(zapFields, zap.Strings(f.Key, v))
		case float64:
			zapFields = append(zapFields, zap.Float64(f.Key, v))
		case bool:
			zapFields = append(zapFields, zap.Bool(f.Key, v))
		case error:
			zapFields = append(zapFields, zap.NamedError(f.Key, v))
		default:
			zapFields = append(zapFields, zap.Any(f.Key, v))
		}
	}
	return zapFields
}

// Sync flushes any buffered log entries. Should be called before application exit.
func Sync(logger Logger) {
	if zl, ok := logger.(*zapLogger); ok {
		_ = zl.logger.Sync()
	}
}

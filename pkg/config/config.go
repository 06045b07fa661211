package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigSource defines an interface for loading configuration from various sources.
type ConfigSource interface {
	Get(key string) (string, bool)
	GetWithDefault(key, defaultValue string) string
}

// EnvConfigSource loads configuration from environment variables.
type EnvConfigSource struct{}

// Get retrieves an environment variable.
func (e *EnvConfigSource) Get(key string) (string, bool) {
	val := os.Getenv(key)
	return val, val != ""
}

// GetWithDefault retrieves an environment variable or returns a default value.
func (e *EnvConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := e.Get(key); ok {
		return val
	}
	return defaultValue
}

// MapConfigSource serves configuration from a fixed map. Used by tests and
// the CLI, which takes its settings from flags.
type MapConfigSource map[string]string

func (m MapConfigSource) Get(key string) (string, bool) {
	val, ok := m[key]
	return val, ok && val != ""
}

func (m MapConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := m.Get(key); ok {
		return val
	}
	return defaultValue
}

// FileConfigSource loads configuration from a JSON or YAML file.
type FileConfigSource struct {
	data map[string]interface{}
}

// NewFileConfigSource creates a new file-based config source.
// Supports both JSON and YAML files based on file extension.
func NewFileConfigSource(filePath string) (*FileConfigSource, error) {
	fileData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	data := make(map[string]interface{})
	switch {
	case strings.HasSuffix(filePath, ".yaml"), strings.HasSuffix(filePath, ".yml"):
		if err := yaml.Unmarshal(fileData, &data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case strings.HasSuffix(filePath, ".json"):
		if err := json.Unmarshal(fileData, &data); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format, use .json, .yaml, or .yml")
	}

	return &FileConfigSource{data: data}, nil
}

// Get retrieves a value using dot notation ("pdf.max_files"). Env-style keys
// ("MAX_FILES") are also looked up lower-cased at the top level.
func (f *FileConfigSource) Get(key string) (string, bool) {
	if val, ok := f.lookup(key); ok {
		return val, true
	}
	return f.lookup(strings.ToLower(key))
}

func (f *FileConfigSource) lookup(key string) (string, bool) {
	var current interface{} = f.data
	for _, k := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		val, exists := m[k]
		if !exists {
			return "", false
		}
		current = val
	}

	switch v := current.(type) {
	case string:
		return v, true
	case []interface{}:
		parts := make([]string, len(v))
		for i, p := range v {
			parts[i] = fmt.Sprintf("%v", p)
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// GetWithDefault retrieves a value from the config file or returns a default.
func (f *FileConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := f.Get(key); ok {
		return val
	}
	return defaultValue
}

// Config holds application configuration.
type Config struct {
	// Blob Storage configuration
	BlobStorageAccountName string
	BlobStorageAccountKey  string
	BlobContainer          string
	BlobAccessTier         string // Hot, Cool, Archive
	BlobConnectionString   string

	// Service Bus configuration
	ServiceBusNamespace        string
	ServiceBusKeyName          string
	ServiceBusKeyValue         string
	ServiceBusConnectionString string

	// Batch jobs
	JobQueue         string
	JobWorkers       int
	JobMaxDeliveries int

	// HTTP Server configuration
	HTTPPort         int
	HTTPReadTimeout  int // seconds
	HTTPWriteTimeout int // seconds
	HTTPIdleTimeout  int // seconds
	MaxBodySizeMB    int
	RateLimitRPS     float64
	RateLimitBurst   int
	CORSOrigins      []string

	// Logging configuration
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, console

	// Application configuration
	AppName     string
	AppVersion  string
	Environment string // dev, staging, prod

	// Document processing
	PageSpecPolicy string // lenient, strict
	MaxFileSizeMB  int
	MaxFiles       int
	HistoryLimit   int
	ToolTimeout    int // seconds, 0 disables

	// Persistence; empty DatabaseURL keeps history in memory.
	DatabaseURL string

	// Auth; empty JWTSecret disables bearer tokens entirely.
	JWTSecret    string
	AuthRequired bool

	// Telemetry
	NewRelicLicenseKey     string
	NewRelicAppName        string
	NewRelicEnabled        bool
	SlackWebhookURL        string
	SlackChannel           string
	SlackEnabled           bool
	SlowRequestThresholdMs int

	// Retry configuration
	RetryMaxAttempts  int
	RetryInitialDelay int // milliseconds
	RetryMaxDelay     int // milliseconds
}

// BatchEnabled reports whether blob storage and a queue are configured.
func (c *Config) BatchEnabled() bool {
	hasBlob := c.BlobConnectionString != "" || c.BlobStorageAccountName != ""
	hasBus := c.ServiceBusConnectionString != "" || c.ServiceBusNamespace != ""
	return hasBlob && hasBus
}

// MaxFileSizeBytes returns the per-file upload limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.MaxFileSizeMB) * 1024 * 1024
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.MaxFiles < 1 {
		return fmt.Errorf("MAX_FILES must be at least 1, got %d", c.MaxFiles)
	}
	if c.MaxFileSizeMB < 1 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be at least 1, got %d", c.MaxFileSizeMB)
	}
	if c.MaxBodySizeMB < c.MaxFileSizeMB {
		return fmt.Errorf("MAX_BODY_SIZE_MB (%d) must not be smaller than MAX_FILE_SIZE_MB (%d)", c.MaxBodySizeMB, c.MaxFileSizeMB)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("HISTORY_LIMIT must be at least 1, got %d", c.HistoryLimit)
	}
	if c.PageSpecPolicy != "lenient" && c.PageSpecPolicy != "strict" {
		return fmt.Errorf("PAGE_SPEC_POLICY must be lenient or strict, got %q", c.PageSpecPolicy)
	}
	if c.ToolTimeout < 0 {
		return fmt.Errorf("TOOL_TIMEOUT must not be negative, got %d", c.ToolTimeout)
	}
	if c.AuthRequired && c.JWTSecret == "" {
		return fmt.Errorf("AUTH_REQUIRED needs JWT_SECRET")
	}
	return nil
}

// LoadConfig loads configuration from the provided source.
func LoadConfig(source ConfigSource) (*Config, error) {
	cfg := &Config{}

	getInt := func(key string, defaultValue int) int {
		val, err := strconv.Atoi(source.GetWithDefault(key, strconv.Itoa(defaultValue)))
		if err != nil {
			return defaultValue
		}
		return val
	}
	getFloat := func(key string, defaultValue float64) float64 {
		val, err := strconv.ParseFloat(source.GetWithDefault(key, ""), 64)
		if err != nil {
			return defaultValue
		}
		return val
	}
	getBool := func(key string, defaultValue bool) bool {
		val, err := strconv.ParseBool(source.GetWithDefault(key, ""))
		if err != nil {
			return defaultValue
		}
		return val
	}
	getList := func(key, defaultValue string) []string {
		var out []string
		for _, item := range strings.Split(source.GetWithDefault(key, defaultValue), ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}

	cfg.BlobStorageAccountName = source.GetWithDefault("BLOB_STORAGE_ACCOUNT_NAME", "")
	cfg.BlobStorageAccountKey = source.GetWithDefault("BLOB_STORAGE_ACCOUNT_KEY", "")
	cfg.BlobContainer = source.GetWithDefault("BLOB_CONTAINER", "pdf-jobs")
	cfg.BlobAccessTier = source.GetWithDefault("BLOB_ACCESS_TIER", "Hot")
	cfg.BlobConnectionString = source.GetWithDefault("BLOB_CONNECTION_STRING", "")

	cfg.ServiceBusNamespace = source.GetWithDefault("SERVICE_BUS_NAMESPACE", "")
	cfg.ServiceBusKeyName = source.GetWithDefault("SERVICE_BUS_KEY_NAME", "")
	cfg.ServiceBusKeyValue = source.GetWithDefault("SERVICE_BUS_KEY_VALUE", "")
	cfg.JobQueue = source.GetWithDefault("JOB_QUEUE", "pdf-jobs")
	cfg.JobWorkers = getInt("JOB_WORKERS", 2)
	cfg.JobMaxDeliveries = getInt("JOB_MAX_DELIVERIES", 5)
	cfg.ServiceBusConnectionString = source.GetWithDefault("SERVICE_BUS_CONNECTION_STRING", "")

	cfg.HTTPPort = getInt("HTTP_PORT", 8080)
	cfg.HTTPReadTimeout = getInt("HTTP_READ_TIMEOUT", 60)
	cfg.HTTPWriteTimeout = getInt("HTTP_WRITE_TIMEOUT", 120)
	cfg.HTTPIdleTimeout = getInt("HTTP_IDLE_TIMEOUT", 120)
	cfg.MaxBodySizeMB = getInt("MAX_BODY_SIZE_MB", 2048)
	cfg.RateLimitRPS = getFloat("RATE_LIMIT_RPS", 10)
	cfg.RateLimitBurst = getInt("RATE_LIMIT_BURST", 20)
	cfg.CORSOrigins = getList("CORS_ORIGINS", "*")

	cfg.LogLevel = source.GetWithDefault("LOG_LEVEL", "info")
	cfg.LogFormat = source.GetWithDefault("LOG_FORMAT", "json")

	cfg.AppName = source.GetWithDefault("APP_NAME", "pdf-toolkit")
	cfg.AppVersion = source.GetWithDefault("APP_VERSION", "1.0.0")
	cfg.Environment = source.GetWithDefault("ENVIRONMENT", "dev")

	cfg.PageSpecPolicy = strings.ToLower(source.GetWithDefault("PAGE_SPEC_POLICY", "lenient"))
	cfg.MaxFileSizeMB = getInt("MAX_FILE_SIZE_MB", 100)
	cfg.MaxFiles = getInt("MAX_FILES", 20)
	cfg.HistoryLimit = getInt("HISTORY_LIMIT", 50)
	cfg.ToolTimeout = getInt("TOOL_TIMEOUT", 90)

	cfg.DatabaseURL = source.GetWithDefault("DATABASE_URL", "")

	cfg.JWTSecret = source.GetWithDefault("JWT_SECRET", "")
	cfg.AuthRequired = getBool("AUTH_REQUIRED", false)

	cfg.NewRelicLicenseKey = source.GetWithDefault("NEW_RELIC_LICENSE_KEY", "")
	cfg.NewRelicAppName = source.GetWithDefault("NEW_RELIC_APP_NAME", cfg.AppName)
	cfg.NewRelicEnabled = getBool("NEW_RELIC_ENABLED", false)
	cfg.SlackWebhookURL = source.GetWithDefault("SLACK_WEBHOOK_URL", "")
	cfg.SlackChannel = source.GetWithDefault("SLACK_CHANNEL", "#pdf-toolkit-alerts")
	cfg.SlackEnabled = getBool("SLACK_ENABLED", false)
	cfg.SlowRequestThresholdMs = getInt("SLOW_REQUEST_THRESHOLD_MS", 10000)

	cfg.RetryMaxAttempts = getInt("RETRY_MAX_ATTEMPTS", 3)
	cfg.RetryInitialDelay = getInt("RETRY_INITIAL_DELAY", 100)
	cfg.RetryMaxDelay = getInt("RETRY_MAX_DELAY", 5000)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromEnv loads configuration from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	return LoadConfig(&EnvConfigSource{})
}

// LoadConfigFromFile loads configuration from a JSON or YAML file.
// Environment variables will override file values if both are set.
func LoadConfigFromFile(filePath string) (*Config, error) {
	fileSource, err := NewFileConfigSource(filePath)
	if err != nil {
		return nil, err
	}

	return LoadConfig(NewCompositeConfigSource(&EnvConfigSource{}, fileSource))
}

// CompositeConfigSource checks multiple config sources in order.
type CompositeConfigSource struct {
	sources []ConfigSource
}

// NewCompositeConfigSource returns a source that consults sources in order.
func NewCompositeConfigSource(sources ...ConfigSource) *CompositeConfigSource {
	return &CompositeConfigSource{sources: sources}
}

// Get retrieves a value from the first source that has it.
func (c *CompositeConfigSource) Get(key string) (string, bool) {
	for _, source := range c.sources {
		if val, ok := source.Get(key); ok {
			return val, true
		}
	}
	return "", false
}

// GetWithDefault retrieves a value from sources or returns default.
func (c *CompositeConfigSource) GetWithDefault(key, defaultValue string) string {
	if val, ok := c.Get(key); ok {
		return val
	}
	return defaultValue
}

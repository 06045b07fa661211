package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(MapConfigSource{})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "lenient", cfg.PageSpecPolicy)
	assert.Equal(t, 100, cfg.MaxFileSizeMB)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxFileSizeBytes())
	assert.Equal(t, 20, cfg.MaxFiles)
	assert.Equal(t, 50, cfg.HistoryLimit)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.AuthRequired)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(MapConfigSource{
		"PAGE_SPEC_POLICY": "STRICT",
		"MAX_FILES":        "5",
		"JOB_WORKERS":      "4",
		"RATE_LIMIT_RPS":   "2.5",
		"CORS_ORIGINS":     "https://a.example, https://b.example",
		"AUTH_REQUIRED":    "true",
		"JWT_SECRET":       "0123456789abcdef0123456789abcdef",
		"HTTP_PORT":        "not-a-number",
	})
	require.NoError(t, err)

	assert.Equal(t, "strict", cfg.PageSpecPolicy)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.Equal(t, 4, cfg.JobWorkers)
	assert.Equal(t, 2.5, cfg.RateLimitRPS)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.AuthRequired)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(MapConfigSource{"PAGE_SPEC_POLICY": "fuzzy"})
	assert.Error(t, err)

	_, err = LoadConfig(MapConfigSource{"AUTH_REQUIRED": "true"})
	assert.Error(t, err)

	_, err = LoadConfig(MapConfigSource{"MAX_FILE_SIZE_MB": "500", "MAX_BODY_SIZE_MB": "100"})
	assert.Error(t, err)
}

func TestLoadConfigFromFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "max_files: 3\nhistory_limit: 10\npdf:\n  watermark_font: Helvetica\ncors_origins:\n  - https://x.example\n  - https://y.example\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	src, err := NewFileConfigSource(path)
	require.NoError(t, err)
	font, ok := src.Get("pdf.watermark_font")
	assert.True(t, ok)
	assert.Equal(t, "Helvetica", font)

	t.Setenv("HISTORY_LIMIT", "7")
	cfg, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxFiles)
	assert.Equal(t, 7, cfg.HistoryLimit)
	assert.Equal(t, []string{"https://x.example", "https://y.example"}, cfg.CORSOrigins)
}

func TestNewFileConfigSource_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("a = 1"), 0o600))

	_, err := NewFileConfigSource(path)
	assert.Error(t, err)
}

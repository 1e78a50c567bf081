package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `version: "1.0"

logging:
  verbose: true
  level: "debug"
  format: "json"

event_reporting:
  minimum_count: 10
  flush_interval: 5s
  trap_exceptions: true
  timestamp_granularity: MILLIS

key_caching:
  unstructured: false
  encrypt: true
  ttl_seconds: 60s

dataset_caching: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "1.0", cfg.Version)
	assert.True(t, cfg.Logging.Verbose)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.EventReporting.MinimumCount)
	assert.Equal(t, 5*time.Second, cfg.EventReporting.FlushInterval.Dur())
	assert.True(t, cfg.EventReporting.TrapExceptions)
	assert.Equal(t, GranularityMillis, cfg.EventReporting.TimestampGranularity)
	assert.False(t, cfg.UnstructuredCachingEnabled())
	assert.True(t, cfg.StructuredCachingEnabled()) // omitted -> default true
	assert.True(t, cfg.KeyCaching.Encrypt)
	assert.Equal(t, 60*time.Second, cfg.KeyCaching.TTL.Dur())
	assert.False(t, cfg.DatasetCachingEnabled())
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 5, cfg.EventReporting.MinimumCount)
	assert.Equal(t, 2*time.Second, cfg.EventReporting.FlushInterval.Dur())
	assert.Equal(t, GranularitySeconds, cfg.EventReporting.TimestampGranularity)
	assert.False(t, cfg.EventReporting.TrapExceptions)
	assert.False(t, cfg.EventReporting.DestroyReportAsync)
	assert.Equal(t, 1800*time.Second, cfg.KeyCaching.TTL.Dur())
	assert.False(t, cfg.KeyCaching.Encrypt)
	assert.True(t, cfg.DatasetCachingEnabled())
	assert.True(t, cfg.UnstructuredCachingEnabled())
	assert.True(t, cfg.StructuredCachingEnabled())
}

func TestSaveToFile_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "out.yaml")

	cfg := Default()
	cfg.Logging.Verbose = true
	require.NoError(t, SaveToFile(cfg, path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, loaded.Logging.Verbose)
	assert.Equal(t, cfg.EventReporting.MinimumCount, loaded.EventReporting.MinimumCount)
}

func TestValidate_RejectsNegativeValues(t *testing.T) {
	cfg := Default()
	cfg.EventReporting.MinimumCount = -1

	issues := Validate(cfg)
	require.NotEmpty(t, issues)
	assert.Equal(t, "error", issues[0].Level)
}

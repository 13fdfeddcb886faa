package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, StorageDisk, cfg.Storage)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "./contextuse.db", cfg.SQLitePath)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONTEXTUSE_STORE", StorePostgres)
	t.Setenv("CONTEXTUSE_POSTGRES_DSN", "postgres://localhost/contextuse")
	t.Setenv("CONTEXTUSE_LOG_LEVEL", "debug")

	cfg := Load()

	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://localhost/contextuse", cfg.PostgresDSN)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestMergeFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "storage: gcs\ngcs_bucket: my-archives\nlog_level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg := Load()
	require.NoError(t, cfg.MergeFile(path))

	assert.Equal(t, StorageGCS, cfg.Storage)
	assert.Equal(t, "my-archives", cfg.GCSBucket)
	assert.Equal(t, slog.LevelError, cfg.LogLevel)

	// Fields absent from the file keep their loaded values.
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "./contextuse.db", cfg.SQLitePath)
}

func TestMergeFileMissing(t *testing.T) {
	cfg := Load()
	assert.Error(t, cfg.MergeFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoggerDualOutput(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("archive ingested", "archive_id", "a1")

	assert.Contains(t, stderr.String(), "archive ingested")
	assert.Contains(t, stderr.String(), "app=contextuse")
	assert.Contains(t, file.String(), `"archive_id":"a1"`)
	assert.Contains(t, file.String(), `"app":"contextuse"`)
	// File output is JSON, stderr is not.
	assert.True(t, strings.HasPrefix(file.String(), "{"))
}

func TestLoggerLevelFilter(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelWarn)

	logger.Info("quiet")
	logger.Warn("loud")

	assert.NotContains(t, stderr.String(), "quiet")
	assert.Contains(t, stderr.String(), "loud")
	assert.NotContains(t, file.String(), "quiet")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"gcs without bucket", func(c *Config) { c.Storage = StorageGCS }, true},
		{"gcs with bucket", func(c *Config) { c.Storage = StorageGCS; c.GCSBucket = "b" }, false},
		{"unknown storage", func(c *Config) { c.Storage = "s3" }, true},
		{"postgres without dsn", func(c *Config) { c.Store = StorePostgres }, true},
		{"unknown store", func(c *Config) { c.Store = "mysql" }, true},
		{"sqlite without path", func(c *Config) { c.SQLitePath = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backend selection.
const (
	StorageDisk = "disk"
	StorageGCS  = "gcs"
)

// Relational store driver selection.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds all configuration values.
type Config struct {
	// Blob storage
	Storage   string `yaml:"storage"`
	DataDir   string `yaml:"data_dir"`
	GCSBucket string `yaml:"gcs_bucket"`

	// Relational store
	Store       string `yaml:"store"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`

	// Raw log level string, resolved into LogLevel after loading.
	LogLevelName string `yaml:"log_level"`
}

// Load reads configuration from environment variables, falling back to
// defaults suitable for local use.
func Load() Config {
	cfg := Config{
		Storage:   getEnv("CONTEXTUSE_STORAGE", StorageDisk),
		DataDir:   getEnv("CONTEXTUSE_DATA_DIR", "./data"),
		GCSBucket: getEnv("CONTEXTUSE_GCS_BUCKET", ""),

		Store:       getEnv("CONTEXTUSE_STORE", StoreSQLite),
		SQLitePath:  getEnv("CONTEXTUSE_SQLITE_PATH", "./contextuse.db"),
		PostgresDSN: getEnv("CONTEXTUSE_POSTGRES_DSN", ""),

		LogFile:      getEnv("CONTEXTUSE_LOG_FILE", "/tmp/contextuse.log"),
		LogLevelName: getEnv("CONTEXTUSE_LOG_LEVEL", "INFO"),
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelName)
	return cfg
}

// MergeFile overlays values from a YAML config file. File values win over
// environment values; empty file fields leave the current value alone.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	merge(&c.Storage, file.Storage)
	merge(&c.DataDir, file.DataDir)
	merge(&c.GCSBucket, file.GCSBucket)
	merge(&c.Store, file.Store)
	merge(&c.SQLitePath, file.SQLitePath)
	merge(&c.PostgresDSN, file.PostgresDSN)
	merge(&c.LogFile, file.LogFile)
	merge(&c.LogLevelName, file.LogLevelName)
	c.LogLevel = parseLogLevel(c.LogLevelName)
	return nil
}

// Validate checks that the selected backends are usable together.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageDisk:
		if c.DataDir == "" {
			return fmt.Errorf("data_dir is required for disk storage")
		}
	case StorageGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("gcs_bucket is required for gcs storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage)
	}

	switch c.Store {
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for sqlite store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres_dsn is required for postgres store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store)
	}
	return nil
}

func merge(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

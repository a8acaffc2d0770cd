// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Upstream  UpstreamConfig
	Reporting ReportingConfig
	MongoDB   MongoDBConfig
	LogLevel  string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port        string
	APIToken    string // empty disables bearer auth
	CORSOrigins []string
}

// StorageConfig holds the SQLite location.
type StorageConfig struct {
	DBPath string
}

// UpstreamConfig points at the backend that owns batches and users.
type UpstreamConfig struct {
	BaseURL  string // empty disables sync
	Token    string
	PageSize int
	SyncCron string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// MongoDBConfig holds settings for the optional report archive.
type MongoDBConfig struct {
	URI    string // empty disables the archive
	DBName string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when the environment is set directly.
		_ = godotenv.Load()
	}

	pageSize, err := strconv.Atoi(getenvWithDefault("UPSTREAM_PAGE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("UPSTREAM_PAGE_SIZE must be an integer: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenvWithDefault("APP_PORT", "8080"),
			APIToken:    os.Getenv("API_TOKEN"),
			CORSOrigins: splitList(getenvWithDefault("CORS_ORIGINS", "*")),
		},
		Storage: StorageConfig{
			DBPath: getenvWithDefault("DB_PATH", "textile.db"),
		},
		Upstream: UpstreamConfig{
			BaseURL:  os.Getenv("UPSTREAM_URL"),
			Token:    os.Getenv("UPSTREAM_TOKEN"),
			PageSize: pageSize,
			SyncCron: getenvWithDefault("SYNC_CRON", "*/15 * * * *"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REPORT_CRON", "0 20 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "UTC"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "textile"),
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	switch {
	case c.Server.Port == "":
		return errors.New("APP_PORT must be provided")
	case c.Storage.DBPath == "":
		return errors.New("DB_PATH must be provided")
	case c.Reporting.CronSchedule == "":
		return errors.New("REPORT_CRON must be provided")
	}

	if _, err := cron.ParseStandard(c.Reporting.CronSchedule); err != nil {
		return fmt.Errorf("REPORT_CRON is not a valid cron expression: %w", err)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE is not a valid location: %w", err)
	}

	if c.Upstream.BaseURL != "" {
		if c.Upstream.PageSize <= 0 {
			return errors.New("UPSTREAM_PAGE_SIZE must be positive")
		}
		if _, err := cron.ParseStandard(c.Upstream.SyncCron); err != nil {
			return fmt.Errorf("SYNC_CRON is not a valid cron expression: %w", err)
		}
	}

	if c.MongoDB.URI != "" && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided with MONGODB_URI")
	}

	return nil
}

// Location resolves Reporting.Timezone. "today" for date validation and
// report windows is computed in this location.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Reporting.Timezone)
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

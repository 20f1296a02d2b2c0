package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Catalog CatalogConfig
	Audit   AuditConfig
	Worker  WorkerConfig
}

// CatalogConfig holds PO-catalog configuration
type CatalogConfig struct {
	Driver string // "json" or "sqlite"
	Path   string
}

// AuditConfig holds audit-trail and report output configuration
type AuditConfig struct {
	InboxDir       string
	TrailPath      string
	ReportPath     string
	TolerancesPath string
}

// WorkerConfig holds processing-queue configuration
type WorkerConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Driver: getEnv("CATALOG_DRIVER", "json"),
			Path:   getEnv("CATALOG_PATH", "purchase_orders.json"),
		},
		Audit: AuditConfig{
			InboxDir:       getEnv("INBOX_DIR", "./inbox"),
			TrailPath:      getEnv("TRAIL_PATH", "./audit_trail.jsonl"),
			ReportPath:     getEnv("REPORT_PATH", "./discrepancy_report.xlsx"),
			TolerancesPath: getEnv("TOLERANCES_PATH", ""),
		},
		Worker: WorkerConfig{
			Workers:        getEnvAsInt("WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 30*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the loaded configuration
func (c *Config) Validate() error {
	if c.Catalog.Path == "" {
		return NewAppError("CONFIG_ERROR", "CATALOG_PATH is required", ErrInvalidInput)
	}
	if c.Catalog.Driver != "json" && c.Catalog.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", "CATALOG_DRIVER must be json or sqlite", ErrInvalidInput)
	}
	if c.Audit.InboxDir == "" {
		return NewAppError("CONFIG_ERROR", "INBOX_DIR is required", ErrInvalidInput)
	}
	return nil
}

// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config represents the invocation configuration
type Config struct {
	// Environment identity
	StackName    string
	SystemBucket string

	// Reconciliation settings
	ReportBucket  string // defaults to SystemBucket
	ReportPath    string
	CutoffSeconds int
	DBConcurrency int

	// Store connections
	Postgres *PostgresConfig
	AWS      *AWSConfig
	Elastic  *ElasticConfig // nil when no index mirror is configured

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Default values
		StackName:     os.Getenv("STACK_NAME"),
		SystemBucket:  os.Getenv("SYSTEM_BUCKET"),
		ReportBucket:  getEnv("REPORT_BUCKET", os.Getenv("SYSTEM_BUCKET")),
		ReportPath:    getEnv("REPORT_PATH", "reconciliation-reports"),
		CutoffSeconds: getEnvAsInt("CUTOFF_SECONDS", 3600),
		DBConcurrency: getEnvAsInt("DB_CONCURRENCY", 4),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}

	// Load store configurations
	pgConfig, err := LoadPostgresConfig()
	if err != nil {
		return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
	}
	cfg.Postgres = pgConfig

	cfg.AWS = LoadAWSConfig()

	// The index mirror is optional; counts against it are only taken
	// when an endpoint is configured.
	cfg.Elastic = LoadElasticConfig()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.StackName == "" {
		return errors.New("STACK_NAME environment variable is required")
	}

	if c.Postgres == nil {
		return errors.New("postgreSQL configuration is required")
	}

	if c.CutoffSeconds <= 0 {
		return errors.New("cutoff seconds must be positive")
	}

	if c.DBConcurrency <= 0 {
		return errors.New("db concurrency must be positive")
	}

	return nil
}

// Cutoff derives the cutoff instant for a reconciliation run started
// at now: records updated before it are excluded from filtered counts.
func (c *Config) Cutoff(now time.Time) time.Time {
	return now.Add(-time.Duration(c.CutoffSeconds) * time.Second)
}

// LegacyTableName returns the stack-prefixed legacy table name for a suffix.
func (c *Config) LegacyTableName(suffix string) string {
	return c.StackName + "-" + suffix
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Statement timeout
	StatementTimeout time.Duration
}

// AWSConfig holds region and endpoint settings for the legacy store
// and the report sink.
type AWSConfig struct {
	Region string

	// DynamoEndpoint overrides the DynamoDB endpoint, used for local
	// stacks; empty means the SDK default.
	DynamoEndpoint string
}

// ElasticConfig holds connection settings for the index mirror.
type ElasticConfig struct {
	Addresses []string
	Username  string
	Password  string
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables
func LoadPostgresConfig() (*PostgresConfig, error) {
	host := os.Getenv("PG_HOST")
	if host == "" {
		return nil, errors.New("PG_HOST environment variable is required")
	}

	user := os.Getenv("PG_USER")
	if user == "" {
		return nil, errors.New("PG_USER environment variable is required")
	}

	password := os.Getenv("PG_PASSWORD")
	if password == "" {
		return nil, errors.New("PG_PASSWORD environment variable is required")
	}

	database := os.Getenv("PG_DATABASE")
	if database == "" {
		return nil, errors.New("PG_DATABASE environment variable is required")
	}

	cfg := &PostgresConfig{
		Host:     host,
		Port:     getEnvAsInt("PG_PORT", 5432),
		User:     user,
		Password: password,
		Database: database,
		SSLMode:  getEnv("PG_SSL_MODE", "require"),

		// DB_MAX_POOL is the invocation-level knob; the PG_* variables
		// exist for operators who need finer control.
		MaxOpenConns:    getEnvAsInt("PG_MAX_OPEN_CONNS", getEnvAsInt("DB_MAX_POOL", 10)),
		MaxIdleConns:    getEnvAsInt("PG_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: time.Duration(getEnvAsInt("PG_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		ConnMaxIdleTime: time.Duration(getEnvAsInt("PG_CONN_MAX_IDLE_MIN", 5)) * time.Minute,

		StatementTimeout: time.Duration(getEnvAsInt("PG_STATEMENT_TIMEOUT_MS", 0)) * time.Millisecond,
	}

	if cfg.MaxOpenConns <= 0 {
		return nil, errors.New("postgres pool size must be positive")
	}

	return cfg, nil
}

// ConnectionString builds a lib/pq connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LoadAWSConfig loads AWS settings from environment variables
func LoadAWSConfig() *AWSConfig {
	return &AWSConfig{
		Region:         getEnv("AWS_REGION", "us-east-1"),
		DynamoEndpoint: os.Getenv("DYNAMO_ENDPOINT"),
	}
}

// LoadElasticConfig loads index mirror settings from environment
// variables. Returns nil when no mirror is configured.
func LoadElasticConfig() *ElasticConfig {
	raw := os.Getenv("ELASTICSEARCH_URL")
	if raw == "" {
		return nil
	}

	addresses := make([]string, 0)
	for _, addr := range strings.Split(raw, ",") {
		addr = strings.TrimSpace(addr)
		if addr != "" {
			addresses = append(addresses, addr)
		}
	}
	if len(addresses) == 0 {
		return nil
	}

	return &ElasticConfig{
		Addresses: addresses,
		Username:  os.Getenv("ELASTICSEARCH_USER"),
		Password:  os.Getenv("ELASTICSEARCH_PASSWORD"),
	}
}

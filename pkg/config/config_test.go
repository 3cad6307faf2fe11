// pkg/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("STACK_NAME", "test-stack")
	t.Setenv("PG_HOST", "localhost")
	t.Setenv("PG_USER", "postgres")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "migration")

	// Clear anything the surrounding environment might have set.
	for _, key := range []string{
		"CUTOFF_SECONDS", "DB_CONCURRENCY", "DB_MAX_POOL",
		"REPORT_PATH", "REPORT_BUCKET", "SYSTEM_BUCKET",
		"LOG_LEVEL", "LOG_FORMAT", "ELASTICSEARCH_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test-stack", cfg.StackName)
	assert.Equal(t, 3600, cfg.CutoffSeconds)
	assert.Equal(t, 4, cfg.DBConcurrency)
	assert.Equal(t, "reconciliation-reports", cfg.ReportPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)

	require.NotNil(t, cfg.Postgres)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 10, cfg.Postgres.MaxOpenConns)

	// No ELASTICSEARCH_URL means no index mirror.
	assert.Nil(t, cfg.Elastic)
}

func TestLoadConfigRequiresStackName(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STACK_NAME", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STACK_NAME")
}

func TestLoadConfigRequiresPostgresSettings(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PG_HOST", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PG_HOST")
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CUTOFF_SECONDS", "7200")
	t.Setenv("DB_CONCURRENCY", "8")
	t.Setenv("DB_MAX_POOL", "25")
	t.Setenv("SYSTEM_BUCKET", "test-internal")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7200, cfg.CutoffSeconds)
	assert.Equal(t, 8, cfg.DBConcurrency)
	assert.Equal(t, 25, cfg.Postgres.MaxOpenConns)

	// The report bucket falls back to the system bucket.
	assert.Equal(t, "test-internal", cfg.ReportBucket)
}

func TestLoadConfigElastic(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ELASTICSEARCH_URL", "http://es-1:9200, http://es-2:9200")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.NotNil(t, cfg.Elastic)
	assert.Equal(t, []string{"http://es-1:9200", "http://es-2:9200"}, cfg.Elastic.Addresses)
}

func TestCutoff(t *testing.T) {
	cfg := &Config{CutoffSeconds: 3600}
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC), cfg.Cutoff(now))
}

func TestLegacyTableName(t *testing.T) {
	cfg := &Config{StackName: "prod"}
	assert.Equal(t, "prod-CollectionsTable", cfg.LegacyTableName("CollectionsTable"))
}

func TestConnectionString(t *testing.T) {
	pg := &PostgresConfig{
		Host:     "db.example.org",
		Port:     5432,
		User:     "app",
		Password: "secret",
		Database: "migration",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.example.org port=5432 user=app password=secret dbname=migration sslmode=require",
		pg.ConnectionString())
}

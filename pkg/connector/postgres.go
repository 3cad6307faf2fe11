// pkg/connector/postgres.go
package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/config"
	"github.com/stratoform/dynamigrate/pkg/model"
)

// PostgresStore implements RelationalStore over PostgreSQL
type PostgresStore struct {
	db        *sqlx.DB
	logger    *zap.Logger
	cfg       *config.PostgresConfig
	closeOnce sync.Once
}

// NewPostgresStore creates and validates a new PostgreSQL store handle
func NewPostgresStore(ctx context.Context, cfg *config.PostgresConfig) (*PostgresStore, error) {
	logger := zap.L().Named("postgres-store")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := sqlx.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Set statement timeout if configured
	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	// Verify connection
	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, &SourceUnavailableError{Source: model.SourceRelational, Err: err}
	}

	store := &PostgresStore{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Database, db)
	return store, nil
}

// Find looks up an existing row by identity key
func (s *PostgresStore) Find(ctx context.Context, kind model.EntityKind, key model.IdentityKey) (*model.TargetRow, error) {
	table := kind.RelationalTable()
	if table == "" {
		return nil, fmt.Errorf("no relational table for entity kind %q", kind)
	}

	query := fmt.Sprintf(
		"SELECT id, created_at, updated_at FROM %s WHERE name = $1 AND version = $2",
		table,
	)

	var (
		id        int64
		createdAt time.Time
		updatedAt time.Time
	)
	err := s.db.QueryRowxContext(ctx, query, key.Name, key.Version).
		Scan(&id, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s %q: %w", kind, key, err)
	}

	row := model.NewTargetRow(kind, key, createdAt, updatedAt)
	row.Set("id", id)
	return row, nil
}

// Insert writes a new row and returns its surrogate identifier.
// The insert is conflict-free: if a concurrent writer won the race
// for the identity key, ErrDuplicateRow is returned instead of a
// constraint violation.
func (s *PostgresStore) Insert(ctx context.Context, row *model.TargetRow) (int64, error) {
	table := row.Kind.RelationalTable()
	if table == "" {
		return 0, fmt.Errorf("no relational table for entity kind %q", row.Kind)
	}

	columns := []string{"name", "version", "created_at", "updated_at"}
	values := []interface{}{row.Key.Name, row.Key.Version, row.CreatedAt, row.UpdatedAt}
	for _, name := range row.ColumnNames() {
		if name == "name" || name == "version" {
			continue // identity columns come from the key
		}
		v, _ := row.Column(name)
		columns = append(columns, name)
		values = append(values, v)
	}

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (name, version) DO NOTHING RETURNING id",
		table,
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
	)

	var id int64
	err := s.db.QueryRowxContext(ctx, query, values...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict target matched: another writer inserted this
		// identity between our existence check and now.
		return 0, ErrDuplicateRow
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s %q: %w", row.Kind, row.Key, err)
	}

	return id, nil
}

// Count returns the number of rows updated at or after the cutoff
func (s *PostgresStore) Count(ctx context.Context, kind model.EntityKind, cutoff time.Time) (int64, error) {
	table := kind.RelationalTable()
	if table == "" {
		return 0, fmt.Errorf("no relational table for entity kind %q", kind)
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE updated_at >= $1", table)

	var count int64
	if err := s.db.QueryRowxContext(ctx, query, cutoff).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s rows: %w", kind, err)
	}
	return count, nil
}

// Close releases the store handle. Safe against double invocation so
// the "exactly once" contract holds even on error paths.
func (s *PostgresStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("Closing PostgreSQL connection")
		LogConnectionStats(s.logger, s.cfg.Database, s.db)
		err = s.db.Close()
	})
	return err
}

// pkg/connector/connector.go
package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/model"
)

// ErrDuplicateRow is returned by RelationalStore.Insert when a row
// already exists for the identity key. The loader checks existence
// first, so this only surfaces if two writers ever race; the insert
// itself is conflict-free either way.
var ErrDuplicateRow = errors.New("row already exists for identity key")

// RelationalStore is the narrow interface the migration engine needs
// from the target store.
type RelationalStore interface {
	// Find looks up an existing row by identity key. Returns (nil, nil)
	// when no row exists.
	Find(ctx context.Context, kind model.EntityKind, key model.IdentityKey) (*model.TargetRow, error)

	// Insert writes a new row and returns its surrogate identifier.
	Insert(ctx context.Context, row *model.TargetRow) (int64, error)

	// Count returns the number of rows of a kind updated at or after
	// the cutoff instant.
	Count(ctx context.Context, kind model.EntityKind, cutoff time.Time) (int64, error)

	// Close releases the store handle. Must be invoked exactly once
	// per invocation regardless of success or failure.
	Close() error
}

// LegacyTable is a forward-only, order-preserving cursor over one
// legacy store table. Scan order is whatever the store's native order
// is; it need not match insertion order.
type LegacyTable interface {
	// Name returns the legacy table name.
	Name() string

	// Peek returns the current record without consuming it, or nil
	// when the cursor is exhausted.
	Peek(ctx context.Context) (model.LegacyRecord, error)

	// Advance moves the cursor past the current record.
	Advance(ctx context.Context) error

	// Count returns the table's total record count.
	Count(ctx context.Context) (int64, error)
}

// CountSource is a read-only record-count capability. The aggregator
// fans out over these without knowing which store backs each one.
type CountSource interface {
	Name() string
	Count(ctx context.Context, kind model.EntityKind, cutoff time.Time) (model.CountSnapshot, error)
}

// ReportSink persists a serialized reconciliation report and returns
// the location written.
type ReportSink interface {
	Persist(ctx context.Context, key string, report *model.ReconciliationReport) (string, error)
}

// SourceUnavailableError means a cursor or count source cannot be
// reached. It is fatal: the run aborts rather than producing partial
// results.
type SourceUnavailableError struct {
	Source string
	Err    error
}

// Error implements the error interface
func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error
func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// SinkError means report persistence failed. It is logged but does
// not invalidate the in-memory report returned to the caller.
type SinkError struct {
	Destination string
	Err         error
}

// Error implements the error interface
func (e *SinkError) Error() string {
	return fmt.Sprintf("report sink %s failed: %v", e.Destination, e.Err)
}

// Unwrap returns the underlying error
func (e *SinkError) Unwrap() error {
	return e.Err
}

// PingWithTimeout attempts to ping a database with a timeout
func PingWithTimeout(ctx context.Context, db *sqlx.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- db.PingContext(pingCtx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-pingCtx.Done():
		return fmt.Errorf("ping timed out after %v: %w", timeout, pingCtx.Err())
	}
}

// LogConnectionStats logs connection pool statistics
func LogConnectionStats(logger *zap.Logger, name string, db *sqlx.DB) {
	stats := db.Stats()
	logger.Debug("Connection pool stats",
		zap.String("database", name),
		zap.Int("open_connections", stats.OpenConnections),
		zap.Int("in_use", stats.InUse),
		zap.Int("idle", stats.Idle),
		zap.Int("max_open", stats.MaxOpenConnections),
	)
}

// storeCountSource adapts a RelationalStore into a CountSource so the
// aggregator's fan-out stays source-agnostic.
type storeCountSource struct {
	name  string
	store RelationalStore
}

// NewStoreCountSource wraps a relational store as a count source.
func NewStoreCountSource(name string, store RelationalStore) CountSource {
	return &storeCountSource{name: name, store: store}
}

func (s *storeCountSource) Name() string { return s.name }

func (s *storeCountSource) Count(ctx context.Context, kind model.EntityKind, cutoff time.Time) (model.CountSnapshot, error) {
	count, err := s.store.Count(ctx, kind, cutoff)
	if err != nil {
		return model.CountSnapshot{}, &SourceUnavailableError{Source: s.name, Err: err}
	}
	return model.CountSnapshot{
		Kind:       kind,
		Source:     s.name,
		Count:      count,
		Applicable: true,
		Filtered:   true,
		Cutoff:     cutoff,
	}, nil
}

// pkg/migrate/migrate.go
package migrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/connector"
	"github.com/stratoform/dynamigrate/pkg/model"
	"github.com/stratoform/dynamigrate/pkg/transform"
)

// Migrator drives migration of legacy tables to completion. Records
// are processed strictly sequentially: the loader's check-then-insert
// is not atomic, so concurrent writers for the same entity kind would
// race. Safety comes from loader idempotency plus this single-writer
// scan, not from database-side concurrency control.
type Migrator struct {
	loader  *Loader
	metrics *Metrics
	logger  *zap.Logger
}

// NewMigrator creates a migrator over a relational store
func NewMigrator(store connector.RelationalStore, logger *zap.Logger) *Migrator {
	return &Migrator{
		loader:  NewLoader(store, logger),
		metrics: NewMetrics(logger),
		logger:  logger.Named("migrator"),
	}
}

// Metrics returns the migrator's run metrics
func (m *Migrator) Metrics() *Metrics {
	return m.metrics
}

// MigrateTable migrates one legacy table to exhaustion and returns
// the number of newly inserted rows. Per-record failures (validation
// or load) are logged with the record's identity and never abort the
// run; only an unreachable cursor is fatal. Skipped and failed
// records do not count toward the returned total.
func (m *Migrator) MigrateTable(ctx context.Context, table connector.LegacyTable, kind model.EntityKind) (int64, error) {
	transformer, err := transform.NewTransformer(kind)
	if err != nil {
		return 0, fmt.Errorf("cannot migrate %s records: %w", kind, err)
	}

	m.logger.Info("Starting table migration",
		zap.String("table", table.Name()),
		zap.String("kind", string(kind)))

	m.metrics.StartTable(kind, table.Name())

	var inserted int64
	for {
		record, err := table.Peek(ctx)
		if err != nil {
			// Cursor failure is fatal; the partial inserted count is
			// still meaningful to the caller.
			return inserted, fmt.Errorf("scan of %s failed: %w", table.Name(), err)
		}
		if record == nil {
			break
		}
		if err := table.Advance(ctx); err != nil {
			return inserted, fmt.Errorf("scan of %s failed: %w", table.Name(), err)
		}

		row, err := transformer.Apply(record)
		if err != nil {
			m.isolateFailure(kind, table.Name(), record.DescribeIdentity(), err)
			continue
		}

		outcome := m.loader.Load(ctx, row)
		m.metrics.RecordOutcome(kind, outcome)

		switch outcome.Status {
		case model.StatusInserted:
			inserted++
		case model.StatusSkipped:
			m.logger.Debug("Record already migrated",
				zap.String("kind", string(kind)),
				zap.String("key", outcome.Key.String()))
		case model.StatusFailed:
			m.isolateFailure(kind, table.Name(), outcome.Key.String(), outcome.Err)
		}
	}

	m.metrics.EndTable(kind)

	m.logger.Info("Table migration completed",
		zap.String("table", table.Name()),
		zap.String("kind", string(kind)),
		zap.Int64("inserted", inserted))

	return inserted, nil
}

// MigrateAll migrates every provided table sequentially and returns
// the total inserted count. The first fatal error stops the run.
func (m *Migrator) MigrateAll(ctx context.Context, tables map[model.EntityKind]connector.LegacyTable) (int64, error) {
	var total int64
	for _, kind := range model.AllKinds() {
		table, ok := tables[kind]
		if !ok {
			continue
		}
		inserted, err := m.MigrateTable(ctx, table, kind)
		total += inserted
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// isolateFailure records a per-record failure to the error channel
// without propagating it. Re-running the whole migration is the retry
// mechanism, made safe by loader idempotency.
func (m *Migrator) isolateFailure(kind model.EntityKind, table, recordKey string, err error) {
	record := NewErrorRecord(err, Classify(err)).
		WithEntity(kind).
		WithTable(table).
		WithRecordKey(recordKey)

	m.metrics.RecordFailure(kind, record)

	m.logger.Warn("Record isolated",
		zap.String("kind", string(kind)),
		zap.String("table", table),
		zap.String("record", recordKey),
		zap.String("errorKind", record.Kind.String()),
		zap.String("error", record.Message))
}

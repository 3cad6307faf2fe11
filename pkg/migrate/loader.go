// pkg/migrate/loader.go
package migrate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/stratoform/dynamigrate/pkg/connector"
	"github.com/stratoform/dynamigrate/pkg/model"
)

// Loader ensures at most one row exists per identity key. The
// existence check and the insert are deliberately two separate
// operations rather than one transaction: the migration scan is
// single-writer (see Migrator), so the check-then-insert race is an
// accepted trade-off, and the store's conflict-free insert turns the
// worst case into a Skipped outcome rather than a duplicate row.
type Loader struct {
	store  connector.RelationalStore
	logger *zap.Logger
}

// NewLoader creates a loader over a relational store
func NewLoader(store connector.RelationalStore, logger *zap.Logger) *Loader {
	return &Loader{
		store:  store,
		logger: logger.Named("loader"),
	}
}

// Load writes a row candidate if no row exists for its identity key.
// The outcome is always attributable: Inserted with the new surrogate
// id, Skipped when the identity already exists, or Failed with the
// error detail. Load never panics a run; failures are the caller's to
// isolate.
func (l *Loader) Load(ctx context.Context, row *model.TargetRow) model.MigrationOutcome {
	outcome := model.MigrationOutcome{
		Kind: row.Kind,
		Key:  row.Key,
	}

	existing, err := l.store.Find(ctx, row.Kind, row.Key)
	if err != nil {
		outcome.Status = model.StatusFailed
		outcome.Err = &LoadError{Kind: row.Kind, Key: row.Key, Err: err}
		return outcome
	}

	if existing != nil {
		// Already migrated; re-running over the same legacy source is
		// safe and performs no write.
		outcome.Status = model.StatusSkipped
		return outcome
	}

	id, err := l.store.Insert(ctx, row)
	if errors.Is(err, connector.ErrDuplicateRow) {
		// A concurrent writer won the identity between the existence
		// check and the insert.
		l.logger.Debug("Insert lost identity race, treating as skipped",
			zap.String("kind", string(row.Kind)),
			zap.String("key", row.Key.String()))
		outcome.Status = model.StatusSkipped
		return outcome
	}
	if err != nil {
		outcome.Status = model.StatusFailed
		outcome.Err = &LoadError{Kind: row.Kind, Key: row.Key, Err: err}
		return outcome
	}

	outcome.Status = model.StatusInserted
	outcome.SurrogateID = id
	return outcome
}

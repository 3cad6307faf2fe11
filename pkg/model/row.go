// pkg/model/row.go
package model

import (
	"sort"
	"time"
)

// IdentityKey is the natural key used to detect whether a record has
// already been migrated. Version is empty for kinds that key on a
// single identifier.
type IdentityKey struct {
	Name    string
	Version string
}

// String renders the key in the legacy store's composite-key notation.
func (k IdentityKey) String() string {
	if k.Version == "" {
		return k.Name
	}
	return k.Name + "___" + k.Version
}

// TargetRow is a validated, typed row candidate for the relational
// store. Identity and timestamps are first-class; the remaining
// columns are held as driver-ready values keyed by target column
// name. List- and object-valued legacy fields arrive here already
// serialized to text; absent optional fields have no column at all,
// which the store writes as NULL.
type TargetRow struct {
	Kind EntityKind
	Key  IdentityKey

	// Derived from the legacy record's own timestamps, never from
	// migration wall-clock time.
	CreatedAt time.Time
	UpdatedAt time.Time

	columns map[string]interface{}
}

// NewTargetRow creates a row candidate with identity and timestamps set.
func NewTargetRow(kind EntityKind, key IdentityKey, createdAt, updatedAt time.Time) *TargetRow {
	return &TargetRow{
		Kind:      kind,
		Key:       key,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		columns:   make(map[string]interface{}),
	}
}

// Set assigns a column value.
func (r *TargetRow) Set(column string, value interface{}) {
	r.columns[column] = value
}

// Column returns a column value and whether it is set.
func (r *TargetRow) Column(column string) (interface{}, bool) {
	v, ok := r.columns[column]
	return v, ok
}

// ColumnNames returns the set column names in sorted order, so
// generated SQL is deterministic.
func (r *TargetRow) ColumnNames() []string {
	names := make([]string, 0, len(r.columns))
	for name := range r.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MigrationStatus is the outcome classification for one record.
type MigrationStatus int

const (
	// StatusInserted means a new row was written.
	StatusInserted MigrationStatus = iota
	// StatusSkipped means a row already existed for the identity key.
	StatusSkipped
	// StatusFailed means the record could not be transformed or loaded.
	StatusFailed
)

// String returns a string representation of the status
func (s MigrationStatus) String() string {
	switch s {
	case StatusInserted:
		return "Inserted"
	case StatusSkipped:
		return "Skipped"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// MigrationOutcome records what happened to exactly one legacy record.
// Records are never silently dropped; every outcome is attributable.
type MigrationOutcome struct {
	Status      MigrationStatus
	Kind        EntityKind
	Key         IdentityKey
	SurrogateID int64 // set only for StatusInserted
	Err         error // set only for StatusFailed
}

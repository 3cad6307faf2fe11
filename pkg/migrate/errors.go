// pkg/migrate/errors.go
package migrate

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stratoform/dynamigrate/pkg/connector"
	"github.com/stratoform/dynamigrate/pkg/model"
	"github.com/stratoform/dynamigrate/pkg/transform"
)

// ErrorKind classifies errors during migration and reconciliation
type ErrorKind int

const (
	// ErrorKindValidation is a record failing its schema check.
	// Non-fatal, isolated per record.
	ErrorKindValidation ErrorKind = iota
	// ErrorKindLoad is an insert failing for reasons other than a
	// duplicate. Non-fatal, isolated per record.
	ErrorKindLoad
	// ErrorKindSource is a cursor or count source that cannot be
	// reached. Fatal, aborts the run.
	ErrorKindSource
	// ErrorKindSink is report persistence failing. Logged, does not
	// invalidate the in-memory report.
	ErrorKindSink
)

// String returns a string representation of the error kind
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindValidation:
		return "Validation"
	case ErrorKindLoad:
		return "Load"
	case ErrorKindSource:
		return "SourceUnavailable"
	case ErrorKindSink:
		return "Sink"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Fatal reports whether errors of this kind abort the run
func (k ErrorKind) Fatal() bool {
	return k == ErrorKindSource
}

// LoadError means a row candidate could not be written for reasons
// other than a duplicate identity key.
type LoadError struct {
	Kind model.EntityKind
	Key  model.IdentityKey
	Err  error
}

// Error implements the error interface
func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s %q: %v", e.Kind, e.Key, e.Err)
}

// Unwrap returns the underlying error
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Classify determines the error kind using the typed errors the
// engine produces.
func Classify(err error) ErrorKind {
	var validationErr *transform.ValidationError
	if errors.As(err, &validationErr) {
		return ErrorKindValidation
	}

	var sourceErr *connector.SourceUnavailableError
	if errors.As(err, &sourceErr) {
		return ErrorKindSource
	}

	var sinkErr *connector.SinkError
	if errors.As(err, &sinkErr) {
		return ErrorKindSink
	}

	return ErrorKindLoad
}

// ErrorRecord represents a single recorded error with enough context
// to identify the offending record.
type ErrorRecord struct {
	ID        string
	Kind      ErrorKind
	Entity    model.EntityKind
	Table     string
	RecordKey string
	Err       error
	Message   string // derived from Err but stored for serialization
	Timestamp time.Time
}

// NewErrorRecord creates a new error record with current timestamp
func NewErrorRecord(err error, kind ErrorKind) ErrorRecord {
	record := ErrorRecord{
		ID:        uuid.New().String(),
		Kind:      kind,
		Err:       err,
		Timestamp: time.Now(),
	}

	if err != nil {
		record.Message = err.Error()
	}

	return record
}

// WithEntity adds the entity kind to the error record
func (r ErrorRecord) WithEntity(entity model.EntityKind) ErrorRecord {
	r.Entity = entity
	return r
}

// WithTable adds source table information to the error record
func (r ErrorRecord) WithTable(table string) ErrorRecord {
	r.Table = table
	return r
}

// WithRecordKey adds the offending record's identity to the error record
func (r ErrorRecord) WithRecordKey(key string) ErrorRecord {
	r.RecordKey = key
	return r
}

// String returns a formatted error message
func (r ErrorRecord) String() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] ", r.Kind))

	if r.Entity != "" {
		sb.WriteString(fmt.Sprintf("Entity: %s ", r.Entity))
	}

	if r.Table != "" {
		sb.WriteString(fmt.Sprintf("Table: %s ", r.Table))
	}

	if r.RecordKey != "" {
		sb.WriteString(fmt.Sprintf("Record: %s ", r.RecordKey))
	}

	if r.Message != "" {
		sb.WriteString(fmt.Sprintf("Error: %s", r.Message))
	}

	return sb.String()
}

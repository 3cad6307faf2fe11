// pkg/transform/transform.go
package transform

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stratoform/dynamigrate/pkg/model"
)

// ValidationError reports a legacy record that does not conform to
// its entity kind's schema. Fields lists every offending legacy field
// name, not just the first.
type ValidationError struct {
	Kind    model.EntityKind
	Record  string // best-effort record identity
	Fields  []string
	Reasons map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		if reason, ok := e.Reasons[field]; ok {
			parts = append(parts, fmt.Sprintf("%s (%s)", field, reason))
		} else {
			parts = append(parts, field)
		}
	}
	return fmt.Sprintf("%s record %q failed validation: %s",
		e.Kind, e.Record, strings.Join(parts, ", "))
}

// Transformer validates and maps legacy records of one entity kind to
// target row candidates. It is a pure function of its input: no I/O,
// no external state.
type Transformer struct {
	kind     model.EntityKind
	mappings []FieldMapping
}

// NewTransformer creates a transformer for an entity kind.
func NewTransformer(kind model.EntityKind) (*Transformer, error) {
	mappings, err := MappingsFor(kind)
	if err != nil {
		return nil, err
	}
	return &Transformer{kind: kind, mappings: mappings}, nil
}

// Apply produces a target row from one legacy record, or a
// *ValidationError when the record does not conform to the kind's
// schema. Validation runs before any field mapping.
func (t *Transformer) Apply(record model.LegacyRecord) (*model.TargetRow, error) {
	if err := t.validate(record); err != nil {
		return nil, err
	}

	// Map fields. Every value already conforms, so conversion failure
	// here would indicate a mapping-table bug rather than bad data.
	converted := make(map[string]interface{}, len(t.mappings))
	for _, mapping := range t.mappings {
		value, ok := record[mapping.Legacy]
		if !ok || value == nil {
			// Absent optional fields map to "no value", never to an
			// empty encoding.
			continue
		}

		target, err := convertValue(value, mapping.Type)
		if err != nil {
			return nil, fmt.Errorf("mapping field %q of %s record %q: %w",
				mapping.Legacy, t.kind, record.DescribeIdentity(), err)
		}
		converted[mapping.Target] = target
	}

	createdAt := converted[ColumnCreatedAt].(time.Time)
	updatedAt := converted[ColumnUpdatedAt].(time.Time)

	key := model.IdentityKey{Name: converted[ColumnName].(string)}
	if version, ok := converted[ColumnVersion].(string); ok {
		key.Version = version
	}

	row := model.NewTargetRow(t.kind, key, createdAt, updatedAt)
	for column, value := range converted {
		if column == ColumnCreatedAt || column == ColumnUpdatedAt {
			continue
		}
		row.Set(column, value)
	}

	return row, nil
}

// validate checks required fields and value types against the kind's
// schema, collecting every offending field.
func (t *Transformer) validate(record model.LegacyRecord) error {
	reasons := make(map[string]string)

	for _, mapping := range t.mappings {
		value, ok := record[mapping.Legacy]
		if !ok || value == nil {
			if mapping.Required {
				reasons[mapping.Legacy] = "missing required field"
			}
			continue
		}

		if !conformsTo(value, mapping.Type) {
			reasons[mapping.Legacy] = fmt.Sprintf("expected %s", mapping.Type)
		}
	}

	if len(reasons) == 0 {
		return nil
	}

	fields := make([]string, 0, len(reasons))
	for field := range reasons {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	return &ValidationError{
		Kind:    t.kind,
		Record:  record.DescribeIdentity(),
		Fields:  fields,
		Reasons: reasons,
	}
}

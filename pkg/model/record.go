// pkg/model/record.go
package model

import "fmt"

// EntityKind identifies a category of migrated record.
type EntityKind string

const (
	KindCollection     EntityKind = "collection"
	KindProvider       EntityKind = "provider"
	KindRule           EntityKind = "rule"
	KindAsyncOperation EntityKind = "asyncOperation"
)

// AllKinds returns every entity kind in stable order.
func AllKinds() []EntityKind {
	return []EntityKind{KindCollection, KindProvider, KindRule, KindAsyncOperation}
}

// ParseKind converts a string into an EntityKind
func ParseKind(s string) (EntityKind, error) {
	kind := EntityKind(s)
	for _, k := range AllKinds() {
		if kind == k {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown entity kind: %q", s)
}

// RelationalTable returns the target table name for the kind.
func (k EntityKind) RelationalTable() string {
	switch k {
	case KindCollection:
		return "collections"
	case KindProvider:
		return "providers"
	case KindRule:
		return "rules"
	case KindAsyncOperation:
		return "async_operations"
	default:
		return ""
	}
}

// LegacyTableSuffix returns the stack-relative name of the kind's
// source table in the legacy store.
func (k EntityKind) LegacyTableSuffix() string {
	switch k {
	case KindCollection:
		return "CollectionsTable"
	case KindProvider:
		return "ProvidersTable"
	case KindRule:
		return "RulesTable"
	case KindAsyncOperation:
		return "AsyncOperationsTable"
	default:
		return ""
	}
}

// LegacyRecord is one loosely-typed record from the legacy store:
// a mapping of field name to value with no enforced schema. Optional
// fields may be absent entirely or present with a nil value.
type LegacyRecord map[string]interface{}

// Has reports whether the field is present with a non-nil value.
func (r LegacyRecord) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// GetString returns the field as a string when it is one.
func (r LegacyRecord) GetString(field string) (string, bool) {
	v, ok := r[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// DescribeIdentity returns a best-effort identity for logging.
// It never fails: malformed records still need to be attributable
// in the error channel.
func (r LegacyRecord) DescribeIdentity() string {
	if name, ok := r.GetString("name"); ok {
		if version, ok := r.GetString("version"); ok {
			return name + "___" + version
		}
		return name
	}
	if id, ok := r.GetString("id"); ok {
		return id
	}
	return "<unidentified>"
}

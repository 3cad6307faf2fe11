// pkg/transform/mapping.go
package transform

import (
	"fmt"

	"github.com/stratoform/dynamigrate/pkg/model"
)

// MappingVersion identifies the revision of the field-mapping tables
// below. The tables are fixed per revision: the transformer never
// infers a mapping from data.
const MappingVersion = "v2"

// FieldType is the expected legacy value type for a mapped field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldNumber
	FieldBool
	FieldTimestamp
	FieldList
	FieldObject
)

// String returns a string representation of the field type
func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldNumber:
		return "number"
	case FieldBool:
		return "boolean"
	case FieldTimestamp:
		return "timestamp"
	case FieldList:
		return "list"
	case FieldObject:
		return "object"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// FieldMapping maps one legacy field name to its target column.
type FieldMapping struct {
	Legacy   string
	Target   string
	Type     FieldType
	Required bool
}

// Target column names for the identity and timestamp fields, shared
// across all entity kinds.
const (
	ColumnName      = "name"
	ColumnVersion   = "version"
	ColumnCreatedAt = "created_at"
	ColumnUpdatedAt = "updated_at"
)

var collectionMappings = []FieldMapping{
	{Legacy: "name", Target: ColumnName, Type: FieldString, Required: true},
	{Legacy: "version", Target: ColumnVersion, Type: FieldString, Required: true},
	{Legacy: "process", Target: "process", Type: FieldString, Required: true},
	{Legacy: "files", Target: "files", Type: FieldList, Required: true},
	{Legacy: "createdAt", Target: ColumnCreatedAt, Type: FieldTimestamp, Required: true},
	{Legacy: "updatedAt", Target: ColumnUpdatedAt, Type: FieldTimestamp, Required: true},
	{Legacy: "granuleId", Target: "granule_id_validation_regex", Type: FieldString},
	{Legacy: "granuleIdExtraction", Target: "granule_id_extraction_regex", Type: FieldString},
	{Legacy: "sampleFileName", Target: "sample_file_name", Type: FieldString},
	{Legacy: "url_path", Target: "path_template", Type: FieldString},
	{Legacy: "duplicateHandling", Target: "duplicate_handling", Type: FieldString},
	{Legacy: "reportToEms", Target: "report_to_ems", Type: FieldBool},
	{Legacy: "ignoreFilesConfigForDiscovery", Target: "ignore_files_config_for_discovery", Type: FieldBool},
	{Legacy: "meta", Target: "meta", Type: FieldObject},
	{Legacy: "tags", Target: "tags", Type: FieldList},
}

var providerMappings = []FieldMapping{
	{Legacy: "id", Target: ColumnName, Type: FieldString, Required: true},
	{Legacy: "protocol", Target: "protocol", Type: FieldString, Required: true},
	{Legacy: "host", Target: "host", Type: FieldString, Required: true},
	{Legacy: "createdAt", Target: ColumnCreatedAt, Type: FieldTimestamp, Required: true},
	{Legacy: "updatedAt", Target: ColumnUpdatedAt, Type: FieldTimestamp, Required: true},
	{Legacy: "port", Target: "port", Type: FieldNumber},
	{Legacy: "globalConnectionLimit", Target: "global_connection_limit", Type: FieldNumber},
	{Legacy: "username", Target: "username", Type: FieldString},
	{Legacy: "allowedRedirects", Target: "allowed_redirects", Type: FieldList},
}

var ruleMappings = []FieldMapping{
	{Legacy: "name", Target: ColumnName, Type: FieldString, Required: true},
	{Legacy: "workflow", Target: "workflow", Type: FieldString, Required: true},
	{Legacy: "state", Target: "state", Type: FieldString, Required: true},
	{Legacy: "rule", Target: "rule", Type: FieldObject, Required: true},
	{Legacy: "createdAt", Target: ColumnCreatedAt, Type: FieldTimestamp, Required: true},
	{Legacy: "updatedAt", Target: ColumnUpdatedAt, Type: FieldTimestamp, Required: true},
	{Legacy: "provider", Target: "provider_name", Type: FieldString},
	{Legacy: "collection", Target: "collection", Type: FieldObject},
	{Legacy: "queueUrl", Target: "queue_url", Type: FieldString},
	{Legacy: "executionNamePrefix", Target: "execution_name_prefix", Type: FieldString},
	{Legacy: "meta", Target: "meta", Type: FieldObject},
	{Legacy: "tags", Target: "tags", Type: FieldList},
}

var asyncOperationMappings = []FieldMapping{
	{Legacy: "id", Target: ColumnName, Type: FieldString, Required: true},
	{Legacy: "operationType", Target: "operation_type", Type: FieldString, Required: true},
	{Legacy: "status", Target: "status", Type: FieldString, Required: true},
	{Legacy: "createdAt", Target: ColumnCreatedAt, Type: FieldTimestamp, Required: true},
	{Legacy: "updatedAt", Target: ColumnUpdatedAt, Type: FieldTimestamp, Required: true},
	{Legacy: "description", Target: "description", Type: FieldString},
	{Legacy: "taskArn", Target: "task_arn", Type: FieldString},
	{Legacy: "output", Target: "output", Type: FieldObject},
}

// MappingsFor returns the fixed field-mapping table for an entity kind.
func MappingsFor(kind model.EntityKind) ([]FieldMapping, error) {
	switch kind {
	case model.KindCollection:
		return collectionMappings, nil
	case model.KindProvider:
		return providerMappings, nil
	case model.KindRule:
		return ruleMappings, nil
	case model.KindAsyncOperation:
		return asyncOperationMappings, nil
	default:
		return nil, fmt.Errorf("no field mappings for entity kind %q", kind)
	}
}

package transform

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratoform/dynamigrate/pkg/model"
)

func validCollectionRecord() model.LegacyRecord {
	return model.LegacyRecord{
		"name":      "MOD09GQ",
		"version":   "006",
		"process":   "modis",
		"granuleId": "^MOD09GQ\\.A[\\d]{7}\\..*$",
		"files": []interface{}{
			map[string]interface{}{"regex": "^.*\\.hdf$", "bucket": "protected"},
		},
		"createdAt": float64(1609459200000), // 2021-01-01T00:00:00Z
		"updatedAt": float64(1612137600000), // 2021-02-01T00:00:00Z
	}
}

func TestApplyMapsCollectionFields(t *testing.T) {
	tr, err := NewTransformer(model.KindCollection)
	require.NoError(t, err)

	row, err := tr.Apply(validCollectionRecord())
	require.NoError(t, err)

	assert.Equal(t, model.KindCollection, row.Kind)
	assert.Equal(t, "MOD09GQ", row.Key.Name)
	assert.Equal(t, "006", row.Key.Version)

	// The legacy granuleId pattern field maps to the target
	// validation-regex column; the mapping is fixed, not inferred.
	regex, ok := row.Column("granule_id_validation_regex")
	require.True(t, ok)
	assert.Equal(t, "^MOD09GQ\\.A[\\d]{7}\\..*$", regex)

	process, ok := row.Column("process")
	require.True(t, ok)
	assert.Equal(t, "modis", process)
}

func TestApplyDerivesTimestampsFromRecord(t *testing.T) {
	tr, err := NewTransformer(model.KindCollection)
	require.NoError(t, err)

	before := time.Now()
	row, err := tr.Apply(validCollectionRecord())
	require.NoError(t, err)

	// Timestamps come from the record, never from migration time.
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), row.CreatedAt)
	assert.Equal(t, time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), row.UpdatedAt)
	assert.True(t, row.CreatedAt.Before(before))
}

func TestApplyRoundTripsListFields(t *testing.T) {
	record := validCollectionRecord()
	files := []interface{}{
		map[string]interface{}{"regex": "^.*\\.hdf$", "bucket": "protected"},
		map[string]interface{}{"regex": "^.*\\.met$", "bucket": "private"},
		map[string]interface{}{"regex": "^.*\\.jpg$", "bucket": "public"},
	}
	tags := []interface{}{"daily", "surface-reflectance"}
	record["files"] = files
	record["tags"] = tags

	tr, err := NewTransformer(model.KindCollection)
	require.NoError(t, err)

	row, err := tr.Apply(record)
	require.NoError(t, err)

	// The serialized encodings must reproduce the original lists.
	encodedFiles, ok := row.Column("files")
	require.True(t, ok)
	var decodedFiles []interface{}
	require.NoError(t, json.Unmarshal([]byte(encodedFiles.(string)), &decodedFiles))
	assert.Equal(t, files, decodedFiles)

	encodedTags, ok := row.Column("tags")
	require.True(t, ok)
	var decodedTags []interface{}
	require.NoError(t, json.Unmarshal([]byte(encodedTags.(string)), &decodedTags))
	assert.Equal(t, tags, decodedTags)
}

func TestApplyAbsentOptionalFieldsHaveNoValue(t *testing.T) {
	tr, err := NewTransformer(model.KindCollection)
	require.NoError(t, err)

	row, err := tr.Apply(validCollectionRecord())
	require.NoError(t, err)

	// No tags in the record: no column, not an empty encoding.
	_, ok := row.Column("tags")
	assert.False(t, ok)

	// Explicit nil counts as absent too.
	record := validCollectionRecord()
	record["tags"] = nil
	row, err = tr.Apply(record)
	require.NoError(t, err)
	_, ok = row.Column("tags")
	assert.False(t, ok)
}

func TestApplyListsAllOffendingFields(t *testing.T) {
	record := validCollectionRecord()
	delete(record, "files")
	delete(record, "process")

	tr, err := NewTransformer(model.KindCollection)
	require.NoError(t, err)

	_, err = tr.Apply(record)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, []string{"files", "process"}, validationErr.Fields)
	assert.Equal(t, model.KindCollection, validationErr.Kind)
}

func TestApplyRejectsWrongFieldTypes(t *testing.T) {
	record := validCollectionRecord()
	record["files"] = "not-a-list"

	tr, err := NewTransformer(model.KindCollection)
	require.NoError(t, err)

	_, err = tr.Apply(record)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "files")
}

func TestApplyMalformedTimestampFailsValidation(t *testing.T) {
	record := validCollectionRecord()
	record["createdAt"] = "yesterday-ish"

	tr, err := NewTransformer(model.KindCollection)
	require.NoError(t, err)

	// A malformed timestamp is a validation failure, never "now".
	_, err = tr.Apply(record)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "createdAt")
}

func TestApplyAcceptsStringTimestamps(t *testing.T) {
	record := validCollectionRecord()
	record["createdAt"] = "2021-01-01T00:00:00Z"

	tr, err := NewTransformer(model.KindCollection)
	require.NoError(t, err)

	row, err := tr.Apply(record)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), row.CreatedAt)
}

func TestApplyIsDeterministic(t *testing.T) {
	tr, err := NewTransformer(model.KindCollection)
	require.NoError(t, err)

	record := validCollectionRecord()
	first, err := tr.Apply(record)
	require.NoError(t, err)
	second, err := tr.Apply(record)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestApplyProviderRecord(t *testing.T) {
	record := model.LegacyRecord{
		"id":        "podaac",
		"protocol":  "https",
		"host":      "data.example.org",
		"port":      float64(443),
		"createdAt": float64(1609459200000),
		"updatedAt": float64(1609459200000),
	}

	tr, err := NewTransformer(model.KindProvider)
	require.NoError(t, err)

	row, err := tr.Apply(record)
	require.NoError(t, err)

	// Providers key on the legacy id; there is no version.
	assert.Equal(t, "podaac", row.Key.Name)
	assert.Empty(t, row.Key.Version)

	port, ok := row.Column("port")
	require.True(t, ok)
	assert.Equal(t, int64(443), port)
}

func TestMappingsExistForAllKinds(t *testing.T) {
	for _, kind := range model.AllKinds() {
		mappings, err := MappingsFor(kind)
		require.NoError(t, err, "kind %s", kind)
		require.NotEmpty(t, mappings)

		// Every kind maps identity and both timestamps.
		targets := make(map[string]bool, len(mappings))
		for _, m := range mappings {
			targets[m.Target] = true
		}
		assert.True(t, targets[ColumnName], "kind %s", kind)
		assert.True(t, targets[ColumnCreatedAt], "kind %s", kind)
		assert.True(t, targets[ColumnUpdatedAt], "kind %s", kind)
	}

	_, err := MappingsFor(model.EntityKind("granule"))
	assert.Error(t, err)
}

// pkg/transform/values.go
package transform

import (
	"encoding/json"
	"fmt"
	"time"
)

// conformsTo reports whether a legacy value satisfies the expected
// field type. Timestamps are checked by actually converting them, so
// a malformed timestamp is a validation failure rather than a later
// mapping surprise.
func conformsTo(value interface{}, fieldType FieldType) bool {
	if value == nil {
		return false
	}

	switch fieldType {
	case FieldString:
		_, ok := value.(string)
		return ok
	case FieldNumber:
		return isNumeric(value)
	case FieldBool:
		_, ok := value.(bool)
		return ok
	case FieldTimestamp:
		_, err := convertTimestamp(value)
		return err == nil
	case FieldList:
		_, ok := value.([]interface{})
		return ok
	case FieldObject:
		_, ok := value.(map[string]interface{})
		return ok
	default:
		return false
	}
}

func isNumeric(value interface{}) bool {
	switch value.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

// convertValue converts a conforming legacy value to its driver-ready
// target representation. List and object values are serialized to a
// flat JSON text encoding.
func convertValue(value interface{}, fieldType FieldType) (interface{}, error) {
	switch fieldType {
	case FieldString:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		return s, nil

	case FieldNumber:
		return convertNumber(value)

	case FieldBool:
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", value)
		}
		return b, nil

	case FieldTimestamp:
		return convertTimestamp(value)

	case FieldList, FieldObject:
		return serializeValue(value)

	default:
		return nil, fmt.Errorf("unsupported field type %s", fieldType)
	}
}

// convertNumber normalizes a numeric value to int64 or float64.
func convertNumber(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		// JSON and the legacy store's number type both decode to
		// float64; keep whole values as integers.
		if v == float64(int64(v)) {
			return int64(v), nil
		}
		return v, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to numeric", value)
	}
}

// convertTimestamp converts a legacy epoch or string timestamp to
// time.Time. Numeric values are epoch milliseconds, the legacy
// store's native convention. There is no fallback to wall-clock time.
func convertTimestamp(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v.UTC(), nil
	case float64:
		return epochMillis(int64(v)), nil
	case int64:
		return epochMillis(v), nil
	case int:
		return epochMillis(int64(v)), nil
	case string:
		if v == "" {
			return time.Time{}, fmt.Errorf("empty timestamp string")
		}
		layouts := []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as timestamp", v)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to timestamp", value)
	}
}

func epochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// serializeValue flattens a list- or object-valued field to JSON text.
func serializeValue(value interface{}) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("cannot serialize value: %w", err)
	}
	return string(data), nil
}

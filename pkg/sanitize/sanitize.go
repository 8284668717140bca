package sanitize

import (
	"math"
	"strings"
	"time"
)

// Value normalizes a single value into a JSON/transport-safe form:
//   - time.Time -> RFC 3339 string
//   - []byte    -> UTF-8 text, invalid bytes dropped
//   - NaN/±Inf  -> nil (JSON has no representation for them)
//   - maps and slices are sanitized recursively
//
// Everything else passes through unchanged. Applying Value twice yields the
// same result as applying it once: no rule produces an output that another
// rule would transform again.
func Value(v interface{}) interface{} {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return x.Format(time.RFC3339)
	case *time.Time:
		if x == nil {
			return nil
		}
		return x.Format(time.RFC3339)
	case []byte:
		return strings.ToValidUTF8(string(x), "")
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			out[k] = Value(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = Value(val)
		}
		return out
	default:
		return v
	}
}

// Row sanitizes every value of a result row.
func Row(row map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(row))
	for k, v := range row {
		out[k] = Value(v)
	}
	return out
}

// Rows sanitizes a full result set.
func Rows(rows []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out[i] = Row(row)
	}
	return out
}

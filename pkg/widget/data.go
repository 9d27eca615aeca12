package widget

import (
	"encoding/json"
	"fmt"
	"math"
)

// Data is a widget payload. It is opaque to the engine and decoded by each
// widget. Values come from JSON or BSON, so numbers may arrive as float64,
// int32, int64 or json.Number.
type Data map[string]any

// String returns the string value for key, or "" when absent or not a string.
func (d Data) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Int returns the integer value for key and whether it was present and numeric.
func (d Data) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

// List returns the object list for key. Entries that are not objects are skipped.
func (d Data) List(key string) []Data {
	var out []Data
	add := func(v any) {
		switch m := v.(type) {
		case map[string]any:
			out = append(out, Data(m))
		case Data:
			out = append(out, m)
		}
	}
	switch v := d[key].(type) {
	case []any:
		for _, item := range v {
			add(item)
		}
	case []map[string]any:
		for _, item := range v {
			add(item)
		}
	case []Data:
		out = append(out, v...)
	}
	return out
}

// Require returns an error naming the first key in keys that has no
// non-empty string value.
func (d Data) Require(keys ...string) error {
	for _, k := range keys {
		if d.String(k) == "" {
			return fmt.Errorf("missing %q", k)
		}
	}
	return nil
}

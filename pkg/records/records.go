// Package records defines the generic record type that flows between the
// loader, the normalizer, and the store writers.
//
// A Record is a decoded JSON object. Values keep the shapes produced by
// encoding/json with UseNumber enabled: strings, json.Number, bool,
// []any, map[string]any, or nil. The typed accessors below perform the
// minimal coercion the pipeline needs and return zero values (never panic)
// for missing or mistyped fields.
package records

import (
	"encoding/json"
	"time"
)

// Record is a single review/user/item record keyed by field name.
type Record map[string]any

// Value returns the raw value for key, or nil when absent.
func (r Record) Value(key string) any {
	if v, ok := r[key]; ok {
		return v
	}
	return nil
}

// Has reports whether key is present (even if its value is nil).
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the string value for key, or "" when the key is missing or
// not a string.
func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Float64 returns the numeric value for key. json.Number and float64 are
// accepted; anything else yields (0, false).
func (r Record) Float64(key string) (float64, bool) {
	switch n := r[key].(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	}
	return 0, false
}

// Int64 returns the integer value for key. json.Number values with a
// fractional part are rejected.
func (r Record) Int64(key string) (int64, bool) {
	switch n := r[key].(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), n == float64(int64(n))
	}
	return 0, false
}

// Ints returns the value for key as a slice of int64 when it is a JSON array
// of integers (e.g. the helpful-votes pair [12, 12]). Elements that cannot be
// read as integers become 0 so the slice length always matches the input.
func (r Record) Ints(key string) ([]int64, bool) {
	arr, ok := r[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]int64, len(arr))
	for i, v := range arr {
		switch n := v.(type) {
		case json.Number:
			out[i], _ = n.Int64()
		case float64:
			out[i] = int64(n)
		case int64:
			out[i] = n
		case int:
			out[i] = int64(n)
		}
	}
	return out, true
}

// Time parses the string value for key using layout. It returns the zero
// time and false when the key is missing, not a string, or unparsable.
func (r Record) Time(key, layout string) (time.Time, bool) {
	s, ok := r[key].(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

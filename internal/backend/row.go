package backend

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Row is a single record as returned by a driver. Keys are column names;
// values are JSON-shaped (string, float64/int64, bool, []any, nil).
type Row map[string]any

// lookup returns the first key whose value is present and non-nil.
func (r Row) lookup(keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first non-nil string value among keys.
func (r Row) String(keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := r[k].(string); ok {
			return s, true
		}
	}
	return "", false
}

// StringOr is String with a fallback.
func (r Row) StringOr(def string, keys ...string) string {
	if s, ok := r.String(keys...); ok {
		return s
	}
	return def
}

// Number returns the first numeric value among keys. Numeric strings are parsed.
func (r Row) Number(keys ...string) (float64, bool) {
	v, ok := r.lookup(keys)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// NumberStrict is Number but ignores strings, so "12" in a count column does not count.
func (r Row) NumberStrict(keys ...string) (float64, bool) {
	for _, k := range keys {
		switch r[k].(type) {
		case float64, float32, int, int64, int32, json.Number:
			return toFloat(r[k])
		}
	}
	return 0, false
}

// Bool returns the first boolean value among keys. Integer 0/1 are accepted.
func (r Row) Bool(keys ...string) (bool, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case bool:
			return v, true
		case int64:
			return v != 0, true
		}
	}
	return false, false
}

// Strings returns the first array value among keys as strings.
// Non-string elements are skipped.
func (r Row) Strings(keys ...string) ([]string, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case []string:
			return append([]string(nil), v...), true
		case []any:
			out := make([]string, 0, len(v))
			for _, e := range v {
				if s, ok := e.(string); ok {
					out = append(out, s)
				}
			}
			return out, true
		}
	}
	return nil, false
}

// Time returns the first timestamp among keys. Strings are parsed as RFC 3339
// or as the backend's "2006-01-02 15:04:05" form.
func (r Row) Time(keys ...string) (time.Time, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case time.Time:
			return v, true
		case string:
			if t, ok := parseTimestamp(v); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

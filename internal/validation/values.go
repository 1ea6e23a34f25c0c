package validation

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"
)

// maxExactInt bounds the integers Int converts from float64 exactly.
const maxExactInt = 1<<53 - 1

var errDateTimeOffset = errors.New("date-time must be UTC with a Z suffix")

// Values is a normalized section: field name to coerced value.
type Values map[string]any

// Raw is the unvalidated request input. Body is whatever the JSON decoder
// produced; nil means an empty body.
type Raw struct {
	Body   any
	Query  map[string]any
	Params map[string]any
}

// Normalized is the validator output for a request that passed.
type Normalized struct {
	Body   Values
	Query  Values
	Params Values
}

// Raw converts the normalized input back into validator input.
func (n Normalized) Raw() Raw {
	return Raw{Body: map[string]any(n.Body), Query: n.Query, Params: n.Params}
}

func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}

func (v Values) String(key string) (string, bool) {
	s, ok := v[key].(string)
	return s, ok
}

// StringOr returns the string at key or fallback.
func (v Values) StringOr(key, fallback string) string {
	if s, ok := v.String(key); ok {
		return s
	}
	return fallback
}

func (v Values) Float(key string) (float64, bool) {
	return toFloat(v[key])
}

func (v Values) Int(key string) (int, bool) {
	f, ok := toFloat(v[key])
	if !ok || f != math.Trunc(f) || math.Abs(f) > maxExactInt {
		return 0, false
	}
	return int(f), true
}

// IntOr returns the integer at key or fallback.
func (v Values) IntOr(key string, fallback int) int {
	if n, ok := v.Int(key); ok {
		return n
	}
	return fallback
}

func (v Values) Bool(key string) (bool, bool) {
	b, ok := v[key].(bool)
	return b, ok
}

// Strings returns the string elements of an array field.
func (v Values) Strings(key string) ([]string, bool) {
	switch items := v[key].(type) {
	case []string:
		return append([]string(nil), items...), true
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Time parses a date-time field.
func (v Values) Time(key string) (time.Time, bool) {
	s, ok := v.String(key)
	if !ok {
		return time.Time{}, false
	}
	t, err := parseDateTime(s)
	return t, err == nil
}

// IsNull reports whether key is present with an explicit null.
func (v Values) IsNull(key string) bool {
	val, ok := v[key]
	return ok && val == nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// parseDateTime accepts RFC 3339 instants in UTC. Numeric offsets such as
// +02:00 are rejected.
func parseDateTime(s string) (time.Time, error) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, errDateTimeOffset
	}
	return time.Parse(time.RFC3339Nano, s)
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any, []string:
		return "array"
	case map[string]any, Values:
		return "object"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return "unknown"
}

// clone copies maps and slices so normalized output never aliases raw input.
func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case Values:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = clone(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = clone(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	}
	return v
}

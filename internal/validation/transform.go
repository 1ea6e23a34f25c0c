package validation

import (
	"regexp"
	"strconv"
	"strings"
)

// Transform rewrites a present raw value before type checking. Returning
// false reports the value as invalid_type. Transforms must accept their own
// output so that validating a normalized value is a no-op.
type Transform func(raw any) (any, bool)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// Trim removes surrounding whitespace from strings.
func Trim() Transform {
	return func(raw any) (any, bool) {
		if s, ok := raw.(string); ok {
			return strings.TrimSpace(s), true
		}
		return raw, true
	}
}

// Lowercase lowercases strings.
func Lowercase() Transform {
	return func(raw any) (any, bool) {
		if s, ok := raw.(string); ok {
			return strings.ToLower(s), true
		}
		return raw, true
	}
}

// ParseBool accepts "true" or "false" in any case. Booleans pass through.
func ParseBool() Transform {
	return func(raw any) (any, bool) {
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			switch strings.ToLower(v) {
			case "true":
				return true, true
			case "false":
				return false, true
			}
		}
		return nil, false
	}
}

// ParseInt accepts non-empty digit strings. Numbers pass through.
func ParseInt() Transform {
	return func(raw any) (any, bool) {
		if n, ok := toFloat(raw); ok {
			return n, true
		}
		s, ok := raw.(string)
		if !ok || !digitsOnly.MatchString(s) {
			return nil, false
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	}
}

// Chain applies transforms left to right, stopping at the first failure.
func Chain(ts ...Transform) Transform {
	return func(raw any) (any, bool) {
		v := raw
		for _, t := range ts {
			var ok bool
			if v, ok = t(v); !ok {
				return nil, false
			}
		}
		return v, true
	}
}

package validation

import (
	"fmt"
	"math"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ConstraintKind tags the variant of a Constraint.
type ConstraintKind int

const (
	ConstraintMinLength ConstraintKind = iota + 1
	ConstraintMaxLength
	ConstraintMin
	ConstraintMax
	ConstraintInteger
	ConstraintPattern
	ConstraintEmail
	ConstraintURL
	ConstraintFuture
	ConstraintMinItems
	ConstraintMaxItems
	ConstraintUnique
	ConstraintCustom
)

// Constraint is one rule applied to an already type-checked value. A
// constraint that does not apply to the value's type passes.
type Constraint struct {
	Kind      ConstraintKind
	Limit     float64
	Pattern   *regexp.Regexp
	Predicate func(v any) bool
	Code      Code
	Message   string
}

func MinLen(n int, msg string) Constraint {
	return Constraint{Kind: ConstraintMinLength, Limit: float64(n), Code: CodeInvalidFormat, Message: msg}
}

func MaxLen(n int, msg string) Constraint {
	return Constraint{Kind: ConstraintMaxLength, Limit: float64(n), Code: CodeInvalidFormat, Message: msg}
}

func Min(n float64, msg string) Constraint {
	return Constraint{Kind: ConstraintMin, Limit: n, Code: CodeOutOfRange, Message: msg}
}

func Max(n float64, msg string) Constraint {
	return Constraint{Kind: ConstraintMax, Limit: n, Code: CodeOutOfRange, Message: msg}
}

func Int(msg string) Constraint {
	return Constraint{Kind: ConstraintInteger, Code: CodeInvalidType, Message: msg}
}

func Pattern(re *regexp.Regexp, msg string) Constraint {
	return Constraint{Kind: ConstraintPattern, Pattern: re, Code: CodeInvalidFormat, Message: msg}
}

func Email(msg string) Constraint {
	return Constraint{Kind: ConstraintEmail, Code: CodeInvalidFormat, Message: msg}
}

func URL(msg string) Constraint {
	return Constraint{Kind: ConstraintURL, Code: CodeInvalidFormat, Message: msg}
}

// Future requires a date-time strictly after the validator's clock.
func Future(msg string) Constraint {
	return Constraint{Kind: ConstraintFuture, Code: CodeOutOfRange, Message: msg}
}

func MinItems(n int, msg string) Constraint {
	return Constraint{Kind: ConstraintMinItems, Limit: float64(n), Code: CodeOutOfRange, Message: msg}
}

func MaxItems(n int, msg string) Constraint {
	return Constraint{Kind: ConstraintMaxItems, Limit: float64(n), Code: CodeOutOfRange, Message: msg}
}

// Unique rejects arrays that contain the same element twice.
func Unique(msg string) Constraint {
	return Constraint{Kind: ConstraintUnique, Code: CodeDuplicateValue, Message: msg}
}

// Custom wraps an arbitrary predicate. An empty code means invalid_format.
func Custom(code Code, msg string, pred func(v any) bool) Constraint {
	if code == "" {
		code = CodeInvalidFormat
	}
	return Constraint{Kind: ConstraintCustom, Predicate: pred, Code: code, Message: msg}
}

// evaluate returns false and a message when the constraint is violated.
func (c Constraint) evaluate(v any, now time.Time) (bool, string) {
	switch c.Kind {
	case ConstraintMinLength, ConstraintMaxLength:
		s, ok := v.(string)
		if !ok {
			return true, ""
		}
		n := float64(utf8.RuneCountInString(s))
		if c.Kind == ConstraintMinLength && n < c.Limit {
			return false, c.message(fmt.Sprintf("String must contain at least %d character(s)", int(c.Limit)))
		}
		if c.Kind == ConstraintMaxLength && n > c.Limit {
			return false, c.message(fmt.Sprintf("String must contain at most %d character(s)", int(c.Limit)))
		}
	case ConstraintMin, ConstraintMax:
		f, ok := v.(float64)
		if !ok {
			return true, ""
		}
		if c.Kind == ConstraintMin && f < c.Limit {
			return false, c.message(fmt.Sprintf("Number must be greater than or equal to %v", c.Limit))
		}
		if c.Kind == ConstraintMax && f > c.Limit {
			return false, c.message(fmt.Sprintf("Number must be less than or equal to %v", c.Limit))
		}
	case ConstraintInteger:
		f, ok := v.(float64)
		if ok && f != math.Trunc(f) {
			return false, c.message("Expected integer, received float")
		}
	case ConstraintPattern:
		s, ok := v.(string)
		if ok && c.Pattern != nil && !c.Pattern.MatchString(s) {
			return false, c.message("Invalid")
		}
	case ConstraintEmail:
		s, ok := v.(string)
		if ok && !isEmail(s) {
			return false, c.message("Invalid email")
		}
	case ConstraintURL:
		s, ok := v.(string)
		if ok && !isURL(s) {
			return false, c.message("Invalid url")
		}
	case ConstraintFuture:
		s, ok := v.(string)
		if !ok {
			return true, ""
		}
		t, err := parseDateTime(s)
		if err == nil && !t.After(now) {
			return false, c.message("Date must be in the future")
		}
	case ConstraintMinItems, ConstraintMaxItems:
		items, ok := v.([]any)
		if !ok {
			return true, ""
		}
		n := float64(len(items))
		if c.Kind == ConstraintMinItems && n < c.Limit {
			return false, c.message(fmt.Sprintf("Array must contain at least %d element(s)", int(c.Limit)))
		}
		if c.Kind == ConstraintMaxItems && n > c.Limit {
			return false, c.message(fmt.Sprintf("Array must contain at most %d element(s)", int(c.Limit)))
		}
	case ConstraintUnique:
		items, ok := v.([]any)
		if ok && hasDuplicates(items) {
			return false, c.message("Array items must be unique")
		}
	case ConstraintCustom:
		if c.Predicate != nil && !c.Predicate(v) {
			return false, c.message("Invalid input")
		}
	}
	return true, ""
}

func (c Constraint) message(fallback string) string {
	if c.Message != "" {
		return c.Message
	}
	return fallback
}

func isEmail(s string) bool {
	if strings.ContainsAny(s, " <>\"") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func hasDuplicates(items []any) bool {
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			if reflect.DeepEqual(items[i], items[j]) {
				return true
			}
		}
	}
	return false
}

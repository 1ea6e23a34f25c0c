// Package validation implements declarative request schemas, a pure
// validator/coercer over the body, query and params sections of a request,
// and the classifier that turns validation failures into an HTTP status and
// error body.
package validation

import (
	"fmt"
	"strings"
)

// Section is one of the logical input surfaces of a request.
type Section string

const (
	SectionBody   Section = "body"
	SectionQuery  Section = "query"
	SectionParams Section = "params"
)

// sectionOrder is the order in which sections are validated and therefore
// the order in which their failures are reported.
var sectionOrder = []Section{SectionBody, SectionQuery, SectionParams}

// Code is the closed set of failure kinds.
type Code string

const (
	CodeMissingRequired Code = "missing_required"
	CodeInvalidType     Code = "invalid_type"
	CodeInvalidFormat   Code = "invalid_format"
	CodeOutOfRange      Code = "out_of_range"
	CodeInvalidEnum     Code = "invalid_enum"
	CodeDuplicateValue  Code = "duplicate_value"
	CodeCrossField      Code = "cross_field_violation"
)

// Failure describes one violated rule.
type Failure struct {
	Section Section `json:"section"`
	Path    string  `json:"path"`
	Message string  `json:"message"`
	Code    Code    `json:"code"`
}

// Failures is the ordered list of failures of one request, in discovery order.
type Failures []Failure

func (f Failures) Error() string {
	if len(f) == 0 {
		return "validation passed"
	}
	parts := make([]string, 0, len(f))
	for _, failure := range f {
		parts = append(parts, fmt.Sprintf("%s.%s: %s (%s)", failure.Section, failure.Path, failure.Message, failure.Code))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasCode reports whether any failure carries the given code.
func (f Failures) HasCode(code Code) bool {
	for _, failure := range f {
		if failure.Code == code {
			return true
		}
	}
	return false
}

// Paths returns the failure paths in order.
func (f Failures) Paths() []string {
	out := make([]string, 0, len(f))
	for _, failure := range f {
		out = append(out, failure.Path)
	}
	return out
}

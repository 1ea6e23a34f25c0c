package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Validator walks a schema over raw request input. It holds no per-request
// state and is safe for concurrent use.
type Validator struct {
	now func() time.Time
}

type Option func(*Validator)

// WithClock replaces the wall clock used by date constraints.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func New(opts ...Option) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultValidator = New()

// Validate runs the default validator.
func Validate(schema *Schema, raw Raw) (Normalized, Failures) {
	return defaultValidator.Validate(schema, raw)
}

// Validate checks every section declared by schema, in body, query, params
// order. On success it returns a freshly built Normalized value and nil. On
// failure it returns every failure found; the raw input is never modified.
func (v *Validator) Validate(schema *Schema, raw Raw) (Normalized, Failures) {
	w := &walker{now: v.now()}
	var out Normalized

	for _, section := range sectionOrder {
		input := sectionInput(raw, section)
		set := schema.Section(section)
		if set == nil {
			values := Values{}
			if obj, ok := asObject(input); ok {
				values = clone(obj).(map[string]any)
			}
			out.set(section, values)
			continue
		}

		w.section = section
		obj, ok := asObject(input)
		if !ok {
			w.fail(string(section), CodeInvalidType, fmt.Sprintf("Expected object, received %s", typeName(input)))
			continue
		}
		out.set(section, w.object(set, obj, ""))
	}

	if len(w.failures) > 0 {
		return Normalized{}, w.failures
	}
	return out, nil
}

func (n *Normalized) set(section Section, values Values) {
	switch section {
	case SectionBody:
		n.Body = values
	case SectionQuery:
		n.Query = values
	case SectionParams:
		n.Params = values
	}
}

func sectionInput(raw Raw, section Section) any {
	switch section {
	case SectionBody:
		return raw.Body
	case SectionQuery:
		return raw.Query
	case SectionParams:
		return raw.Params
	}
	return nil
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case nil:
		return map[string]any{}, true
	case map[string]any:
		if t == nil {
			return map[string]any{}, true
		}
		return t, true
	case Values:
		if t == nil {
			return map[string]any{}, true
		}
		return t, true
	}
	return nil, false
}

type walker struct {
	section  Section
	now      time.Time
	failures Failures
}

func (w *walker) fail(path string, code Code, msg string) {
	w.failures = append(w.failures, Failure{
		Section: w.section,
		Path:    path,
		Message: msg,
		Code:    code,
	})
}

func (w *walker) object(set *FieldSet, input map[string]any, prefix string) Values {
	start := len(w.failures)
	out := make(Values, len(set.Fields))

	keys := make([]string, 0, len(input))
	for key := range input {
		if !set.declared(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		if set.Strict {
			w.fail(joinPath(prefix, key), CodeInvalidType, "unexpected field")
			continue
		}
		out[key] = clone(input[key])
	}

	for _, spec := range set.Fields {
		raw, present := input[spec.Name]
		if val, ok := w.field(spec, raw, present, joinPath(prefix, spec.Name)); ok {
			out[spec.Name] = val
		}
	}

	if len(w.failures) == start {
		path := prefix
		if path == "" {
			path = string(w.section)
		}
		for _, r := range set.Refinements {
			if r.Check != nil && !r.Check(out) {
				w.fail(path, CodeCrossField, r.Message)
			}
		}
	}
	return out
}

func (w *walker) field(spec FieldSpec, raw any, present bool, path string) (any, bool) {
	if !present {
		switch {
		case spec.Required:
			w.fail(path, CodeMissingRequired, spec.messageOr("Required"))
		case spec.HasDefault:
			return clone(spec.Default), true
		}
		return nil, false
	}
	return w.value(spec, raw, path)
}

// value runs transform, kind check and constraints for a present value.
func (w *walker) value(spec FieldSpec, raw any, path string) (any, bool) {
	if raw == nil {
		if spec.Nullable {
			return nil, true
		}
		w.fail(path, CodeInvalidType, spec.messageOr(fmt.Sprintf("Expected %s, received null", spec.Kind)))
		return nil, false
	}

	v := raw
	if spec.Transform != nil {
		coerced, ok := spec.Transform(raw)
		if !ok {
			w.fail(path, CodeInvalidType, spec.messageOr(fmt.Sprintf("Expected %s, received %s", spec.Kind, typeName(raw))))
			return nil, false
		}
		v = coerced
	}

	v, ok := w.typed(spec, v, path)
	if !ok {
		return nil, false
	}

	for _, c := range spec.Constraints {
		if pass, msg := c.evaluate(v, w.now); !pass {
			w.fail(path, c.Code, msg)
			break
		}
	}
	return v, true
}

// typed checks the kind of v and returns its normalized form.
func (w *walker) typed(spec FieldSpec, v any, path string) (any, bool) {
	mismatch := func() (any, bool) {
		w.fail(path, CodeInvalidType, spec.messageOr(fmt.Sprintf("Expected %s, received %s", spec.Kind, typeName(v))))
		return nil, false
	}

	switch spec.Kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, true
		}
		return mismatch()

	case KindNumber:
		if f, ok := toFloat(v); ok {
			return f, true
		}
		return mismatch()

	case KindBoolean:
		if b, ok := v.(bool); ok {
			return b, true
		}
		return mismatch()

	case KindDateTime:
		s, ok := v.(string)
		if !ok {
			return mismatch()
		}
		if _, err := parseDateTime(s); err != nil {
			w.fail(path, CodeInvalidFormat, spec.messageOr("Invalid datetime"))
			return nil, false
		}
		return s, true

	case KindEnum:
		s, ok := v.(string)
		if !ok {
			return mismatch()
		}
		for _, allowed := range spec.Values {
			if s == allowed {
				return s, true
			}
		}
		w.fail(path, CodeInvalidEnum, spec.messageOr(fmt.Sprintf(
			"Invalid enum value. Expected '%s', received '%s'", strings.Join(spec.Values, "' | '"), s)))
		return nil, false

	case KindArray:
		items, ok := asSlice(v)
		if !ok {
			return mismatch()
		}
		out := make([]any, len(items))
		for i, item := range items {
			elemPath := fmt.Sprintf("%s[%d]", path, i)
			if spec.Elem == nil {
				out[i] = clone(item)
				continue
			}
			if coerced, ok := w.value(*spec.Elem, item, elemPath); ok {
				out[i] = coerced
			} else {
				out[i] = clone(item)
			}
		}
		return out, true

	case KindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			if vals, isValues := v.(Values); isValues {
				obj, ok = vals, true
			}
		}
		if !ok {
			return mismatch()
		}
		if spec.Fields == nil {
			return clone(obj), true
		}
		return map[string]any(w.object(spec.Fields, obj, path)), true
	}

	return mismatch()
}

func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func (s FieldSpec) messageOr(fallback string) string {
	if s.Message != "" {
		return s.Message
	}
	return fallback
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

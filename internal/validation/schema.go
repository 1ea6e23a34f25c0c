package validation

import (
	"fmt"
	"sort"
	"sync"
)

// Kind is the expected type of a field value.
type Kind int

const (
	KindString Kind = iota + 1
	KindNumber
	KindBoolean
	KindDateTime
	KindEnum
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindDateTime:
		return "datetime"
	case KindEnum:
		return "enum"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// FieldSpec is the declarative rule set for one named field. Specs are plain
// values; the builder methods return modified copies.
type FieldSpec struct {
	Name     string
	Kind     Kind
	Required bool
	Nullable bool

	Default    any
	HasDefault bool

	// Values lists the accepted literals of an enum field.
	Values []string
	// Elem is the element spec of an array field.
	Elem *FieldSpec
	// Fields is the nested field set of an object field.
	Fields *FieldSet

	Constraints []Constraint
	Transform   Transform

	// Message replaces the generated message for type, enum, datetime and
	// missing failures.
	Message string
}

func newSpec(name string, kind Kind) FieldSpec {
	return FieldSpec{Name: name, Kind: kind}
}

func String(name string) FieldSpec   { return newSpec(name, KindString) }
func Number(name string) FieldSpec   { return newSpec(name, KindNumber) }
func Boolean(name string) FieldSpec  { return newSpec(name, KindBoolean) }
func DateTime(name string) FieldSpec { return newSpec(name, KindDateTime) }

// Integer is a number field that rejects fractional values.
func Integer(name string) FieldSpec {
	return newSpec(name, KindNumber).Check(Int(""))
}

func Enum(name string, values ...string) FieldSpec {
	spec := newSpec(name, KindEnum)
	spec.Values = append([]string(nil), values...)
	return spec
}

func Array(name string, elem FieldSpec) FieldSpec {
	spec := newSpec(name, KindArray)
	spec.Elem = &elem
	return spec
}

func Object(name string, fields *FieldSet) FieldSpec {
	spec := newSpec(name, KindObject)
	spec.Fields = fields
	return spec
}

// Require marks the field as mandatory.
func (s FieldSpec) Require() FieldSpec {
	s.Required = true
	return s
}

// AllowNull accepts an explicit null as a valid value.
func (s FieldSpec) AllowNull() FieldSpec {
	s.Nullable = true
	return s
}

// WithDefault sets the value used when the field is absent. A field with a
// default is optional.
func (s FieldSpec) WithDefault(v any) FieldSpec {
	s.Default = v
	s.HasDefault = true
	s.Required = false
	return s
}

// Check appends constraints, evaluated in the order given.
func (s FieldSpec) Check(cs ...Constraint) FieldSpec {
	out := make([]Constraint, 0, len(s.Constraints)+len(cs))
	out = append(out, s.Constraints...)
	out = append(out, cs...)
	s.Constraints = out
	return s
}

// Coerce sets the transform applied to a present value before type checking.
func (s FieldSpec) Coerce(t Transform) FieldSpec {
	s.Transform = t
	return s
}

// Describe sets the message used for type, enum and missing failures.
func (s FieldSpec) Describe(msg string) FieldSpec {
	s.Message = msg
	return s
}

// Refinement is a predicate over the normalized values of a whole field set.
type Refinement struct {
	Message string
	Check   func(values Values) bool
}

// AtLeastOne requires the field set to carry at least one key.
func AtLeastOne(msg string) Refinement {
	return Refinement{
		Message: msg,
		Check: func(values Values) bool {
			return len(values) > 0
		},
	}
}

// FieldSet is an ordered collection of field specs for one section or one
// nested object.
type FieldSet struct {
	Fields      []FieldSpec
	Strict      bool
	Refinements []Refinement
}

// Open builds a field set that passes unknown keys through unchanged.
func Open(specs ...FieldSpec) *FieldSet {
	return &FieldSet{Fields: specs}
}

// Strict builds a field set that rejects unknown keys.
func Strict(specs ...FieldSpec) *FieldSet {
	return &FieldSet{Fields: specs, Strict: true}
}

// Refine returns a copy of the set with the refinements appended.
func (fs *FieldSet) Refine(rs ...Refinement) *FieldSet {
	out := *fs
	out.Refinements = append(append([]Refinement(nil), fs.Refinements...), rs...)
	return &out
}

// Lookup returns the spec declared for name.
func (fs *FieldSet) Lookup(name string) (FieldSpec, bool) {
	for _, spec := range fs.Fields {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

func (fs *FieldSet) declared(name string) bool {
	_, ok := fs.Lookup(name)
	return ok
}

// Schema maps request sections to field sets. A nil section is not validated.
type Schema struct {
	Body   *FieldSet
	Query  *FieldSet
	Params *FieldSet
}

// Section returns the field set for s, or nil.
func (s *Schema) Section(section Section) *FieldSet {
	switch section {
	case SectionBody:
		return s.Body
	case SectionQuery:
		return s.Query
	case SectionParams:
		return s.Params
	default:
		return nil
	}
}

// Registry holds the schemas by name. It is built at startup and read
// concurrently afterwards.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
}

func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]*Schema)}
}

// Register adds a schema under name. Names are unique.
func (r *Registry) Register(name string, schema *Schema) error {
	if schema == nil {
		return fmt.Errorf("schema %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.schemas[name]; exists {
		return fmt.Errorf("schema %q already registered", name)
	}
	r.schemas[name] = schema
	return nil
}

// MustRegister is Register for startup wiring.
func (r *Registry) MustRegister(name string, schema *Schema) {
	if err := r.Register(name, schema); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (*Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schema, ok := r.schemas[name]
	return schema, ok
}

// MustLookup panics when name was never registered.
func (r *Registry) MustLookup(name string) *Schema {
	schema, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("schema %q not registered", name))
	}
	return schema
}

// Names returns the registered schema names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

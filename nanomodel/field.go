package nanomodel

import (
	"reflect"
	"time"

	"github.com/arthur-debert/nanomodel/types"
)

// Field describes one declared attribute of a model type: how its in-memory
// value is encoded for storage and decoded back, and which capabilities the
// core must take into account when tracking and serializing it.
type Field interface {
	// Name is the attribute name used on the model.
	Name() string

	// ColumnName is the key the value is stored under.
	ColumnName() string

	// Encode converts an in-memory value to its stored form.
	Encode(value any, opts types.DumpOptions) (any, error)

	// Decode converts a stored (or caller supplied) value to its in-memory
	// form. raw is nil when the key is absent from the document.
	Decode(raw any, opts LoadOptions) (any, error)

	// Caps reports the capability flags queried by the core.
	Caps() Capabilities
}

// Capabilities are the per-descriptor flags the core dispatches on.
type Capabilities struct {
	// Identifier marks the field holding the document id.
	Identifier bool
	// IncludeInDocument stores the identifier inside the document body too.
	IncludeInDocument bool
	// Composite marks nested-model, list and map fields. Change detection
	// is not implemented for them, they are always treated as changed.
	Composite bool
	// AutoUpdate marks timestamps refreshed on every write.
	AutoUpdate bool
}

// LoadOptions is the context handed to Field.Decode.
type LoadOptions struct {
	Model        *Model // Model being populated
	Stored       bool   // Values come from storage
	Merge        bool   // Merge into current values instead of replacing
	ByColumnName bool   // Document is keyed by column name
}

// FieldOption configures a field descriptor.
type FieldOption func(*fieldConfig)

type fieldConfig struct {
	column     string
	required   bool
	defaultVal any
	include    bool
	generate   func() string
	auto       bool
	autoUpdate bool
	clock      func() time.Time
	element    Field
}

// Column stores the value under a column name different from the
// attribute name.
func Column(name string) FieldOption {
	return func(c *fieldConfig) { c.column = name }
}

// Required makes encoding fail when the value is absent.
func Required() FieldOption {
	return func(c *fieldConfig) { c.required = true }
}

// Default substitutes v for an absent value on encode. A func() any is
// called each time.
func Default(v any) FieldOption {
	return func(c *fieldConfig) { c.defaultVal = v }
}

// IncludeInDocument stores the identifier in the document body as well.
func IncludeInDocument() FieldOption {
	return func(c *fieldConfig) { c.include = true }
}

// Generate sets the function producing an identifier when none is set.
func Generate(fn func() string) FieldOption {
	return func(c *fieldConfig) { c.generate = fn }
}

// Auto stamps a datetime field with the current time when it is absent.
func Auto() FieldOption {
	return func(c *fieldConfig) { c.auto = true }
}

// AutoUpdate stamps a datetime field with the current time on every write.
func AutoUpdate() FieldOption {
	return func(c *fieldConfig) { c.autoUpdate = true }
}

// Clock overrides the time source of a datetime field.
func Clock(fn func() time.Time) FieldOption {
	return func(c *fieldConfig) { c.clock = fn }
}

// Element sets the descriptor applied to each element of a list field.
func Element(f Field) FieldOption {
	return func(c *fieldConfig) { c.element = f }
}

func newFieldConfig(opts []FieldOption) fieldConfig {
	var c fieldConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// baseField carries the behaviour shared by every descriptor.
type baseField struct {
	name string
	cfg  fieldConfig
}

func (f *baseField) Name() string { return f.name }

func (f *baseField) ColumnName() string {
	if f.cfg.column != "" {
		return f.cfg.column
	}
	return f.name
}

func (f *baseField) Caps() Capabilities { return Capabilities{} }

// prepare applies default substitution and the required check.
func (f *baseField) prepare(v any, opts types.DumpOptions) (any, error) {
	if isAbsent(v) && !opts.IgnoreDefault && f.cfg.defaultVal != nil {
		if fn, ok := f.cfg.defaultVal.(func() any); ok {
			v = fn()
		} else {
			v = f.cfg.defaultVal
		}
	}
	if isAbsent(v) {
		if f.cfg.required && !opts.IgnoreRequired {
			return nil, &RequiredFieldError{Field: f.name}
		}
		return nil, nil
	}
	return v, nil
}

// isAbsent treats nil interfaces and nil pointers, maps and slices as
// absent values.
func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	if m, ok := v.(*Model); ok {
		return m == nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		return rv.IsNil()
	}
	return false
}

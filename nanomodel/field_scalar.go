package nanomodel

import (
	"fmt"
	"time"

	"github.com/arthur-debert/nanomodel/types"
	"github.com/google/uuid"
)

// IDField holds the document identifier. It is not stored in the document
// body unless IncludeInDocument is set.
type IDField struct{ baseField }

// ID declares the identifier field.
func ID(name string, opts ...FieldOption) *IDField {
	return &IDField{baseField{name: name, cfg: newFieldConfig(opts)}}
}

// UUID generates random identifiers with google/uuid.
func UUID() FieldOption {
	return Generate(func() string { return uuid.New().String() })
}

func (f *IDField) Caps() Capabilities {
	return Capabilities{Identifier: true, IncludeInDocument: f.cfg.include}
}

func (f *IDField) Encode(value any, opts types.DumpOptions) (any, error) {
	if isAbsent(value) && f.cfg.generate != nil {
		value = f.cfg.generate()
	}
	v, err := f.prepare(value, opts)
	if err != nil || v == nil {
		return nil, err
	}
	s, err := toText(v)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return f.prepare(nil, opts)
	}
	return s, nil
}

func (f *IDField) Decode(raw any, _ LoadOptions) (any, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	return toText(raw)
}

// TextField holds a string.
type TextField struct{ baseField }

// Text declares a string field.
func Text(name string, opts ...FieldOption) *TextField {
	return &TextField{baseField{name: name, cfg: newFieldConfig(opts)}}
}

func (f *TextField) Encode(value any, opts types.DumpOptions) (any, error) {
	v, err := f.prepare(value, opts)
	if err != nil || v == nil {
		return nil, err
	}
	return toText(v)
}

func (f *TextField) Decode(raw any, _ LoadOptions) (any, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	return toText(raw)
}

// NumberField holds an int64 or a float64.
type NumberField struct{ baseField }

// Number declares a numeric field.
func Number(name string, opts ...FieldOption) *NumberField {
	return &NumberField{baseField{name: name, cfg: newFieldConfig(opts)}}
}

func (f *NumberField) Encode(value any, opts types.DumpOptions) (any, error) {
	v, err := f.prepare(value, opts)
	if err != nil || v == nil {
		return nil, err
	}
	return toNumber(v)
}

func (f *NumberField) Decode(raw any, _ LoadOptions) (any, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	n, err := toNumber(raw)
	if err != nil {
		return nil, err
	}
	return integral(n), nil
}

// BooleanField holds a bool.
type BooleanField struct{ baseField }

// Boolean declares a boolean field.
func Boolean(name string, opts ...FieldOption) *BooleanField {
	return &BooleanField{baseField{name: name, cfg: newFieldConfig(opts)}}
}

func (f *BooleanField) Encode(value any, opts types.DumpOptions) (any, error) {
	v, err := f.prepare(value, opts)
	if err != nil || v == nil {
		return nil, err
	}
	return toBool(v)
}

func (f *BooleanField) Decode(raw any, _ LoadOptions) (any, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	return toBool(raw)
}

// DateTimeField holds a UTC time.Time.
type DateTimeField struct{ baseField }

// DateTime declares a timestamp field. Use Auto and AutoUpdate to have the
// field stamped on write.
func DateTime(name string, opts ...FieldOption) *DateTimeField {
	return &DateTimeField{baseField{name: name, cfg: newFieldConfig(opts)}}
}

func (f *DateTimeField) Caps() Capabilities {
	return Capabilities{AutoUpdate: f.cfg.autoUpdate}
}

func (f *DateTimeField) now() time.Time {
	if f.cfg.clock != nil {
		return f.cfg.clock().UTC()
	}
	return time.Now().UTC()
}

func (f *DateTimeField) Encode(value any, opts types.DumpOptions) (any, error) {
	if f.cfg.autoUpdate || (f.cfg.auto && isAbsent(value)) {
		return f.now(), nil
	}
	v, err := f.prepare(value, opts)
	if err != nil || v == nil {
		return nil, err
	}
	return toTime(v)
}

func (f *DateTimeField) Decode(raw any, _ LoadOptions) (any, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	t, err := toTime(raw)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", f.name, err)
	}
	return t, nil
}

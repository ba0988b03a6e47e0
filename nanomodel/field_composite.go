package nanomodel

import (
	"fmt"

	"github.com/arthur-debert/nanomodel/types"
)

// ListField holds a list. When an element descriptor is set every element
// is encoded and decoded through it.
type ListField struct{ baseField }

// List declares a list field.
func List(name string, opts ...FieldOption) *ListField {
	return &ListField{baseField{name: name, cfg: newFieldConfig(opts)}}
}

func (f *ListField) Caps() Capabilities { return Capabilities{Composite: true} }

func (f *ListField) Encode(value any, opts types.DumpOptions) (any, error) {
	v, err := f.prepare(value, opts)
	if err != nil || v == nil {
		return nil, err
	}
	items, err := toSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, item := range items {
		if f.cfg.element == nil {
			out[i] = item
			continue
		}
		if out[i], err = f.cfg.element.Encode(item, opts); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

func (f *ListField) Decode(raw any, opts LoadOptions) (any, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	items, err := toSlice(raw)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i, item := range items {
		if f.cfg.element == nil {
			out[i] = item
			continue
		}
		if out[i], err = f.cfg.element.Decode(item, opts); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// MapField holds a string keyed map of arbitrary values.
type MapField struct{ baseField }

// Map declares a map field.
func Map(name string, opts ...FieldOption) *MapField {
	return &MapField{baseField{name: name, cfg: newFieldConfig(opts)}}
}

func (f *MapField) Caps() Capabilities { return Capabilities{Composite: true} }

func (f *MapField) Encode(value any, opts types.DumpOptions) (any, error) {
	v, err := f.prepare(value, opts)
	if err != nil || v == nil {
		return nil, err
	}
	return toMap(v)
}

func (f *MapField) Decode(raw any, _ LoadOptions) (any, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	return toMap(raw)
}

// NestedModelField embeds another model type as a sub-document.
type NestedModelField struct {
	baseField
	meta *Meta
}

// Nested declares a field holding an instance of meta.
func Nested(name string, meta *Meta, opts ...FieldOption) *NestedModelField {
	return &NestedModelField{baseField: baseField{name: name, cfg: newFieldConfig(opts)}, meta: meta}
}

// Meta returns the nested model type.
func (f *NestedModelField) Meta() *Meta { return f.meta }

func (f *NestedModelField) Caps() Capabilities { return Capabilities{Composite: true} }

// Encode writes the whole nested document. Stored sub-documents are
// replaced as a unit on update, so unchanged nested fields are kept.
func (f *NestedModelField) Encode(value any, opts types.DumpOptions) (any, error) {
	v, err := f.prepare(value, opts)
	if err != nil || v == nil {
		return nil, err
	}
	nested, err := f.instance(v)
	if err != nil {
		return nil, err
	}
	opts.IgnoreUnchanged = false
	return nested.ToDBDict(opts)
}

func (f *NestedModelField) instance(v any) (*Model, error) {
	switch t := v.(type) {
	case *Model:
		if t.meta != f.meta {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrInvalidValue, f.meta.name, t.meta.name)
		}
		return t, nil
	case map[string]any:
		return f.meta.FromDict(t, false)
	}
	return nil, fmt.Errorf("%w: expected %s, got %T", ErrInvalidValue, f.meta.name, v)
}

func (f *NestedModelField) Decode(raw any, opts LoadOptions) (any, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	if m, ok := raw.(*Model); ok {
		return f.instance(m)
	}
	doc, err := toMap(raw)
	if err != nil {
		return nil, err
	}

	populate := PopulateOptions{Stored: opts.Stored, ByColumnName: opts.ByColumnName}
	if opts.Merge && opts.Model != nil {
		if current, ok := opts.Model.Get(f.name).(*Model); ok && current != nil && current.meta == f.meta {
			populate.Merge = true
			if err := current.PopulateFromDocDict(doc, populate); err != nil {
				return nil, err
			}
			return current, nil
		}
	}

	nested, err := f.meta.New()
	if err != nil {
		return nil, err
	}
	if err := nested.PopulateFromDocDict(doc, populate); err != nil {
		return nil, err
	}
	return nested, nil
}

// passthroughField resolves a stored column outside the declared schema.
// Values are kept as they are.
type passthroughField struct{ baseField }

func newPassthroughField(column string) *passthroughField {
	return &passthroughField{baseField{name: column}}
}

func (f *passthroughField) Encode(value any, _ types.DumpOptions) (any, error) { return value, nil }

func (f *passthroughField) Decode(raw any, _ LoadOptions) (any, error) { return raw, nil }

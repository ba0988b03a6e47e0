package nanomodel

import (
	"fmt"
	"sort"

	"github.com/arthur-debert/nanomodel/types"
)

// KeyAttribute is the reserved ToDict entry holding the model key.
const KeyAttribute = "key"

// ToDBDict serializes the declared fields, keyed by column name, in
// declaration order. The identifier is left out unless its field stores
// it in the document. Descriptor failures are returned as
// *SerializingError.
func (m *Model) ToDBDict(opts types.DumpOptions) (types.Doc, error) {
	result := make(types.Doc, len(m.meta.fields))
	for _, f := range m.meta.fields {
		caps := f.Caps()
		if caps.Identifier && !caps.IncludeInDocument {
			continue
		}

		unchanged := m.isFieldUnchanged(f.Name())
		if opts.IgnoreUnchanged && !unchanged {
			continue
		}

		value, err := f.Encode(m.values[f.Name()], opts)
		if err != nil {
			return nil, wrapSerializing(m, f.Name(), err)
		}

		column := f.ColumnName()
		if opts.AttributeNames {
			column = f.Name()
		}
		// An explicitly changed field is written even when it is nil.
		if value != nil || !opts.IgnoreDefaultNone || unchanged {
			result[column] = value
		}
	}
	return result, nil
}

// ToDict is the public form of the model: every field keyed by attribute
// name, the identifier included, and the model key under KeyAttribute.
// FromDict(doc, false) reads it back. A pending identifier is nil.
func (m *Model) ToDict() (types.Doc, error) {
	d, err := m.ToDBDict(types.DumpOptions{AttributeNames: true})
	if err != nil {
		return nil, err
	}
	key := m.Key()
	if id, ok := m.ID(); ok {
		d[m.meta.idName] = id
	} else {
		d[m.meta.idName] = nil
	}
	d[KeyAttribute] = key
	return d, nil
}

// FieldFilter selects which attribute values FieldValues returns.
type FieldFilter struct {
	IgnoreUnchanged   bool
	IgnoreDefaultNone bool
}

// FieldValues returns the raw attribute values of the declared fields,
// keyed by attribute name. It is the payload handed to Manager.Create.
func (m *Model) FieldValues(filter FieldFilter) map[string]any {
	out := make(map[string]any, len(m.meta.fields))
	for _, f := range m.meta.fields {
		name := f.Name()
		v := m.values[name]
		unchanged := m.isFieldUnchanged(name)
		if filter.IgnoreUnchanged && !unchanged {
			continue
		}
		if filter.IgnoreDefaultNone && !unchanged && isAbsent(v) {
			continue
		}
		out[name] = v
	}
	return out
}

// PopulateOptions controls PopulateFromDocDict.
type PopulateOptions struct {
	// Stored marks the document as coming from storage: values are assigned
	// without being tracked as changes, and a full (non-merge) load clears
	// the change set.
	Stored bool

	// Merge only touches the attributes present in the document. Without it
	// attributes missing from the document are reset.
	Merge bool

	// ByColumnName reads the document by storage column name and tolerates
	// columns outside the schema according to the extra field policy.
	ByColumnName bool
}

// PopulateFromDocDict loads a document into the instance.
func (m *Model) PopulateFromDocDict(doc types.Doc, opts PopulateOptions) error {
	if !opts.Merge {
		for name := range m.extra {
			if !m.meta.HasField(name) {
				delete(m.values, name)
			}
		}
		m.extra = make(map[string]struct{})
	}

	var unknown []string
	for name := range doc {
		if m.meta.HasField(name) || name == KeyAttribute {
			continue
		}
		unknown = append(unknown, name)
	}
	if len(unknown) > 0 && !opts.ByColumnName {
		return newUnknownFieldsError(m.meta.name, unknown)
	}
	sort.Strings(unknown)

	fields := m.Fields()
	for _, column := range unknown {
		f, err := m.meta.FieldByColumnName(column)
		if err != nil {
			return err
		}
		// nil means the extra column is ignored; declared fields with a
		// renamed column are already in the list.
		if f == nil || m.meta.HasField(f.Name()) {
			continue
		}
		fields = append(fields, f)
	}

	load := LoadOptions{
		Model:        m,
		Stored:       opts.Stored,
		Merge:        opts.Merge,
		ByColumnName: opts.ByColumnName,
	}
	for _, f := range fields {
		lookup := f.Name()
		if opts.ByColumnName {
			lookup = f.ColumnName()
		}
		raw, present := doc[lookup]
		if !present && (opts.Merge || isAbsent(m.values[f.Name()])) {
			continue
		}

		value, err := f.Decode(raw, load)
		if err != nil {
			return fmt.Errorf("loading %s field %q: %w", m.meta.name, f.Name(), err)
		}
		if opts.Stored {
			m.setOrigAttr(f.Name(), value)
		} else {
			m.setAttr(f.Name(), value)
		}
	}

	if !opts.Merge && opts.Stored {
		m.clearChanges()
	}
	return nil
}

// Fields returns the declared fields of the instance's type.
func (m *Model) Fields() []Field { return m.meta.Fields() }

// FromDict creates an instance from a document keyed by attribute name (or
// by column name). A nil document yields a nil model.
func (m *Meta) FromDict(doc types.Doc, byColumnName bool) (*Model, error) {
	if doc == nil {
		return nil, nil
	}
	instance, err := m.New()
	if err != nil {
		return nil, err
	}
	if err := instance.PopulateFromDocDict(doc, PopulateOptions{ByColumnName: byColumnName}); err != nil {
		return nil, err
	}
	return instance, nil
}

// MergeWithDict loads the attributes present in doc, leaving the others
// untouched.
func (m *Model) MergeWithDict(doc types.Doc, byColumnName bool) error {
	return m.PopulateFromDocDict(doc, PopulateOptions{Merge: true, ByColumnName: byColumnName})
}

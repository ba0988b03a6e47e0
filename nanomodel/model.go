package nanomodel

import (
	"fmt"
	"sort"
	"time"

	"github.com/arthur-debert/nanomodel/types"
	"go.uber.org/zap"
)

// Model is one entity instance. Attribute values are read and written
// through Get and Set; every Set of a declared attribute is recorded by the
// change tracker so partial updates only touch what was modified.
//
// A Model is not safe for concurrent mutation.
type Model struct {
	meta *Meta

	values  map[string]any
	changed map[string]struct{}
	extra   map[string]struct{}

	parent string
	key    string

	createTime time.Time
	updateTime time.Time
}

// ModelOption configures a new instance.
type ModelOption func(*modelInit)

type modelInit struct {
	parent string
	values types.Doc
}

// WithParent places the instance in a sub-collection of the document at
// parent.
func WithParent(parent string) ModelOption {
	return func(i *modelInit) { i.parent = parent }
}

// WithValues assigns attribute values on construction. Every value counts
// as changed.
func WithValues(values types.Doc) ModelOption {
	return func(i *modelInit) { i.values = values }
}

// New creates an instance of the model type. It fails for abstract types
// and for values naming undeclared attributes. Nested model fields that
// are not given a value start out as empty nested instances.
func (m *Meta) New(opts ...ModelOption) (*Model, error) {
	var init modelInit
	for _, opt := range opts {
		opt(&init)
	}

	var unexpected []string
	for name := range init.values {
		if !m.HasField(name) {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return nil, fmt.Errorf("%w: %s passed unknown values: %v", ErrUnknownField, m.name, unexpected)
	}
	if m.abstract {
		return nil, fmt.Errorf("%w: %q", ErrAbstractModel, m.name)
	}

	model := &Model{
		meta:    m,
		values:  make(map[string]any, len(m.fields)),
		changed: make(map[string]struct{}),
		extra:   make(map[string]struct{}),
		parent:  init.parent,
	}
	for _, f := range m.fields {
		if v, ok := init.values[f.Name()]; ok {
			model.setAttr(f.Name(), v)
		}
	}

	for _, f := range m.fields {
		nf, ok := f.(*NestedModelField)
		if !ok {
			continue
		}
		v, given := init.values[nf.name]
		switch {
		case !given:
			nested, err := nf.meta.New()
			if err != nil {
				return nil, err
			}
			model.setAttr(nf.name, nested)
		case isDict(v):
			Logger().Warn("nested model given as a map, use FromDict to deserialize",
				zap.String("model", m.name), zap.String("field", nf.name))
			nested, err := nf.meta.FromDict(v.(map[string]any), false)
			if err != nil {
				return nil, err
			}
			model.setAttr(nf.name, nested)
		}
	}
	return model, nil
}

func isDict(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// Meta returns the model type.
func (m *Model) Meta() *Meta { return m.meta }

// CollectionName returns the collection the instance belongs to.
func (m *Model) CollectionName() string { return m.meta.collection }

// Parent returns the path of the enclosing document, if any.
func (m *Model) Parent() string { return m.parent }

// SetParent moves the instance under another parent document.
func (m *Model) SetParent(parent string) {
	m.parent = parent
	m.key = ""
}

// Get returns the value of a declared or extra attribute, nil when unset.
func (m *Model) Get(name string) any { return m.values[name] }

// Has reports whether the attribute holds a non-absent value.
func (m *Model) Has(name string) bool { return !isAbsent(m.values[name]) }

// Set assigns a declared attribute (tracked as changed) or overwrites an
// extra attribute loaded from storage.
func (m *Model) Set(name string, value any) error {
	_, isExtra := m.extra[name]
	if !m.meta.HasField(name) && !isExtra {
		return fmt.Errorf("%w: %s has no field %q", ErrUnknownField, m.meta.name, name)
	}
	m.setAttr(name, value)
	return nil
}

// MustSet is Set for attributes known to be declared; it panics on error.
func (m *Model) MustSet(name string, value any) *Model {
	if err := m.Set(name, value); err != nil {
		panic(err)
	}
	return m
}

// Values returns a copy of all attribute values, declared and extra.
func (m *Model) Values() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Value returns the attribute as a T. The bool is false when the attribute
// is unset or holds another type.
func Value[T any](m *Model, name string) (T, bool) {
	v, ok := m.values[name].(T)
	return v, ok
}

// CreateTime is the server creation time of the stored document, zero if
// the instance was never loaded from storage.
func (m *Model) CreateTime() time.Time { return m.createTime }

// UpdateTime is the server time of the last write seen by the instance.
func (m *Model) UpdateTime() time.Time { return m.updateTime }

// SetTimestamps records server times. Persistence managers call it after
// reading or writing the document.
func (m *Model) SetTimestamps(create, update time.Time) {
	m.createTime = create
	m.updateTime = update
}

func (m *Model) String() string {
	return fmt.Sprintf("%s(%s)", m.meta.name, m.Key())
}

// setAttr is the ordinary assignment path: declared attributes are marked
// changed, undeclared ones (extra columns loaded by column name) are
// remembered as extra attributes.
func (m *Model) setAttr(name string, value any) {
	if !m.meta.HasField(name) {
		m.extra[name] = struct{}{}
	} else {
		m.changed[name] = struct{}{}
		if name == m.meta.idName {
			m.key = ""
		}
	}
	m.values[name] = value
}

// setOrigAttr is the bookkeeping path used for stored values: nothing is
// marked changed, undeclared names are remembered as extra attributes.
func (m *Model) setOrigAttr(name string, value any) {
	if !m.meta.HasField(name) {
		m.extra[name] = struct{}{}
	} else if name == m.meta.idName {
		m.key = ""
	}
	m.values[name] = value
}

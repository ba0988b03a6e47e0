package nanomodel

import (
	"fmt"
	"sync"
)

// ExtraFieldPolicy decides what happens to stored columns that are not part
// of the declared schema when a document is loaded by column name.
type ExtraFieldPolicy int

const (
	// ExtraAllow keeps unknown columns as extra attributes on the model.
	ExtraAllow ExtraFieldPolicy = iota
	// ExtraIgnore drops unknown columns.
	ExtraIgnore
	// ExtraForbid fails the load.
	ExtraForbid
)

// ParseExtraFieldPolicy maps "allow", "ignore" and "forbid" to a policy.
func ParseExtraFieldPolicy(s string) (ExtraFieldPolicy, error) {
	switch s {
	case "", "allow":
		return ExtraAllow, nil
	case "ignore":
		return ExtraIgnore, nil
	case "forbid", "raise":
		return ExtraForbid, nil
	}
	return ExtraAllow, fmt.Errorf("unknown extra field policy %q", s)
}

func (p ExtraFieldPolicy) String() string {
	switch p {
	case ExtraIgnore:
		return "ignore"
	case ExtraForbid:
		return "forbid"
	default:
		return "allow"
	}
}

// DefaultIDName is the identifier attribute added to types that do not
// declare one.
const DefaultIDName = "id"

// Meta is the field registry of one model type. It is built once, through
// Define or MetaFromStruct, and shared by every instance.
type Meta struct {
	name       string
	collection string
	abstract   bool
	extra      ExtraFieldPolicy
	fields     []Field
	byName     map[string]Field
	byColumn   map[string]Field
	idName     string

	mu      sync.RWMutex
	manager Manager
}

// Name returns the model type name.
func (m *Meta) Name() string { return m.name }

// CollectionName returns the collection documents of this type live in.
func (m *Meta) CollectionName() string { return m.collection }

// IsAbstract reports whether the type can not be instantiated.
func (m *Meta) IsAbstract() bool { return m.abstract }

// ExtraFields returns the extra field policy.
func (m *Meta) ExtraFields() ExtraFieldPolicy { return m.extra }

// Fields returns the declared fields in declaration order.
func (m *Meta) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// FieldNames returns the declared attribute names in declaration order.
func (m *Meta) FieldNames() []string {
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.Name()
	}
	return names
}

// Field returns the declared field called name, or nil.
func (m *Meta) Field(name string) Field { return m.byName[name] }

// HasField reports whether name is a declared attribute.
func (m *Meta) HasField(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// ID returns the identifier attribute name and its descriptor.
func (m *Meta) ID() (string, Field) {
	return m.idName, m.byName[m.idName]
}

// FieldByColumnName resolves a stored column to a descriptor. Declared
// columns resolve to their field; anything else follows the extra field
// policy and may resolve to nil (ignored) or fail.
func (m *Meta) FieldByColumnName(column string) (Field, error) {
	if f, ok := m.byColumn[column]; ok {
		return f, nil
	}
	switch m.extra {
	case ExtraIgnore:
		return nil, nil
	case ExtraForbid:
		return nil, newUnknownFieldsError(m.name, []string{column})
	}
	return newPassthroughField(column), nil
}

// Manager returns the persistence manager attached to this type.
func (m *Meta) Manager() Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.manager
}

// SetManager attaches the persistence manager used by Save, Update and
// Refresh.
func (m *Meta) SetManager(mgr Manager) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manager = mgr
}

func (m *Meta) String() string { return m.name }

// MetaBuilder declares a model type field by field.
type MetaBuilder struct {
	meta *Meta
	errs []error
}

// Define starts the declaration of a model type.
func Define(name string) *MetaBuilder {
	return &MetaBuilder{meta: &Meta{
		name:     name,
		byName:   make(map[string]Field),
		byColumn: make(map[string]Field),
	}}
}

// Collection overrides the collection name derived from the type name.
func (b *MetaBuilder) Collection(name string) *MetaBuilder {
	b.meta.collection = name
	return b
}

// Abstract marks the type as not instantiable.
func (b *MetaBuilder) Abstract() *MetaBuilder {
	b.meta.abstract = true
	return b
}

// ExtraFields sets the extra field policy.
func (b *MetaBuilder) ExtraFields(p ExtraFieldPolicy) *MetaBuilder {
	b.meta.extra = p
	return b
}

// Manager attaches a persistence manager.
func (b *MetaBuilder) Manager(mgr Manager) *MetaBuilder {
	b.meta.manager = mgr
	return b
}

// Field declares the next field.
func (b *MetaBuilder) Field(f Field) *MetaBuilder {
	if f == nil {
		b.errs = append(b.errs, fmt.Errorf("%s: nil field", b.meta.name))
		return b
	}
	name, column := f.Name(), f.ColumnName()
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("%s: field with empty name", b.meta.name))
		return b
	}
	if _, dup := b.meta.byName[name]; dup {
		b.errs = append(b.errs, fmt.Errorf("%s: duplicate field %q", b.meta.name, name))
		return b
	}
	if _, dup := b.meta.byColumn[column]; dup {
		b.errs = append(b.errs, fmt.Errorf("%s: duplicate column %q", b.meta.name, column))
		return b
	}
	if f.Caps().Identifier {
		if b.meta.idName != "" {
			b.errs = append(b.errs, fmt.Errorf("%s: more than one id field (%q, %q)", b.meta.name, b.meta.idName, name))
			return b
		}
		b.meta.idName = name
	}
	if n, ok := f.(*NestedModelField); ok && n.meta == nil {
		b.errs = append(b.errs, fmt.Errorf("%s: nested field %q has no model", b.meta.name, name))
		return b
	}
	b.meta.fields = append(b.meta.fields, f)
	b.meta.byName[name] = f
	b.meta.byColumn[column] = f
	return b
}

// Fields declares several fields in order.
func (b *MetaBuilder) Fields(fs ...Field) *MetaBuilder {
	for _, f := range fs {
		b.Field(f)
	}
	return b
}

// Build validates the declaration and returns the registry. Types without
// an identifier field get an implicit "id" field.
func (b *MetaBuilder) Build() (*Meta, error) {
	if b.meta.name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	if b.meta.idName == "" {
		if _, taken := b.meta.byName[DefaultIDName]; taken {
			return nil, fmt.Errorf("%s: field %q must be an id field", b.meta.name, DefaultIDName)
		}
		id := ID(DefaultIDName)
		b.meta.fields = append(b.meta.fields, id)
		b.meta.byName[DefaultIDName] = id
		b.meta.idName = DefaultIDName
	}
	if b.meta.collection == "" {
		b.meta.collection = toSnakeCase(b.meta.name)
	}
	return b.meta, nil
}

// MustBuild is Build for package level declarations; it panics on error.
func (b *MetaBuilder) MustBuild() *Meta {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

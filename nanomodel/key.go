package nanomodel

import (
	"github.com/arthur-debert/nanomodel/types"
)

// Identity is the outcome of resolving a model's identifier: either a
// known id, or Pending while the id is yet to be assigned by storage.
type Identity struct {
	ID      string
	Pending bool
}

// ResolveID reads the identifier attribute. When it is unset the id field
// may generate one, which is then written back onto the instance.
func (m *Model) ResolveID() Identity {
	name, f := m.meta.ID()
	raw := m.values[name]
	v, err := f.Encode(raw, types.DumpOptions{})
	if err != nil {
		// Absent required ids and unusable values leave the id pending.
		return Identity{Pending: true}
	}
	id, _ := v.(string)
	if id == "" {
		return Identity{Pending: true}
	}
	if isAbsent(raw) {
		m.setAttr(name, id)
	}
	return Identity{ID: id}
}

// ID returns the resolved identifier; false while it is pending.
func (m *Model) ID() (string, bool) {
	ident := m.ResolveID()
	return ident.ID, !ident.Pending
}

// SetID assigns the identifier attribute. A non-empty id also fixes the
// model key; an empty one clears the attribute and leaves the key alone,
// which lets managers set up an instance before storage assigns its id.
func (m *Model) SetID(id string) {
	name := m.meta.idName
	m.changed[name] = struct{}{}
	if id == "" {
		m.values[name] = nil
		return
	}
	m.values[name] = id
	m.setKey(id)
}

// Key returns parent/collection/id without a leading separator. Until the
// identifier is known the id segment is types.PlaceholderID. The key is
// memoized once the identifier resolves.
func (m *Model) Key() string {
	if m.key != "" {
		return m.key
	}
	ident := m.ResolveID()
	if ident.Pending {
		return types.JoinPath(m.parent, m.meta.collection, types.PlaceholderID)
	}
	m.key = types.JoinPath(m.parent, m.meta.collection, ident.ID)
	return m.key
}

func (m *Model) setKey(id string) {
	m.key = types.JoinPath(m.parent, m.meta.collection, id)
}

// DocumentPath addresses the instance's document at the persistence
// boundary: collection/id, prefixed with the parent path when set.
func (m *Model) DocumentPath() (string, error) {
	ident := m.ResolveID()
	if ident.Pending {
		return "", ErrMissingID
	}
	return types.JoinPath(m.parent, m.meta.collection, ident.ID), nil
}

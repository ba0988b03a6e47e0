package nanomodel

import "sort"

// isFieldUnchanged is the single gate used by ToDBDict when unchanged
// fields are ignored. Despite its name it returns true for every field
// whose current value must be written:
//   - fields assigned since construction or the last full stored load
//   - composite fields (nested, list, map) holding a value, whose change
//     detection is not implemented
//   - datetime fields refreshed on every write
func (m *Model) isFieldUnchanged(name string) bool {
	if _, ok := m.changed[name]; ok {
		return true
	}

	f := m.meta.byName[name]
	if f == nil {
		return false
	}
	caps := f.Caps()
	if caps.Composite && !isAbsent(m.values[name]) {
		return true
	}
	if caps.AutoUpdate {
		return true
	}
	return false
}

// IsChanged reports whether the declared attribute was assigned since
// construction or the last full stored load.
func (m *Model) IsChanged(name string) bool {
	_, ok := m.changed[name]
	return ok
}

// HasChanges reports whether any declared attribute was assigned since
// construction or the last full stored load.
func (m *Model) HasChanges() bool { return len(m.changed) > 0 }

// ChangedFields returns the assigned attribute names, sorted.
func (m *Model) ChangedFields() []string { return sortedKeys(m.changed) }

// ExtraFields returns the names of attributes loaded from storage that are
// not part of the declared schema, sorted.
func (m *Model) ExtraFields() []string { return sortedKeys(m.extra) }

func (m *Model) clearChanges() {
	m.changed = make(map[string]struct{})
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

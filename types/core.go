package types

import "time"

// Doc is the stored-dict interchange format: a document keyed by storage
// column name (or attribute name, depending on who produced it).
type Doc = map[string]any

// StoredDoc is a document as returned by a persistence backend.
type StoredDoc struct {
	Path       string    // Full document path, e.g. "users/u1/posts/p1"
	ID         string    // Last path segment
	Data       Doc       // Column-name keyed document body
	CreateTime time.Time // Server-assigned creation time
	UpdateTime time.Time // Server-assigned time of the last write
}

// Exists reports whether the stored document carries data.
func (d *StoredDoc) Exists() bool {
	return d != nil && d.Data != nil
}

// DumpOptions controls how a model is turned into a stored document.
type DumpOptions struct {
	// IgnoreUnchanged drops fields that were not modified since the last
	// full load (see the model's change tracking rules).
	IgnoreUnchanged bool

	// IgnoreDefaultNone drops unchanged fields whose encoded value is nil.
	IgnoreDefaultNone bool

	// IgnoreRequired skips the required check of field descriptors.
	IgnoreRequired bool

	// IgnoreDefault skips default substitution for absent values.
	IgnoreDefault bool

	// AttributeNames keys the document, nested documents included, by
	// attribute name instead of storage column name.
	AttributeNames bool
}

// CloneDoc returns a deep copy of a document. Nested maps and slices are
// copied, other values are shared.
func CloneDoc(d Doc) Doc {
	if d == nil {
		return nil
	}
	out := make(Doc, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// MergeDoc deep-merges src into dst: nested maps are merged key by key,
// every other value in src replaces the one in dst.
func MergeDoc(dst, src Doc) Doc {
	if dst == nil {
		dst = make(Doc, len(src))
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = MergeDoc(dstMap, srcMap)
			continue
		}
		dst[k] = cloneValue(v)
	}
	return dst
}

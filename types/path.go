package types

import "strings"

// PlaceholderID stands in for an identifier that is not known yet, so a
// model can be referenced before it is persisted.
const PlaceholderID = "@temp_doc_id"

// Separator joins key and path segments.
const Separator = "/"

// JoinPath joins non-empty segments with the separator. The result never
// starts with a separator.
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, Separator)
		if s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, Separator)
}

// IDFromKey returns the document id of a key (its last segment).
func IDFromKey(key string) string {
	key = strings.TrimRight(key, Separator)
	if i := strings.LastIndex(key, Separator); i >= 0 {
		return key[i+1:]
	}
	return key
}

// CollectionFromKey returns the collection name of a key (the segment
// before the id).
func CollectionFromKey(key string) string {
	segs := splitKey(key)
	if len(segs) < 2 {
		return ""
	}
	return segs[len(segs)-2]
}

// ParentFromKey returns the parent document path of a key, or "" for a
// top-level document.
func ParentFromKey(key string) string {
	segs := splitKey(key)
	if len(segs) <= 2 {
		return ""
	}
	return strings.Join(segs[:len(segs)-2], Separator)
}

// CollectionPathFromKey returns everything but the id, e.g.
// "users/u1/posts" for "users/u1/posts/p1".
func CollectionPathFromKey(key string) string {
	segs := splitKey(key)
	if len(segs) < 2 {
		return ""
	}
	return strings.Join(segs[:len(segs)-1], Separator)
}

// IsPlaceholderKey reports whether the key still carries the placeholder id.
func IsPlaceholderKey(key string) bool {
	return strings.Contains(key, PlaceholderID)
}

// IsDocumentPath reports whether path addresses a document (an even number
// of segments) rather than a collection.
func IsDocumentPath(path string) bool {
	segs := splitKey(path)
	return len(segs) > 0 && len(segs)%2 == 0
}

func splitKey(key string) []string {
	key = strings.Trim(key, Separator)
	if key == "" {
		return nil
	}
	return strings.Split(key, Separator)
}

package storage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/nanomodel/types"
)

// record is one stored document. The JSON backend persists records as is.
type record struct {
	Data       types.Doc `json:"data"`
	CreateTime time.Time `json:"create_time"`
	UpdateTime time.Time `json:"update_time"`
}

// table is the path keyed document map shared by the memory and JSON
// backends. It does no locking; callers go through a LockManager.
type table struct {
	docs map[string]*record
	now  func() time.Time
}

func newTable(now func() time.Time) *table {
	return &table{docs: make(map[string]*record), now: now}
}

func (t *table) stored(path string, r *record) *types.StoredDoc {
	return &types.StoredDoc{
		Path:       path,
		ID:         types.IDFromKey(path),
		Data:       types.CloneDoc(r.Data),
		CreateTime: r.CreateTime,
		UpdateTime: r.UpdateTime,
	}
}

func (t *table) get(path string) (*types.StoredDoc, error) {
	path = normalizePath(path)
	if err := checkDocumentPath(path); err != nil {
		return nil, err
	}
	r, ok := t.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return t.stored(path, r), nil
}

func (t *table) set(path string, data types.Doc, merge bool) (*types.StoredDoc, error) {
	path = normalizePath(path)
	if err := checkDocumentPath(path); err != nil {
		return nil, err
	}
	now := t.now().UTC()
	r, ok := t.docs[path]
	if !ok {
		r = &record{CreateTime: now}
		t.docs[path] = r
	}
	if merge && r.Data != nil {
		r.Data = types.MergeDoc(r.Data, data)
	} else {
		r.Data = types.CloneDoc(data)
		if r.Data == nil {
			r.Data = types.Doc{}
		}
	}
	r.UpdateTime = now
	return t.stored(path, r), nil
}

func (t *table) update(path string, data types.Doc) (*types.StoredDoc, error) {
	path = normalizePath(path)
	if err := checkDocumentPath(path); err != nil {
		return nil, err
	}
	r, ok := t.docs[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if r.Data == nil {
		r.Data = types.Doc{}
	}
	// Each named column is replaced whole; nested maps are not merged.
	for k, v := range types.CloneDoc(data) {
		r.Data[k] = v
	}
	r.UpdateTime = t.now().UTC()
	return t.stored(path, r), nil
}

func (t *table) delete(path string) error {
	path = normalizePath(path)
	if err := checkDocumentPath(path); err != nil {
		return err
	}
	delete(t.docs, path)
	return nil
}

// collections derives the collection names under docPath from the stored
// paths; a collection exists as long as one document lives below it.
func (t *table) collections(docPath string) ([]string, error) {
	docPath = normalizePath(docPath)
	prefix := ""
	if docPath != "" {
		if err := checkDocumentPath(docPath); err != nil {
			return nil, err
		}
		prefix = docPath + types.Separator
	}
	seen := make(map[string]struct{})
	for path := range t.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		name, _, _ := strings.Cut(rest, types.Separator)
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func normalizePath(path string) string {
	return types.JoinPath(path)
}

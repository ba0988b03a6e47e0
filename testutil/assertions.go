package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"github.com/arthur-debert/nanomodel/nanomodel/storage"
	"github.com/arthur-debert/nanomodel/types"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// AssertDoc fails the test when the documents differ. Empty and nil maps
// compare equal.
func AssertDoc(t *testing.T, want, got types.Doc) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

// AssertChanged fails the test unless exactly names are tracked as changed.
func AssertChanged(t *testing.T, m *nanomodel.Model, names ...string) {
	t.Helper()
	if diff := cmp.Diff(names, m.ChangedFields(), cmpopts.EquateEmpty(), cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Errorf("%s changed fields mismatch (-want +got):\n%s", m, diff)
	}
}

// AssertStored fails the test unless the backend holds want at key.
func AssertStored(t *testing.T, backend storage.Backend, key string, want types.Doc) {
	t.Helper()
	got, err := backend.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("reading %s: %v", key, err)
	}
	AssertDoc(t, want, got.Data)
}

// AssertNotStored fails the test when a document exists at key.
func AssertNotStored(t *testing.T, backend storage.Backend, key string) {
	t.Helper()
	_, err := backend.Get(context.Background(), key)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected no document at %s, got err=%v", key, err)
	}
}

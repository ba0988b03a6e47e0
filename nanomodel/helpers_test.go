package nanomodel

import (
	"testing"

	"github.com/arthur-debert/nanomodel/types"
	"github.com/google/go-cmp/cmp"
)

// mustNew creates an instance or fails the test.
func mustNew(t *testing.T, meta *Meta, opts ...ModelOption) *Model {
	t.Helper()
	m, err := meta.New(opts...)
	if err != nil {
		t.Fatalf("failed to create %s: %v", meta.Name(), err)
	}
	return m
}

// mustPopulate loads doc into m or fails the test.
func mustPopulate(t *testing.T, m *Model, doc types.Doc, opts PopulateOptions) {
	t.Helper()
	if err := m.PopulateFromDocDict(doc, opts); err != nil {
		t.Fatalf("failed to populate %s: %v", m, err)
	}
}

// dumpDoc serializes m or fails the test.
func dumpDoc(t *testing.T, m *Model, opts types.DumpOptions) types.Doc {
	t.Helper()
	doc, err := m.ToDBDict(opts)
	if err != nil {
		t.Fatalf("ToDBDict failed: %v", err)
	}
	return doc
}

func checkDoc(t *testing.T, want, got types.Doc) {
	t.Helper()
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

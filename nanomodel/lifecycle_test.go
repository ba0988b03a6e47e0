package nanomodel_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"github.com/arthur-debert/nanomodel/testutil"
	"github.com/arthur-debert/nanomodel/types"
	"github.com/google/go-cmp/cmp"
)

func newCity(t *testing.T, mgr nanomodel.Manager) *nanomodel.Model {
	t.Helper()
	meta := nanomodel.Define("City").Collection("cities").Fields(
		nanomodel.Text("name", nanomodel.Required()),
		nanomodel.Number("population"),
		nanomodel.Text("country"),
	).Manager(mgr).MustBuild()
	m, err := meta.New(nanomodel.WithValues(types.Doc{"name": "Paris"}))
	if err != nil {
		t.Fatalf("failed to create city: %v", err)
	}
	return m
}

func fieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lastCall(t *testing.T, rec *testutil.RecordingManager) testutil.Call {
	t.Helper()
	call, ok := rec.Last()
	if !ok {
		t.Fatal("expected a manager call")
	}
	return call
}

func TestLifecycleWithoutManager(t *testing.T) {
	ctx := context.Background()
	m := newCity(t, nil)
	m.SetID("paris")

	ops := map[string]func() error{
		"save":           func() error { _, err := m.Save(ctx, nanomodel.WriteOptions{}); return err },
		"update":         func() error { _, err := m.Update(ctx, "", nil, nil); return err },
		"refresh":        func() error { _, err := m.Refresh(ctx, nil); return err },
		"subcollections": func() error { _, err := m.Subcollections(ctx); return err },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, nanomodel.ErrNoManager) {
			t.Errorf("%s: expected ErrNoManager, got %v", name, err)
		}
	}
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("passes set fields and options to the manager", func(t *testing.T) {
		rec := &testutil.RecordingManager{}
		m := newCity(t, rec)
		m.MustSet("country", nil)

		got, err := m.Save(ctx, nanomodel.WriteOptions{NoReturn: true, Batch: "b1"})
		if err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if got != m {
			t.Error("expected Save to return the same instance")
		}

		call := lastCall(t, rec)
		if call.Op != "create" {
			t.Errorf("expected create, got %s", call.Op)
		}
		if want := "cities/" + types.PlaceholderID; call.Key != want {
			t.Errorf("expected key %q, got %q", want, call.Key)
		}
		if !call.Options.NoReturn || call.Options.Merge || call.Options.Batch != "b1" {
			t.Errorf("options not passed through: %+v", call.Options)
		}
		// population was never set, country was explicitly cleared.
		if diff := cmp.Diff([]string{"country", "name"}, fieldNames(call.Fields)); diff != "" {
			t.Errorf("fields mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("upsert merges", func(t *testing.T) {
		rec := &testutil.RecordingManager{}
		m := newCity(t, rec)

		if _, err := m.Upsert(ctx, "tx", nil); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}

		call := lastCall(t, rec)
		if !call.Options.Merge {
			t.Error("expected upsert to merge")
		}
		if call.Options.Transaction != "tx" {
			t.Errorf("expected transaction tx, got %v", call.Options.Transaction)
		}
	})

	t.Run("manager errors are returned", func(t *testing.T) {
		boom := errors.New("boom")
		m := newCity(t, &testutil.RecordingManager{Err: boom})
		if _, err := m.Save(ctx, nanomodel.WriteOptions{}); !errors.Is(err, boom) {
			t.Errorf("expected manager error, got %v", err)
		}
	})
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("unsaved instance has an invalid key", func(t *testing.T) {
		rec := &testutil.RecordingManager{}
		m := newCity(t, rec)

		if _, err := m.Update(ctx, "", nil, nil); !errors.Is(err, nanomodel.ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
		if calls := rec.Calls(); len(calls) != 0 {
			t.Errorf("expected no manager calls, got %d", len(calls))
		}
	})

	t.Run("uses the model key", func(t *testing.T) {
		rec := &testutil.RecordingManager{}
		m := newCity(t, rec)
		m.SetID("paris")

		if _, err := m.Update(ctx, "", "tx", "batch"); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		call := lastCall(t, rec)
		if call.Op != "update" || call.Key != "cities/paris" {
			t.Errorf("expected update of cities/paris, got %s %s", call.Op, call.Key)
		}
		if call.Options.Transaction != "tx" || call.Options.Batch != "batch" {
			t.Errorf("options not passed through: %+v", call.Options)
		}
	})

	t.Run("explicit key sets parent and id", func(t *testing.T) {
		rec := &testutil.RecordingManager{}
		m := newCity(t, rec)

		if _, err := m.Update(ctx, "countries/fr/cities/lyon", nil, nil); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		if m.Parent() != "countries/fr" {
			t.Errorf("expected parent countries/fr, got %q", m.Parent())
		}
		if m.Get("id") != "lyon" {
			t.Errorf("expected id lyon, got %v", m.Get("id"))
		}
		if m.Key() != "countries/fr/cities/lyon" {
			t.Errorf("unexpected key %q", m.Key())
		}

		call := lastCall(t, rec)
		if call.Key != "countries/fr/cities/lyon" {
			t.Errorf("unexpected call key %q", call.Key)
		}
		if diff := cmp.Diff([]string{"id", "name"}, call.Changed); diff != "" {
			t.Errorf("changed fields mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("explicit placeholder key is left to the manager", func(t *testing.T) {
		rec := &testutil.RecordingManager{}
		m := newCity(t, rec)

		if _, err := m.Update(ctx, "cities/"+types.PlaceholderID, nil, nil); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if m.Get("id") != nil {
			t.Errorf("expected id untouched, got %v", m.Get("id"))
		}
		if calls := rec.Calls(); len(calls) != 1 {
			t.Errorf("expected one manager call, got %d", len(calls))
		}
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	rec := &testutil.RecordingManager{}
	m := newCity(t, rec)

	if _, err := m.Refresh(ctx, nil); !errors.Is(err, nanomodel.ErrMissingKey) {
		t.Errorf("expected ErrMissingKey, got %v", err)
	}
	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("expected no manager calls, got %d", len(calls))
	}

	m.SetID("paris")
	if _, err := m.Refresh(ctx, "tx"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	call := lastCall(t, rec)
	if call.Op != "refresh" || call.Options.Transaction != "tx" {
		t.Errorf("unexpected call %s with %+v", call.Op, call.Options)
	}
}

func TestSubcollectionsRequiresLister(t *testing.T) {
	m := newCity(t, &testutil.RecordingManager{})
	_, err := m.Subcollections(context.Background())
	if err == nil || !strings.Contains(err.Error(), "can not list subcollections") {
		t.Errorf("expected a lister error, got %v", err)
	}
}

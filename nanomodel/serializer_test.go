package nanomodel

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/nanomodel/types"
	"github.com/google/go-cmp/cmp"
)

func userMeta(t *testing.T, idOpts ...FieldOption) *Meta {
	t.Helper()
	meta, err := Define("User").Collection("users").Fields(
		ID("user_id", idOpts...),
		Text("name", Column("full_name")),
		Number("age"),
		Text("email"),
	).Build()
	if err != nil {
		t.Fatalf("failed to build meta: %v", err)
	}
	return meta
}

func TestToDBDict(t *testing.T) {
	t.Run("identifier is left out", func(t *testing.T) {
		m := mustNew(t, userMeta(t), WithValues(types.Doc{"user_id": "u1", "name": "Ada"}))
		doc := dumpDoc(t, m, types.DumpOptions{})
		checkDoc(t, types.Doc{"full_name": "Ada", "age": nil, "email": nil}, doc)
	})

	t.Run("identifier included on request", func(t *testing.T) {
		m := mustNew(t, userMeta(t, IncludeInDocument()), WithValues(types.Doc{"user_id": "u1"}))
		doc := dumpDoc(t, m, types.DumpOptions{IgnoreDefaultNone: true})
		checkDoc(t, types.Doc{"user_id": "u1"}, doc)
	})

	t.Run("ignore default none keeps explicit nil", func(t *testing.T) {
		m := mustNew(t, userMeta(t))
		m.MustSet("name", "Ada").MustSet("age", nil)

		doc := dumpDoc(t, m, types.DumpOptions{IgnoreDefaultNone: true})
		checkDoc(t, types.Doc{"full_name": "Ada", "age": nil}, doc)
	})

	t.Run("ignore unchanged after stored load", func(t *testing.T) {
		m := mustNew(t, userMeta(t))
		mustPopulate(t, m, types.Doc{"full_name": "Ada", "age": 36}, PopulateOptions{Stored: true, ByColumnName: true})

		if doc := dumpDoc(t, m, types.DumpOptions{IgnoreUnchanged: true}); len(doc) != 0 {
			t.Errorf("expected nothing to write after a stored load, got %v", doc)
		}

		m.MustSet("email", "ada@example.com")
		doc := dumpDoc(t, m, types.DumpOptions{IgnoreUnchanged: true})
		checkDoc(t, types.Doc{"email": "ada@example.com"}, doc)
	})

	t.Run("attribute names", func(t *testing.T) {
		m := mustNew(t, userMeta(t), WithValues(types.Doc{"name": "Ada"}))
		doc := dumpDoc(t, m, types.DumpOptions{AttributeNames: true, IgnoreDefaultNone: true})
		checkDoc(t, types.Doc{"name": "Ada"}, doc)
	})

	t.Run("defaults and required", func(t *testing.T) {
		meta := Define("Flag").Fields(
			Boolean("active", Default(true)),
			Text("label", Required()),
			DateTime("seen", Default(func() any { return "2024-01-01T00:00:00Z" })),
		).MustBuild()
		m := mustNew(t, meta)

		_, err := m.ToDBDict(types.DumpOptions{})
		var required *RequiredFieldError
		if !errors.As(err, &required) {
			t.Fatalf("expected RequiredFieldError, got %v", err)
		}
		if required.Field != "label" {
			t.Errorf("expected required field 'label', got %q", required.Field)
		}
		if !errors.Is(err, ErrRequiredField) {
			t.Errorf("expected ErrRequiredField in chain, got %v", err)
		}

		doc := dumpDoc(t, m, types.DumpOptions{IgnoreRequired: true})
		if doc["active"] != true {
			t.Errorf("expected default active=true, got %v", doc["active"])
		}
		seen, _ := doc["seen"].(time.Time)
		if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); !seen.Equal(want) {
			t.Errorf("expected default seen %v, got %v", want, doc["seen"])
		}

		doc = dumpDoc(t, m, types.DumpOptions{IgnoreRequired: true, IgnoreDefault: true})
		if doc["active"] != nil {
			t.Errorf("expected no default with IgnoreDefault, got %v", doc["active"])
		}
	})

	t.Run("descriptor failures are attributed", func(t *testing.T) {
		m := mustNew(t, userMeta(t))
		m.MustSet("age", "thirty")

		_, err := m.ToDBDict(types.DumpOptions{})
		var serr *SerializingError
		if !errors.As(err, &serr) {
			t.Fatalf("expected SerializingError, got %v", err)
		}
		if serr.Model != m {
			t.Error("expected the failing model on the error")
		}
		if diff := cmp.Diff([]string{"age"}, serr.Path); diff != "" {
			t.Errorf("path mismatch (-want +got):\n%s", diff)
		}
		if !errors.Is(err, ErrInvalidValue) {
			t.Errorf("expected ErrInvalidValue in chain, got %v", err)
		}
	})

	t.Run("nested failures carry the full path", func(t *testing.T) {
		address := Define("Address").Fields(Text("city", Required())).MustBuild()
		meta := Define("Person").Fields(Text("name"), Nested("address", address)).MustBuild()
		m := mustNew(t, meta)

		_, err := m.ToDBDict(types.DumpOptions{})
		var serr *SerializingError
		if !errors.As(err, &serr) {
			t.Fatalf("expected SerializingError, got %v", err)
		}
		if serr.Model != m {
			t.Error("expected the outer model on the error")
		}
		if diff := cmp.Diff([]string{"address", "city"}, serr.Path); diff != "" {
			t.Errorf("path mismatch (-want +got):\n%s", diff)
		}
		if !errors.Is(err, ErrRequiredField) {
			t.Errorf("expected ErrRequiredField in chain, got %v", err)
		}
		if !strings.Contains(err.Error(), `"address.city"`) {
			t.Errorf("expected dotted path in message, got %q", err)
		}
	})

	t.Run("nested and list values", func(t *testing.T) {
		address := Define("Address").Fields(Text("city"), Text("zip", Column("postal_code"))).MustBuild()
		meta := Define("Person").Fields(
			Nested("address", address),
			List("scores", Element(Number("score"))),
		).MustBuild()
		m := mustNew(t, meta, WithValues(types.Doc{"scores": []int{1, 2}}))
		nested, ok := Value[*Model](m, "address")
		if !ok {
			t.Fatal("expected an empty nested instance")
		}
		nested.MustSet("zip", "SW1")

		doc := dumpDoc(t, m, types.DumpOptions{IgnoreDefaultNone: true})
		checkDoc(t, types.Doc{
			"address": types.Doc{"postal_code": "SW1"},
			"scores":  []any{int64(1), int64(2)},
		}, doc)
	})
}

func TestToDict(t *testing.T) {
	m := mustNew(t, userMeta(t), WithValues(types.Doc{"user_id": "u1", "name": "Ada", "age": 36}))

	doc, err := m.ToDict()
	if err != nil {
		t.Fatalf("ToDict failed: %v", err)
	}
	checkDoc(t, types.Doc{
		"user_id": "u1",
		"name":    "Ada",
		"age":     int64(36),
		"email":   nil,
		"key":     "users/u1",
	}, doc)

	pending := mustNew(t, userMeta(t))
	doc, err = pending.ToDict()
	if err != nil {
		t.Fatalf("ToDict failed: %v", err)
	}
	if doc["user_id"] != nil {
		t.Errorf("expected a nil pending id, got %v", doc["user_id"])
	}
	placeholderKey := "users/" + types.PlaceholderID
	if doc["key"] != placeholderKey {
		t.Errorf("expected key %q, got %v", placeholderKey, doc["key"])
	}

	// A pending id stays pending through the round trip.
	copied, err := userMeta(t).FromDict(doc, false)
	if err != nil {
		t.Fatalf("FromDict failed: %v", err)
	}
	if _, ok := copied.ID(); ok {
		t.Error("expected the copied id to stay pending")
	}
	if got := copied.Key(); got != placeholderKey {
		t.Errorf("expected key %q, got %q", placeholderKey, got)
	}
}

func TestFromDictRoundTrip(t *testing.T) {
	branch := Define("Branch").Fields(
		Text("city"),
		Text("code", Column("sort_code")),
	).MustBuild()
	meta := Define("Account").Collection("accounts").Fields(
		ID("account_id"),
		Text("owner", Column("owner_name")),
		Number("balance"),
		Boolean("frozen"),
		List("tags"),
		Map("limits"),
		Nested("branch", branch),
	).MustBuild()
	orig := mustNew(t, meta, WithValues(types.Doc{
		"account_id": "a1",
		"owner":      "Ada",
		"balance":    12.5,
		"frozen":     false,
		"tags":       []any{"vip"},
		"limits":     map[string]any{"daily": int64(100)},
		"branch":     map[string]any{"city": "London", "code": "40-01"},
	}))

	doc, err := orig.ToDict()
	if err != nil {
		t.Fatalf("ToDict failed: %v", err)
	}
	if diff := cmp.Diff(types.Doc{"city": "London", "code": "40-01"}, doc["branch"]); diff != "" {
		t.Errorf("nested document mismatch (-want +got):\n%s", diff)
	}

	copied, err := meta.FromDict(doc, false)
	if err != nil {
		t.Fatalf("FromDict failed: %v", err)
	}
	for _, name := range meta.FieldNames() {
		if name == "branch" {
			continue
		}
		if diff := cmp.Diff(orig.Get(name), copied.Get(name)); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", name, diff)
		}
	}
	nested, ok := Value[*Model](copied, "branch")
	if !ok {
		t.Fatal("expected a nested branch instance")
	}
	if nested.Get("city") != "London" || nested.Get("code") != "40-01" {
		t.Errorf("nested values not copied: city=%v code=%v", nested.Get("city"), nested.Get("code"))
	}
	if orig.Key() != copied.Key() {
		t.Errorf("key mismatch: %q vs %q", orig.Key(), copied.Key())
	}
	if extras := copied.ExtraFields(); len(extras) != 0 {
		t.Errorf("expected no extra fields, got %v", extras)
	}
}

func TestFromDictNil(t *testing.T) {
	m, err := userMeta(t).FromDict(nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Errorf("expected nil model, got %v", m)
	}
}

func TestPopulateFromDocDict(t *testing.T) {
	t.Run("strict load rejects unknown keys", func(t *testing.T) {
		m := mustNew(t, userMeta(t))

		err := m.PopulateFromDocDict(types.Doc{"name": "Ada", "nick": "x", "alias": "y"}, PopulateOptions{})
		var unknown *UnknownFieldsError
		if !errors.As(err, &unknown) {
			t.Fatalf("expected UnknownFieldsError, got %v", err)
		}
		if diff := cmp.Diff([]string{"alias", "nick"}, unknown.Fields); diff != "" {
			t.Errorf("unknown fields mismatch (-want +got):\n%s", diff)
		}
		if !errors.Is(err, ErrUnknownFields) {
			t.Errorf("expected ErrUnknownFields in chain, got %v", err)
		}
	})

	t.Run("column load keeps extras", func(t *testing.T) {
		m := mustNew(t, userMeta(t))
		mustPopulate(t, m, types.Doc{"full_name": "Ada", "nick": "x"}, PopulateOptions{ByColumnName: true})

		if m.Get("name") != "Ada" {
			t.Errorf("expected name 'Ada', got %v", m.Get("name"))
		}
		if m.Get("nick") != "x" {
			t.Errorf("expected extra nick 'x', got %v", m.Get("nick"))
		}
		if diff := cmp.Diff([]string{"nick"}, m.ExtraFields()); diff != "" {
			t.Errorf("extra fields mismatch (-want +got):\n%s", diff)
		}
		if !m.IsChanged("name") {
			t.Error("expected a non-stored load to mark name as changed")
		}
	})

	t.Run("extra field policies", func(t *testing.T) {
		ignore := Define("Loose").ExtraFields(ExtraIgnore).Fields(Text("name")).MustBuild()
		m := mustNew(t, ignore)
		mustPopulate(t, m, types.Doc{"name": "a", "nick": "x"}, PopulateOptions{ByColumnName: true})
		if m.Get("nick") != nil {
			t.Errorf("expected ignored extra, got %v", m.Get("nick"))
		}
		if extras := m.ExtraFields(); len(extras) != 0 {
			t.Errorf("expected no extra fields, got %v", extras)
		}

		forbid := Define("Strict").ExtraFields(ExtraForbid).Fields(Text("name")).MustBuild()
		m = mustNew(t, forbid)
		err := m.PopulateFromDocDict(types.Doc{"name": "a", "nick": "x"}, PopulateOptions{ByColumnName: true})
		if !errors.Is(err, ErrUnknownFields) {
			t.Errorf("expected ErrUnknownFields, got %v", err)
		}
	})

	t.Run("replace load resets missing attributes and extras", func(t *testing.T) {
		m := mustNew(t, userMeta(t))
		mustPopulate(t, m, types.Doc{"full_name": "Ada", "age": 36, "nick": "x"}, PopulateOptions{Stored: true, ByColumnName: true})
		mustPopulate(t, m, types.Doc{"full_name": "Grace"}, PopulateOptions{Stored: true, ByColumnName: true})

		if m.Get("name") != "Grace" {
			t.Errorf("expected name 'Grace', got %v", m.Get("name"))
		}
		if m.Get("age") != nil {
			t.Errorf("expected age reset, got %v", m.Get("age"))
		}
		if m.Get("nick") != nil {
			t.Errorf("expected extra dropped, got %v", m.Get("nick"))
		}
		if extras := m.ExtraFields(); len(extras) != 0 {
			t.Errorf("expected no extra fields, got %v", extras)
		}
		if m.HasChanges() {
			t.Errorf("expected no changes, got %v", m.ChangedFields())
		}
	})

	t.Run("merge only touches present keys", func(t *testing.T) {
		m := mustNew(t, userMeta(t), WithValues(types.Doc{"name": "Ada", "age": 36}))

		if err := m.MergeWithDict(types.Doc{"age": 37.0}, false); err != nil {
			t.Fatalf("MergeWithDict failed: %v", err)
		}
		if m.Get("name") != "Ada" {
			t.Errorf("expected name kept, got %v", m.Get("name"))
		}
		if m.Get("age") != int64(37) {
			t.Errorf("expected age int64(37), got %#v", m.Get("age"))
		}
		if diff := cmp.Diff([]string{"age", "name"}, m.ChangedFields()); diff != "" {
			t.Errorf("changed fields mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("decode failures name the field", func(t *testing.T) {
		m := mustNew(t, userMeta(t))
		err := m.PopulateFromDocDict(types.Doc{"age": "old"}, PopulateOptions{})
		if !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("expected ErrInvalidValue, got %v", err)
		}
		if !strings.Contains(err.Error(), `"age"`) {
			t.Errorf("expected field name in message, got %q", err)
		}
	})

	t.Run("nested merge reuses the instance", func(t *testing.T) {
		address := Define("Address").Fields(Text("city"), Text("street")).MustBuild()
		meta := Define("Person").Fields(Nested("address", address)).MustBuild()
		m := mustNew(t, meta)
		nested, _ := Value[*Model](m, "address")
		nested.MustSet("street", "Main St")

		if err := m.MergeWithDict(types.Doc{"address": map[string]any{"city": "Paris"}}, false); err != nil {
			t.Fatalf("MergeWithDict failed: %v", err)
		}
		after, _ := Value[*Model](m, "address")
		if after != nested {
			t.Fatal("expected the nested instance to be reused")
		}
		if after.Get("street") != "Main St" || after.Get("city") != "Paris" {
			t.Errorf("unexpected nested values: street=%v city=%v", after.Get("street"), after.Get("city"))
		}
	})
}

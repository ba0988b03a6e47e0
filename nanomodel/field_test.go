package nanomodel

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/nanomodel/types"
	"github.com/google/go-cmp/cmp"
)

func TestScalarFields(t *testing.T) {
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		name  string
		field Field
		in    any
		want  any
	}{
		{"text", Text("t"), "a", "a"},
		{"text from int", Text("t"), 42, "42"},
		{"number int", Number("n"), int32(7), int64(7)},
		{"number float", Number("n"), float32(1.5), float64(1.5)},
		{"number string", Number("n"), "12", int64(12)},
		{"number json", Number("n"), json.Number("3.25"), 3.25},
		{"boolean", Boolean("b"), true, true},
		{"boolean string", Boolean("b"), "false", false},
		{"datetime", DateTime("d"), ts, ts},
		{"datetime string", DateTime("d"), "2024-05-06T07:08:09Z", ts},
		{"id", ID("i"), "u1", "u1"},
		{"map", Map("m"), map[string]int{"a": 1}, map[string]any{"a": 1}},
		{"list", List("l"), []string{"a"}, []any{"a"}},
		{"absent", Text("t"), nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Encode(tt.in, types.DumpOptions{})
			if err != nil {
				t.Fatalf("Encode(%v) failed: %v", tt.in, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode(%v) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

func TestFieldErrors(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		in    any
	}{
		{"text from map", Text("t"), map[string]any{}},
		{"number from bool", Number("n"), true},
		{"boolean from string", Boolean("b"), "maybe"},
		{"datetime from int", DateTime("d"), 5},
		{"list from string", List("l"), "abc"},
		{"map with int keys", Map("m"), map[int]string{1: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.field.Encode(tt.in, types.DumpOptions{}); !errors.Is(err, ErrInvalidValue) {
				t.Errorf("expected ErrInvalidValue, got %v", err)
			}
		})
	}
}

func TestNumberDecode(t *testing.T) {
	f := Number("n")
	v, err := f.Decode(float64(10), LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(10) {
		t.Errorf("expected integral float as int64(10), got %#v", v)
	}

	v, err = f.Decode(10.5, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if v != 10.5 {
		t.Errorf("expected 10.5, got %#v", v)
	}
}

func TestDateTimeStamping(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	earlier := now.Add(-time.Hour)

	encode := func(f Field, in any) time.Time {
		t.Helper()
		v, err := f.Encode(in, types.DumpOptions{})
		if err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
		ts, _ := v.(time.Time)
		return ts
	}

	auto := DateTime("created", Auto(), Clock(clock))
	if got := encode(auto, nil); !got.Equal(now) {
		t.Errorf("expected auto stamp %v, got %v", now, got)
	}
	if got := encode(auto, earlier); !got.Equal(earlier) {
		t.Errorf("expected set value kept, got %v", got)
	}
	if auto.Caps().AutoUpdate {
		t.Error("auto field must not auto update")
	}

	update := DateTime("updated", AutoUpdate(), Clock(clock))
	if got := encode(update, earlier); !got.Equal(now) {
		t.Errorf("expected auto update stamp %v, got %v", now, got)
	}
	if !update.Caps().AutoUpdate {
		t.Error("expected AutoUpdate capability")
	}
}

func TestListElements(t *testing.T) {
	f := List("scores", Element(Number("score")))
	got, err := f.Decode([]any{1.0, "2"}, LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]any{int64(1), int64(2)}, got); diff != "" {
		t.Errorf("decoded elements mismatch (-want +got):\n%s", diff)
	}

	_, err = f.Encode([]any{"x"}, types.DumpOptions{})
	if err == nil || !strings.Contains(err.Error(), "element 0") {
		t.Errorf("expected an element 0 error, got %v", err)
	}
}

func TestNestedField(t *testing.T) {
	address := Define("Address").Fields(Text("city")).MustBuild()
	other := Define("Other").MustBuild()
	f := Nested("address", address)

	if _, err := f.Encode(mustNew(t, other), types.DumpOptions{}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue for a foreign model, got %v", err)
	}

	doc, err := f.Encode(map[string]any{"city": "Paris"}, types.DumpOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(types.Doc{"city": "Paris"}, doc); diff != "" {
		t.Errorf("nested document mismatch (-want +got):\n%s", diff)
	}

	v, err := f.Decode(map[string]any{"city": "Rome"}, LoadOptions{Stored: true})
	if err != nil {
		t.Fatal(err)
	}
	nested, ok := v.(*Model)
	if !ok {
		t.Fatalf("expected *Model, got %T", v)
	}
	if nested.Get("city") != "Rome" {
		t.Errorf("expected city Rome, got %v", nested.Get("city"))
	}
	if nested.HasChanges() {
		t.Errorf("stored decode must not track changes, got %v", nested.ChangedFields())
	}
}

func TestIsAbsent(t *testing.T) {
	var nilModel *Model
	var nilMap map[string]any
	var nilSlice []string

	for _, v := range []any{nil, nilModel, nilMap, nilSlice} {
		if !isAbsent(v) {
			t.Errorf("expected %#v to be absent", v)
		}
	}
	for _, v := range []any{"", 0, false} {
		if isAbsent(v) {
			t.Errorf("expected %#v to be present", v)
		}
	}
}

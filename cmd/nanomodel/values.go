package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"gopkg.in/yaml.v3"
)

// assignment is one attr=value argument. Dotted attribute paths address
// fields of nested models.
type assignment struct {
	path  []string
	value any
}

func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected attr=value, got %q", arg)
		}
		value, err := parseScalar(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out = append(out, assignment{path: strings.Split(name, "."), value: value})
	}
	return out, nil
}

// parseScalar reads a value with YAML rules: 42 is a number, true a bool,
// [a, b] a list, {k: v} a map and anything else a string. An empty value
// is nil.
func parseScalar(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return normalizeYAML(v), nil
}

// normalizeYAML converts the int values yaml.v3 produces to int64.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case []any:
		for i, e := range t {
			t[i] = normalizeYAML(e)
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeYAML(e)
		}
		return t
	default:
		return v
	}
}

func applyAssignments(m *nanomodel.Model, as []assignment) error {
	for _, a := range as {
		if err := assign(m, a.path, a.value); err != nil {
			return err
		}
	}
	return nil
}

func assign(m *nanomodel.Model, path []string, value any) error {
	if len(path) == 1 {
		return m.Set(path[0], value)
	}
	nested, ok := nanomodel.Value[*nanomodel.Model](m, path[0])
	if !ok || nested == nil {
		return fmt.Errorf("%s.%s is not a nested model", m.Meta().Name(), path[0])
	}
	if err := assign(nested, path[1:], value); err != nil {
		return err
	}
	// Re-set the nested instance so the parent records the change.
	return m.Set(path[0], nested)
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

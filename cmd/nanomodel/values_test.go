package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/nanomodel/nanomodel"
	"github.com/arthur-debert/nanomodel/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScalar(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", nil},
		{"42", int64(42)},
		{"2.5", 2.5},
		{"true", true},
		{"Ada", "Ada"},
		{"Ada King", "Ada King"},
		{"[a, 1]", []any{"a", int64(1)}},
		{"{k: 1}", map[string]any{"k": int64(1)}},
	}
	for _, tt := range tests {
		got, err := parseScalar(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseScalar("[unclosed")
	assert.Error(t, err)
}

func TestParseAssignments(t *testing.T) {
	as, err := parseAssignments([]string{"name=Ada", "address.city=Paris", "expr=a=b"})
	require.NoError(t, err)
	assert.Equal(t, []assignment{
		{path: []string{"name"}, value: "Ada"},
		{path: []string{"address", "city"}, value: "Paris"},
		{path: []string{"expr"}, value: "a=b"},
	}, as)

	for _, bad := range []string{"name", "=x"} {
		_, err := parseAssignments([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestApplyAssignments(t *testing.T) {
	address := nanomodel.Define("Address").Fields(nanomodel.Text("city")).MustBuild()
	user := nanomodel.Define("User").Fields(
		nanomodel.Text("name"),
		nanomodel.Nested("address", address),
	).MustBuild()
	m, err := user.New()
	require.NoError(t, err)

	as, err := parseAssignments([]string{"name=Ada", "address.city=Paris"})
	require.NoError(t, err)
	require.NoError(t, applyAssignments(m, as))

	doc, err := m.ToDBDict(types.DumpOptions{IgnoreUnchanged: true})
	require.NoError(t, err)
	assert.Equal(t, types.Doc{"name": "Ada", "address": types.Doc{"city": "Paris"}}, doc)

	as, err = parseAssignments([]string{"name.first=Ada"})
	require.NoError(t, err)
	assert.Error(t, applyAssignments(m, as))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, "json", map[string]any{"a": 1}))
	assert.JSONEq(t, `{"a": 1}`, buf.String())

	buf.Reset()
	require.NoError(t, render(&buf, "yaml", map[string]any{"a": 1}))
	assert.Equal(t, "a: 1\n", buf.String())
}

func TestNewLoggerWritesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nanomodel.log")
	logger := newLogger(LogConfig{Level: "info", File: file})
	logger.Info("hello from the test")
	logger.Debug("filtered out")
	_ = logger.Sync()

	raw, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "hello from the test")
	assert.NotContains(t, string(raw), "filtered out")
}

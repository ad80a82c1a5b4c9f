package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisorPrintsTree(t *testing.T) {
	out, err := execute(t, NewDecisorCommand(&RootOptions{Format: "text"}), widgetsDir, "Widget.resize")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "callable Widget.resize\n"), out)
	assert.Contains(t, out, "tree\n")
	assert.Equal(t, 1, strings.Count(out, "callable "))
}

func TestDecisorAllCallables(t *testing.T) {
	out, err := execute(t, NewDecisorCommand(&RootOptions{Format: "json"}), widgetsDir)
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   []DecisorDump `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, "Object.Object", resp.Data[0].Callable, "declaration order")
	for _, d := range resp.Data {
		assert.NotEmpty(t, d.TreeHash, d.Callable)
		assert.NotEmpty(t, d.Signatures, d.Callable)
	}
}

func TestDecisorFromCatalogMatchesCompiled(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), widgetsDir, "--db", db)
	require.NoError(t, err)

	var compiled struct {
		Data CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &compiled))
	prefix := compiled.Data.ModelHash[:12]

	fresh, err := execute(t, NewDecisorCommand(&RootOptions{Format: "text"}), widgetsDir, "Widget.resize", "Point.__add__")
	require.NoError(t, err)
	stored, err := execute(t, NewDecisorCommand(&RootOptions{Format: "text"}), "--db", db, "--build", prefix, "Widget.resize", "Point.__add__")
	require.NoError(t, err)
	assert.Equal(t, fresh, stored)
}

func TestDecisorErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "catalog.db")
	out, err := execute(t, NewCompileCommand(&RootOptions{Format: "json"}), widgetsDir, "--db", db)
	require.NoError(t, err)
	var compiled struct {
		Data CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &compiled))
	hash := compiled.Data.ModelHash

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no model", nil, "a model directory or --build is required"},
		{"unknown callable", []string{widgetsDir, "Widget.explode"}, `unknown callable "Widget.explode"`},
		{"unknown build", []string{"--db", db, "--build", "zzzz"}, `no build matches "zzzz"`},
		{"unknown stored callable", []string{"--db", db, "--build", hash, "Widget.explode"}, `unknown callable "Widget.explode" in build`},
		{"missing model", []string{"/nonexistent/model"}, "E005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewDecisorCommand(&RootOptions{Format: "text"}), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

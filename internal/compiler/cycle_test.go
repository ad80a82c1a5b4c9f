package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/ir"
)

func TestAnalyzeCycles_NoCycles(t *testing.T) {
	m := newModel(t, []ir.TypeEntry{
		{ID: "P", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"int"}},
		{ID: "Q", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"P", "int"}},
	}, nil)

	warnings := AnalyzeCycles(m)
	assert.NotNil(t, warnings)
	assert.Empty(t, warnings)
}

func TestAnalyzeCycles_TwoTypes(t *testing.T) {
	m := newModel(t, []ir.TypeEntry{
		{ID: "P", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"Q"}},
		{ID: "Q", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"P"}},
	}, nil)

	warnings := AnalyzeCycles(m)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"P", "Q", "P"}, warnings[0].Path)
	assert.Equal(t, "warning", warnings[0].Level)
	assert.Equal(t, "implicit conversion cycle: P → Q → P", warnings[0].Message)
}

func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	m := newModel(t, []ir.TypeEntry{
		{ID: "P", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"P"}},
	}, nil)

	warnings := AnalyzeCycles(m)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"P", "P"}, warnings[0].Path)
}

func TestAnalyzeCycles_Deterministic(t *testing.T) {
	m := newModel(t, []ir.TypeEntry{
		{ID: "C", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"A"}},
		{ID: "B", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"C"}},
		{ID: "A", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"B"}},
		{ID: "Y", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"X"}},
		{ID: "X", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"Y"}},
	}, nil)

	first := AnalyzeCycles(m)
	for range 10 {
		assert.Equal(t, first, AnalyzeCycles(m))
	}
	require.Len(t, first, 2)
	assert.Equal(t, []string{"A", "B", "C", "A"}, first[0].Path)
	assert.Equal(t, []string{"X", "Y", "X"}, first[1].Path)
}

func TestTarjanSCC(t *testing.T) {
	graph := dependencyGraph{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
		"d": {"a"},
	}
	sccs := tarjanSCC(graph)

	var sizes []int
	for _, scc := range sccs {
		sizes = append(sizes, len(scc))
	}
	assert.ElementsMatch(t, []int{3, 1}, sizes)
	assert.False(t, hasSelfLoop("d", graph))
}

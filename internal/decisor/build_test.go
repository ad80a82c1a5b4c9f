package decisor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/ir"
)

func TestSelectIntOrString(t *testing.T) {
	f := newFixture(t)
	fInt := f.add("f", ir.Overload{Args: args("int")})
	fStr := f.add("f", ir.Overload{Args: args("std::string")})
	tree := f.mustBuild("f")

	tests := []struct {
		name string
		arg  ir.Value
		want ir.OverloadID
	}{
		{"int", ir.Int(3), fInt},
		{"string", ir.Str("x"), fStr},
		{"float is numeric-like", ir.Float(1.5), fInt},
		{"enum is numeric-like", ir.Enum{Type: "Color", Value: 1}, fInt},
		{"none", ir.None, ir.NoOverload},
		{"list", ir.List{}, ir.NoOverload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tree.Select([]ir.Value{tt.arg}, false)
			assert.Equal(t, tt.want != ir.NoOverload, ok)
			if ok {
				assert.Equal(t, tt.want, id)
			}
		})
	}
}

func TestAmbiguousOverloadIsBuildError(t *testing.T) {
	tests := []struct {
		name  string
		types [][]string
	}{
		{"integer widths", [][]string{{"int"}, {"long"}}},
		{"string types", [][]string{{"std::string"}, {"QString"}}},
		{"after a shared prefix", [][]string{{"int", "float"}, {"int", "double"}}},
		{"two variadic tails", [][]string{{"int", "..."}, {"short", "..."}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for _, types := range tt.types {
				f.add("f", ir.Overload{Args: args(types...)})
			}
			_, err := f.build("f")
			require.Error(t, err)
			assert.True(t, IsAmbiguousOverload(err), "got %v", err)

			var be *BuildError
			require.ErrorAs(t, err, &be)
			assert.Len(t, be.Signatures, 2)
		})
	}
}

func TestDuplicateSignatureKeepsFirst(t *testing.T) {
	f := newFixture(t)
	first := f.add("f", ir.Overload{Args: args("int")})
	f.add("f", ir.Overload{Args: args("int"), Deprecated: true})
	tree := f.mustBuild("f")

	require.Len(t, tree.Candidates, 1)
	id, ok := tree.Select([]ir.Value{ir.Int(1)}, false)
	require.True(t, ok)
	assert.Equal(t, first, id)
}

func TestRemovedArgumentWithoutDefault(t *testing.T) {
	f := newFixture(t)
	f.add("f", ir.Overload{Args: []ir.Argument{
		{Name: "a", Type: "int"},
		{Name: "hidden", Type: "int", Removed: true},
	}})

	_, err := f.build("f")
	require.Error(t, err)
	assert.True(t, IsRemovedArgumentWithoutDefault(err))
}

func TestInvalidDefaultIsBuildError(t *testing.T) {
	f := newFixture(t)
	f.add("f", ir.Overload{Args: []ir.Argument{{Name: "a", Type: "int", Default: "compute()"}}})

	_, err := f.build("f")
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeInvalidDefault, be.Code)
}

func TestUnknownTypeIsBuildError(t *testing.T) {
	f := newFixture(t)
	f.add("f", ir.Overload{Args: args("Callback")})

	_, err := f.build("f")
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeUnknownType, be.Code)
}

func TestUnknownCallable(t *testing.T) {
	f := newFixture(t)
	_, err := f.build("nope")
	var be *BuildError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ErrCodeUnknownCallable, be.Code)
}

func TestDefaultsAndCountBoundary(t *testing.T) {
	f := newFixture(t)
	gInt := f.add("g", ir.Overload{Args: []ir.Argument{
		{Name: "a", Type: "int"},
		{Name: "b", Type: "int", Default: "0"},
	}})
	gStr := f.add("g", ir.Overload{Args: args("std::string")})
	tree := f.mustBuild("g")

	tests := []struct {
		name string
		args []ir.Value
		want ir.OverloadID
	}{
		{"no args", nil, ir.NoOverload},
		{"default filled", []ir.Value{ir.Int(1)}, gInt},
		{"all given", []ir.Value{ir.Int(1), ir.Int(2)}, gInt},
		{"string", []ir.Value{ir.Str("s")}, gStr},
		{"too many", []ir.Value{ir.Int(1), ir.Int(2), ir.Int(3)}, ir.NoOverload},
		{"string with extra", []ir.Value{ir.Str("s"), ir.Int(2)}, ir.NoOverload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tree.Select(tt.args, false)
			assert.Equal(t, tt.want != ir.NoOverload, ok)
			assert.Equal(t, tt.want, id)
		})
	}

	assert.Equal(t, []string{"g(int)", "g(int, int)", "g(std::string)"}, tree.CandidateSignatures())

	defaults := tree.Defaults[gInt]
	require.Len(t, defaults, 2)
	assert.Nil(t, defaults[0])
	require.NotNil(t, defaults[1])
	assert.Equal(t, ir.Int(0), defaults[1].Value)
}

func TestExactArityWinsCountBoundary(t *testing.T) {
	f := newFixture(t)
	withDefault := f.add("h", ir.Overload{Args: []ir.Argument{{Name: "a", Type: "int", Default: "1"}}})
	noArgs := f.add("h", ir.Overload{})
	tree := f.mustBuild("h")

	id, ok := tree.Select(nil, false)
	require.True(t, ok)
	assert.Equal(t, noArgs, id, "an overload needing no defaults wins the count boundary")

	id, ok = tree.Select([]ir.Value{ir.Int(5)}, false)
	require.True(t, ok)
	assert.Equal(t, withDefault, id)
}

func TestExactNumericChecks(t *testing.T) {
	f := newFixture(t)
	hInt := f.add("h", ir.Overload{Args: args("int")})
	hDouble := f.add("h", ir.Overload{Args: args("double")})
	hBool := f.add("h", ir.Overload{Args: args("bool")})
	tree := f.mustBuild("h")

	tests := []struct {
		name string
		arg  ir.Value
		want ir.OverloadID
	}{
		{"int", ir.Int(1), hInt},
		{"float", ir.Float(1.5), hDouble},
		{"bool", ir.Bool(true), hBool},
		{"enum is rejected by exact checks", ir.Enum{Type: "Color", Value: 1}, ir.NoOverload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tree.Select([]ir.Value{tt.arg}, false)
			assert.Equal(t, tt.want != ir.NoOverload, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestIntConvertsImplicitlyToSoleFloat(t *testing.T) {
	f := newFixture(t)
	hDouble := f.add("h", ir.Overload{Args: args("double")})
	f.add("h", ir.Overload{Args: args("bool")})
	tree := f.mustBuild("h")

	id, ok := tree.Select([]ir.Value{ir.Int(2)}, false)
	require.True(t, ok)
	assert.Equal(t, hDouble, id)
}

func TestMoreDerivedTypesFirst(t *testing.T) {
	f := newFixture(t)
	kWidget := f.add("k", ir.Overload{Args: args("Widget")})
	kButton := f.add("k", ir.Overload{Args: args("Button")})
	tree := f.mustBuild("k")

	id, _ := tree.Select([]ir.Value{obj("Button")}, false)
	assert.Equal(t, kButton, id)
	id, _ = tree.Select([]ir.Value{obj("Widget")}, false)
	assert.Equal(t, kWidget, id)
	id, _ = tree.Select([]ir.Value{ir.None}, false)
	assert.Equal(t, kButton, id, "None matches every pointer type; the most derived is tried first")
	_, ok := tree.Select([]ir.Value{obj("Object")}, false)
	assert.False(t, ok)
}

func TestImplicitAfterExact(t *testing.T) {
	f := newFixture(t)
	pPoint := f.add("p", ir.Overload{Args: args("Point")})
	pStr := f.add("p", ir.Overload{Args: args("std::string")})
	tree := f.mustBuild("p", implicitFromString)

	id, _ := tree.Select([]ir.Value{ir.Str("1,2")}, false)
	assert.Equal(t, pStr, id, "the exact string overload precedes the implicit conversion")
	id, _ = tree.Select([]ir.Value{obj("Point")}, false)
	assert.Equal(t, pPoint, id)
}

func TestOverlappingImplicitConversions(t *testing.T) {
	implicitFrom := func(src, target ir.TypeID, check func(ir.Value) bool) func(r *convert.Registry) {
		return func(r *convert.Registry) {
			_ = r.RegisterImplicit(src, target, check,
				func(v ir.Value) (any, error) { return v, nil })
		}
	}
	isInt := func(v ir.Value) bool { _, ok := v.(ir.Int); return ok }
	isStr := func(v ir.Value) bool { _, ok := v.(ir.Str); return ok }

	tests := []struct {
		name      string
		setup     []func(r *convert.Registry)
		ambiguous bool
	}{
		{
			name:      "same source",
			setup:     []func(r *convert.Registry){implicitFrom("int", "Point", isInt), implicitFrom("int", "Size", isInt)},
			ambiguous: true,
		},
		{
			name:      "integer widths",
			setup:     []func(r *convert.Registry){implicitFrom("int", "Point", isInt), implicitFrom("long", "Size", isInt)},
			ambiguous: true,
		},
		{
			name:  "disjoint sources",
			setup: []func(r *convert.Registry){implicitFrom("std::string", "Point", isStr), implicitFrom("int", "Size", isInt)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.model.AddType(ir.TypeEntry{ID: "Size", Kind: ir.KindValue}))
			pPoint := f.add("f", ir.Overload{Args: args("Point")})
			pSize := f.add("f", ir.Overload{Args: args("Size")})

			tree, err := f.build("f", tt.setup...)
			if tt.ambiguous {
				require.Error(t, err)
				assert.True(t, IsAmbiguousOverload(err), "got %v", err)
				var be *BuildError
				require.ErrorAs(t, err, &be)
				assert.Len(t, be.Signatures, 2)
				return
			}
			require.NoError(t, err)
			id, ok := tree.Select([]ir.Value{ir.Str("1,2")}, false)
			require.True(t, ok)
			assert.Equal(t, pPoint, id)
			id, ok = tree.Select([]ir.Value{ir.Int(3)}, false)
			require.True(t, ok)
			assert.Equal(t, pSize, id)
		})
	}
}

func TestImplicitOnlyCandidate(t *testing.T) {
	f := newFixture(t)
	pPoint := f.add("p", ir.Overload{Args: args("Point")})
	f.add("p", ir.Overload{Args: args("Widget")})
	tree := f.mustBuild("p", implicitFromString)

	id, ok := tree.Select([]ir.Value{ir.Str("1,2")}, false)
	require.True(t, ok)
	assert.Equal(t, pPoint, id)
}

func TestCatchAllLast(t *testing.T) {
	f := newFixture(t)
	anyID := f.add("c", ir.Overload{Args: args("any")})
	intID := f.add("c", ir.Overload{Args: args("int")})
	tree := f.mustBuild("c")

	id, _ := tree.Select([]ir.Value{ir.Int(1)}, false)
	assert.Equal(t, intID, id)
	id, _ = tree.Select([]ir.Value{ir.List{}}, false)
	assert.Equal(t, anyID, id)
}

func TestVariadicTail(t *testing.T) {
	f := newFixture(t)
	va := f.add("v", ir.Overload{Args: args("int", "...")})
	pair := f.add("v", ir.Overload{Args: args("int", "int")})
	tree := f.mustBuild("v")

	tests := []struct {
		name string
		args []ir.Value
		want ir.OverloadID
	}{
		{"typed pair", []ir.Value{ir.Int(1), ir.Int(2)}, pair},
		{"tail with string", []ir.Value{ir.Int(1), ir.Str("a")}, va},
		{"tail alone", []ir.Value{ir.Int(1)}, va},
		{"backtracks from typed branch", []ir.Value{ir.Int(1), ir.Int(2), ir.Int(3)}, va},
		{"too few", nil, ir.NoOverload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := tree.Select(tt.args, false)
			assert.Equal(t, tt.want != ir.NoOverload, ok)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestReversePreBranch(t *testing.T) {
	f := newFixture(t)
	fwdPoint := f.add("Point.__add__", ir.Overload{Kind: ir.FuncOperator, Args: []ir.Argument{{Name: "other", Type: "Point"}}})
	fwdInt := f.add("Point.__add__", ir.Overload{Kind: ir.FuncOperator, Args: []ir.Argument{{Name: "n", Type: "int"}}})
	rev := f.add("Point.__add__", ir.Overload{Kind: ir.FuncOperator, Reverse: true, Args: []ir.Argument{{Name: "n", Type: "int"}}})
	tree := f.mustBuild("Point.__add__")

	require.True(t, tree.HasReverse())

	id, _ := tree.Select([]ir.Value{obj("Point")}, false)
	assert.Equal(t, fwdPoint, id)
	id, _ = tree.Select([]ir.Value{ir.Int(1)}, false)
	assert.Equal(t, fwdInt, id)
	id, _ = tree.Select([]ir.Value{ir.Int(1)}, true)
	assert.Equal(t, rev, id)
	_, ok := tree.Select([]ir.Value{obj("Point")}, true)
	assert.False(t, ok)
}

func TestMissingSlotsNeedDefaults(t *testing.T) {
	f := newFixture(t)
	plain := f.add("n", ir.Overload{Args: args("int", "int")})
	defaulted := f.add("n", ir.Overload{Args: []ir.Argument{
		{Name: "a", Type: "int"},
		{Name: "b", Type: "int", Default: "5"},
		{Name: "c", Type: "int", Default: "7"},
	}})
	tree := f.mustBuild("n")

	id, ok := tree.Select([]ir.Value{ir.Int(1), ir.Int(2)}, false)
	require.True(t, ok)
	assert.Equal(t, plain, id)

	id, ok = tree.Select([]ir.Value{ir.Int(1), ir.Missing{}}, false)
	require.True(t, ok)
	assert.Equal(t, defaulted, id, "a missing slot falls through to the overload with a default")

	id, ok = tree.Select([]ir.Value{ir.Int(1), ir.Missing{}, ir.Int(3)}, false)
	require.True(t, ok)
	assert.Equal(t, defaulted, id)

	_, ok = tree.Select([]ir.Value{ir.Missing{}, ir.Int(2)}, false)
	assert.False(t, ok, "no overload has a default for the first argument")
}

func TestBuildAllCollectsErrors(t *testing.T) {
	f := newFixture(t)
	f.add("ok", ir.Overload{Args: args("int")})
	f.add("bad1", ir.Overload{Args: args("int")})
	f.add("bad1", ir.Overload{Args: args("long")})
	f.add("bad2", ir.Overload{Args: []ir.Argument{{Name: "x", Type: "int", Removed: true}}})

	_, err := NewBuilder(f.registry()).BuildAll()
	require.Error(t, err)
	assert.True(t, IsAmbiguousOverload(err))
	assert.True(t, IsRemovedArgumentWithoutDefault(err))
}

func TestTreeHashIsStable(t *testing.T) {
	f := newFixture(t)
	f.add("f", ir.Overload{Args: args("int")})
	f.add("f", ir.Overload{Args: args("std::string")})
	b := NewBuilder(f.registry())

	t1, err := b.Build("f")
	require.NoError(t, err)
	t2, err := b.Build("f")
	require.NoError(t, err)

	assert.Equal(t, t1.Rendered, t2.Rendered)
	assert.Equal(t, t1.Hash, t2.Hash)
	assert.Len(t, t1.Hash, 64)
}

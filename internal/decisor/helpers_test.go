package decisor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/ir"
)

type stubWrappers struct{}

func (stubWrappers) WrapObject(t ir.TypeID, native any) *ir.Object {
	return &ir.Object{ID: "stub", Type: t, Native: native}
}

func (stubWrappers) WrapValue(t ir.TypeID, native any) *ir.Object {
	return &ir.Object{ID: "stub", Type: t, Native: native}
}

// fixture is a model with a small class hierarchy and a populated registry.
type fixture struct {
	t     *testing.T
	model *ir.Model
	reg   *convert.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := ir.NewModel()
	for _, entry := range []ir.TypeEntry{
		{ID: "Object", Kind: ir.KindObject, ParentTracked: true},
		{ID: "Widget", Kind: ir.KindObject, Base: "Object", ParentTracked: true},
		{ID: "Button", Kind: ir.KindObject, Base: "Widget", ParentTracked: true},
		{ID: "Point", Kind: ir.KindValue},
		{ID: "Color", Kind: ir.KindEnum, EnumValues: []ir.EnumValue{{Name: "Red", Value: 0}, {Name: "Green", Value: 1}}},
		{ID: "Callback", Kind: ir.KindCustom},
	} {
		require.NoError(t, m.AddType(entry))
	}
	return &fixture{t: t, model: m}
}

func (f *fixture) add(callable string, ov ir.Overload) ir.OverloadID {
	f.t.Helper()
	if ov.Kind == "" {
		ov.Kind = ir.FuncFunction
	}
	id, err := f.model.AddOverload(callable, ov)
	require.NoError(f.t, err)
	return id
}

// registry freezes the model and populates the registry. Extra setup runs
// before the registry is sealed.
func (f *fixture) registry(setup ...func(r *convert.Registry)) *convert.Registry {
	f.t.Helper()
	if f.reg != nil {
		return f.reg
	}
	f.model.Freeze()
	r := convert.New(f.model)
	require.NoError(f.t, convert.Populate(r, stubWrappers{}))
	for _, s := range setup {
		s(r)
	}
	r.Seal()
	f.reg = r
	return r
}

func (f *fixture) build(callable string, setup ...func(r *convert.Registry)) (*Tree, error) {
	f.t.Helper()
	return NewBuilder(f.registry(setup...)).Build(callable)
}

func (f *fixture) mustBuild(callable string, setup ...func(r *convert.Registry)) *Tree {
	f.t.Helper()
	tree, err := f.build(callable, setup...)
	require.NoError(f.t, err)
	return tree
}

func args(names ...string) []ir.Argument {
	out := make([]ir.Argument, len(names))
	for i, n := range names {
		out[i] = ir.Argument{Name: string(rune('a' + i)), Type: ir.TypeID(n)}
	}
	return out
}

func obj(t ir.TypeID) *ir.Object {
	return &ir.Object{ID: ir.WrapperID("w-" + string(t)), Type: t, Native: struct{}{}}
}

// implicitFromString registers std::string -> Point.
func implicitFromString(r *convert.Registry) {
	_ = r.RegisterImplicit("std::string", "Point",
		func(v ir.Value) bool { _, ok := v.(ir.Str); return ok },
		func(v ir.Value) (any, error) { return string(v.(ir.Str)), nil },
	)
}

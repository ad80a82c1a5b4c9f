package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/decisor"
	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/ownership"
)

type widget struct {
	name  string
	child *widget
}

type point struct {
	x, y int32
}

// env is a small binding: a model, its natives and the emitted entries.
type env struct {
	t       *testing.T
	model   *ir.Model
	natives NativeTable
	lock    *ScriptLock
	tracker *ownership.Tracker
	reg     *convert.Registry
	entries map[string]*Entry
}

func newEnv(t *testing.T) *env {
	t.Helper()
	m := ir.NewModel()
	for _, entry := range []ir.TypeEntry{
		{ID: "Object", Kind: ir.KindObject, ParentTracked: true, HasVirtualDestructor: true},
		{ID: "Widget", Kind: ir.KindObject, Base: "Object", ParentTracked: true, HasVirtualMethods: true, HasVirtualDestructor: true},
		{ID: "Point", Kind: ir.KindValue},
	} {
		require.NoError(t, m.AddType(entry))
	}
	return &env{t: t, model: m, natives: NativeTable{}, lock: NewScriptLock()}
}

func (e *env) def(callable string, ov ir.Overload, fn NativeFunc) ir.OverloadID {
	e.t.Helper()
	if ov.Kind == "" {
		ov.Kind = ir.FuncFunction
	}
	id, err := e.model.AddOverload(callable, ov)
	require.NoError(e.t, err)
	e.natives[ir.MinimalSignature(e.model.Overload(id))] = fn
	return id
}

func (e *env) start(opts ...EmitterOption) {
	e.t.Helper()
	require.NoError(e.t, e.emit(opts...))
}

func (e *env) emit(opts ...EmitterOption) error {
	e.t.Helper()
	e.model.Freeze()
	e.tracker = ownership.NewTracker(e.model, ownership.WithIDGenerator(ownership.NewSequenceGenerator("w")))
	e.reg = convert.New(e.model)
	require.NoError(e.t, convert.Populate(e.reg, e.tracker))
	e.reg.Seal()

	trees, err := decisor.NewBuilder(e.reg).BuildAll()
	require.NoError(e.t, err)
	e.entries, err = NewEmitter(e.reg, e.tracker, e.lock, e.natives, opts...).EmitAll(trees)
	return err
}

func (e *env) call(callable string, c Call) (ir.Value, error) {
	e.t.Helper()
	en, ok := e.entries[callable]
	require.True(e.t, ok, "no entry for %s", callable)
	return en.Call(context.Background(), c)
}

func (e *env) mustCall(callable string, c Call) ir.Value {
	e.t.Helper()
	v, err := e.call(callable, c)
	require.NoError(e.t, err)
	return v
}

func arg(name string, t ir.TypeID) ir.Argument {
	return ir.Argument{Name: name, Type: t}
}

func returns(v any) NativeFunc {
	return func(context.Context, *NativeCall) (any, error) { return v, nil }
}

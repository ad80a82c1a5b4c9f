package compiler

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/binding"
	"github.com/roach88/crossbind/internal/dispatch"
	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/testutil"
)

func compileWidgets(t *testing.T) *ir.Model {
	t.Helper()
	src, err := os.ReadFile("testdata/widgets/widgets.cue")
	require.NoError(t, err)
	m, err := CompileString(string(src), "widgets.cue")
	require.NoError(t, err)
	return m
}

func TestCompile_Widgets(t *testing.T) {
	m := compileWidgets(t)

	assert.Empty(t, Validate(m))

	widget, ok := m.Type("Widget")
	require.True(t, ok)
	assert.Equal(t, ir.KindObject, widget.Kind)
	assert.Equal(t, ir.TypeID("Object"), widget.Base)
	assert.True(t, widget.ParentTracked)
	assert.True(t, widget.HasVirtualMethods)

	color, ok := m.Type("Color")
	require.True(t, ok)
	assert.Equal(t, []ir.EnumValue{{Name: "Red", Value: 0}, {Name: "Green", Value: 1}, {Name: "Blue", Value: 2}}, color.EnumValues)

	point, ok := m.Type("Point")
	require.True(t, ok)
	assert.Equal(t, []ir.TypeID{"int"}, point.ImplicitFrom)

	vec, ok := m.Type("std::vector<int>")
	require.True(t, ok)
	assert.Equal(t, ir.ContainerList, vec.Container)
	assert.Equal(t, []ir.TypeID{"int"}, vec.Instantiations)

	resize := m.Overloads("Widget.resize")
	require.Len(t, resize, 2)
	assert.Equal(t, ir.FuncMethod, resize[0].Kind)
	assert.Equal(t, "0", resize[0].Args[1].Default)
	assert.Equal(t, "Widget.resize(int,int)", ir.MinimalSignature(resize[0]))

	add := m.Overloads("Widget.addChild")[0]
	require.NotNil(t, add.Args[0].Owner)
	assert.Equal(t, ir.OwnerDirective{Action: ir.ActionAdd, Owner: ir.RoleSelf}, *add.Args[0].Owner)

	cb := m.Overloads("Widget.setCallback")[0]
	require.NotNil(t, cb.Args[0].RefCount)
	assert.Equal(t, ir.ActionSet, cb.Args[0].RefCount.Action)
	assert.Empty(t, cb.Args[0].RefCount.Key)

	ctor := m.Overloads("Object.Object")[0]
	assert.Equal(t, ir.FuncConstructor, ctor.Kind)
	assert.Equal(t, "nullptr", ctor.Args[0].Default)

	mul := m.Overloads("Point.__mul__")
	require.Len(t, mul, 2)
	assert.Equal(t, ir.FuncOperator, mul[1].Kind)
	assert.True(t, mul[1].Reverse)

	assert.Equal(t, ir.OwnershipToScript, m.Overloads("createWidget")[0].ReturnOwnership)
	assert.True(t, m.Overloads("Widget.wait")[0].AllowThreads)
	assert.True(t, m.Overloads("Object.parent")[0].Accessor)
}

// The description in testdata mirrors the Go-built sample library.
func TestCompile_MatchesSampleLibrary(t *testing.T) {
	m := compileWidgets(t)
	lib := testutil.WidgetLibrary()

	got, err := ir.ModelHash(m)
	require.NoError(t, err)
	want, err := ir.ModelHash(lib.Model)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, lib.Model.Callables(), m.Callables())
}

func TestCompile_LoadsIntoRuntime(t *testing.T) {
	m := compileWidgets(t)
	lib := testutil.WidgetLibrary()

	rt, err := binding.Load(m, lib.Natives)
	require.NoError(t, err)
	defer rt.Teardown()

	got, err := rt.Call(context.Background(), "describe", dispatch.Call{Args: []ir.Value{ir.Float(2.5)}})
	require.NoError(t, err)
	assert.Equal(t, ir.Str("double"), got)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "unknown type field",
			src:     `type: Foo: {kind: "value", colour: "red"}`,
			wantErr: "not allowed",
		},
		{
			name:    "invalid type kind",
			src:     `type: Foo: {kind: "struct"}`,
			wantErr: "kind",
		},
		{
			name:    "invalid owner role",
			src:     `function: "f": [{args: [{name: "a", type: "int", owner: {owner: "arg0"}}]}]`,
			wantErr: "owner",
		},
		{
			name:    "empty overload list",
			src:     `function: "f": []`,
			wantErr: "at least one overload is required",
		},
		{
			name:    "duplicate builtin type",
			src:     `type: int: {kind: "primitive"}`,
			wantErr: "duplicate type id",
		},
		{
			name:    "syntax error",
			src:     `type: {`,
			wantErr: "bad.cue",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString(tt.src, "bad.cue")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompile_ErrorHasPosition(t *testing.T) {
	_, err := CompileString("type: Foo: {\n\tkind: \"value\"\n\tcolour: 1\n}\n", "pos.cue")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce), "got %T", err)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, err.Error(), "colour")
}

func TestCompile_Empty(t *testing.T) {
	m, err := CompileString(``, "empty.cue")
	require.NoError(t, err)
	assert.Empty(t, m.Callables())
	assert.Len(t, m.Types(), len(ir.BuiltinTypes()))
}

func TestInferKind(t *testing.T) {
	tests := map[string]ir.FunctionKind{
		"describe":        ir.FuncFunction,
		"Point.Point":     ir.FuncConstructor,
		"ns::Point.Point": ir.FuncConstructor,
		"Point.__add__":   ir.FuncOperator,
		"Widget.resize":   ir.FuncMethod,
		"Widget.__init":   ir.FuncMethod,
		"Widget.sizeHint": ir.FuncMethod,
	}
	for callable, want := range tests {
		assert.Equal(t, want, inferKind(callable), callable)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    ir.Role
		wantErr bool
	}{
		{"self", ir.RoleSelf, false},
		{"return", ir.RoleReturn, false},
		{"arg1", ir.ArgRole(1), false},
		{"arg12", ir.ArgRole(12), false},
		{"arg0", 0, true},
		{"argx", 0, true},
		{"owner", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileError_Format(t *testing.T) {
	err := &CompileError{Field: "type.Foo", Message: "bad"}
	assert.Equal(t, "type.Foo: bad", err.Error())
}

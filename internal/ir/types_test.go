package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverloadArity(t *testing.T) {
	tests := []struct {
		name     string
		args     []Argument
		min, max int
		varargs  bool
	}{
		{"no args", nil, 0, 0, false},
		{"plain", []Argument{{Type: "int"}, {Type: "int"}}, 2, 2, false},
		{"trailing defaults", []Argument{{Type: "int"}, {Type: "int", Default: "1"}, {Type: "int", Default: "2"}}, 1, 3, false},
		{"removed arg", []Argument{{Type: "int"}, {Type: "int", Removed: true, Default: "0"}}, 1, 1, false},
		{"varargs", []Argument{{Type: "int"}, {Type: TypeVarargs}}, 1, -1, true},
		{"default before varargs", []Argument{{Type: "int", Default: "0"}, {Type: TypeVarargs}}, 0, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov := &Overload{Args: tt.args}
			assert.Equal(t, tt.min, ov.MinArgs())
			assert.Equal(t, tt.max, ov.MaxArgs())
			assert.Equal(t, tt.varargs, ov.IsVarargs())
		})
	}
}

func TestOverloadAcceptsCount(t *testing.T) {
	ov := &Overload{Args: []Argument{{Type: "int"}, {Type: "int", Default: "1"}}}
	assert.False(t, ov.AcceptsCount(0))
	assert.True(t, ov.AcceptsCount(1))
	assert.True(t, ov.AcceptsCount(2))
	assert.False(t, ov.AcceptsCount(3))

	va := &Overload{Args: []Argument{{Type: "int"}, {Type: TypeVarargs}}}
	assert.True(t, va.AcceptsCount(7))
}

func TestOverloadVisiblePositions(t *testing.T) {
	ov := &Overload{Args: []Argument{
		{Name: "a", Type: "int"},
		{Name: "hidden", Type: "int", Removed: true, Default: "0"},
		{Name: "b", Type: "double"},
		{Name: "rest", Type: TypeVarargs},
	}}

	assert.Equal(t, []int{0, 2, 3}, ov.VisibleArgs())
	assert.Equal(t, 2, ov.DeclaredIndex(1))
	assert.Equal(t, 3, ov.DeclaredIndex(5), "positions past the end map onto the variadic tail")

	arg, ok := ov.VisibleArg(1)
	assert.True(t, ok)
	assert.Equal(t, "b", arg.Name)

	pos, ok := ov.ArgPosition("b")
	assert.True(t, ok)
	assert.Equal(t, 1, pos)

	_, ok = ov.ArgPosition("hidden")
	assert.False(t, ok, "removed arguments have no keyword")
	_, ok = ov.ArgPosition("rest")
	assert.False(t, ok, "variadic tails have no keyword")
}

func TestOverloadEffectiveTypes(t *testing.T) {
	ov := &Overload{Return: "int", ModifiedReturn: "double"}
	assert.Equal(t, TypeID("double"), ov.EffectiveReturn())

	assert.True(t, (&Overload{}).IsVoid())
	assert.Equal(t, TypeID("double"), Argument{Type: "int", ModifiedType: "double"}.EffectiveType())
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "self", RoleSelf.String())
	assert.Equal(t, "return", RoleReturn.String())
	assert.Equal(t, "arg2", ArgRole(2).String())
	assert.Equal(t, 1, ArgRole(2).ArgIndex())
	assert.False(t, RoleSelf.IsArg())
	assert.Equal(t, "add(arg1 -> self)", OwnershipEdge{Owner: ArgRole(1), Owned: RoleSelf, Action: ActionAdd}.String())
}

func TestTypeEntryClassification(t *testing.T) {
	obj := &TypeEntry{Kind: KindObject}
	val := &TypeEntry{Kind: KindValue}
	ctr := &TypeEntry{Kind: KindContainer}

	assert.True(t, obj.PointerLike())
	assert.False(t, obj.ValueType())
	assert.True(t, val.ValueType())
	assert.True(t, val.Wrapped())
	assert.False(t, ctr.Wrapped())
}

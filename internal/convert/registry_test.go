package convert

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/ir"
)

type nativeWidget struct{ name string }

type nativePoint struct{ X, Y int32 }

// fakeWrappers hands out sequential wrapper ids and reuses object wrappers
// per native identity.
type fakeWrappers struct {
	next    int
	objects map[any]*ir.Object
}

func newFakeWrappers() *fakeWrappers {
	return &fakeWrappers{objects: make(map[any]*ir.Object)}
}

func (w *fakeWrappers) WrapObject(t ir.TypeID, native any) *ir.Object {
	if o, ok := w.objects[native]; ok {
		return o
	}
	w.next++
	o := &ir.Object{ID: ir.WrapperID(fmt.Sprintf("w-%d", w.next)), Type: t, Native: native}
	w.objects[native] = o
	return o
}

func (w *fakeWrappers) WrapValue(t ir.TypeID, native any) *ir.Object {
	w.next++
	return &ir.Object{ID: ir.WrapperID(fmt.Sprintf("v-%d", w.next)), Type: t, Native: native}
}

func testModel(t *testing.T) *ir.Model {
	t.Helper()
	m := ir.NewModel()
	for _, entry := range []ir.TypeEntry{
		{ID: "Object", Kind: ir.KindObject, ParentTracked: true},
		{ID: "Widget", Kind: ir.KindObject, Base: "Object", ParentTracked: true},
		{ID: "Point", Kind: ir.KindValue, ImplicitFrom: []ir.TypeID{"std::string"}},
		{ID: "Color", Kind: ir.KindEnum, EnumValues: []ir.EnumValue{{Name: "Red", Value: 0}, {Name: "Green", Value: 1}}},
		{ID: "Colors", Kind: ir.KindFlags, FlagsOf: "Color"},
		{ID: "std::vector<int>", Kind: ir.KindContainer, Container: ir.ContainerList, Instantiations: []ir.TypeID{"int"}},
		{ID: "std::map<std::string,double>", Kind: ir.KindContainer, Container: ir.ContainerMap, Instantiations: []ir.TypeID{"std::string", "double"}},
		{ID: "std::pair<int,std::string>", Kind: ir.KindContainer, Container: ir.ContainerPair, Instantiations: []ir.TypeID{"int", "std::string"}},
		{ID: "std::shared_ptr<Widget>", Kind: ir.KindSmartPointer, Instantiations: []ir.TypeID{"Widget"}},
	} {
		require.NoError(t, m.AddType(entry))
	}
	m.Freeze()
	return m
}

func newPopulated(t *testing.T) (*Registry, *fakeWrappers) {
	t.Helper()
	w := newFakeWrappers()
	r := New(testModel(t))
	require.NoError(t, Populate(r, w))
	return r, w
}

func TestRegisterCanonicalIdempotent(t *testing.T) {
	r := New(testModel(t))
	first := func(v ir.Value) (any, error) { return "first", nil }
	second := func(v ir.Value) (any, error) { return "second", nil }
	accept := func(ir.Value) bool { return true }

	require.NoError(t, r.RegisterCanonical("Point", "Point", first, nil, accept))
	require.NoError(t, r.RegisterCanonical("Point", "Point", second, nil, accept))

	c, ok := r.LookupToNative("Point", "Point")
	require.True(t, ok)
	n, err := c.ToNative(ir.None)
	require.NoError(t, err)
	assert.Equal(t, "first", n, "second registration does not change lookups")
	assert.Len(t, r.Canonical("Point"), 1)
}

func TestImplicitChainOrder(t *testing.T) {
	r := New(testModel(t))
	isStr := func(v ir.Value) bool { _, ok := v.(ir.Str); return ok }
	isAny := func(ir.Value) bool { return true }

	require.NoError(t, r.RegisterImplicit("std::string", "Point", isStr, func(ir.Value) (any, error) { return "from string", nil }))
	require.NoError(t, r.RegisterImplicit("any", "Point", isAny, func(ir.Value) (any, error) { return "from any", nil }))

	chain := r.Implicit("Point")
	require.Len(t, chain, 2)
	assert.Equal(t, ir.TypeID("std::string"), chain[0].Source)
	assert.Equal(t, ir.TypeID("any"), chain[1].Source)

	c, ok := r.Find(ir.Str("1,2"), "Point")
	require.True(t, ok)
	assert.Equal(t, ir.TypeID("std::string"), c.Source, "first registered, first tried")

	c, ok = r.Find(ir.Int(1), "Point")
	require.True(t, ok)
	assert.Equal(t, ir.TypeID("any"), c.Source)
}

func TestImplicitConsultedAfterCanonical(t *testing.T) {
	r, _ := newPopulated(t)
	require.NoError(t, r.RegisterImplicit("Widget", "Point", func(ir.Value) bool { return true },
		func(ir.Value) (any, error) { return nativePoint{}, nil }))

	p := &ir.Object{ID: "p", Type: "Point", Native: nativePoint{X: 1}}
	c, ok := r.Find(p, "Point")
	require.True(t, ok)
	assert.False(t, c.Implicit, "a convertible canonical entry wins over the chain")
}

func TestSealRejectsWrites(t *testing.T) {
	r, _ := newPopulated(t)
	r.Seal()
	assert.True(t, r.Sealed())

	err := r.RegisterCanonical("x", "x", func(ir.Value) (any, error) { return nil, nil }, nil, func(ir.Value) bool { return false })
	assert.ErrorIs(t, err, ErrSealed)
	err = r.RegisterImplicit("x", "x", func(ir.Value) bool { return false }, func(ir.Value) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrSealed)
	assert.ErrorIs(t, r.RegisterDefaultConstructor("x", nil), ErrSealed)
}

func TestLookupFromNativeIsUnique(t *testing.T) {
	r, _ := newPopulated(t)
	c, ok := r.LookupFromNative("int")
	require.True(t, ok)
	assert.Equal(t, ir.TypeID("int"), c.Target)

	_, ok = r.LookupFromNative("unregistered")
	assert.False(t, ok)
}

func TestNumericRoundTrip(t *testing.T) {
	r, _ := newPopulated(t)

	tests := []struct {
		target ir.TypeID
		value  ir.Value
		native any
	}{
		{"int", ir.Int(0), int32(0)},
		{"int", ir.Int(-1), int32(-1)},
		{"int", ir.Int(math.MaxInt32), int32(math.MaxInt32)},
		{"int", ir.Int(math.MinInt32), int32(math.MinInt32)},
		{"unsigned char", ir.Int(255), uint8(255)},
		{"short", ir.Int(-32768), int16(-32768)},
		{"long", ir.Int(math.MinInt64), int64(math.MinInt64)},
		{"unsigned long", ir.Int(math.MaxInt64), uint64(math.MaxInt64)},
		{"double", ir.Float(-0.5), float64(-0.5)},
		{"float", ir.Float(0.25), float32(0.25)},
		{"bool", ir.Bool(true), true},
		{"std::string", ir.Str(""), ""},
		{"QString", ir.Str("héllo"), "héllo"},
		{"Color", ir.Enum{Type: "Color", Value: 1}, int64(1)},
		{"std::vector<int>", ir.List{}, []any{}},
		{"std::vector<int>", ir.List{ir.Int(-3), ir.Int(0)}, []any{int32(-3), int32(0)}},
		{"std::map<std::string,double>", ir.Dict{}, map[string]any{}},
		{"std::map<std::string,double>", ir.Dict{"a": ir.Float(1.5)}, map[string]any{"a": 1.5}},
		{"std::pair<int,std::string>", ir.List{ir.Int(1), ir.Str("x")}, [2]any{int32(1), "x"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.target, tt.value), func(t *testing.T) {
			n, err := r.ToNative(tt.value, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.native, n)

			back, err := r.FromNative(n, tt.target)
			require.NoError(t, err)
			assert.True(t, ir.Equal(tt.value, back), "round trip: got %#v", back)
		})
	}
}

func TestIntegerRange(t *testing.T) {
	r, _ := newPopulated(t)

	tests := []struct {
		target ir.TypeID
		value  ir.Value
	}{
		{"int", ir.Int(math.MaxInt32 + 1)},
		{"int", ir.Int(math.MinInt32 - 1)},
		{"unsigned int", ir.Int(-1)},
		{"unsigned char", ir.Int(256)},
		{"signed char", ir.Int(128)},
		{"long", ir.Float(math.Inf(1))},
		{"float", ir.Float(math.MaxFloat64)},
	}

	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			_, err := r.ToNative(tt.value, tt.target)
			require.Error(t, err)
			assert.True(t, IsConversionError(err))
		})
	}
}

func TestExactChecksRejectNumericLikeValues(t *testing.T) {
	r, _ := newPopulated(t)
	enum := ir.Enum{Type: "Color", Value: 1}

	intCheck := r.ExactCheck("int")
	assert.True(t, intCheck(ir.Int(1)))
	assert.False(t, intCheck(enum), "exact int rejects wrapped enums")
	assert.False(t, intCheck(ir.Bool(true)))
	assert.False(t, intCheck(ir.Float(1)))

	doubleCheck := r.ExactCheck("double")
	assert.False(t, doubleCheck(ir.Int(1)))
	assert.True(t, r.ConvertibleCheck("double")(ir.Int(1)), "int converts implicitly to double")

	// Numeric coercion is still available once a permissive check matched.
	n, err := r.ToNative(enum, "int")
	require.NoError(t, err)
	assert.Equal(t, int32(1), n)
	n, err = r.ToNative(ir.Float(2.9), "int")
	require.NoError(t, err)
	assert.Equal(t, int32(2), n)
}

func TestSoleNumeric(t *testing.T) {
	r, _ := newPopulated(t)

	assert.True(t, r.SoleNumeric("int", []ir.TypeID{"int", "std::string"}))
	assert.True(t, r.SoleNumeric("double", []ir.TypeID{"Widget", "double"}))
	assert.False(t, r.SoleNumeric("int", []ir.TypeID{"int", "double"}))
	assert.False(t, r.SoleNumeric("int", []ir.TypeID{"int", "long"}))
	assert.False(t, r.SoleNumeric("std::string", []ir.TypeID{"std::string"}))

	assert.Equal(t, "int", r.NumericKey("unsigned short"))
	assert.Equal(t, "float", r.NumericKey("double"))
	assert.Equal(t, "", r.NumericKey("Color"))
}

func TestObjectConversion(t *testing.T) {
	r, w := newPopulated(t)
	native := &nativeWidget{name: "a"}

	wrapped, err := r.FromNative(native, "Widget")
	require.NoError(t, err)
	again, err := r.FromNative(native, "Widget")
	require.NoError(t, err)
	assert.Same(t, wrapped, again, "an object keeps one wrapper per native identity")

	n, err := r.ToNative(wrapped, "Object")
	require.NoError(t, err, "a subclass wrapper converts to its base")
	assert.Same(t, native, n)

	n, err = r.ToNative(ir.None, "Widget")
	require.NoError(t, err)
	assert.Nil(t, n)

	none, err := r.FromNative(nil, "Widget")
	require.NoError(t, err)
	assert.True(t, ir.IsNone(none))

	_, err = r.ToNative(w.WrapObject("Object", &nativeWidget{}), "Widget")
	assert.Error(t, err, "a base wrapper does not convert to a subclass")

	_, err = r.ToNative(&ir.Object{ID: "dead", Type: "Widget"}, "Widget")
	assert.Error(t, err, "invalidated wrappers do not convert")
}

func TestValueConversion(t *testing.T) {
	r, _ := newPopulated(t)
	p := nativePoint{X: 1, Y: 2}

	a, err := r.FromNative(p, "Point")
	require.NoError(t, err)
	b, err := r.FromNative(p, "Point")
	require.NoError(t, err)
	assert.False(t, ir.Equal(a, b), "value types are copied into fresh wrappers")

	n, err := r.ToNative(a, "Point")
	require.NoError(t, err)
	assert.Equal(t, p, n)

	assert.False(t, r.IsConvertible(ir.None, "Point"))
	_, err = r.FromNative(nil, "Point")
	assert.Error(t, err)
}

func TestSmartPointerConversion(t *testing.T) {
	r, _ := newPopulated(t)
	native := &nativeWidget{name: "shared"}

	v, err := r.FromNative(native, "std::shared_ptr<Widget>")
	require.NoError(t, err)
	o, ok := v.(*ir.Object)
	require.True(t, ok)
	assert.Equal(t, ir.TypeID("Widget"), o.Type, "script side sees the pointee")

	n, err := r.ToNative(o, "std::shared_ptr<Widget>")
	require.NoError(t, err)
	assert.Same(t, native, n)
}

func TestEnumAndFlags(t *testing.T) {
	r, _ := newPopulated(t)

	assert.True(t, r.ExactCheck("Colors")(ir.Enum{Type: "Color", Value: 1}), "flags accept their enum")
	assert.False(t, r.ExactCheck("Color")(ir.Enum{Type: "Colors", Value: 1}))
	assert.False(t, r.ExactCheck("Color")(ir.Int(1)))

	v, err := r.FromNative(int64(3), "Colors")
	require.NoError(t, err)
	assert.Equal(t, ir.Enum{Type: "Colors", Value: 3}, v)
}

func TestContainerChecks(t *testing.T) {
	r, _ := newPopulated(t)

	assert.True(t, r.IsConvertible(ir.List{ir.Int(1)}, "std::vector<int>"))
	assert.False(t, r.IsConvertible(ir.List{ir.Str("x")}, "std::vector<int>"))
	assert.True(t, r.IsConvertible(ir.Dict{"a": ir.Int(1)}, "std::map<std::string,double>"), "int values convert to double")
	assert.False(t, r.IsConvertible(ir.List{ir.Int(1)}, "std::pair<int,std::string>"))

	_, err := r.ToNative(ir.List{ir.Int(1), ir.Str("x")}, "std::vector<int>")
	assert.Error(t, err)
}

func TestDefaultValue(t *testing.T) {
	r, _ := newPopulated(t)

	n, err := r.DefaultValue("int")
	require.NoError(t, err)
	assert.Equal(t, int32(0), n)

	n, err = r.DefaultValue("std::vector<int>")
	require.NoError(t, err)
	assert.Equal(t, []any{}, n)

	_, err = r.DefaultValue("Point")
	assert.Error(t, err, "value classes need a registered default constructor")
}

func TestAnyPassesThrough(t *testing.T) {
	r, _ := newPopulated(t)
	v := ir.List{ir.Int(1)}

	n, err := r.ToNative(v, ir.TypeAny)
	require.NoError(t, err)
	assert.Equal(t, v, n)

	back, err := r.FromNative(map[string]any{"k": "v"}, ir.TypeAny)
	require.NoError(t, err)
	assert.Equal(t, ir.Dict{"k": ir.Str("v")}, back)
}

func TestUnknownTarget(t *testing.T) {
	r, _ := newPopulated(t)
	_, err := r.ToNative(ir.Int(1), "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no converter registered")

	_, err = r.FromNative(1, "Nope")
	assert.Error(t, err)
}

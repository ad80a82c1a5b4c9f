package convert

import (
	"fmt"

	"github.com/roach88/crossbind/internal/ir"
)

// Wrappers hands out script wrappers for native objects. The ownership
// tracker implements it: an object type reuses the wrapper already bound
// to a native identity, a value type always gets a fresh copy wrapper.
type Wrappers interface {
	WrapObject(t ir.TypeID, native any) *ir.Object
	WrapValue(t ir.TypeID, native any) *ir.Object
}

// Populate registers the built-in converters of every type in the model:
// primitives, enums and flags, object and value classes, containers, smart
// pointers and the pass-through "any" type. Custom types other than "any"
// are left to the embedding.
func Populate(r *Registry, w Wrappers) error {
	for _, t := range r.model.Types() {
		if err := r.populateType(t, w); err != nil {
			return fmt.Errorf("populate %q: %w", t.ID, err)
		}
	}
	return nil
}

func (r *Registry) populateType(t *ir.TypeEntry, w Wrappers) error {
	switch t.Kind {
	case ir.KindVoid:
		return r.RegisterCanonical(t.ID, t.ID,
			func(v ir.Value) (any, error) { return nil, nil },
			func(any) (ir.Value, error) { return ir.None, nil },
			ir.IsNone,
		)

	case ir.KindPrimitive:
		return r.populatePrimitive(t)

	case ir.KindEnum, ir.KindFlags:
		return r.RegisterEnum(t)

	case ir.KindObject:
		return r.RegisterObject(t, w)

	case ir.KindValue:
		return r.RegisterValue(t, w)

	case ir.KindContainer:
		return r.RegisterContainer(t)

	case ir.KindSmartPointer:
		return r.RegisterSmartPointer(t, w)

	case ir.KindCustom:
		if t.ID == ir.TypeAny {
			return r.registerAny(t)
		}
	}
	return nil
}

func (r *Registry) populatePrimitive(t *ir.TypeEntry) error {
	var (
		toNative   ToNativeFunc
		fromNative FromNativeFunc
		check      CheckFunc
	)
	switch {
	case t.String:
		toNative, fromNative, check = stringConverter(t)
	case t.Numeric == ir.NumericInt:
		toNative, fromNative, check = intConverter(t)
	case t.Numeric == ir.NumericFloat:
		toNative, fromNative, check = floatConverter(t)
	case t.Numeric == ir.NumericBool:
		toNative, fromNative, check = boolConverter(t)
	default:
		return nil
	}
	if err := r.RegisterCanonical(t.ID, t.ID, toNative, fromNative, check); err != nil {
		return err
	}
	if t.Numeric == ir.NumericFloat {
		check, convert := intToFloat(t)
		if err := r.RegisterImplicit("int", t.ID, check, convert); err != nil {
			return err
		}
	}
	zero := zeroOf(t)
	return r.RegisterDefaultConstructor(t.ID, func() (any, error) { return zero, nil })
}

// RegisterEnum registers an enum or flags type. Native enumerators are
// int64; a flags type also accepts enumerators of the enum it wraps.
func (r *Registry) RegisterEnum(t *ir.TypeEntry) error {
	id, flagsOf := t.ID, t.FlagsOf
	check := func(v ir.Value) bool {
		e, ok := v.(ir.Enum)
		return ok && (e.Type == id || (flagsOf != "" && e.Type == flagsOf))
	}
	toNative := func(v ir.Value) (any, error) {
		i, _, isFloat, ok := numberOf(v)
		if !ok || isFloat {
			return nil, scriptError(id, v, "")
		}
		return i, nil
	}
	fromNative := func(n any) (ir.Value, error) {
		switch val := n.(type) {
		case int64:
			return ir.Enum{Type: id, Value: val}, nil
		case int:
			return ir.Enum{Type: id, Value: int64(val)}, nil
		case int32:
			return ir.Enum{Type: id, Value: int64(val)}, nil
		}
		return nil, nativeError(id, n, "")
	}
	if err := r.RegisterCanonical(id, id, toNative, fromNative, check); err != nil {
		return err
	}
	return r.RegisterDefaultConstructor(id, func() (any, error) { return int64(0), nil })
}

// RegisterObject registers an object (identity) class. A wrapper of the
// class or any subclass converts; None converts to a nil pointer.
func (r *Registry) RegisterObject(t *ir.TypeEntry, w Wrappers) error {
	id := t.ID
	check := func(v ir.Value) bool {
		if ir.IsNone(v) {
			return true
		}
		o, ok := v.(*ir.Object)
		return ok && r.model.IsSubtype(o.Type, id)
	}
	toNative := func(v ir.Value) (any, error) {
		if ir.IsNone(v) {
			return nil, nil
		}
		o, ok := v.(*ir.Object)
		if !ok || !r.model.IsSubtype(o.Type, id) {
			return nil, scriptError(id, v, "")
		}
		if o.Native == nil {
			return nil, scriptError(id, v, "wrapped object was invalidated")
		}
		return o.Native, nil
	}
	fromNative := func(n any) (ir.Value, error) {
		if n == nil {
			return ir.None, nil
		}
		return w.WrapObject(id, n), nil
	}
	return r.RegisterCanonical(id, id, toNative, fromNative, check)
}

// RegisterValue registers a value (copyable) class. None is rejected.
func (r *Registry) RegisterValue(t *ir.TypeEntry, w Wrappers) error {
	id := t.ID
	check := func(v ir.Value) bool {
		o, ok := v.(*ir.Object)
		return ok && o != nil && r.model.IsSubtype(o.Type, id)
	}
	toNative := func(v ir.Value) (any, error) {
		if !check(v) {
			return nil, scriptError(id, v, "")
		}
		o := v.(*ir.Object)
		if o.Native == nil {
			return nil, scriptError(id, v, "wrapped object was invalidated")
		}
		return o.Native, nil
	}
	fromNative := func(n any) (ir.Value, error) {
		if n == nil {
			return nil, nativeError(id, n, "value types are never null")
		}
		return w.WrapValue(id, n), nil
	}
	return r.RegisterCanonical(id, id, toNative, fromNative, check)
}

// RegisterSmartPointer registers a smart-pointer instantiation keyed by its
// full type id. The script side sees a wrapper of the pointee.
func (r *Registry) RegisterSmartPointer(t *ir.TypeEntry, w Wrappers) error {
	if len(t.Instantiations) != 1 {
		return fmt.Errorf("smart pointer needs exactly one instantiation, got %d", len(t.Instantiations))
	}
	id, pointee := t.ID, t.Instantiations[0]
	check := func(v ir.Value) bool {
		if ir.IsNone(v) {
			return true
		}
		o, ok := v.(*ir.Object)
		return ok && r.model.IsSubtype(o.Type, pointee)
	}
	toNative := func(v ir.Value) (any, error) {
		if ir.IsNone(v) {
			return nil, nil
		}
		if !check(v) {
			return nil, scriptError(id, v, "")
		}
		return v.(*ir.Object).Native, nil
	}
	fromNative := func(n any) (ir.Value, error) {
		if n == nil {
			return ir.None, nil
		}
		return w.WrapObject(pointee, n), nil
	}
	return r.RegisterCanonical(id, id, toNative, fromNative, check)
}

func (r *Registry) registerAny(t *ir.TypeEntry) error {
	toNative := func(v ir.Value) (any, error) { return v, nil }
	fromNative := func(n any) (ir.Value, error) {
		if v, ok := n.(ir.Value); ok {
			return v, nil
		}
		return ir.FromGo(n)
	}
	check := func(ir.Value) bool { return true }
	return r.RegisterCanonical(t.ID, t.ID, toNative, fromNative, check)
}

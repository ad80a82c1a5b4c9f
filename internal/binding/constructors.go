package binding

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/dispatch"
	"github.com/roach88/crossbind/internal/ir"
)

// registerConstructors turns value-type constructors into default
// constructors and implicit conversions. It runs after Populate and before
// the registry is sealed.
func registerConstructors(reg *convert.Registry, natives dispatch.Natives) error {
	model := reg.Model()
	for _, t := range model.Types() {
		if t.Kind != ir.KindValue {
			continue
		}
		ctors := model.Overloads(ir.ConstructorCallable(t.ID))

		if ov := defaultConstructor(ctors); ov != nil {
			fn, err := lookupNative(natives, ov)
			if err != nil {
				return err
			}
			if err := reg.RegisterDefaultConstructor(t.ID, func() (any, error) {
				return fn(context.Background(), &dispatch.NativeCall{Overload: ov})
			}); err != nil {
				return err
			}
		}

		for _, src := range t.ImplicitFrom {
			ov := converting(ctors, src)
			if ov == nil {
				return fmt.Errorf("implicit conversion %s -> %s: no constructor %s(%s)", src, t.ID, ir.ConstructorCallable(t.ID), src)
			}
			fn, err := lookupNative(natives, ov)
			if err != nil {
				return err
			}
			if err := reg.RegisterImplicit(src, t.ID, reg.ExactCheck(src), implicitConvert(reg, src, ov, fn)); err != nil {
				return err
			}
		}
	}
	return nil
}

func implicitConvert(reg *convert.Registry, src ir.TypeID, ov *ir.Overload, fn dispatch.NativeFunc) convert.ToNativeFunc {
	return func(v ir.Value) (any, error) {
		n, err := reg.ToNative(v, src)
		if err != nil {
			return nil, err
		}
		return fn(context.Background(), &dispatch.NativeCall{Overload: ov, Args: []any{n}})
	}
}

func defaultConstructor(ctors []*ir.Overload) *ir.Overload {
	for _, ov := range ctors {
		if ov.Kind == ir.FuncConstructor && len(ov.Args) == 0 {
			return ov
		}
	}
	return nil
}

// converting finds the constructor taking exactly one argument of type src.
func converting(ctors []*ir.Overload, src ir.TypeID) *ir.Overload {
	idx := slices.IndexFunc(ctors, func(ov *ir.Overload) bool {
		return ov.Kind == ir.FuncConstructor && len(ov.Args) == 1 && !ov.Args[0].Removed && ov.Args[0].EffectiveType() == src
	})
	if idx < 0 {
		return nil
	}
	return ctors[idx]
}

func lookupNative(natives dispatch.Natives, ov *ir.Overload) (dispatch.NativeFunc, error) {
	minimal := ir.MinimalSignature(ov)
	fn, ok := natives.Lookup(minimal)
	if !ok {
		return nil, fmt.Errorf("no native implementation for %s", minimal)
	}
	return fn, nil
}

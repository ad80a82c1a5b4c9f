package convert

import (
	"fmt"
	"reflect"

	"github.com/roach88/crossbind/internal/ir"
)

// RegisterContainer registers a container instantiation keyed by its full
// type id, e.g. "std::vector<int>". Element conversions are looked up in
// the registry at call time, so element types may be registered later in
// the load phase.
//
// Native shapes: list and set -> []any, map -> map[string]any (keys must be
// a string type), pair -> [2]any.
func (r *Registry) RegisterContainer(t *ir.TypeEntry) error {
	id := t.ID
	switch t.Container {
	case ir.ContainerList, ir.ContainerSet:
		if len(t.Instantiations) != 1 {
			return fmt.Errorf("%s container needs one instantiation, got %d", t.Container, len(t.Instantiations))
		}
		elem := t.Instantiations[0]
		if err := r.RegisterCanonical(id, id, r.listToNative(id, elem), r.listFromNative(id, elem), r.listCheck(elem)); err != nil {
			return err
		}
		return r.RegisterDefaultConstructor(id, func() (any, error) { return []any{}, nil })

	case ir.ContainerMap:
		if len(t.Instantiations) != 2 {
			return fmt.Errorf("map container needs two instantiations, got %d", len(t.Instantiations))
		}
		key, ok := r.model.Type(t.Instantiations[0])
		if !ok || !key.String {
			return fmt.Errorf("map container key %q is not a string type", t.Instantiations[0])
		}
		if err := r.RegisterCanonical(id, id, r.mapToNative(id, t.Instantiations[1]), r.mapFromNative(id, t.Instantiations[1]), r.mapCheck(t.Instantiations[1])); err != nil {
			return err
		}
		return r.RegisterDefaultConstructor(id, func() (any, error) { return map[string]any{}, nil })

	case ir.ContainerPair:
		if len(t.Instantiations) != 2 {
			return fmt.Errorf("pair container needs two instantiations, got %d", len(t.Instantiations))
		}
		return r.RegisterCanonical(id, id, r.pairToNative(id, t.Instantiations), r.pairFromNative(id, t.Instantiations), r.pairCheck(t.Instantiations))
	}
	return fmt.Errorf("unknown container kind %q", t.Container)
}

func (r *Registry) listCheck(elem ir.TypeID) CheckFunc {
	return func(v ir.Value) bool {
		l, ok := v.(ir.List)
		if !ok {
			return false
		}
		for _, e := range l {
			if !r.IsConvertible(e, elem) {
				return false
			}
		}
		return true
	}
}

func (r *Registry) listToNative(id, elem ir.TypeID) ToNativeFunc {
	return func(v ir.Value) (any, error) {
		l, ok := v.(ir.List)
		if !ok {
			return nil, scriptError(id, v, "")
		}
		out := make([]any, len(l))
		for i, e := range l {
			n, err := r.ToNative(e, elem)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", id, i, err)
			}
			out[i] = n
		}
		return out, nil
	}
}

func (r *Registry) listFromNative(id, elem ir.TypeID) FromNativeFunc {
	return func(n any) (ir.Value, error) {
		rv := reflect.ValueOf(n)
		if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
			return nil, nativeError(id, n, "")
		}
		out := make(ir.List, rv.Len())
		for i := range out {
			e, err := r.FromNative(rv.Index(i).Interface(), elem)
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", id, i, err)
			}
			out[i] = e
		}
		return out, nil
	}
}

func (r *Registry) mapCheck(elem ir.TypeID) CheckFunc {
	return func(v ir.Value) bool {
		d, ok := v.(ir.Dict)
		if !ok {
			return false
		}
		for _, e := range d {
			if !r.IsConvertible(e, elem) {
				return false
			}
		}
		return true
	}
}

func (r *Registry) mapToNative(id, elem ir.TypeID) ToNativeFunc {
	return func(v ir.Value) (any, error) {
		d, ok := v.(ir.Dict)
		if !ok {
			return nil, scriptError(id, v, "")
		}
		out := make(map[string]any, len(d))
		for _, k := range d.SortedKeys() {
			n, err := r.ToNative(d[k], elem)
			if err != nil {
				return nil, fmt.Errorf("%s[%q]: %w", id, k, err)
			}
			out[k] = n
		}
		return out, nil
	}
}

func (r *Registry) mapFromNative(id, elem ir.TypeID) FromNativeFunc {
	return func(n any) (ir.Value, error) {
		rv := reflect.ValueOf(n)
		if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return nil, nativeError(id, n, "")
		}
		out := make(ir.Dict, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			e, err := r.FromNative(iter.Value().Interface(), elem)
			if err != nil {
				return nil, fmt.Errorf("%s[%q]: %w", id, k, err)
			}
			out[k] = e
		}
		return out, nil
	}
}

func (r *Registry) pairCheck(types []ir.TypeID) CheckFunc {
	return func(v ir.Value) bool {
		l, ok := v.(ir.List)
		return ok && len(l) == 2 && r.IsConvertible(l[0], types[0]) && r.IsConvertible(l[1], types[1])
	}
}

func (r *Registry) pairToNative(id ir.TypeID, types []ir.TypeID) ToNativeFunc {
	return func(v ir.Value) (any, error) {
		l, ok := v.(ir.List)
		if !ok || len(l) != 2 {
			return nil, scriptError(id, v, "expected a two-element list")
		}
		var out [2]any
		for i := range out {
			n, err := r.ToNative(l[i], types[i])
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", id, i, err)
			}
			out[i] = n
		}
		return out, nil
	}
}

func (r *Registry) pairFromNative(id ir.TypeID, types []ir.TypeID) FromNativeFunc {
	return func(n any) (ir.Value, error) {
		p, ok := n.([2]any)
		if !ok {
			return nil, nativeError(id, n, "")
		}
		out := make(ir.List, 2)
		for i := range out {
			e, err := r.FromNative(p[i], types[i])
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", id, i, err)
			}
			out[i] = e
		}
		return out, nil
	}
}

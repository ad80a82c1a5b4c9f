package harness

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/crossbind/internal/ir"
)

// decodeValue turns a YAML-decoded value into a script value. Single-key
// maps {ref}, {enum} and {func} are special forms.
func (h *Harness) decodeValue(raw any) (ir.Value, error) {
	switch v := raw.(type) {
	case map[string]any:
		if len(v) == 1 {
			for key, inner := range v {
				switch key {
				case "ref":
					name, ok := inner.(string)
					if !ok {
						return nil, fmt.Errorf("ref must be a name, got %T", inner)
					}
					return h.ref(name)
				case "enum":
					expr, ok := inner.(string)
					if !ok {
						return nil, fmt.Errorf("enum must be Type.Name, got %T", inner)
					}
					t, n, ok := h.rt.Model().LookupEnumerator(expr, "")
					if !ok {
						return nil, fmt.Errorf("unknown enumerator %q", expr)
					}
					return ir.Enum{Type: t, Value: n}, nil
				case "func":
					ret, err := h.decodeValue(inner)
					if err != nil {
						return nil, fmt.Errorf("func: %w", err)
					}
					return ir.Func(func(context.Context, []ir.Value) (ir.Value, error) { return ret, nil }), nil
				}
			}
		}
		out := make(ir.Dict, len(v))
		for k, elem := range v {
			ev, err := h.decodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = ev
		}
		return out, nil
	case []any:
		out := make(ir.List, len(v))
		for i, elem := range v {
			ev, err := h.decodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	}
	return ir.FromGo(raw)
}

func (h *Harness) decodeArgs(raw []any) ([]ir.Value, error) {
	args := make([]ir.Value, 0, len(raw))
	for i, a := range raw {
		v, err := h.decodeValue(a)
		if err != nil {
			return nil, fmt.Errorf("args[%d]: %w", i, err)
		}
		args = append(args, v)
	}
	return args, nil
}

func (h *Harness) decodeKwargs(raw map[string]any) (map[string]ir.Value, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	kwargs := make(map[string]ir.Value, len(raw))
	for k, a := range raw {
		v, err := h.decodeValue(a)
		if err != nil {
			return nil, fmt.Errorf("kwargs[%q]: %w", k, err)
		}
		kwargs[k] = v
	}
	return kwargs, nil
}

// formatValue renders a script value for traces.
func (h *Harness) formatValue(v ir.Value) string {
	switch val := v.(type) {
	case nil, ir.Null:
		return "None"
	case ir.Bool:
		return strconv.FormatBool(bool(val))
	case ir.Int:
		return strconv.FormatInt(int64(val), 10)
	case ir.Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case ir.Str:
		return strconv.Quote(string(val))
	case ir.List:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = h.formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.Dict:
		parts := make([]string, 0, len(val))
		for _, k := range val.SortedKeys() {
			parts = append(parts, k+": "+h.formatValue(val[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case ir.Enum:
		if te, ok := h.rt.Model().Type(val.Type); ok {
			for _, ev := range te.EnumValues {
				if ev.Value == val.Value {
					return string(val.Type) + "." + ev.Name
				}
			}
		}
		return fmt.Sprintf("%s(%d)", val.Type, val.Value)
	case *ir.Object:
		if val == nil {
			return "None"
		}
		return fmt.Sprintf("%s %s", val.Type, val.ID)
	case ir.Func:
		return "<function>"
	}
	return ir.TypeName(v)
}

// formatCall renders "callable(args, k=v)" with an "on <self>" suffix for
// methods.
func (h *Harness) formatCall(callable string, self ir.Value, args []ir.Value, kwargs map[string]ir.Value, reverse bool) string {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		parts = append(parts, h.formatValue(a))
	}
	for _, k := range ir.Dict(kwargs).SortedKeys() {
		parts = append(parts, k+"="+h.formatValue(kwargs[k]))
	}
	s := callable + "(" + strings.Join(parts, ", ") + ")"
	if o, ok := self.(*ir.Object); ok && o != nil {
		s += " on " + string(o.ID)
	}
	if reverse {
		s += " reversed"
	}
	return s
}

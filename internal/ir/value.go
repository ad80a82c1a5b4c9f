package ir

import (
	"context"
	"fmt"
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface for script-layer values.
// Only the types in this file implement it, so conversions can switch
// exhaustively on the tagged variant instead of asking the native layer
// for runtime type information.
type Value interface {
	value() // Sealed
}

// Null is the script "None".
type Null struct{}

func (Null) value() {}

// None is the single Null value.
var None Value = Null{}

// Bool is a script boolean.
type Bool bool

func (Bool) value() {}

// Int is a script integer.
type Int int64

func (Int) value() {}

// Float is a script floating-point number.
type Float float64

func (Float) value() {}

// Str is a script string.
type Str string

func (Str) value() {}

// List is a script sequence.
type List []Value

func (List) value() {}

// Dict is a script mapping with string keys.
// Use SortedKeys for deterministic iteration.
type Dict map[string]Value

func (Dict) value() {}

// Enum is a wrapped enumerator. It is numeric-like but is not an Int:
// exact numeric checks reject it.
type Enum struct {
	Type  TypeID
	Value int64
}

func (Enum) value() {}

// WrapperID identifies a script-visible wrapper of a native object.
type WrapperID string

// Object is a script wrapper around a native object.
type Object struct {
	ID     WrapperID
	Type   TypeID
	Native any
}

func (*Object) value() {}

// Func is a script callable, e.g. a callback or an override. ctx carries
// the caller's script lock state: a callable that dispatches back into
// native code must pass it on.
type Func func(ctx context.Context, args []Value) (Value, error)

func (Func) value() {}

// Missing marks a parameter slot that keyword resolution left empty; the
// overload's default value fills it.
type Missing struct{}

func (Missing) value() {}

// TypeName returns the script-side type name of v, for error messages.
func TypeName(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "NoneType"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case List:
		return "list"
	case Dict:
		return "dict"
	case Enum:
		return string(val.Type)
	case *Object:
		if val == nil {
			return "NoneType"
		}
		return string(val.Type)
	case Func:
		return "function"
	case Missing:
		return "<missing>"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// IsNone reports whether v is the script None (or a nil wrapper).
func IsNone(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return true
	case *Object:
		return val == nil
	}
	return false
}

// Equal compares two script values structurally. Objects compare by
// wrapper identity; functions never compare equal.
func Equal(a, b Value) bool {
	if IsNone(a) || IsNone(b) {
		return IsNone(a) && IsNone(b)
	}
	switch x := a.(type) {
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Float:
		y, ok := b.(Float)
		return ok && x == y
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case Enum:
		y, ok := b.(Enum)
		return ok && x == y
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Dict:
		y, ok := b.(Dict)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := b.(*Object)
		return ok && x.ID == y.ID
	case Missing:
		_, ok := b.(Missing)
		return ok
	}
	return false
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (d Dict) SortedKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
// Go's default string comparison uses UTF-8 which produces a different order
// for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// FromGo converts plain Go data (as decoded from YAML or JSON) to a script
// value. Nested maps must have string keys.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return None, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		return Int(int64(val)), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(val), nil
	case string:
		return Str(val), nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			ev, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	case map[string]any:
		out := make(Dict, len(val))
		for k, elem := range val {
			ev, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = ev
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

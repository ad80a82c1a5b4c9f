package convert

import (
	"math"

	"github.com/roach88/crossbind/internal/ir"
)

// numberOf extracts the numeric payload of a numeric-like script value.
func numberOf(v ir.Value) (i int64, f float64, isFloat, ok bool) {
	switch val := v.(type) {
	case ir.Int:
		return int64(val), 0, false, true
	case ir.Bool:
		if val {
			return 1, 0, false, true
		}
		return 0, 0, false, true
	case ir.Enum:
		return val.Value, 0, false, true
	case ir.Float:
		return 0, float64(val), true, true
	}
	return 0, 0, false, false
}

func intConverter(t *ir.TypeEntry) (ToNativeFunc, FromNativeFunc, CheckFunc) {
	bits := t.Bits
	if bits == 0 {
		bits = 64
	}

	toNative := func(v ir.Value) (any, error) {
		i, f, isFloat, ok := numberOf(v)
		if !ok {
			return nil, scriptError(t.ID, v, "")
		}
		if isFloat {
			if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, scriptError(t.ID, v, "value out of range")
			}
			i = int64(f)
		}
		if t.Unsigned {
			if i < 0 || (bits < 64 && uint64(i) > uint64(1)<<bits-1) {
				return nil, scriptError(t.ID, v, "value out of range")
			}
			switch bits {
			case 8:
				return uint8(i), nil
			case 16:
				return uint16(i), nil
			case 32:
				return uint32(i), nil
			}
			return uint64(i), nil
		}
		if bits < 64 {
			lo, hi := -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
			if i < lo || i > hi {
				return nil, scriptError(t.ID, v, "value out of range")
			}
		}
		switch bits {
		case 8:
			return int8(i), nil
		case 16:
			return int16(i), nil
		case 32:
			return int32(i), nil
		}
		return i, nil
	}

	fromNative := func(n any) (ir.Value, error) {
		switch val := n.(type) {
		case int:
			return ir.Int(val), nil
		case int8:
			return ir.Int(val), nil
		case int16:
			return ir.Int(val), nil
		case int32:
			return ir.Int(val), nil
		case int64:
			return ir.Int(val), nil
		case uint:
			if uint64(val) > math.MaxInt64 {
				return nil, nativeError(t.ID, n, "value out of range")
			}
			return ir.Int(val), nil
		case uint8:
			return ir.Int(val), nil
		case uint16:
			return ir.Int(val), nil
		case uint32:
			return ir.Int(val), nil
		case uint64:
			if val > math.MaxInt64 {
				return nil, nativeError(t.ID, n, "value out of range")
			}
			return ir.Int(val), nil
		}
		return nil, nativeError(t.ID, n, "")
	}

	check := func(v ir.Value) bool {
		_, ok := v.(ir.Int)
		return ok
	}
	return toNative, fromNative, check
}

func floatConverter(t *ir.TypeEntry) (ToNativeFunc, FromNativeFunc, CheckFunc) {
	toNative := func(v ir.Value) (any, error) {
		i, f, isFloat, ok := numberOf(v)
		if !ok {
			return nil, scriptError(t.ID, v, "")
		}
		if !isFloat {
			f = float64(i)
		}
		if t.Bits == 32 {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return nil, scriptError(t.ID, v, "value out of range")
			}
			return float32(f), nil
		}
		return f, nil
	}

	fromNative := func(n any) (ir.Value, error) {
		switch val := n.(type) {
		case float32:
			return ir.Float(val), nil
		case float64:
			return ir.Float(val), nil
		}
		return nil, nativeError(t.ID, n, "")
	}

	check := func(v ir.Value) bool {
		_, ok := v.(ir.Float)
		return ok
	}
	return toNative, fromNative, check
}

func boolConverter(t *ir.TypeEntry) (ToNativeFunc, FromNativeFunc, CheckFunc) {
	toNative := func(v ir.Value) (any, error) {
		i, f, isFloat, ok := numberOf(v)
		if !ok {
			return nil, scriptError(t.ID, v, "")
		}
		if isFloat {
			return f != 0, nil
		}
		return i != 0, nil
	}

	fromNative := func(n any) (ir.Value, error) {
		if b, ok := n.(bool); ok {
			return ir.Bool(b), nil
		}
		return nil, nativeError(t.ID, n, "")
	}

	check := func(v ir.Value) bool {
		_, ok := v.(ir.Bool)
		return ok
	}
	return toNative, fromNative, check
}

func stringConverter(t *ir.TypeEntry) (ToNativeFunc, FromNativeFunc, CheckFunc) {
	toNative := func(v ir.Value) (any, error) {
		if s, ok := v.(ir.Str); ok {
			return string(s), nil
		}
		return nil, scriptError(t.ID, v, "")
	}

	fromNative := func(n any) (ir.Value, error) {
		if s, ok := n.(string); ok {
			return ir.Str(s), nil
		}
		return nil, nativeError(t.ID, n, "")
	}

	check := func(v ir.Value) bool {
		_, ok := v.(ir.Str)
		return ok
	}
	return toNative, fromNative, check
}

// intToFloat is the built-in implicit conversion from script integers to
// floating-point targets.
func intToFloat(t *ir.TypeEntry) (CheckFunc, ToNativeFunc) {
	toNative, _, _ := floatConverter(t)
	check := func(v ir.Value) bool {
		_, ok := v.(ir.Int)
		return ok
	}
	return check, toNative
}

func zeroOf(t *ir.TypeEntry) any {
	switch {
	case t.String:
		return ""
	case t.Numeric == ir.NumericBool:
		return false
	case t.Numeric == ir.NumericFloat:
		if t.Bits == 32 {
			return float32(0)
		}
		return float64(0)
	case t.Numeric == ir.NumericInt:
		toNative, _, _ := intConverter(t)
		n, _ := toNative(ir.Int(0))
		return n
	}
	return nil
}

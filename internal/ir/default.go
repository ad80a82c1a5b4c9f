package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultKind classifies a parsed default-value expression.
type DefaultKind string

const (
	// DefaultLiteral is a number, boolean or string literal.
	DefaultLiteral DefaultKind = "literal"

	// DefaultNull is a null pointer (nullptr, NULL, 0 for pointer-like types).
	DefaultNull DefaultKind = "null"

	// DefaultEnum is a named enumerator.
	DefaultEnum DefaultKind = "enum"

	// DefaultConstruct is a default-constructed value: T(), T{} or {}.
	DefaultConstruct DefaultKind = "construct"
)

// DefaultValue is a default-value expression resolved against its
// argument type. Value is the script value substituted when the argument
// is omitted; it is nil for DefaultConstruct, whose value comes from the
// conversion registry.
type DefaultValue struct {
	Kind  DefaultKind
	Type  TypeID
	Value Value
}

// ParseDefault resolves a default-value expression for an argument of type
// target. Expressions the compiler cannot evaluate are an error: they would
// otherwise surface as a broken call at run time.
func (m *Model) ParseDefault(expr string, target TypeID) (DefaultValue, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return DefaultValue{}, fmt.Errorf("empty default expression")
	}
	entry, ok := m.Type(target)
	if !ok {
		return DefaultValue{}, fmt.Errorf("default %q: unknown type %q", expr, target)
	}
	dv := DefaultValue{Type: target}

	switch {
	case expr == "nullptr" || expr == "NULL":
		dv.Kind = DefaultNull
		dv.Value = None
		return dv, nil
	case expr == "{}" || expr == string(target)+"()" || expr == string(target)+"{}":
		dv.Kind = DefaultConstruct
		return dv, nil
	}

	if entry.PointerLike() {
		if expr == "0" {
			dv.Kind = DefaultNull
			dv.Value = None
			return dv, nil
		}
		return DefaultValue{}, fmt.Errorf("default %q: not a null pointer for %q", expr, target)
	}

	if entry.Kind == KindEnum || entry.Kind == KindFlags {
		if enumType, v, ok := m.LookupEnumerator(expr, target); ok {
			dv.Kind = DefaultEnum
			dv.Value = Enum{Type: enumType, Value: v}
			return dv, nil
		}
		if n, err := parseIntLiteral(expr); err == nil {
			dv.Kind = DefaultEnum
			dv.Value = Enum{Type: target, Value: n}
			return dv, nil
		}
		return DefaultValue{}, fmt.Errorf("default %q: no enumerator of %q", expr, target)
	}

	dv.Kind = DefaultLiteral
	switch {
	case entry.String:
		s, err := strconv.Unquote(expr)
		if err != nil {
			return DefaultValue{}, fmt.Errorf("default %q: not a string literal", expr)
		}
		dv.Value = Str(s)
	case entry.Numeric == NumericBool:
		switch expr {
		case "true":
			dv.Value = Bool(true)
		case "false":
			dv.Value = Bool(false)
		default:
			n, err := parseIntLiteral(expr)
			if err != nil {
				return DefaultValue{}, fmt.Errorf("default %q: not a boolean literal", expr)
			}
			dv.Value = Bool(n != 0)
		}
	case entry.Numeric == NumericInt:
		n, err := parseIntLiteral(expr)
		if err != nil {
			return DefaultValue{}, fmt.Errorf("default %q: %w", expr, err)
		}
		dv.Value = Int(n)
	case entry.Numeric == NumericFloat:
		f, err := parseFloatLiteral(expr)
		if err != nil {
			return DefaultValue{}, fmt.Errorf("default %q: %w", expr, err)
		}
		dv.Value = Float(f)
	default:
		return DefaultValue{}, fmt.Errorf("default %q: cannot evaluate for %s type %q", expr, entry.Kind, target)
	}
	return dv, nil
}

// parseIntLiteral accepts decimal, hex and octal literals with optional
// u/l suffixes.
func parseIntLiteral(s string) (int64, error) {
	s = strings.TrimRight(s, "uUlL")
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("not an integer literal")
	}
	return n, nil
}

// parseFloatLiteral accepts float literals with an optional f suffix.
func parseFloatLiteral(s string) (float64, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = strings.TrimRight(s, "fF")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a floating-point literal")
	}
	return f, nil
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefault(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.AddType(TypeEntry{ID: "Point", Kind: KindValue}))

	tests := []struct {
		name   string
		expr   string
		target TypeID
		kind   DefaultKind
		value  Value
	}{
		{"int", "42", "int", DefaultLiteral, Int(42)},
		{"negative int", "-1", "int", DefaultLiteral, Int(-1)},
		{"hex with suffix", "0x10u", "unsigned int", DefaultLiteral, Int(16)},
		{"float suffix", "1.5f", "float", DefaultLiteral, Float(1.5)},
		{"int literal for double", "2", "double", DefaultLiteral, Float(2)},
		{"bool", "true", "bool", DefaultLiteral, Bool(true)},
		{"bool from int", "0", "bool", DefaultLiteral, Bool(false)},
		{"string", `"hi"`, "std::string", DefaultLiteral, Str("hi")},
		{"nullptr", "nullptr", "Widget", DefaultNull, None},
		{"zero pointer", "0", "Widget", DefaultNull, None},
		{"enum qualified", "Color::Green", "Color", DefaultEnum, Enum{Type: "Color", Value: 1}},
		{"enum bare", "Red", "Color", DefaultEnum, Enum{Type: "Color", Value: 0}},
		{"flags zero", "0", "Alignments", DefaultEnum, Enum{Type: "Alignments", Value: 0}},
		{"construct", "Point()", "Point", DefaultConstruct, nil},
		{"braces", "{}", "Point", DefaultConstruct, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dv, err := m.ParseDefault(tt.expr, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, dv.Kind)
			assert.Equal(t, tt.target, dv.Type)
			assert.Equal(t, tt.value, dv.Value)
		})
	}
}

func TestParseDefaultErrors(t *testing.T) {
	m := newTestModel(t)
	require.NoError(t, m.AddType(TypeEntry{ID: "Point", Kind: KindValue}))

	tests := []struct {
		name   string
		expr   string
		target TypeID
	}{
		{"empty", " ", "int"},
		{"unknown type", "1", "Nope"},
		{"not an int", "abc", "int"},
		{"unquoted string", "hi", "std::string"},
		{"pointer literal", "1", "Widget"},
		{"unknown enumerator", "Blue", "Color"},
		{"value type call", "Point(1, 2)", "Point"},
		{"function call", "compute()", "int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ParseDefault(tt.expr, tt.target)
			assert.Error(t, err)
		})
	}
}

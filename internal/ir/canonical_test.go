package ir

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", Str("hello"), `"hello"`},
		{"empty string", Str(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"min int64", Int(math.MinInt64), "-9223372036854775808"},
		{"float", Float(1.5), "1.5"},
		{"bool", Bool(true), "true"},
		{"none", None, "null"},
		{"empty list", List{}, "[]"},
		{"empty dict", Dict{}, "{}"},
		{"list", List{Int(1), Str("a")}, `[1,"a"]`},
		{"enum", Enum{Type: "Color", Value: 2}, `{"enum":"Color","value":2}`},
		{"object", &Object{ID: "w-1", Type: "Widget"}, `{"id":"w-1","object":"Widget"}`},
		{"nil object", (*Object)(nil), "null"},
		{"type id", TypeID("int"), `"int"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(result))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	result, err := MarshalCanonical(Dict{
		"zebra": Int(1),
		"alpha": Int(2),
		"beta":  Dict{"y": Int(1), "x": Int(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"beta":{"x":2,"y":1},"zebra":1}`, string(result))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes to a surrogate pair starting at 0xD83D, which sorts
	// before U+FB01 in UTF-16 but after it in UTF-8.
	result, err := MarshalCanonical(map[string]any{
		"\uFB01":     Int(1),
		"\U0001F600": Int(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uFB01\":1}", string(result))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	result, err := MarshalCanonical(Str("a<b>&c"))
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(result))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	result, err := MarshalCanonical(Str("a\u2028b\u2029"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029\"", string(result))

	// A literal backslash followed by u2028 text is not an escape.
	result, err = MarshalCanonical(Str(`a\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(result))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	result, err := MarshalCanonical(Str("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(result))
}

func TestMarshalCanonicalRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"nan", Float(math.NaN())},
		{"inf", Float(math.Inf(1))},
		{"func", Func(func(context.Context, []Value) (Value, error) { return None, nil })},
		{"missing", Missing{}},
		{"nested func", List{Func(nil)}},
		{"unsupported", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalCanonical(tt.input)
			assert.Error(t, err)
		})
	}
}

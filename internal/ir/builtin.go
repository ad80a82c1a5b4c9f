package ir

// BuiltinTypes returns the primitive types every model starts with.
func BuiltinTypes() []TypeEntry {
	return []TypeEntry{
		{ID: TypeVoid, Kind: KindVoid},
		{ID: TypeAny, Kind: KindCustom},
		{ID: TypeVarargs, Kind: KindVarargs},

		{ID: "bool", Kind: KindPrimitive, Numeric: NumericBool},

		{ID: "char", Kind: KindPrimitive, Numeric: NumericInt, Bits: 8},
		{ID: "signed char", Kind: KindPrimitive, Numeric: NumericInt, Bits: 8},
		{ID: "unsigned char", Kind: KindPrimitive, Numeric: NumericInt, Bits: 8, Unsigned: true},
		{ID: "short", Kind: KindPrimitive, Numeric: NumericInt, Bits: 16},
		{ID: "unsigned short", Kind: KindPrimitive, Numeric: NumericInt, Bits: 16, Unsigned: true},
		{ID: "int", Kind: KindPrimitive, Numeric: NumericInt, Bits: 32},
		{ID: "unsigned int", Kind: KindPrimitive, Numeric: NumericInt, Bits: 32, Unsigned: true},
		{ID: "long", Kind: KindPrimitive, Numeric: NumericInt, Bits: 64},
		{ID: "unsigned long", Kind: KindPrimitive, Numeric: NumericInt, Bits: 64, Unsigned: true},
		{ID: "long long", Kind: KindPrimitive, Numeric: NumericInt, Bits: 64},
		{ID: "unsigned long long", Kind: KindPrimitive, Numeric: NumericInt, Bits: 64, Unsigned: true},

		{ID: "float", Kind: KindPrimitive, Numeric: NumericFloat, Bits: 32},
		{ID: "double", Kind: KindPrimitive, Numeric: NumericFloat, Bits: 64},

		{ID: "std::string", Kind: KindPrimitive, String: true},
		{ID: "QString", Kind: KindPrimitive, String: true},
		{ID: "const char*", Kind: KindPrimitive, String: true},
	}
}

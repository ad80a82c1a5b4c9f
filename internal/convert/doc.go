// Package convert implements the type conversion registry.
//
// The registry maps a target type id to converter triples (to-native,
// from-native, is-convertible). Each ordered (source, target) pair has at
// most one canonical entry; further entries for a target form an ordered
// implicit-conversion chain, first registered first tried, consulted only
// when no canonical entry accepts the value.
//
// A registry is populated once while a binding loads and sealed before the
// first dispatch. After Seal every write fails with ErrSealed and all
// lookups are plain reads, safe for concurrent use without locking.
//
// Native values are plain Go values: integers keep their width (int32 for
// "int", uint8 for "unsigned char"), floats are float32/float64, strings
// are string, containers are []any, map[string]any or [2]any, and wrapped
// objects are whatever the native library handed out.
package convert

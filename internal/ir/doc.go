// Package ir provides the binding model shared by every crossbind package.
//
// The model is an arena: types, overloads and callables are addressed by
// stable ids (TypeID, OverloadID, callable key) and relations are stored as
// id-to-id references. Nothing in the arena holds a pointer back into
// another entity, so a Model can be walked from a class, a base-class scope
// or an overload group without cycles, and serialized as-is.
//
// The package also defines the script-side value model (Value and its
// sealed variants), signature strings, default-value expressions and the
// canonical JSON + SHA-256 content hashes used by the catalog.
//
// This package imports nothing internal.
package ir

// Package binding assembles a loaded binding: the conversion registry, the
// decision trees, the dispatch entries and the ownership tracker of one
// frozen type model.
//
// A Runtime has an explicit lifecycle. Load populates the registry, builds
// every tree and binds every native implementation; any missing piece fails
// Load rather than a later call. Teardown releases the tables; calls made
// afterward fail with ErrNotLoaded.
//
// Natives are looked up by minimal signature (see ir.MinimalSignature).
// Value-type constructors double as conversions: a zero-argument
// constructor becomes the type's default constructor, and a single-argument
// constructor from a type listed in ImplicitFrom becomes an implicit
// conversion.
package binding

// Package decisor builds overload decision trees.
//
// A decision tree resolves which native overload of one callable a
// dynamically typed call matches. It is built once per callable, in a single
// pure pass, and is immutable afterwards: every derived string (signatures,
// rendered dump, content hash) is computed by Build and frozen on the Tree.
//
// # Tree shape
//
// A Node dispatches on one argument position. Its branches are tried in a
// fixed order:
//
//  1. exact matches (more derived wrapped types first, then declaration order)
//  2. the sole numeric candidate at this position, with a permissive check
//  3. implicit conversions
//  4. the catch-all "any"
//
// A node also carries a count boundary: the overloads selected when the call
// supplies exactly Pos arguments, because trailing defaults cover the rest.
// Competing count boundaries are resolved at build time. When one overload
// remains, the node collapses into a Leaf that checks the remaining
// positions at once.
//
// Operator callables get a separate tree for reverse-operand calls.
//
// # Build errors
//
// AmbiguousOverload and RemovedArgumentWithoutDefault are fatal: they mean
// the native API cannot be bound as declared, and must not surface as a
// run-time coin flip.
package decisor

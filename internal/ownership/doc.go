// Package ownership tracks which layer owns each wrapped native object.
//
// The script layer is reference counted while the native layer manages
// memory by hand. The Tracker bridges the two: it hands out one wrapper per
// native identity, records parent/child edges (a parent destroys its
// children), records which side is responsible for deleting a native
// object, and keeps script values alive on behalf of native code that
// holds them indirectly.
//
// Post-call rules are computed once per overload by Plan and applied after
// every successful call by Tracker.Apply, in this order:
//
//  1. explicit directives (transfer to native, transfer to script,
//     invalidate, explicit owner add/remove)
//  2. the constructor parent heuristic
//  3. the return-value heuristic
//  4. keep-alive directives
//
// Every mutation is stamped with a logical clock and reported to the
// configured Journal.
//
// Thread-safety: Tracker is safe for concurrent use. The native destroy
// hook runs after the internal lock is released.
package ownership

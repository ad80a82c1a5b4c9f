// Package dispatch turns decision trees into callable dispatch entries.
//
// An Emitter binds each overload of a tree to its native implementation,
// its parsed defaults and its ownership plan, producing an Entry. A call
// through an Entry runs the fixed sequence:
//
//  1. keyword resolution
//  2. decision tree walk
//  3. argument conversion, defaults filled in
//  4. native invocation, with the script lock released for AllowThreads
//  5. return conversion
//  6. ownership post-call plan
//
// Every failure leaves the Entry as a *ScriptError. Native errors and
// panics never cross it unmapped.
//
// The Bridge is the other direction: native code calling a virtual method
// that a script subclass may override.
package dispatch

// Package harness runs dispatch scenarios against a sample native library.
//
// A scenario is a YAML script of calls made from the script side, checks on
// their results, and ownership operations. The harness loads a fresh
// binding runtime per scenario, records every step and the ownership events
// it caused, and evaluates assertions over the result.
//
// # Scenario Format
//
//	name: parent_child
//	description: "A widget built with a parent is owned by it"
//	library: widgets
//	heuristics:
//	  parent_argument: parent
//	steps:
//	  - call: Widget.Widget
//	    bind: root
//	  - call: Widget.Widget
//	    args: [{ref: root}]
//	    bind: kid
//	  - owner: {object: kid, is: root}
//	  - call: describe
//	    args: [1.5]
//	    expect: {value: "double"}
//	  - collect: root
//	    expect: {destroyed: true}
//	assertions:
//	  - type: destroyed
//	    objects: ["Widget:widget", "Widget:widget"]
//
// Argument values are plain YAML scalars, lists and maps, plus three
// single-key forms: {ref: name} passes a bound wrapper, {enum: Color.Green}
// an enumerator, and {func: value} a script callable returning value.
//
// # Step Kinds
//
//   - call: dispatch a script call (self, args, kwargs, reverse, bind)
//   - override: install or remove a script override of a virtual method
//   - virtual: call a virtual method from the native side
//   - collect: drop the last script reference to a wrapper
//   - destroy: report that the native side deleted an object
//   - owner: check the owner of a wrapper
//
// # Assertion Types
//
//   - trace_count: a callable was called exactly N times
//   - trace_contains: a callable was called, optionally with an outcome
//   - destroyed: the natives deleted through the destroy hook, in order
//   - journal_contains: an ownership event was journaled
//   - alive: a bound wrapper is (or is not) still tracked
//
// # Deterministic Testing
//
// Wrapper ids come from a sequence generator ("w-1", "w-2", ...), event
// seqs from a fresh ownership.Clock per run, and the journal lives in an
// in-memory SQLite store unless WithStore names another. The same scenario
// always produces the same trace, which RunWithGolden compares against
// testdata/golden.
package harness

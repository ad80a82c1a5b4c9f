package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/ownership"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", event)
		}
	}
	return buf.String()
}

// AssertionContext provides the runtime state assertions inspect.
type AssertionContext struct {
	Tracker *ownership.Tracker
	Refs    map[string]*ir.Object
}

// EvaluateAssertions runs all assertions against the result.
// Returns a list of error messages, empty if every assertion passed.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertDestroyed:
		return assertDestroyed(result.Destroyed, a)
	case AssertJournalContains:
		return assertJournalContains(result.Journal, a)
	case AssertAlive:
		return assertAlive(actx, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

// assertTraceCount checks that the callable was called exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Op == OpCall && ev.Target == a.Action {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s called %d times", a.Action, a.Count),
			Actual:   fmt.Sprintf("called %d times", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceContains checks that the callable was called, with an
// outcome containing a.Outcome when set.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Target != a.Action || (ev.Op != OpCall && ev.Op != OpVirtual) {
			continue
		}
		if a.Outcome == "" || strings.Contains(ev.Outcome, a.Outcome) {
			return nil
		}
	}
	expected := "call of " + a.Action
	if a.Outcome != "" {
		expected += " with outcome " + a.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

func assertDestroyed(destroyed []string, a Assertion) error {
	if !slices.Equal(destroyed, a.Objects) {
		return &AssertionError{
			Type:     AssertDestroyed,
			Expected: fmt.Sprintf("%v", a.Objects),
			Actual:   fmt.Sprintf("%v", destroyed),
		}
	}
	return nil
}

// assertJournalContains matches an event rendered without its seq, e.g.
// "adopt w-2 peer=w-1".
func assertJournalContains(journal []ownership.Event, a Assertion) error {
	for _, ev := range journal {
		if eventWithoutSeq(ev) == a.Event {
			return nil
		}
	}
	lines := make([]string, len(journal))
	for i, ev := range journal {
		lines[i] = ev.String()
	}
	return &AssertionError{
		Type:     AssertJournalContains,
		Expected: a.Event,
		Actual:   "not journaled; journal: " + strings.Join(lines, "; "),
	}
}

func eventWithoutSeq(ev ownership.Event) string {
	s := ev.String()
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[i+1:]
	}
	return s
}

func assertAlive(actx *AssertionContext, a Assertion) error {
	obj, ok := actx.Refs[a.Ref]
	if !ok {
		return fmt.Errorf("unknown object %q", a.Ref)
	}
	_, alive := actx.Tracker.Lookup(obj.ID)
	if alive != *a.Alive {
		return &AssertionError{
			Type:     AssertAlive,
			Expected: fmt.Sprintf("%s (%s) alive = %t", a.Ref, obj.ID, *a.Alive),
			Actual:   fmt.Sprintf("alive = %t", alive),
		}
	}
	return nil
}

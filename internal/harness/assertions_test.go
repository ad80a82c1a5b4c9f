package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crossbind/internal/ownership"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Step: 1, Op: OpCall, Target: "Widget.Widget", Detail: "Widget.Widget()", Outcome: "Widget w-1"},
		{Step: 2, Op: OpVirtual, Target: "Widget.sizeHint", Detail: "Widget.sizeHint() on w-1", Outcome: "42"},
		{Step: 3, Op: OpCall, Target: "divide", Detail: "divide(1, 0)", Outcome: "error NativeException"},
	}
	r.Journal = []ownership.Event{
		{Seq: 1, Kind: ownership.EventWrap, Wrapper: "w-1", Type: "Widget"},
	}
	r.Destroyed = []string{"Widget:widget"}
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	r := sampleResult()
	pass := []Assertion{
		{Type: AssertTraceCount, Action: "Widget.Widget", Count: 1},
		{Type: AssertTraceCount, Action: "Widget.resize", Count: 0},
		{Type: AssertTraceContains, Action: "Widget.sizeHint", Outcome: "42"},
		{Type: AssertTraceContains, Action: "divide", Outcome: "NativeException"},
		{Type: AssertDestroyed, Objects: []string{"Widget:widget"}},
		{Type: AssertJournalContains, Event: "wrap w-1 type=Widget"},
	}
	assert.Empty(t, EvaluateAssertions(r, pass, &AssertionContext{}))

	fail := []Assertion{
		{Type: AssertTraceCount, Action: "Widget.Widget", Count: 2},
		{Type: AssertTraceContains, Action: "Widget.sizeHint", Outcome: "7"},
		{Type: AssertDestroyed, Objects: []string{}},
		{Type: AssertJournalContains, Event: "destroy w-1"},
	}
	errs := EvaluateAssertions(r, fail, &AssertionContext{})
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "assertion 0:")
	assert.Contains(t, errs[1], "with outcome 7")
	assert.Contains(t, errs[3], "1 wrap w-1 type=Widget")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "f called 1 times",
		Actual:   "called 0 times",
		Trace:    sampleResult().Trace[:1],
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: trace_count")
	assert.Contains(t, msg, "Expected: f called 1 times")
	assert.Contains(t, msg, "Full trace:\n  1 call Widget.Widget() -> Widget w-1")
}

func TestAssertAlive_UnknownRef(t *testing.T) {
	alive := true
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertAlive, Ref: "w", Alive: &alive}}, &AssertionContext{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown object "w"`)
}

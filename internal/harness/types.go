package harness

import (
	"fmt"

	"github.com/roach88/crossbind/internal/ownership"
)

// TraceEvent is one executed step.
type TraceEvent struct {
	Step    int    `json:"step"` // 1-based
	Op      string `json:"op"`
	Target  string `json:"target"`  // callable or wrapper the step acted on
	Detail  string `json:"detail"`  // rendered call, e.g. "Widget.resize(4, 3) on w-1"
	Outcome string `json:"outcome"` // rendered result or "error <Kind>"

	// Journal holds the ownership events the step caused, in seq order.
	Journal []ownership.Event `json:"journal,omitempty"`
}

func (e TraceEvent) String() string {
	return fmt.Sprintf("%d %s %s -> %s", e.Step, e.Op, e.Detail, e.Outcome)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains every executed step in order.
	Trace []TraceEvent `json:"trace"`

	// Journal is the complete ownership journal of the scenario.
	Journal []ownership.Event `json:"journal"`

	// Destroyed lists the natives deleted through the destroy hook.
	Destroyed []string `json:"destroyed"`

	// Errors contains expectation and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []TraceEvent{},
		Journal:   []ownership.Event{},
		Destroyed: []string{},
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

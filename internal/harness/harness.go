package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/crossbind/internal/binding"
	"github.com/roach88/crossbind/internal/dispatch"
	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/ownership"
	"github.com/roach88/crossbind/internal/store"
	"github.com/roach88/crossbind/internal/testutil"
)

// Harness executes one scenario against a fresh runtime.
type Harness struct {
	store   *store.Store
	lib     *testutil.Library
	rt      *binding.Runtime
	clock   *ownership.Clock
	session string

	refs    map[string]*ir.Object
	journal int // journal events already attributed to a step
}

// RunOption configures a scenario run.
type RunOption func(*runOptions)

type runOptions struct {
	heuristics ownership.Heuristics
	store      *store.Store
}

// WithStore records the scenario's journal in st under the scenario name
// instead of a throwaway in-memory database. Earlier events of that
// session are deleted first.
func WithStore(st *store.Store) RunOption {
	return func(o *runOptions) {
		o.store = st
	}
}

// WithHeuristics sets the heuristics a scenario starts from before its own
// heuristics block is applied.
func WithHeuristics(h ownership.Heuristics) RunOption {
	return func(o *runOptions) {
		o.heuristics = h
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a freshly loaded runtime, journaling into an
// in-memory database unless WithStore is given. Script errors are step outcomes, checked against expect
// clauses; a returned error means the scenario itself could not run.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	o := runOptions{heuristics: ownership.DefaultHeuristics()}
	for _, opt := range opts {
		opt(&o)
	}

	ctx := context.Background()
	st := o.store
	if st == nil {
		var err error
		if st, err = store.Open(store.MemoryPath); err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	} else if err := st.ResetSession(ctx, scenario.Name); err != nil {
		return nil, err
	}

	lib, err := testutil.NewLibrary(scenario.Library)
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:   st,
		lib:     lib,
		clock:   ownership.NewClock(),
		session: scenario.Name,
		refs:    make(map[string]*ir.Object),
	}
	h.rt, err = binding.Load(lib.Model, lib.Natives,
		binding.WithHeuristics(scenario.heuristics(o.heuristics)),
		binding.WithTrackerOptions(
			ownership.WithIDGenerator(ownership.NewSequenceGenerator("w")),
			ownership.WithClock(h.clock),
			ownership.WithJournal(st.Journal(scenario.Name)),
			ownership.WithDestroyer(lib.Destroy),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load library %s: %w", scenario.Library, err)
	}
	defer h.rt.Teardown()

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.runStep(ctx, i+1, &step, result)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		if ev.Journal, err = h.newEvents(ctx); err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, ev)

		slog.Debug("scenario step completed",
			"scenario", scenario.Name,
			"step", ev.Step,
			"op", ev.Op,
			"outcome", ev.Outcome,
		)
	}

	if result.Journal, err = st.ReadEvents(ctx, scenario.Name); err != nil {
		return nil, err
	}
	result.Destroyed = lib.Destroyed()

	actx := &AssertionContext{Tracker: h.rt.Tracker(), Refs: h.refs}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// newEvents returns the journal events recorded since the last call.
func (h *Harness) newEvents(ctx context.Context) ([]ownership.Event, error) {
	events, err := h.store.ReadEvents(ctx, h.session)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}
	fresh := events[h.journal:]
	h.journal = len(events)
	return fresh, nil
}

func (h *Harness) ref(name string) (*ir.Object, error) {
	obj, ok := h.refs[name]
	if !ok {
		return nil, fmt.Errorf("unknown object %q", name)
	}
	return obj, nil
}

func (h *Harness) runStep(ctx context.Context, n int, step *Step, result *Result) (TraceEvent, error) {
	ev := TraceEvent{Step: n, Op: step.Op()}
	switch ev.Op {
	case OpCall:
		return h.runCall(ctx, ev, step, result)
	case OpOverride:
		return h.runOverride(ev, step)
	case OpVirtual:
		return h.runVirtual(ctx, ev, step, result)
	case OpCollect:
		return h.runCollect(ev, step, result)
	case OpDestroy:
		obj, err := h.ref(step.Destroy)
		if err != nil {
			return ev, err
		}
		ev.Target, ev.Detail = string(obj.ID), string(obj.ID)
		if err := h.rt.NotifyNativeDestroyed(obj.ID); err != nil {
			ev.Outcome = "error " + err.Error()
			h.checkError(result, n, step.Expect, err)
			return ev, nil
		}
		ev.Outcome = "ok"
		return ev, nil
	case OpOwner:
		return h.runOwner(ev, step, result)
	}
	return ev, fmt.Errorf("no operation")
}

func (h *Harness) runCall(ctx context.Context, ev TraceEvent, step *Step, result *Result) (TraceEvent, error) {
	var self ir.Value
	if step.Self != "" {
		obj, err := h.ref(step.Self)
		if err != nil {
			return ev, err
		}
		self = obj
	}
	args, err := h.decodeArgs(step.Args)
	if err != nil {
		return ev, err
	}
	kwargs, err := h.decodeKwargs(step.Kwargs)
	if err != nil {
		return ev, err
	}

	ev.Target = step.Call
	ev.Detail = h.formatCall(step.Call, self, args, kwargs, step.Reverse)

	ret, err := h.rt.Call(ctx, step.Call, dispatch.Call{Self: self, Args: args, Kwargs: kwargs, Reverse: step.Reverse})
	if err != nil {
		ev.Outcome = outcomeOf(err)
		h.checkError(result, ev.Step, step.Expect, err)
		return ev, nil
	}
	ev.Outcome = h.formatValue(ret)

	if step.Bind != "" {
		obj, ok := ret.(*ir.Object)
		if !ok || obj == nil {
			return ev, fmt.Errorf("bind %q: %s returned %s, not an object", step.Bind, step.Call, ir.TypeName(ret))
		}
		h.refs[step.Bind] = obj
	}
	return ev, h.checkValue(result, ev.Step, step.Expect, ret)
}

func (h *Harness) runOverride(ev TraceEvent, step *Step) (TraceEvent, error) {
	o := step.Override
	obj, err := h.ref(o.Self)
	if err != nil {
		return ev, err
	}
	ev.Target = string(obj.ID)
	ev.Detail = string(obj.ID) + "." + o.Method
	if o.Remove {
		h.rt.SetOverride(obj.ID, o.Method, nil)
		ev.Outcome = "removed"
		return ev, nil
	}
	ret, err := h.decodeValue(o.Returns)
	if err != nil {
		return ev, fmt.Errorf("override returns: %w", err)
	}
	h.rt.SetOverride(obj.ID, o.Method, func(context.Context, []ir.Value) (ir.Value, error) {
		return ret, nil
	})
	ev.Outcome = "returns " + h.formatValue(ret)
	return ev, nil
}

// runVirtual plays the native side calling a virtual method: the base
// implementation is the library's native for the overload.
func (h *Harness) runVirtual(ctx context.Context, ev TraceEvent, step *Step, result *Result) (TraceEvent, error) {
	v := step.Virtual
	obj, err := h.ref(v.Self)
	if err != nil {
		return ev, err
	}
	ovs := h.rt.Model().Overloads(v.Method)
	if len(ovs) == 0 {
		return ev, fmt.Errorf("unknown method %q", v.Method)
	}
	ov := ovs[0]
	ev.Target = v.Method
	ev.Detail = v.Method + "() on " + string(obj.ID)

	var base dispatch.BaseFunc
	if native, ok := h.lib.Natives.Lookup(ir.MinimalSignature(ov)); ok && !ov.Abstract {
		base = func(ctx context.Context) (any, error) {
			return native(ctx, &dispatch.NativeCall{Overload: ov, Self: obj.Native})
		}
	}

	n, err := h.rt.CallVirtual(ctx, obj, ov.ID, nil, base)
	if err != nil {
		ev.Outcome = outcomeOf(err)
		h.checkError(result, ev.Step, step.Expect, err)
		return ev, nil
	}
	ret, err := h.rt.Registry().FromNative(n, ov.EffectiveReturn())
	if err != nil {
		return ev, fmt.Errorf("virtual %s: %w", v.Method, err)
	}
	ev.Outcome = h.formatValue(ret)
	return ev, h.checkValue(result, ev.Step, step.Expect, ret)
}

func (h *Harness) runCollect(ev TraceEvent, step *Step, result *Result) (TraceEvent, error) {
	obj, err := h.ref(step.Collect)
	if err != nil {
		return ev, err
	}
	ev.Target, ev.Detail = string(obj.ID), string(obj.ID)
	destroyed, err := h.rt.Collect(obj.ID)
	if err != nil {
		ev.Outcome = "error " + err.Error()
		h.checkError(result, ev.Step, step.Expect, err)
		return ev, nil
	}
	ev.Outcome = "kept"
	if destroyed {
		ev.Outcome = "destroyed"
	}
	if e := step.Expect; e != nil && e.Destroyed != nil && *e.Destroyed != destroyed {
		result.AddError(fmt.Sprintf("step %d: collect %s: destroyed = %t, expected %t", ev.Step, obj.ID, destroyed, *e.Destroyed))
	}
	return ev, nil
}

func (h *Harness) runOwner(ev TraceEvent, step *Step, result *Result) (TraceEvent, error) {
	obj, err := h.ref(step.Owner.Object)
	if err != nil {
		return ev, err
	}
	var want ir.WrapperID
	if step.Owner.Is != "" {
		o, err := h.ref(step.Owner.Is)
		if err != nil {
			return ev, err
		}
		want = o.ID
	}
	ev.Target, ev.Detail = string(obj.ID), string(obj.ID)

	got, _ := h.rt.QueryOwner(obj.ID)
	ev.Outcome = string(got)
	if got == "" {
		ev.Outcome = "none"
	}
	if got != want {
		result.AddError(fmt.Sprintf("step %d: owner of %s = %q, expected %q", ev.Step, obj.ID, got, want))
	}
	return ev, nil
}

// outcomeOf renders a failed step. Script errors show their kind only;
// messages carry signature lists that would make traces brittle.
func outcomeOf(err error) string {
	var se *dispatch.ScriptError
	if errors.As(err, &se) {
		return "error " + string(se.Kind)
	}
	return "error " + err.Error()
}

func (h *Harness) checkError(result *Result, n int, e *Expect, err error) {
	if e == nil || e.Error == "" {
		result.AddError(fmt.Sprintf("step %d: unexpected error: %v", n, err))
		return
	}
	var se *dispatch.ScriptError
	kind := ""
	if errors.As(err, &se) {
		kind = string(se.Kind)
	}
	if kind != e.Error {
		result.AddError(fmt.Sprintf("step %d: error kind = %q, expected %q (%v)", n, kind, e.Error, err))
		return
	}
	if e.Message != "" && !strings.Contains(err.Error(), e.Message) {
		result.AddError(fmt.Sprintf("step %d: error %q does not contain %q", n, err.Error(), e.Message))
	}
}

// checkValue compares a successful result with the expect clause. It
// returns an error only when the expected value cannot be decoded.
func (h *Harness) checkValue(result *Result, n int, e *Expect, got ir.Value) error {
	if e == nil {
		return nil
	}
	if e.Error != "" {
		result.AddError(fmt.Sprintf("step %d: expected error %s, got %s", n, e.Error, h.formatValue(got)))
		return nil
	}
	if e.Type != "" && ir.TypeName(got) != e.Type {
		result.AddError(fmt.Sprintf("step %d: result type = %s, expected %s", n, ir.TypeName(got), e.Type))
	}
	if e.Value != nil {
		var raw any
		if err := e.Value.Decode(&raw); err != nil {
			return fmt.Errorf("expect value: %w", err)
		}
		want, err := h.decodeValue(raw)
		if err != nil {
			return fmt.Errorf("expect value: %w", err)
		}
		if !ir.Equal(want, got) {
			result.AddError(fmt.Sprintf("step %d: result = %s, expected %s", n, h.formatValue(got), h.formatValue(want)))
		}
	}
	return nil
}

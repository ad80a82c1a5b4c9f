package dispatch

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/decisor"
	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/ownership"
)

// NativeCall is the converted call handed to a native implementation.
type NativeCall struct {
	Overload *ir.Overload
	Self     any   // receiver, nil for functions, statics and constructors
	Args     []any // declared order; a variadic tail contributes its script values
}

// NativeFunc is one native overload implementation.
type NativeFunc func(ctx context.Context, call *NativeCall) (any, error)

// Natives resolves native implementations by minimal signature.
type Natives interface {
	Lookup(minimal string) (NativeFunc, bool)
}

// NativeTable is a map-backed Natives.
type NativeTable map[string]NativeFunc

// Lookup implements Natives.
func (t NativeTable) Lookup(minimal string) (NativeFunc, bool) {
	fn, ok := t[minimal]
	return fn, ok
}

// ReturnRule is an explicit return-value conversion, named by an
// overload's ReturnConversion.
type ReturnRule func(native any) (ir.Value, error)

// Emitter builds dispatch entries.
type Emitter struct {
	reg        *convert.Registry
	tracker    *ownership.Tracker
	lock       *ScriptLock
	natives    Natives
	rules      map[string]ReturnRule
	heuristics ownership.Heuristics
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithReturnRules registers named return conversions.
func WithReturnRules(rules map[string]ReturnRule) EmitterOption {
	return func(e *Emitter) {
		for name, rule := range rules {
			e.rules[name] = rule
		}
	}
}

// WithHeuristics sets the ownership heuristics used for post-call plans.
// Default: ownership.DefaultHeuristics().
func WithHeuristics(h ownership.Heuristics) EmitterOption {
	return func(e *Emitter) {
		e.heuristics = h
	}
}

// NewEmitter creates an emitter. reg must be sealed.
func NewEmitter(reg *convert.Registry, tracker *ownership.Tracker, lock *ScriptLock, natives Natives, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		reg:        reg,
		tracker:    tracker,
		lock:       lock,
		natives:    natives,
		rules:      make(map[string]ReturnRule),
		heuristics: ownership.DefaultHeuristics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Entry is the dispatch entry point of one callable.
type Entry struct {
	Callable string

	e         *Emitter
	tree      *decisor.Tree
	overloads map[ir.OverloadID]*boundOverload
}

type boundOverload struct {
	ov       *ir.Overload
	minimal  string
	native   NativeFunc
	rule     ReturnRule
	plan     []ownership.Step
	defaults []*ir.DefaultValue
	selfType ir.TypeID
}

// Emit binds every candidate of tree. Missing native implementations and
// unknown return conversions are reported here, never at call time.
func (e *Emitter) Emit(tree *decisor.Tree) (*Entry, error) {
	model := e.reg.Model()
	en := &Entry{
		Callable:  tree.Callable,
		e:         e,
		tree:      tree,
		overloads: make(map[ir.OverloadID]*boundOverload, len(tree.Candidates)),
	}
	for _, c := range tree.Candidates {
		ov := model.Overload(c.ID)
		if ov == nil {
			return nil, fmt.Errorf("emit %s: overload #%d not in model", tree.Callable, c.ID)
		}
		native, ok := e.natives.Lookup(c.Minimal)
		if !ok {
			return nil, fmt.Errorf("emit %s: no native implementation for %s", tree.Callable, c.Minimal)
		}
		b := &boundOverload{
			ov:       ov,
			minimal:  c.Minimal,
			native:   native,
			plan:     ownership.Plan(model, ov, e.heuristics),
			defaults: tree.Defaults[c.ID],
			selfType: receiverType(ov),
		}
		if ov.ReturnConversion != "" {
			if b.rule, ok = e.rules[ov.ReturnConversion]; !ok {
				return nil, fmt.Errorf("emit %s: unknown return conversion %q", c.Minimal, ov.ReturnConversion)
			}
		}
		en.overloads[c.ID] = b
	}
	return en, nil
}

// EmitAll emits an entry per tree, in callable name order.
func (e *Emitter) EmitAll(trees map[string]*decisor.Tree) (map[string]*Entry, error) {
	out := make(map[string]*Entry, len(trees))
	for _, name := range slices.Sorted(maps.Keys(trees)) {
		en, err := e.Emit(trees[name])
		if err != nil {
			return nil, err
		}
		out[name] = en
	}
	return out, nil
}

func receiverType(ov *ir.Overload) ir.TypeID {
	if ov.DeclaringType != "" {
		return ov.DeclaringType
	}
	t, _ := ir.SplitCallable(ov.Callable)
	return t
}

// Tree returns the decision tree behind the entry.
func (en *Entry) Tree() *decisor.Tree {
	return en.tree
}

// Plan returns the post-call ownership plan of an overload.
func (en *Entry) Plan(id ir.OverloadID) []ownership.Step {
	if b, ok := en.overloads[id]; ok {
		return b.plan
	}
	return nil
}

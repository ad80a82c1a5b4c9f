package binding

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/decisor"
	"github.com/roach88/crossbind/internal/dispatch"
	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/ownership"
)

// Runtime is one loaded binding.
//
// Thread-safety model:
//   - Call, CallVirtual: safe from any goroutine; script values are only
//     touched under the script lock
//   - Load, Teardown: lifecycle, not concurrent with calls
type Runtime struct {
	model     *ir.Model
	reg       *convert.Registry
	tracker   *ownership.Tracker
	lock      *dispatch.ScriptLock
	bridge    *dispatch.Bridge
	overrides *overrideTable

	mu      sync.RWMutex
	loaded  bool
	trees   map[string]*decisor.Tree
	entries map[string]*dispatch.Entry
}

// Load builds a runtime over model. The model is frozen if it is not
// already. Every overload needs a native implementation in natives.
func Load(model *ir.Model, natives dispatch.Natives, opts ...Option) (*Runtime, error) {
	o := &options{
		heuristics: ownership.DefaultHeuristics(),
		rules:      make(map[string]dispatch.ReturnRule),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.lock == nil {
		o.lock = dispatch.NewScriptLock()
	}
	if !model.Frozen() {
		model.Freeze()
	}

	rt := &Runtime{
		model:     model,
		reg:       convert.New(model),
		tracker:   ownership.NewTracker(model, o.tracker...),
		lock:      o.lock,
		overrides: newOverrideTable(),
	}

	if err := convert.Populate(rt.reg, rt.tracker); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if err := registerConstructors(rt.reg, natives); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	rt.reg.Seal()

	trees, err := decisor.NewBuilder(rt.reg).BuildAll()
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	emitter := dispatch.NewEmitter(rt.reg, rt.tracker, rt.lock, natives,
		dispatch.WithHeuristics(o.heuristics),
		dispatch.WithReturnRules(o.rules),
	)
	entries, err := emitter.EmitAll(trees)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	rt.trees = trees
	rt.entries = entries
	rt.bridge = dispatch.NewBridge(rt.reg, rt.lock, rt.overrides)
	rt.loaded = true

	slog.Debug("binding loaded",
		"types", len(model.Types()),
		"callables", len(entries),
	)
	return rt, nil
}

// Teardown releases the call tables. It is idempotent.
func (rt *Runtime) Teardown() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.loaded {
		return
	}
	rt.loaded = false
	rt.entries = nil
	rt.trees = nil
	rt.overrides.clear()
	rt.bridge.Clear()
	slog.Debug("binding torn down", "wrappers", rt.tracker.Len())
}

// Loaded reports whether the runtime accepts calls.
func (rt *Runtime) Loaded() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.loaded
}

func (rt *Runtime) entry(callable string) (*dispatch.Entry, error) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if !rt.loaded {
		return nil, ErrNotLoaded
	}
	en, ok := rt.entries[callable]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCallable, callable)
	}
	return en, nil
}

// Call dispatches a script call to callable.
func (rt *Runtime) Call(ctx context.Context, callable string, c dispatch.Call) (ir.Value, error) {
	en, err := rt.entry(callable)
	if err != nil {
		return nil, err
	}
	return en.Call(ctx, c)
}

// Select resolves a call to an overload without invoking it.
func (rt *Runtime) Select(callable string, c dispatch.Call) (ir.OverloadID, error) {
	en, err := rt.entry(callable)
	if err != nil {
		return ir.NoOverload, err
	}
	return en.Select(c)
}

// Tree returns the decision tree of a callable.
func (rt *Runtime) Tree(callable string) (*decisor.Tree, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	t, ok := rt.trees[callable]
	return t, ok
}

// Trees returns every decision tree, keyed by callable. The map is a copy;
// the trees are shared and immutable.
func (rt *Runtime) Trees() map[string]*decisor.Tree {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return maps.Clone(rt.trees)
}

// Callables lists the loaded callables in name order.
func (rt *Runtime) Callables() []string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return slices.Sorted(maps.Keys(rt.entries))
}

// Methods is the call table of one type: its callables in declaration
// order.
func (rt *Runtime) Methods(t ir.TypeID) []string {
	return rt.model.CallablesOf(t)
}

// Plan returns the post-call ownership plan of an overload.
func (rt *Runtime) Plan(id ir.OverloadID) []ownership.Step {
	ov := rt.model.Overload(id)
	if ov == nil {
		return nil
	}
	en, err := rt.entry(ov.Callable)
	if err != nil {
		return nil
	}
	return en.Plan(id)
}

// SetOverride installs a script override of method on self. A nil fn
// removes it. Cached detection for self is reset either way.
func (rt *Runtime) SetOverride(self ir.WrapperID, method string, fn ir.Func) {
	if !rt.Loaded() {
		return
	}
	rt.overrides.set(self, method, fn)
	rt.bridge.ResetCache(self)
}

// CallVirtual is the entry point for native code invoking virtual method
// id on self. base is the native implementation, nil when abstract.
func (rt *Runtime) CallVirtual(ctx context.Context, self *ir.Object, id ir.OverloadID, args []any, base dispatch.BaseFunc) (any, error) {
	if !rt.Loaded() {
		return nil, ErrNotLoaded
	}
	ov := rt.model.Overload(id)
	if ov == nil || !ov.Virtual {
		return nil, fmt.Errorf("call virtual #%d: %w", id, ErrNotVirtual)
	}
	return rt.bridge.CallVirtual(ctx, self, ov, args, base)
}

// Collect is called when the script side drops its last reference to a
// wrapper. It reports whether the native object was destroyed.
func (rt *Runtime) Collect(id ir.WrapperID) (bool, error) {
	destroyed, err := rt.tracker.Collect(id)
	if err != nil {
		return false, err
	}
	rt.prune(id)
	return destroyed, nil
}

// NotifyNativeDestroyed is called when the native side deleted an object.
func (rt *Runtime) NotifyNativeDestroyed(id ir.WrapperID) error {
	if err := rt.tracker.NotifyNativeDestroyed(id); err != nil {
		return err
	}
	rt.prune(id)
	return nil
}

// QueryOwner returns the owner of a wrapper, if any.
func (rt *Runtime) QueryOwner(id ir.WrapperID) (ir.WrapperID, bool) {
	return rt.tracker.QueryOwner(id)
}

// prune forgets overrides and cached detection of wrappers the tracker no
// longer knows, starting with the wrapper that triggered it.
func (rt *Runtime) prune(id ir.WrapperID) {
	alive := func(id ir.WrapperID) bool {
		_, ok := rt.tracker.Lookup(id)
		return ok
	}
	dead := rt.overrides.drop(alive)
	if !alive(id) {
		dead = append(dead, id)
	}
	for _, d := range dead {
		rt.bridge.ResetCache(d)
	}
}

// Model returns the frozen type model.
func (rt *Runtime) Model() *ir.Model { return rt.model }

// Registry returns the sealed conversion registry.
func (rt *Runtime) Registry() *convert.Registry { return rt.reg }

// Tracker returns the ownership tracker.
func (rt *Runtime) Tracker() *ownership.Tracker { return rt.tracker }

// Lock returns the script lock.
func (rt *Runtime) Lock() *dispatch.ScriptLock { return rt.lock }

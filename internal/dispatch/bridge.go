package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/crossbind/internal/convert"
	"github.com/roach88/crossbind/internal/ir"
)

// Overrides finds the script-side override of a virtual method on one
// instance. It is called with the script lock held.
type Overrides interface {
	Override(self ir.WrapperID, method string) (ir.Func, bool)
}

// Bridge routes native virtual calls to script overrides.
//
// Detection is cached per (instance, method): once a lookup found no
// override, later calls go straight to the native base implementation.
type Bridge struct {
	reg       *convert.Registry
	lock      *ScriptLock
	overrides Overrides

	mu    sync.Mutex
	cache map[bridgeKey]ir.Func // nil value: detected, no override
}

type bridgeKey struct {
	self   ir.WrapperID
	method string
}

// NewBridge creates a bridge.
func NewBridge(reg *convert.Registry, lock *ScriptLock, overrides Overrides) *Bridge {
	return &Bridge{
		reg:       reg,
		lock:      lock,
		overrides: overrides,
		cache:     make(map[bridgeKey]ir.Func),
	}
}

// BaseFunc is the native base implementation of a virtual method. It is
// nil for abstract methods.
type BaseFunc func(ctx context.Context) (any, error)

// CallVirtual is called by native code invoking virtual method ov on self
// with native arguments in declared order.
func (b *Bridge) CallVirtual(ctx context.Context, self *ir.Object, ov *ir.Overload, args []any, base BaseFunc) (any, error) {
	override := b.detect(ctx, self.ID, ov.Name)
	if override == nil {
		return b.callBase(ctx, ov, base)
	}

	result, ok, err := b.callOverride(ctx, ov, override, args)
	if err != nil {
		return nil, err
	}
	if ok {
		return result, nil
	}
	return b.callBase(ctx, ov, base)
}

func (b *Bridge) detect(ctx context.Context, self ir.WrapperID, method string) ir.Func {
	key := bridgeKey{self: self, method: method}
	b.mu.Lock()
	fn, cached := b.cache[key]
	b.mu.Unlock()
	if cached {
		return fn
	}

	_, release := b.lock.Acquire(ctx)
	fn, _ = b.overrides.Override(self, method)
	release()

	b.mu.Lock()
	b.cache[key] = fn
	b.mu.Unlock()
	return fn
}

// callOverride runs the script override under the script lock. ok is
// false when a non-abstract override returned a mismatched value and the
// base implementation should run instead. The override receives the held
// context so it can dispatch back into native code.
func (b *Bridge) callOverride(ctx context.Context, ov *ir.Overload, override ir.Func, args []any) (any, bool, error) {
	ctx, release := b.lock.Acquire(ctx)
	defer release()

	scriptArgs := make([]ir.Value, 0, len(args))
	for i, n := range args {
		if i >= len(ov.Args) {
			break
		}
		v, err := b.reg.FromNative(n, ov.Args[i].EffectiveType())
		if err != nil {
			return nil, false, runtimeError(ov.Callable, err, "cannot pass argument %d to override: %v", i+1, err)
		}
		scriptArgs = append(scriptArgs, v)
	}

	res, err := runOverride(ctx, ov, override, scriptArgs)
	if err != nil {
		return nil, false, err
	}
	if ov.IsVoid() {
		return nil, true, nil
	}

	target := ov.EffectiveReturn()
	if !b.reg.IsConvertible(res, target) {
		if ov.Abstract {
			return nil, false, runtimeError(ov.Callable, nil,
				"invalid return value in override, expected %s, got %s", target, ir.TypeName(res))
		}
		slog.Warn("invalid return value in override, using native implementation",
			"method", ov.Callable,
			"expected", target,
			"got", ir.TypeName(res),
		)
		return nil, false, nil
	}
	n, err := b.reg.ToNative(res, target)
	if err != nil {
		return nil, false, runtimeError(ov.Callable, err, "invalid return value in override: %v", err)
	}
	return n, true, nil
}

// runOverride calls a script override. A panic in script code becomes a
// RuntimeError instead of unwinding into the native caller.
func runOverride(ctx context.Context, ov *ir.Overload, override ir.Func, args []ir.Value) (res ir.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, runtimeError(ov.Callable, fmt.Errorf("panic in override: %v", r), "override of %s panicked: %v", ov.Name, r)
		}
	}()
	return override(ctx, args)
}

func (b *Bridge) callBase(ctx context.Context, ov *ir.Overload, base BaseFunc) (any, error) {
	if base == nil || ov.Abstract {
		return nil, runtimeError(ov.Callable, nil, "pure virtual method called without a script override")
	}
	return base(ctx)
}

// ResetCache forgets detection results for one instance, e.g. after the
// script side replaced an override or the wrapper was collected.
func (b *Bridge) ResetCache(self ir.WrapperID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k := range b.cache {
		if k.self == self {
			delete(b.cache, k)
		}
	}
}

// Clear forgets every detection result.
func (b *Bridge) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.cache)
}

// Cached reports whether detection for (self, method) is cached.
func (b *Bridge) Cached(self ir.WrapperID, method string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.cache[bridgeKey{self: self, method: method}]
	return ok
}

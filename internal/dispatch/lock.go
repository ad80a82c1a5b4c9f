package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// ScriptLock is the global script execution lock. It must be held whenever
// script values are touched.
//
// Holding is tracked on the context, so a call chain that re-enters
// dispatch (native code invoking a script override that calls back into
// native code) does not deadlock on itself. Script callables receive the
// held context and must pass it on.
type ScriptLock struct {
	mu           sync.Mutex
	acquisitions atomic.Int64
}

type heldKey struct {
	l *ScriptLock
}

// NewScriptLock creates an unheld lock.
func NewScriptLock() *ScriptLock {
	return &ScriptLock{}
}

// HeldBy reports whether the call chain of ctx holds the lock.
func (l *ScriptLock) HeldBy(ctx context.Context) bool {
	held, _ := ctx.Value(heldKey{l}).(bool)
	return held
}

// Acquire takes the lock unless ctx already holds it. The returned context
// carries the held state; release undoes exactly this acquisition.
func (l *ScriptLock) Acquire(ctx context.Context) (context.Context, func()) {
	if l.HeldBy(ctx) {
		return ctx, func() {}
	}
	l.mu.Lock()
	l.acquisitions.Add(1)
	return context.WithValue(ctx, heldKey{l}, true), l.mu.Unlock
}

// Release gives the lock up around a long native call. The returned
// context is marked unheld; reacquire must run before script values are
// touched again.
func (l *ScriptLock) Release(ctx context.Context) (context.Context, func()) {
	if !l.HeldBy(ctx) {
		return ctx, func() {}
	}
	l.mu.Unlock()
	return context.WithValue(ctx, heldKey{l}, false), func() {
		l.mu.Lock()
		l.acquisitions.Add(1)
	}
}

// Locked reports whether anyone holds the lock right now.
func (l *ScriptLock) Locked() bool {
	if l.mu.TryLock() {
		l.mu.Unlock()
		return false
	}
	return true
}

// Acquisitions counts how many times the lock was taken.
func (l *ScriptLock) Acquisitions() int64 {
	return l.acquisitions.Load()
}

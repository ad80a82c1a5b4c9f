package binding

import (
	"sync"

	"github.com/roach88/crossbind/internal/ir"
)

type overrideKey struct {
	self   ir.WrapperID
	method string
}

// overrideTable holds script-side overrides of virtual methods, per
// instance. It implements dispatch.Overrides.
type overrideTable struct {
	mu    sync.RWMutex
	funcs map[overrideKey]ir.Func
}

func newOverrideTable() *overrideTable {
	return &overrideTable{funcs: make(map[overrideKey]ir.Func)}
}

func (o *overrideTable) Override(self ir.WrapperID, method string) (ir.Func, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	fn, ok := o.funcs[overrideKey{self, method}]
	return fn, ok
}

func (o *overrideTable) set(self ir.WrapperID, method string, fn ir.Func) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if fn == nil {
		delete(o.funcs, overrideKey{self, method})
		return
	}
	o.funcs[overrideKey{self, method}] = fn
}

// drop removes every override whose instance fails alive.
func (o *overrideTable) drop(alive func(ir.WrapperID) bool) []ir.WrapperID {
	o.mu.Lock()
	defer o.mu.Unlock()
	var dead []ir.WrapperID
	for k := range o.funcs {
		if !alive(k.self) {
			delete(o.funcs, k)
			dead = append(dead, k.self)
		}
	}
	return dead
}

func (o *overrideTable) clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	clear(o.funcs)
}

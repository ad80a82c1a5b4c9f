package ownership

import (
	"log/slog"
	"reflect"
	"slices"
	"sync"

	"github.com/roach88/crossbind/internal/ir"
)

// DestroyFunc deletes a native object whose deletion the script side is
// responsible for.
type DestroyFunc func(t ir.TypeID, native any)

// Tracker is the ownership graph and keep-alive store.
//
// A wrapper is in one of three states:
//   - script owned: collecting the wrapper destroys the native object
//   - parented: its owner destroys it; collecting the wrapper is a no-op
//   - native owned: the native side deletes it; collecting the wrapper
//     only forgets it
type Tracker struct {
	mu sync.Mutex

	model   *ir.Model
	ids     IDGenerator
	clock   Sequencer
	journal Journal
	destroy DestroyFunc

	entries  map[ir.WrapperID]*entry
	byNative map[nativeKey]ir.WrapperID
}

type entry struct {
	obj         *ir.Object
	scriptOwned bool
	native      bool // native identity registered in byNative
	owner       ir.WrapperID
	children    []ir.WrapperID
	keepAlive   map[string][]ir.Value
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithIDGenerator sets the wrapper id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Tracker) {
		t.ids = g
	}
}

// WithClock sets the event clock. Default: a fresh Clock.
func WithClock(c Sequencer) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// WithJournal sets the event journal. Default: events are discarded.
func WithJournal(j Journal) Option {
	return func(t *Tracker) {
		t.journal = j
	}
}

// WithDestroyer sets the hook that deletes native objects.
func WithDestroyer(fn DestroyFunc) Option {
	return func(t *Tracker) {
		t.destroy = fn
	}
}

// NewTracker creates a tracker over a frozen model.
func NewTracker(model *ir.Model, opts ...Option) *Tracker {
	t := &Tracker{
		model:    model,
		ids:      UUIDv7Generator{},
		clock:    NewClock(),
		journal:  discardJournal{},
		entries:  make(map[ir.WrapperID]*entry),
		byNative: make(map[nativeKey]ir.WrapperID),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// nativeKey is the identity of a native object: the address for reference
// kinds. Values without an address have no identity and always get a
// fresh wrapper.
type nativeKey struct {
	typ  reflect.Type
	addr uintptr
}

func identityOf(native any) (nativeKey, bool) {
	rv := reflect.ValueOf(native)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan:
		if rv.IsNil() {
			return nativeKey{}, false
		}
		return nativeKey{typ: rv.Type(), addr: rv.Pointer()}, true
	}
	return nativeKey{}, false
}

// WrapObject returns the wrapper bound to native, creating a native-owned
// one when none exists.
func (t *Tracker) WrapObject(typ ir.TypeID, native any) *ir.Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	if key, ok := identityOf(native); ok {
		if id, ok := t.byNative[key]; ok {
			return t.entries[id].obj
		}
	}
	return t.wrapLocked(typ, native, false)
}

// WrapNew wraps a native object the script side just constructed. The
// script side owns it.
func (t *Tracker) WrapNew(typ ir.TypeID, native any) *ir.Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	if key, ok := identityOf(native); ok {
		if id, ok := t.byNative[key]; ok {
			// The address was reused by a new native object.
			slog.Debug("rebinding native identity to a new wrapper", "stale", id, "type", typ)
			t.invalidateLocked(id, EventInvalidate)
		}
	}
	return t.wrapLocked(typ, native, true)
}

// WrapValue wraps a copy of a value-type object. Copies never share a
// wrapper.
func (t *Tracker) WrapValue(typ ir.TypeID, native any) *ir.Object {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj := &ir.Object{ID: t.ids.Generate(), Type: typ, Native: native}
	t.entries[obj.ID] = &entry{obj: obj, scriptOwned: true}
	t.record(Event{Kind: EventWrap, Wrapper: obj.ID, Type: typ})
	return obj
}

func (t *Tracker) wrapLocked(typ ir.TypeID, native any, scriptOwned bool) *ir.Object {
	obj := &ir.Object{ID: t.ids.Generate(), Type: typ, Native: native}
	e := &entry{obj: obj, scriptOwned: scriptOwned}
	if key, ok := identityOf(native); ok {
		t.byNative[key] = obj.ID
		e.native = true
	}
	t.entries[obj.ID] = e
	t.record(Event{Kind: EventWrap, Wrapper: obj.ID, Type: typ})
	return obj
}

// Lookup returns a tracked wrapper.
func (t *Tracker) Lookup(id ir.WrapperID) (*ir.Object, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	return e.obj, true
}

// LookupNative returns the wrapper bound to a native identity.
func (t *Tracker) LookupNative(native any) (*ir.Object, bool) {
	key, ok := identityOf(native)
	if !ok {
		return nil, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.byNative[key]
	if !ok {
		return nil, false
	}
	return t.entries[id].obj, true
}

// Info is a snapshot of one wrapper's ownership state.
type Info struct {
	ID          ir.WrapperID
	Type        ir.TypeID
	Owner       ir.WrapperID // empty: no parent
	Children    []ir.WrapperID
	ScriptOwned bool
	KeepAlive   []string // sorted keys
}

// Info returns the ownership state of a wrapper.
func (t *Tracker) Info(id ir.WrapperID) (Info, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return Info{}, false
	}
	info := Info{
		ID:          id,
		Type:        e.obj.Type,
		Owner:       e.owner,
		Children:    slices.Clone(e.children),
		ScriptOwned: e.scriptOwned,
	}
	for k := range e.keepAlive {
		info.KeepAlive = append(info.KeepAlive, k)
	}
	slices.Sort(info.KeepAlive)
	return info, true
}

// Len returns the number of tracked wrappers.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// QueryOwner returns the owner of a wrapper, if it has one.
func (t *Tracker) QueryOwner(id ir.WrapperID) (ir.WrapperID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok || e.owner == "" {
		return "", false
	}
	return e.owner, true
}

// SetOwner makes owner own child. An existing owner is replaced, never
// duplicated.
func (t *Tracker) SetOwner(owner, child ir.WrapperID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pe, ok := t.entries[owner]
	if !ok {
		return unknownWrapper(owner)
	}
	ce, ok := t.entries[child]
	if !ok {
		return unknownWrapper(child)
	}
	if ce.owner == owner {
		return nil
	}
	for cur := owner; cur != ""; {
		if cur == child {
			return &Error{Code: ErrCodeOwnershipCycle, Wrapper: child, Message: "owner " + string(owner) + " is owned by the child"}
		}
		e, ok := t.entries[cur]
		if !ok {
			break
		}
		cur = e.owner
	}

	t.detachLocked(ce)
	ce.owner = owner
	ce.scriptOwned = false
	pe.children = append(pe.children, child)
	t.record(Event{Kind: EventAdopt, Wrapper: child, Peer: owner})
	return nil
}

// RemoveOwner drops the owner->child edge if it exists. The child becomes
// independently destructible by the script side.
func (t *Tracker) RemoveOwner(owner, child ir.WrapperID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ce, ok := t.entries[child]
	if !ok {
		return unknownWrapper(child)
	}
	if ce.owner != owner {
		return nil
	}
	t.detachLocked(ce)
	ce.scriptOwned = true
	return nil
}

// ReleaseOwner drops whichever owner child has.
func (t *Tracker) ReleaseOwner(child ir.WrapperID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	ce, ok := t.entries[child]
	if !ok {
		return unknownWrapper(child)
	}
	if ce.owner == "" {
		return nil
	}
	t.detachLocked(ce)
	ce.scriptOwned = true
	return nil
}

func (t *Tracker) detachLocked(ce *entry) {
	if ce.owner == "" {
		return
	}
	owner := ce.owner
	if pe, ok := t.entries[owner]; ok {
		pe.children = slices.DeleteFunc(pe.children, func(id ir.WrapperID) bool { return id == ce.obj.ID })
	}
	ce.owner = ""
	t.record(Event{Kind: EventRelease, Wrapper: ce.obj.ID, Peer: owner})
}

// TransferToNative hands deletion of the object to the native side. A type
// with a virtual destructor reports its own deletion, so its wrapper stays
// valid; otherwise the wrapper is invalidated since nothing tells the
// script side when the object dies. Value types are copied and unaffected.
func (t *Tracker) TransferToNative(id ir.WrapperID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return unknownWrapper(id)
	}
	te, known := t.model.Type(e.obj.Type)
	if known && te.ValueType() {
		return nil
	}
	t.detachLocked(e)
	e.scriptOwned = false
	t.record(Event{Kind: EventToNative, Wrapper: id})
	if !known || !te.HasVirtualDestructor {
		t.invalidateLocked(id, EventInvalidate)
	}
	return nil
}

// TransferToScript makes the script side responsible for deleting the
// object, dropping any owner edge.
func (t *Tracker) TransferToScript(id ir.WrapperID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return unknownWrapper(id)
	}
	t.detachLocked(e)
	e.scriptOwned = true
	t.record(Event{Kind: EventToScript, Wrapper: id})
	return nil
}

// Invalidate unbinds a wrapper and, recursively, its children from their
// native objects without deleting them.
func (t *Tracker) Invalidate(id ir.WrapperID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; !ok {
		return unknownWrapper(id)
	}
	t.invalidateLocked(id, EventInvalidate)
	return nil
}

// NotifyNativeDestroyed is called by the embedding when the native side
// deleted an object. Its wrapper and the wrappers of everything it owned
// are invalidated.
func (t *Tracker) NotifyNativeDestroyed(id ir.WrapperID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; !ok {
		return unknownWrapper(id)
	}
	t.invalidateLocked(id, EventDestroy)
	return nil
}

type doomed struct {
	typ    ir.TypeID
	native any
}

// Collect is called when the script side drops its last reference to a
// wrapper. It reports whether the native object was destroyed.
//
// A parented wrapper is kept alive by its owner. A script-owned wrapper
// destroys its native object and every owned descendant. A native-owned
// wrapper is forgotten and the native object left alone, unless it still
// owns children: their edges and the destruction cascade need it.
func (t *Tracker) Collect(id ir.WrapperID) (bool, error) {
	t.mu.Lock()
	e, ok := t.entries[id]
	if !ok {
		t.mu.Unlock()
		return false, unknownWrapper(id)
	}
	if e.owner != "" {
		t.mu.Unlock()
		return false, nil
	}
	if !e.scriptOwned {
		if len(e.children) > 0 {
			t.mu.Unlock()
			return false, nil
		}
		t.forgetLocked(e)
		t.record(Event{Kind: EventCollect, Wrapper: id})
		t.mu.Unlock()
		return false, nil
	}

	var victims []doomed
	t.walkLocked(id, func(d *entry) {
		if d.obj.Native != nil {
			victims = append(victims, doomed{typ: d.obj.Type, native: d.obj.Native})
		}
	})
	t.record(Event{Kind: EventCollect, Wrapper: id})
	t.invalidateLocked(id, EventDestroy)
	destroy := t.destroy
	t.mu.Unlock()

	if destroy != nil {
		for _, v := range victims {
			destroy(v.typ, v.native)
		}
	}
	return true, nil
}

// walkLocked visits id and its descendants, children first.
func (t *Tracker) walkLocked(id ir.WrapperID, fn func(*entry)) {
	e, ok := t.entries[id]
	if !ok {
		return
	}
	for _, c := range slices.Clone(e.children) {
		t.walkLocked(c, fn)
	}
	fn(e)
}

func (t *Tracker) invalidateLocked(id ir.WrapperID, kind EventKind) {
	e, ok := t.entries[id]
	if !ok {
		return
	}
	for _, c := range slices.Clone(e.children) {
		t.invalidateLocked(c, kind)
	}
	t.detachLocked(e)
	t.forgetLocked(e)
	e.obj.Native = nil
	t.record(Event{Kind: kind, Wrapper: id})
}

func (t *Tracker) forgetLocked(e *entry) {
	if e.native {
		if key, ok := identityOf(e.obj.Native); ok && t.byNative[key] == e.obj.ID {
			delete(t.byNative, key)
		}
	}
	e.keepAlive = nil
	delete(t.entries, e.obj.ID)
}

// KeepAlive retains v on holder under key. Add accumulates, Set keeps a
// single slot, Remove clears the key (v is ignored).
func (t *Tracker) KeepAlive(holder ir.WrapperID, key string, action ir.EdgeAction, v ir.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[holder]
	if !ok {
		return unknownWrapper(holder)
	}
	switch action {
	case ir.ActionRemove:
		if _, held := e.keepAlive[key]; held {
			delete(e.keepAlive, key)
			t.record(Event{Kind: EventKeepAliveDel, Wrapper: holder, Key: key})
		}
		return nil
	case ir.ActionSet:
		if e.keepAlive == nil {
			e.keepAlive = make(map[string][]ir.Value)
		}
		e.keepAlive[key] = []ir.Value{v}
	default:
		if e.keepAlive == nil {
			e.keepAlive = make(map[string][]ir.Value)
		}
		e.keepAlive[key] = append(e.keepAlive[key], v)
	}
	t.record(Event{Kind: EventKeepAlive, Wrapper: holder, Key: key})
	return nil
}

// KeepAliveValues returns the values retained on holder under key.
func (t *Tracker) KeepAliveValues(holder ir.WrapperID, key string) []ir.Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[holder]
	if !ok {
		return nil
	}
	return slices.Clone(e.keepAlive[key])
}

func (t *Tracker) record(ev Event) {
	ev.Seq = t.clock.Next()
	if err := t.journal.Record(ev); err != nil {
		slog.Warn("ownership journal write failed",
			"seq", ev.Seq,
			"kind", ev.Kind,
			"wrapper", ev.Wrapper,
			"error", err,
		)
	}
}

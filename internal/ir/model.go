package ir

import (
	"fmt"
	"strings"
)

// Model is the arena holding every type and overload of a binding.
//
// Relations are id-to-id: an overload names its declaring and implementing
// types by TypeID, a callable lists OverloadIDs. The same overload can be
// reached from its class, its callable and its base-class scope without
// any pointer cycles.
//
// A Model is mutable while it is being compiled and read-only after Freeze.
type Model struct {
	types     map[TypeID]*TypeEntry
	typeOrder []TypeID

	overloads     []*Overload // index == OverloadID
	callables     map[string][]OverloadID
	callableOrder []string

	frozen bool
}

// NewModel creates an empty model seeded with the builtin types.
func NewModel() *Model {
	m := &Model{
		types:     make(map[TypeID]*TypeEntry),
		callables: make(map[string][]OverloadID),
	}
	for _, t := range BuiltinTypes() {
		// builtins never collide
		_ = m.AddType(t)
	}
	return m
}

// CallableName builds the callable key for a name declared on owner.
// Free functions have an empty owner.
func CallableName(owner TypeID, name string) string {
	if owner == "" {
		return name
	}
	return string(owner) + "." + name
}

// ConstructorCallable returns the callable key of a class's constructors:
// the unqualified class name declared on the class, e.g. "ns::Point.Point".
func ConstructorCallable(class TypeID) string {
	name := string(class)
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	return CallableName(class, name)
}

// SplitCallable splits a callable key into owner type and name.
func SplitCallable(callable string) (TypeID, string) {
	if i := strings.LastIndex(callable, "."); i >= 0 {
		return TypeID(callable[:i]), callable[i+1:]
	}
	return "", callable
}

// AddType registers a type entry. Re-registering an id is an error.
func (m *Model) AddType(t TypeEntry) error {
	if m.frozen {
		return fmt.Errorf("add type %q: model is frozen", t.ID)
	}
	if t.ID == "" {
		return fmt.Errorf("add type: empty type id")
	}
	if _, exists := m.types[t.ID]; exists {
		return fmt.Errorf("add type %q: duplicate type id", t.ID)
	}
	entry := t
	m.types[t.ID] = &entry
	m.typeOrder = append(m.typeOrder, t.ID)
	return nil
}

// AddOverload appends an overload to a callable and returns its id.
// The overload's ID and Callable fields are assigned by the arena.
func (m *Model) AddOverload(callable string, ov Overload) (OverloadID, error) {
	if m.frozen {
		return NoOverload, fmt.Errorf("add overload %q: model is frozen", callable)
	}
	if callable == "" {
		return NoOverload, fmt.Errorf("add overload: empty callable name")
	}
	id := OverloadID(len(m.overloads))
	entry := ov
	entry.ID = id
	entry.Callable = callable
	if entry.Name == "" {
		_, entry.Name = SplitCallable(callable)
	}
	if entry.Return == "" {
		entry.Return = TypeVoid
	}
	entry.Args = append([]Argument(nil), ov.Args...)

	m.overloads = append(m.overloads, &entry)
	if _, seen := m.callables[callable]; !seen {
		m.callableOrder = append(m.callableOrder, callable)
	}
	m.callables[callable] = append(m.callables[callable], id)
	return id, nil
}

// Freeze ends the build phase.
func (m *Model) Freeze() {
	m.frozen = true
}

// Frozen reports whether Freeze was called.
func (m *Model) Frozen() bool {
	return m.frozen
}

// Type looks up a type entry by id.
func (m *Model) Type(id TypeID) (*TypeEntry, bool) {
	t, ok := m.types[id]
	return t, ok
}

// Types returns all type entries in registration order.
func (m *Model) Types() []*TypeEntry {
	out := make([]*TypeEntry, 0, len(m.typeOrder))
	for _, id := range m.typeOrder {
		out = append(out, m.types[id])
	}
	return out
}

// Overload returns the overload with the given id, or nil.
func (m *Model) Overload(id OverloadID) *Overload {
	if id < 0 || int(id) >= len(m.overloads) {
		return nil
	}
	return m.overloads[id]
}

// Overloads returns the overload set of a callable in declaration order.
func (m *Model) Overloads(callable string) []*Overload {
	ids := m.callables[callable]
	out := make([]*Overload, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.overloads[id])
	}
	return out
}

// Callables returns callable keys in declaration order.
func (m *Model) Callables() []string {
	return append([]string(nil), m.callableOrder...)
}

// CallablesOf returns the callables declared on a type, in declaration order.
func (m *Model) CallablesOf(owner TypeID) []string {
	var out []string
	for _, c := range m.callableOrder {
		if o, _ := SplitCallable(c); o == owner {
			out = append(out, c)
		}
	}
	return out
}

// IsSubtype reports whether t equals base or derives from it.
func (m *Model) IsSubtype(t, base TypeID) bool {
	seen := make(map[TypeID]bool)
	for cur := t; cur != ""; {
		if cur == base {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		entry, ok := m.types[cur]
		if !ok {
			return false
		}
		cur = entry.Base
	}
	return false
}

// Depth returns the inheritance depth of t (0 for a root type).
func (m *Model) Depth(t TypeID) int {
	depth := 0
	seen := make(map[TypeID]bool)
	for cur := t; ; {
		entry, ok := m.types[cur]
		if !ok || entry.Base == "" || seen[cur] {
			return depth
		}
		seen[cur] = true
		depth++
		cur = entry.Base
	}
}

// LookupEnumerator resolves "Type::Name", "Type.Name" or a bare name against
// the enum type hint.
func (m *Model) LookupEnumerator(expr string, hint TypeID) (TypeID, int64, bool) {
	expr = strings.ReplaceAll(expr, "::", ".")
	if i := strings.LastIndex(expr, "."); i >= 0 {
		owner, name := TypeID(expr[:i]), expr[i+1:]
		if t, ok := m.types[owner]; ok && (t.Kind == KindEnum || t.Kind == KindFlags) {
			if v, ok := t.Enumerator(name); ok {
				return owner, v, true
			}
		}
		expr = name
	}
	if t, ok := m.types[hint]; ok {
		enumType := t
		if t.Kind == KindFlags && t.FlagsOf != "" {
			if et, ok := m.types[t.FlagsOf]; ok {
				enumType = et
			}
		}
		if v, ok := enumType.Enumerator(expr); ok {
			return hint, v, true
		}
	}
	return "", 0, false
}

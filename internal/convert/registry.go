package convert

import (
	"fmt"
	"log/slog"

	"github.com/roach88/crossbind/internal/ir"
)

// ToNativeFunc converts a script value to its native representation.
type ToNativeFunc func(v ir.Value) (any, error)

// FromNativeFunc converts a native value to a script value.
type FromNativeFunc func(n any) (ir.Value, error)

// CheckFunc reports whether a script value is convertible. It must not
// convert or allocate native values.
type CheckFunc func(v ir.Value) bool

// Converter is one registry entry.
type Converter struct {
	Source ir.TypeID
	Target ir.TypeID

	ToNative      ToNativeFunc
	FromNative    FromNativeFunc // nil for implicit entries
	IsConvertible CheckFunc

	Implicit bool
}

type pair struct {
	source, target ir.TypeID
}

// Registry is the process-wide conversion table of one binding.
type Registry struct {
	model *ir.Model

	canonical   map[pair]*Converter
	byTarget    map[ir.TypeID][]*Converter // canonical entries, registration order
	implicit    map[ir.TypeID][]*Converter // implicit chain, registration order
	fromNative  map[ir.TypeID]*Converter
	defaultCtor map[ir.TypeID]func() (any, error)

	sealed bool
}

// New creates an empty registry over a type model.
func New(model *ir.Model) *Registry {
	return &Registry{
		model:       model,
		canonical:   make(map[pair]*Converter),
		byTarget:    make(map[ir.TypeID][]*Converter),
		implicit:    make(map[ir.TypeID][]*Converter),
		fromNative:  make(map[ir.TypeID]*Converter),
		defaultCtor: make(map[ir.TypeID]func() (any, error)),
	}
}

// Model returns the type model the registry was built over.
func (r *Registry) Model() *ir.Model {
	return r.model
}

// RegisterCanonical registers the canonical converter for (source, target).
// The first registration for a pair wins; registering it again leaves
// lookups unchanged. The first canonical entry with a from-native function
// becomes the target's default from-native path.
func (r *Registry) RegisterCanonical(source, target ir.TypeID, toNative ToNativeFunc, fromNative FromNativeFunc, isConvertible CheckFunc) error {
	if r.sealed {
		return fmt.Errorf("register canonical %s -> %s: %w", source, target, ErrSealed)
	}
	if toNative == nil || isConvertible == nil {
		return fmt.Errorf("register canonical %s -> %s: to-native and is-convertible are required", source, target)
	}
	key := pair{source, target}
	if _, exists := r.canonical[key]; exists {
		slog.Debug("canonical converter already registered, keeping first",
			"source", source,
			"target", target,
		)
		return nil
	}
	c := &Converter{
		Source:        source,
		Target:        target,
		ToNative:      toNative,
		FromNative:    fromNative,
		IsConvertible: isConvertible,
	}
	r.canonical[key] = c
	r.byTarget[target] = append(r.byTarget[target], c)
	if fromNative != nil {
		if _, ok := r.fromNative[target]; !ok {
			r.fromNative[target] = c
		}
	}
	return nil
}

// RegisterImplicit appends an implicit conversion from source to target to
// the target's chain.
func (r *Registry) RegisterImplicit(source, target ir.TypeID, check CheckFunc, convert ToNativeFunc) error {
	if r.sealed {
		return fmt.Errorf("register implicit %s -> %s: %w", source, target, ErrSealed)
	}
	if check == nil || convert == nil {
		return fmt.Errorf("register implicit %s -> %s: check and convert are required", source, target)
	}
	r.implicit[target] = append(r.implicit[target], &Converter{
		Source:        source,
		Target:        target,
		ToNative:      convert,
		IsConvertible: check,
		Implicit:      true,
	})
	return nil
}

// RegisterDefaultConstructor sets how a default-constructed native value of
// target is produced, for T() and {} default arguments.
func (r *Registry) RegisterDefaultConstructor(target ir.TypeID, ctor func() (any, error)) error {
	if r.sealed {
		return fmt.Errorf("register default constructor %s: %w", target, ErrSealed)
	}
	r.defaultCtor[target] = ctor
	return nil
}

// Seal ends the load phase.
func (r *Registry) Seal() {
	r.sealed = true
}

// Sealed reports whether Seal was called.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// LookupToNative returns the canonical converter for (source, target).
func (r *Registry) LookupToNative(source, target ir.TypeID) (*Converter, bool) {
	c, ok := r.canonical[pair{source, target}]
	return c, ok
}

// LookupFromNative returns the single default from-native converter of target.
func (r *Registry) LookupFromNative(target ir.TypeID) (*Converter, bool) {
	c, ok := r.fromNative[target]
	return c, ok
}

// Canonical returns the canonical entries targeting a type, in registration order.
func (r *Registry) Canonical(target ir.TypeID) []*Converter {
	return r.byTarget[target]
}

// Implicit returns the implicit chain of a type, in registration order.
func (r *Registry) Implicit(target ir.TypeID) []*Converter {
	return r.implicit[target]
}

// Known reports whether any canonical converter targets the type.
func (r *Registry) Known(target ir.TypeID) bool {
	return len(r.byTarget[target]) > 0
}

// Find returns the converter that accepts v for target: the first
// convertible canonical entry, else the first convertible implicit entry.
func (r *Registry) Find(v ir.Value, target ir.TypeID) (*Converter, bool) {
	for _, c := range r.byTarget[target] {
		if c.IsConvertible(v) {
			return c, true
		}
	}
	for _, c := range r.implicit[target] {
		if c.IsConvertible(v) {
			return c, true
		}
	}
	return nil, false
}

// ExactCheck returns the check accepting exactly the values a canonical
// entry of target accepts.
func (r *Registry) ExactCheck(target ir.TypeID) CheckFunc {
	entries := r.byTarget[target]
	return func(v ir.Value) bool {
		for _, c := range entries {
			if c.IsConvertible(v) {
				return true
			}
		}
		return false
	}
}

// ConvertibleCheck returns the check accepting canonical and implicit
// conversions to target.
func (r *Registry) ConvertibleCheck(target ir.TypeID) CheckFunc {
	return func(v ir.Value) bool {
		_, ok := r.Find(v, target)
		return ok
	}
}

// IsConvertible reports whether v converts to target, including the
// numeric coercion permissive checks allow.
func (r *Registry) IsConvertible(v ir.Value, target ir.TypeID) bool {
	if _, ok := r.Find(v, target); ok {
		return true
	}
	return r.isNumeric(target) && NumericLike(v)
}

// ToNative converts v to the native representation of target. A numeric
// target also accepts any numeric-like value.
func (r *Registry) ToNative(v ir.Value, target ir.TypeID) (any, error) {
	if c, ok := r.Find(v, target); ok {
		return c.ToNative(v)
	}
	if r.isNumeric(target) && NumericLike(v) {
		if entries := r.byTarget[target]; len(entries) > 0 {
			return entries[0].ToNative(v)
		}
	}
	if !r.Known(target) && len(r.implicit[target]) == 0 {
		return nil, scriptError(target, v, "no converter registered")
	}
	return nil, scriptError(target, v, "")
}

// FromNative converts a native value of type target to a script value.
func (r *Registry) FromNative(n any, target ir.TypeID) (ir.Value, error) {
	c, ok := r.fromNative[target]
	if !ok {
		return nil, nativeError(target, n, "no from-native converter registered")
	}
	return c.FromNative(n)
}

// DefaultValue produces a default-constructed native value of target.
func (r *Registry) DefaultValue(target ir.TypeID) (any, error) {
	if ctor, ok := r.defaultCtor[target]; ok {
		return ctor()
	}
	return nil, &ConversionError{Target: target, Got: "default", Reason: "type is not default-constructible"}
}

// NumericKey returns the script-visible numeric identity of a type, or ""
// for non-numeric types. All integer widths share one identity because the
// script layer cannot tell them apart.
func (r *Registry) NumericKey(target ir.TypeID) string {
	if t, ok := r.model.Type(target); ok && t.Kind == ir.KindPrimitive {
		return string(t.Numeric)
	}
	return ""
}

// SoleNumeric reports whether target is the only numeric type among the
// types accepted at one argument position. Only then may the decision tree
// use a permissive check for it.
func (r *Registry) SoleNumeric(target ir.TypeID, siblings []ir.TypeID) bool {
	key := r.NumericKey(target)
	if key == "" {
		return false
	}
	for _, s := range siblings {
		sk := r.NumericKey(s)
		if sk != "" && s != target {
			return false
		}
	}
	return true
}

func (r *Registry) isNumeric(target ir.TypeID) bool {
	return r.NumericKey(target) != ""
}

// NumericLike reports whether v is a number, a boolean or an enumerator.
func NumericLike(v ir.Value) bool {
	switch v.(type) {
	case ir.Int, ir.Float, ir.Bool, ir.Enum:
		return true
	}
	return false
}

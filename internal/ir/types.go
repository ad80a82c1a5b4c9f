package ir

import "fmt"

// TypeID is the stable type-identifier string shared by the registry, the
// decision trees and the call tables, e.g. "int", "Widget" or
// "std::vector<int>". Entities reference each other by id, never by pointer.
type TypeID string

// Well-known type ids.
const (
	TypeVoid    TypeID = "void"
	TypeAny     TypeID = "any" // script value passed through unconverted
	TypeVarargs TypeID = "..."
)

// TypeKind classifies a native type.
type TypeKind string

const (
	KindPrimitive    TypeKind = "primitive"
	KindEnum         TypeKind = "enum"
	KindFlags        TypeKind = "flags"
	KindValue        TypeKind = "value"
	KindObject       TypeKind = "object"
	KindContainer    TypeKind = "container"
	KindSmartPointer TypeKind = "smart_pointer"
	KindCustom       TypeKind = "custom"
	KindVarargs      TypeKind = "varargs"
	KindVoid         TypeKind = "void"
)

// ValidTypeKinds defines allowed type kinds.
var ValidTypeKinds = map[TypeKind]bool{
	KindPrimitive:    true,
	KindEnum:         true,
	KindFlags:        true,
	KindValue:        true,
	KindObject:       true,
	KindContainer:    true,
	KindSmartPointer: true,
	KindCustom:       true,
	KindVarargs:      true,
	KindVoid:         true,
}

// NumericKind is the script-side number shape a primitive maps to.
// Empty for non-numeric types.
type NumericKind string

const (
	NumericNone  NumericKind = ""
	NumericInt   NumericKind = "int"
	NumericFloat NumericKind = "float"
	NumericBool  NumericKind = "bool"
)

// ContainerKind is the script-side shape of a container instantiation.
type ContainerKind string

const (
	ContainerList ContainerKind = "list"
	ContainerSet  ContainerKind = "set"
	ContainerMap  ContainerKind = "map"
	ContainerPair ContainerKind = "pair"
)

// EnumValue is a named enumerator.
type EnumValue struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// TypeEntry describes one native type and its structural flags.
type TypeEntry struct {
	ID       TypeID      `json:"id"`
	Kind     TypeKind    `json:"kind"`
	Numeric  NumericKind `json:"numeric,omitempty"`
	Bits     int         `json:"bits,omitempty"` // integer width, 0 = 64
	Unsigned bool        `json:"unsigned,omitempty"`
	String   bool        `json:"string,omitempty"` // primitive string type

	Base                 TypeID `json:"base,omitempty"`
	ParentTracked        bool   `json:"parent_tracked,omitempty"`
	HasVirtualMethods    bool   `json:"has_virtual_methods,omitempty"`
	HasVirtualDestructor bool   `json:"has_virtual_destructor,omitempty"`

	// Container and smart-pointer instantiations.
	Container      ContainerKind `json:"container,omitempty"`
	Instantiations []TypeID      `json:"instantiations,omitempty"`

	EnumValues []EnumValue `json:"enum_values,omitempty"`
	FlagsOf    TypeID      `json:"flags_of,omitempty"`

	// ImplicitFrom lists source types a value type is implicitly
	// constructible from, in declaration order.
	ImplicitFrom []TypeID `json:"implicit_from,omitempty"`
}

// PointerLike reports whether values of this type are handed across by
// reference to a wrapped native object.
func (t *TypeEntry) PointerLike() bool {
	return t.Kind == KindObject || t.Kind == KindSmartPointer
}

// ValueType reports whether values of this type are copied across.
func (t *TypeEntry) ValueType() bool {
	switch t.Kind {
	case KindValue, KindPrimitive, KindEnum, KindFlags, KindContainer:
		return true
	}
	return false
}

// Wrapped reports whether the script side sees this type as a wrapper object.
func (t *TypeEntry) Wrapped() bool {
	switch t.Kind {
	case KindObject, KindValue, KindSmartPointer:
		return true
	}
	return false
}

// Enumerator looks up an enumerator by name.
func (t *TypeEntry) Enumerator(name string) (int64, bool) {
	for _, ev := range t.EnumValues {
		if ev.Name == name {
			return ev.Value, true
		}
	}
	return 0, false
}

// Ownership is an explicit per-argument ownership directive.
type Ownership string

const (
	OwnershipDefault    Ownership = ""
	OwnershipToNative   Ownership = "native"
	OwnershipToScript   Ownership = "script"
	OwnershipInvalidate Ownership = "invalidate"
)

// EdgeAction is the action of an ownership edge or keep-alive directive.
type EdgeAction string

const (
	ActionAdd    EdgeAction = "add"
	ActionRemove EdgeAction = "remove"
	ActionSet    EdgeAction = "set"
)

// Role names a participant of a call.
//
//	-1   = self
//	 0   = return value
//	1..n = arguments
type Role int

const (
	RoleSelf   Role = -1
	RoleReturn Role = 0
)

// ArgRole returns the role of the n-th (1-based) argument.
func ArgRole(n int) Role {
	return Role(n)
}

// IsArg reports whether the role names an argument.
func (r Role) IsArg() bool {
	return r > 0
}

// ArgIndex returns the 0-based argument index of an argument role.
func (r Role) ArgIndex() int {
	return int(r) - 1
}

func (r Role) String() string {
	switch {
	case r == RoleSelf:
		return "self"
	case r == RoleReturn:
		return "return"
	case r > 0:
		return fmt.Sprintf("arg%d", int(r))
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// OwnershipEdge is an owner/owned relationship to establish or drop after a call.
type OwnershipEdge struct {
	Owner  Role       `json:"owner"`
	Owned  Role       `json:"owned"`
	Action EdgeAction `json:"action"`
}

func (e OwnershipEdge) String() string {
	return fmt.Sprintf("%s(%s -> %s)", e.Action, e.Owner, e.Owned)
}

// RefCountDirective keeps a script value alive on self after a call.
type RefCountDirective struct {
	Action EdgeAction `json:"action"`
	Key    string     `json:"key,omitempty"` // empty: minimal signature + argument index
}

// OwnerDirective makes the annotated role owned by Owner (Add) or
// releases it from its current owner (Remove).
type OwnerDirective struct {
	Action EdgeAction `json:"action"`
	Owner  Role       `json:"owner"`
}

// Argument is one declared native parameter.
type Argument struct {
	Name         string             `json:"name"`
	Type         TypeID             `json:"type"`
	ModifiedType TypeID             `json:"modified_type,omitempty"`
	Default      string             `json:"default,omitempty"` // expression, empty if absent
	Removed      bool               `json:"removed,omitempty"`
	Ownership    Ownership          `json:"ownership,omitempty"`
	RefCount     *RefCountDirective `json:"ref_count,omitempty"`
	Owner        *OwnerDirective    `json:"owner,omitempty"`
}

// HasDefault reports whether the argument has a default-value expression.
func (a Argument) HasDefault() bool {
	return a.Default != ""
}

// EffectiveType returns the modified type if one is set.
func (a Argument) EffectiveType() TypeID {
	if a.ModifiedType != "" {
		return a.ModifiedType
	}
	return a.Type
}

// FunctionKind distinguishes how the receiver of a native call is obtained.
type FunctionKind string

const (
	FuncFunction    FunctionKind = "function"
	FuncStatic      FunctionKind = "static"
	FuncMethod      FunctionKind = "method"
	FuncConstructor FunctionKind = "constructor"
	FuncOperator    FunctionKind = "operator"
)

// ValidFunctionKinds defines allowed function kinds.
var ValidFunctionKinds = map[FunctionKind]bool{
	FuncFunction:    true,
	FuncStatic:      true,
	FuncMethod:      true,
	FuncConstructor: true,
	FuncOperator:    true,
}

// OverloadID indexes an overload in the model arena.
type OverloadID int

// NoOverload is the zero-match sentinel.
const NoOverload OverloadID = -1

// Overload is one native signature of a callable.
type Overload struct {
	ID       OverloadID   `json:"id"`
	Callable string       `json:"callable"`
	Name     string       `json:"name"`
	Kind     FunctionKind `json:"kind"`
	Reverse  bool         `json:"reverse,omitempty"` // reverse operator, e.g. int + Widget

	Args []Argument `json:"args"`

	Return           TypeID             `json:"return"`
	ModifiedReturn   TypeID             `json:"modified_return,omitempty"`
	ReturnConversion string             `json:"return_conversion,omitempty"`
	ReturnOwnership  Ownership          `json:"return_ownership,omitempty"`
	ReturnOwner      *OwnerDirective    `json:"return_owner,omitempty"`
	ReturnRefCount   *RefCountDirective `json:"return_ref_count,omitempty"`

	// Non-owning references into the type model.
	DeclaringType    TypeID `json:"declaring_type,omitempty"`
	ImplementingType TypeID `json:"implementing_type,omitempty"`

	Virtual      bool `json:"virtual,omitempty"`
	Abstract     bool `json:"abstract,omitempty"`
	Accessor     bool `json:"accessor,omitempty"`
	AllowThreads bool `json:"allow_threads,omitempty"`
	Deprecated   bool `json:"deprecated,omitempty"`
}

// EffectiveReturn returns the modified return type if one is set.
func (o *Overload) EffectiveReturn() TypeID {
	if o.ModifiedReturn != "" {
		return o.ModifiedReturn
	}
	if o.Return == "" {
		return TypeVoid
	}
	return o.Return
}

// IsVoid reports whether the overload returns nothing.
func (o *Overload) IsVoid() bool {
	return o.EffectiveReturn() == TypeVoid
}

// HasSelf reports whether the native call needs a receiver.
func (o *Overload) HasSelf() bool {
	return o.Kind == FuncMethod || o.Kind == FuncOperator
}

// IsOperator reports whether the overload is an operator overload.
func (o *Overload) IsOperator() bool {
	return o.Kind == FuncOperator
}

// VisibleArgs returns the declared indexes of arguments the script side passes.
func (o *Overload) VisibleArgs() []int {
	idx := make([]int, 0, len(o.Args))
	for i, a := range o.Args {
		if !a.Removed {
			idx = append(idx, i)
		}
	}
	return idx
}

// IsVarargs reports whether the last visible argument is a variadic tail.
func (o *Overload) IsVarargs() bool {
	vis := o.VisibleArgs()
	return len(vis) > 0 && o.Args[vis[len(vis)-1]].Type == TypeVarargs
}

// MinArgs returns the minimum number of actual script arguments.
func (o *Overload) MinArgs() int {
	vis := o.VisibleArgs()
	n := len(vis)
	if o.IsVarargs() {
		n--
	}
	for n > 0 && o.Args[vis[n-1]].HasDefault() {
		n--
	}
	return n
}

// MaxArgs returns the maximum number of actual script arguments, or -1 when
// a variadic tail makes it unbounded.
func (o *Overload) MaxArgs() int {
	if o.IsVarargs() {
		return -1
	}
	return len(o.VisibleArgs())
}

// AcceptsCount reports whether n actual arguments fit the overload's arity.
func (o *Overload) AcceptsCount(n int) bool {
	if n < o.MinArgs() {
		return false
	}
	max := o.MaxArgs()
	return max < 0 || n <= max
}

// VisibleArg returns the argument at script position pos.
func (o *Overload) VisibleArg(pos int) (Argument, bool) {
	vis := o.VisibleArgs()
	if pos < 0 {
		return Argument{}, false
	}
	if pos >= len(vis) {
		if o.IsVarargs() {
			return o.Args[vis[len(vis)-1]], true
		}
		return Argument{}, false
	}
	return o.Args[vis[pos]], true
}

// DeclaredIndex maps a script position to the declared argument index.
func (o *Overload) DeclaredIndex(pos int) int {
	vis := o.VisibleArgs()
	if pos < 0 || len(vis) == 0 {
		return -1
	}
	if pos >= len(vis) {
		if o.IsVarargs() {
			return vis[len(vis)-1]
		}
		return -1
	}
	return vis[pos]
}

// ArgPosition returns the script position of the named visible argument.
func (o *Overload) ArgPosition(name string) (int, bool) {
	for pos, i := range o.VisibleArgs() {
		if o.Args[i].Name == name && o.Args[i].Type != TypeVarargs {
			return pos, true
		}
	}
	return 0, false
}

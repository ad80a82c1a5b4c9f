package compiler

import (
	"fmt"

	"github.com/roach88/crossbind/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// Type model errors (E100-E109)
	ErrUnknownType        = "E100" // reference to an undeclared type
	ErrInvalidTypeKind    = "E101" // invalid type kind
	ErrEnumNoValues       = "E102" // enum or flags without enumerators
	ErrContainerNoArgs    = "E103" // container without instantiation types
	ErrInheritanceCycle   = "E104" // base-class chain loops
	ErrInvalidBase        = "E105" // base of a different type kind
	ErrInvalidNumericKind = "E106" // numeric kind on a non-primitive

	// Overload errors (E110-E119)
	ErrInvalidFunctionKind = "E110" // invalid function kind
	ErrDuplicateSignature  = "E111" // two overloads with one minimal signature
	ErrRemovedNoDefault    = "E112" // removed argument without a default
	ErrInvalidRole         = "E113" // directive names a role the call lacks
	ErrInvalidDefault      = "E114" // default expression does not evaluate
	ErrUnknownOwner        = "E115" // method declared on an undeclared class
	ErrVarargsNotLast      = "E116" // variadic argument before the end
	ErrAbstractNotVirtual  = "E117" // abstract overload not marked virtual
	ErrInvalidDirective    = "E118" // invalid ownership or edge action
	ErrReverseNotOperator  = "E119" // reverse flag on a non-operator
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled model for semantic errors.
// Returns all errors found (does not fail-fast).
func Validate(m *ir.Model) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateTypes(m)...)
	for _, callable := range m.Callables() {
		errs = append(errs, validateCallable(m, callable)...)
	}
	return errs
}

func validateTypes(m *ir.Model) []ValidationError {
	var errs []ValidationError
	for _, t := range m.Types() {
		field := "type." + string(t.ID)

		// E101: kind
		if !ir.ValidTypeKinds[t.Kind] {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("invalid type kind %q", t.Kind),
				Code:    ErrInvalidTypeKind,
			})
		}

		// E106: numeric kind only on primitives
		if t.Numeric != ir.NumericNone && t.Kind != ir.KindPrimitive {
			errs = append(errs, ValidationError{
				Field:   field + ".numeric",
				Message: fmt.Sprintf("numeric kind %q on a %s type", t.Numeric, t.Kind),
				Code:    ErrInvalidNumericKind,
			})
		}

		switch t.Kind {
		case ir.KindEnum:
			// E102
			if len(t.EnumValues) == 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".values",
					Message: "enum type requires at least one enumerator",
					Code:    ErrEnumNoValues,
				})
			}
		case ir.KindFlags:
			if len(t.EnumValues) == 0 && t.FlagsOf == "" {
				errs = append(errs, ValidationError{
					Field:   field + ".flags_of",
					Message: "flags type requires enumerators or flags_of",
					Code:    ErrEnumNoValues,
				})
			}
		case ir.KindContainer, ir.KindSmartPointer:
			// E103
			if len(t.Instantiations) == 0 {
				errs = append(errs, ValidationError{
					Field:   field + ".of",
					Message: fmt.Sprintf("%s type requires instantiation types", t.Kind),
					Code:    ErrContainerNoArgs,
				})
			}
		}

		refs := map[string][]ir.TypeID{
			"base":          {t.Base},
			"flags_of":      {t.FlagsOf},
			"of":            t.Instantiations,
			"implicit_from": t.ImplicitFrom,
		}
		for _, name := range []string{"base", "flags_of", "of", "implicit_from"} {
			for _, ref := range refs[name] {
				errs = append(errs, checkTypeRef(m, field+"."+name, ref)...)
			}
		}

		// E105: a class derives from a class of the same kind
		if base, ok := m.Type(t.Base); ok && t.Base != "" && base.Kind != t.Kind {
			errs = append(errs, ValidationError{
				Field:   field + ".base",
				Message: fmt.Sprintf("%s type %s cannot derive from %s type %s", t.Kind, t.ID, base.Kind, base.ID),
				Code:    ErrInvalidBase,
			})
		}
	}

	// E104
	for _, c := range inheritanceCycles(m) {
		errs = append(errs, ValidationError{
			Field:   "type." + c.Path[0] + ".base",
			Message: c.Message,
			Code:    ErrInheritanceCycle,
		})
	}
	return errs
}

func checkTypeRef(m *ir.Model, field string, ref ir.TypeID) []ValidationError {
	if ref == "" {
		return nil
	}
	if _, ok := m.Type(ref); ok {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("unknown type %q", ref),
		Code:    ErrUnknownType,
	}}
}

func validateCallable(m *ir.Model, callable string) []ValidationError {
	var errs []ValidationError

	owner, _ := ir.SplitCallable(callable)
	if owner != "" {
		// E115
		if _, ok := m.Type(owner); !ok {
			errs = append(errs, ValidationError{
				Field:   "function." + callable,
				Message: fmt.Sprintf("callable declared on unknown class %q", owner),
				Code:    ErrUnknownOwner,
			})
		}
	}

	seen := make(map[string]int)
	for i, ov := range m.Overloads(callable) {
		field := fmt.Sprintf("function.%s[%d]", callable, i)

		// E111
		sig := ir.MinimalSignature(ov)
		if prev, dup := seen[sig]; dup {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate signature %s (first declared at [%d])", sig, prev),
				Code:    ErrDuplicateSignature,
			})
		} else {
			seen[sig] = i
		}

		errs = append(errs, validateOverload(m, ov, field)...)
	}
	return errs
}

func validateOverload(m *ir.Model, ov *ir.Overload, field string) []ValidationError {
	var errs []ValidationError

	// E110
	if !ir.ValidFunctionKinds[ov.Kind] {
		errs = append(errs, ValidationError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("invalid function kind %q", ov.Kind),
			Code:    ErrInvalidFunctionKind,
		})
	}
	// E117
	if ov.Abstract && !ov.Virtual {
		errs = append(errs, ValidationError{
			Field:   field + ".abstract",
			Message: "abstract overload must be virtual",
			Code:    ErrAbstractNotVirtual,
		})
	}
	// E119
	if ov.Reverse && !ov.IsOperator() {
		errs = append(errs, ValidationError{
			Field:   field + ".reverse",
			Message: "only operators have reverse overloads",
			Code:    ErrReverseNotOperator,
		})
	}

	for _, ref := range []struct {
		name string
		id   ir.TypeID
	}{
		{"return", ov.Return},
		{"modified_return", ov.ModifiedReturn},
		{"declaring_type", ov.DeclaringType},
		{"implementing_type", ov.ImplementingType},
	} {
		errs = append(errs, checkTypeRef(m, field+"."+ref.name, ref.id)...)
	}

	errs = append(errs, validateDirectives(ov, field, ir.RoleReturn, ov.ReturnOwnership, ov.ReturnOwner, ov.ReturnRefCount)...)

	for i, a := range ov.Args {
		argField := fmt.Sprintf("%s.args[%d]", field, i)
		errs = append(errs, checkTypeRef(m, argField+".type", a.Type)...)
		errs = append(errs, checkTypeRef(m, argField+".modified_type", a.ModifiedType)...)

		// E116
		if a.Type == ir.TypeVarargs && i != len(ov.Args)-1 {
			errs = append(errs, ValidationError{
				Field:   argField,
				Message: "variadic argument must be last",
				Code:    ErrVarargsNotLast,
			})
		}
		// E112
		if a.Removed && !a.HasDefault() {
			errs = append(errs, ValidationError{
				Field:   argField + ".removed",
				Message: fmt.Sprintf("removed argument %q needs a default value", a.Name),
				Code:    ErrRemovedNoDefault,
			})
		}
		// E114
		if a.HasDefault() {
			if _, ok := m.Type(a.EffectiveType()); ok {
				if _, err := m.ParseDefault(a.Default, a.EffectiveType()); err != nil {
					errs = append(errs, ValidationError{
						Field:   argField + ".default",
						Message: err.Error(),
						Code:    ErrInvalidDefault,
					})
				}
			}
		}

		errs = append(errs, validateDirectives(ov, argField, ir.ArgRole(i+1), a.Ownership, a.Owner, a.RefCount)...)
	}
	return errs
}

// validateDirectives checks the ownership directives attached to one role.
func validateDirectives(ov *ir.Overload, field string, role ir.Role, own ir.Ownership, owner *ir.OwnerDirective, rc *ir.RefCountDirective) []ValidationError {
	var errs []ValidationError

	switch own {
	case ir.OwnershipDefault, ir.OwnershipToNative, ir.OwnershipToScript, ir.OwnershipInvalidate:
	default:
		errs = append(errs, ValidationError{
			Field:   field + ".ownership",
			Message: fmt.Sprintf("invalid ownership %q", own),
			Code:    ErrInvalidDirective,
		})
	}

	if role == ir.RoleReturn && ov.IsVoid() && (own != ir.OwnershipDefault || owner != nil || rc != nil) {
		errs = append(errs, ValidationError{
			Field:   field + ".return_ownership",
			Message: "directive on the return value of a void overload",
			Code:    ErrInvalidRole,
		})
	}

	if owner != nil {
		if owner.Action != ir.ActionAdd && owner.Action != ir.ActionRemove {
			errs = append(errs, ValidationError{
				Field:   field + ".owner.action",
				Message: fmt.Sprintf("invalid owner action %q", owner.Action),
				Code:    ErrInvalidDirective,
			})
		}
		if msg := checkRole(ov, owner.Owner); msg != "" {
			errs = append(errs, ValidationError{
				Field:   field + ".owner.owner",
				Message: msg,
				Code:    ErrInvalidRole,
			})
		}
	}

	if rc != nil {
		switch rc.Action {
		case ir.ActionAdd, ir.ActionRemove, ir.ActionSet:
		default:
			errs = append(errs, ValidationError{
				Field:   field + ".ref_count.action",
				Message: fmt.Sprintf("invalid keep-alive action %q", rc.Action),
				Code:    ErrInvalidDirective,
			})
		}
		if !ov.HasSelf() && ov.Kind != ir.FuncConstructor {
			errs = append(errs, ValidationError{
				Field:   field + ".ref_count",
				Message: "keep-alive needs a receiver to hold the reference",
				Code:    ErrInvalidRole,
			})
		}
	}
	return errs
}

// checkRole returns a message when role does not exist in calls of ov.
func checkRole(ov *ir.Overload, role ir.Role) string {
	switch {
	case role == ir.RoleSelf:
		if !ov.HasSelf() && ov.Kind != ir.FuncConstructor {
			return fmt.Sprintf("%s overload has no self", ov.Kind)
		}
	case role == ir.RoleReturn:
		if ov.IsVoid() && ov.Kind != ir.FuncConstructor {
			return "overload returns void"
		}
	case role.IsArg():
		if role.ArgIndex() >= len(ov.Args) {
			return fmt.Sprintf("%s out of range, overload has %d arguments", role, len(ov.Args))
		}
	default:
		return fmt.Sprintf("invalid role %s", role)
	}
	return ""
}

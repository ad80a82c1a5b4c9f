package compiler

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/crossbind/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// Compile builds a model from a typesystem description. Uses the CUE SDK's
// Go API directly (not a CLI subprocess).
//
//	type: Widget: {kind: "object", base: "Object", parent_tracked: true}
//	function: "Widget.resize": [{args: [{name: "w", type: "int"}]}]
//
// The input is unified with the embedded schema first, so unknown fields
// and malformed directives fail with a source position. The returned model
// is not frozen; semantic checks are left to Validate.
func Compile(v cue.Value) (*ir.Model, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v = schema.Unify(v)
	if err := v.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	m := ir.NewModel()
	if err := compileTypes(m, v.LookupPath(cue.MakePath(cue.Str("type")))); err != nil {
		return nil, err
	}
	if err := compileFunctions(m, v.LookupPath(cue.MakePath(cue.Str("function")))); err != nil {
		return nil, err
	}
	return m, nil
}

// CompileString compiles CUE source text. filename is used in positions.
func CompileString(src, filename string) (*ir.Model, error) {
	v := cuecontext.New().CompileString(src, cue.Filename(filename))
	return Compile(v)
}

func compileTypes(m *ir.Model, v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		t, err := compileType(ir.TypeID(iter.Selector().Unquoted()), iter.Value())
		if err != nil {
			return err
		}
		if err := m.AddType(t); err != nil {
			return &CompileError{Field: "type." + string(t.ID), Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}
	return nil
}

func compileType(id ir.TypeID, v cue.Value) (ir.TypeEntry, error) {
	t := ir.TypeEntry{ID: id}
	field := "type." + string(id)

	kind, err := optString(v, "kind")
	if err != nil {
		return t, err
	}
	t.Kind = ir.TypeKind(kind)
	numeric, err := optString(v, "numeric")
	if err != nil {
		return t, err
	}
	t.Numeric = ir.NumericKind(numeric)

	bits, err := optInt(v, "bits")
	if err != nil {
		return t, err
	}
	t.Bits = int(bits)

	for name, dst := range map[string]*bool{
		"unsigned":           &t.Unsigned,
		"string":             &t.String,
		"parent_tracked":     &t.ParentTracked,
		"virtual_methods":    &t.HasVirtualMethods,
		"virtual_destructor": &t.HasVirtualDestructor,
	} {
		if *dst, err = optBool(v, name); err != nil {
			return t, err
		}
	}

	base, err := optString(v, "base")
	if err != nil {
		return t, err
	}
	t.Base = ir.TypeID(base)
	container, err := optString(v, "container")
	if err != nil {
		return t, err
	}
	t.Container = ir.ContainerKind(container)
	flagsOf, err := optString(v, "flags_of")
	if err != nil {
		return t, err
	}
	t.FlagsOf = ir.TypeID(flagsOf)

	if t.Instantiations, err = optTypeList(v, "of"); err != nil {
		return t, err
	}
	if t.ImplicitFrom, err = optTypeList(v, "implicit_from"); err != nil {
		return t, err
	}

	values := v.LookupPath(cue.MakePath(cue.Str("values")))
	if values.Exists() {
		iter, err := values.Fields()
		if err != nil {
			return t, formatCUEError(err)
		}
		for iter.Next() {
			n, err := iter.Value().Int64()
			if err != nil {
				return t, &CompileError{Field: field + ".values." + iter.Selector().Unquoted(), Message: "enumerator value must be an integer", Pos: iter.Value().Pos()}
			}
			t.EnumValues = append(t.EnumValues, ir.EnumValue{Name: iter.Selector().Unquoted(), Value: n})
		}
	}
	return t, nil
}

func compileFunctions(m *ir.Model, v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		callable := iter.Selector().Unquoted()
		list, err := iter.Value().List()
		if err != nil {
			return formatCUEError(err)
		}
		n := 0
		for list.Next() {
			ov, err := compileOverload(callable, n, list.Value())
			if err != nil {
				return err
			}
			if _, err := m.AddOverload(callable, ov); err != nil {
				return &CompileError{Field: "function." + callable, Message: err.Error(), Pos: list.Value().Pos()}
			}
			n++
		}
		if n == 0 {
			return &CompileError{
				Field:   "function." + callable,
				Message: "at least one overload is required",
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return nil
}

func compileOverload(callable string, index int, v cue.Value) (ir.Overload, error) {
	ov := ir.Overload{}
	field := fmt.Sprintf("function.%s[%d]", callable, index)

	strs := []struct {
		name string
		dst  *string
	}{
		{"name", &ov.Name},
		{"return_conversion", &ov.ReturnConversion},
	}
	for _, s := range strs {
		val, err := optString(v, s.name)
		if err != nil {
			return ov, err
		}
		*s.dst = val
	}

	types := []struct {
		name string
		dst  *ir.TypeID
	}{
		{"return", &ov.Return},
		{"modified_return", &ov.ModifiedReturn},
		{"declaring_type", &ov.DeclaringType},
		{"implementing_type", &ov.ImplementingType},
	}
	for _, s := range types {
		val, err := optString(v, s.name)
		if err != nil {
			return ov, err
		}
		*s.dst = ir.TypeID(val)
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"reverse", &ov.Reverse},
		{"virtual", &ov.Virtual},
		{"abstract", &ov.Abstract},
		{"accessor", &ov.Accessor},
		{"allow_threads", &ov.AllowThreads},
		{"deprecated", &ov.Deprecated},
	}
	for _, s := range bools {
		val, err := optBool(v, s.name)
		if err != nil {
			return ov, err
		}
		*s.dst = val
	}

	kind, err := optString(v, "kind")
	if err != nil {
		return ov, err
	}
	ov.Kind = ir.FunctionKind(kind)
	if ov.Kind == "" {
		ov.Kind = inferKind(callable)
	}

	own, err := optString(v, "return_ownership")
	if err != nil {
		return ov, err
	}
	ov.ReturnOwnership = ir.Ownership(own)
	if ov.ReturnOwner, err = compileOwner(v.LookupPath(cue.MakePath(cue.Str("return_owner"))), field+".return_owner"); err != nil {
		return ov, err
	}
	if ov.ReturnRefCount, err = compileRefCount(v.LookupPath(cue.MakePath(cue.Str("return_ref_count"))), field+".return_ref_count"); err != nil {
		return ov, err
	}

	args := v.LookupPath(cue.MakePath(cue.Str("args")))
	if args.Exists() {
		iter, err := args.List()
		if err != nil {
			return ov, formatCUEError(err)
		}
		for i := 0; iter.Next(); i++ {
			a, err := compileArgument(iter.Value(), fmt.Sprintf("%s.args[%d]", field, i))
			if err != nil {
				return ov, err
			}
			ov.Args = append(ov.Args, a)
		}
	}
	return ov, nil
}

// inferKind derives the function kind from the callable key when the
// description leaves it out.
func inferKind(callable string) ir.FunctionKind {
	owner, name := ir.SplitCallable(callable)
	switch {
	case owner == "":
		return ir.FuncFunction
	case callable == ir.ConstructorCallable(owner):
		return ir.FuncConstructor
	case strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__"):
		return ir.FuncOperator
	}
	return ir.FuncMethod
}

func compileArgument(v cue.Value, field string) (ir.Argument, error) {
	var a ir.Argument
	var err error

	if a.Name, err = optString(v, "name"); err != nil {
		return a, err
	}
	typ, err := optString(v, "type")
	if err != nil {
		return a, err
	}
	a.Type = ir.TypeID(typ)
	modified, err := optString(v, "modified_type")
	if err != nil {
		return a, err
	}
	a.ModifiedType = ir.TypeID(modified)
	if a.Removed, err = optBool(v, "removed"); err != nil {
		return a, err
	}
	own, err := optString(v, "ownership")
	if err != nil {
		return a, err
	}
	a.Ownership = ir.Ownership(own)

	if def := v.LookupPath(cue.MakePath(cue.Str("default"))); def.Exists() {
		if a.Default, err = defaultExpr(def); err != nil {
			return a, &CompileError{Field: field + ".default", Message: err.Error(), Pos: def.Pos()}
		}
	}
	if a.Owner, err = compileOwner(v.LookupPath(cue.MakePath(cue.Str("owner"))), field+".owner"); err != nil {
		return a, err
	}
	if a.RefCount, err = compileRefCount(v.LookupPath(cue.MakePath(cue.Str("ref_count"))), field+".ref_count"); err != nil {
		return a, err
	}
	return a, nil
}

// defaultExpr renders a default value as the native expression text the
// model stores. Strings are taken verbatim: "nullptr", "Color::Red", "{}".
func defaultExpr(v cue.Value) (string, error) {
	switch v.Kind() {
	case cue.StringKind:
		return v.String()
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case cue.FloatKind:
		f, err := v.Float64()
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	}
	return "", fmt.Errorf("default must be a concrete string, number or bool, got %v", v.IncompleteKind())
}

func compileOwner(v cue.Value, field string) (*ir.OwnerDirective, error) {
	if !v.Exists() {
		return nil, nil
	}
	action, err := optString(v, "action")
	if err != nil {
		return nil, err
	}
	if action == "" {
		action = string(ir.ActionAdd)
	}
	role, err := optString(v, "owner")
	if err != nil {
		return nil, err
	}
	r, err := ParseRole(role)
	if err != nil {
		return nil, &CompileError{Field: field + ".owner", Message: err.Error(), Pos: v.Pos()}
	}
	return &ir.OwnerDirective{Action: ir.EdgeAction(action), Owner: r}, nil
}

func compileRefCount(v cue.Value, field string) (*ir.RefCountDirective, error) {
	if !v.Exists() {
		return nil, nil
	}
	action, err := optString(v, "action")
	if err != nil {
		return nil, err
	}
	if action == "" {
		action = string(ir.ActionAdd)
	}
	key, err := optString(v, "key")
	if err != nil {
		return nil, err
	}
	return &ir.RefCountDirective{Action: ir.EdgeAction(action), Key: key}, nil
}

// ParseRole parses "self", "return" or "argN" (1-based).
func ParseRole(s string) (ir.Role, error) {
	switch s {
	case "self":
		return ir.RoleSelf, nil
	case "return":
		return ir.RoleReturn, nil
	}
	if n, ok := strings.CutPrefix(s, "arg"); ok {
		if i, err := strconv.Atoi(n); err == nil && i > 0 {
			return ir.ArgRole(i), nil
		}
	}
	return 0, fmt.Errorf("invalid role %q, expected self, return or argN", s)
}

func optString(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optBool(v cue.Value, name string) (bool, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() {
		return false, nil
	}
	b, err := f.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func optInt(v cue.Value, name string) (int64, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() {
		return 0, nil
	}
	n, err := f.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optTypeList(v cue.Value, name string) ([]ir.TypeID, error) {
	f := v.LookupPath(cue.MakePath(cue.Str(name)))
	if !f.Exists() {
		return nil, nil
	}
	iter, err := f.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []ir.TypeID
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, ir.TypeID(s))
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/crossbind/internal/ir"
	"github.com/roach88/crossbind/internal/ownership"
)

// Call is one script-side invocation.
type Call struct {
	Self    ir.Value // receiver for methods and operators
	Args    []ir.Value
	Kwargs  map[string]ir.Value
	Reverse bool // reverse operator call, e.g. 2 + point
}

// Call dispatches c to the matching overload. The script lock is taken
// unless ctx already holds it.
func (en *Entry) Call(ctx context.Context, c Call) (ir.Value, error) {
	ctx, release := en.e.lock.Acquire(ctx)
	defer release()

	args, id, err := en.resolve(c)
	if err != nil {
		return nil, err
	}
	b := en.overloads[id]
	if b.ov.Deprecated {
		slog.Warn("calling deprecated overload", "signature", b.minimal)
	}

	call, err := en.convertArgs(b, c.Self, args)
	if err != nil {
		return nil, err
	}
	result, err := en.invoke(ctx, b, call)
	if err != nil {
		return nil, err
	}
	ret, self, err := en.convertReturn(b, result, c.Self)
	if err != nil {
		return nil, err
	}

	site := ownership.CallSite{Self: self, Args: siteArgs(b.ov, args), Return: ret}
	if err := en.e.tracker.Apply(b.plan, site); err != nil {
		return nil, runtimeError(en.Callable, err, "ownership update failed: %v", err)
	}
	return ret, nil
}

// Select resolves c to an overload without calling it.
func (en *Entry) Select(c Call) (ir.OverloadID, error) {
	_, id, err := en.resolve(c)
	return id, err
}

func (en *Entry) resolve(c Call) ([]ir.Value, ir.OverloadID, error) {
	if len(c.Kwargs) == 0 {
		if id, ok := en.tree.Select(c.Args, c.Reverse); ok {
			return c.Args, id, nil
		}
		return nil, ir.NoOverload, en.noMatch(c)
	}

	// Parameter names differ between overloads, so keywords are resolved
	// against each candidate in declaration order. A candidate is accepted
	// when the tree selects it for its own resolved arguments.
	var kwErr error
	viable := 0
	for _, cand := range en.tree.Candidates {
		if cand.Reverse != c.Reverse {
			continue
		}
		args, err := resolveKeywords(en.overloads[cand.ID].ov, c.Args, c.Kwargs)
		if err != nil {
			if kwErr == nil {
				kwErr = err
			}
			continue
		}
		viable++
		if id, ok := en.tree.Select(args, c.Reverse); ok && id == cand.ID {
			return args, id, nil
		}
	}
	if viable == 0 && kwErr != nil {
		return nil, ir.NoOverload, kwErr
	}
	return nil, ir.NoOverload, en.noMatch(c)
}

// resolveKeywords places keyword arguments at their parameter positions.
// Skipped positions become Missing and must be covered by defaults.
func resolveKeywords(ov *ir.Overload, positional []ir.Value, kwargs map[string]ir.Value) ([]ir.Value, error) {
	out := append([]ir.Value(nil), positional...)
	for _, name := range ir.Dict(kwargs).SortedKeys() {
		pos, ok := ov.ArgPosition(name)
		if !ok {
			return nil, typeError(ov.Callable, "unexpected keyword argument '%s'", name)
		}
		if pos < len(positional) {
			return nil, typeError(ov.Callable, "got multiple values for argument '%s'", name)
		}
		for len(out) <= pos {
			out = append(out, ir.Missing{})
		}
		out[pos] = kwargs[name]
	}
	return out, nil
}

func (en *Entry) noMatch(c Call) *ScriptError {
	kind := KindNoMatch
	if c.Reverse {
		kind = KindNotImplemented
	}
	return &ScriptError{
		Kind:       kind,
		Callable:   en.Callable,
		Message:    "arguments did not match any overloaded call: " + describeArgs(c.Args, c.Kwargs),
		Signatures: en.tree.CandidateSignatures(),
	}
}

// convertArgs converts the actual arguments for the selected overload.
// A failure here is final: the branch was already chosen.
func (en *Entry) convertArgs(b *boundOverload, self ir.Value, args []ir.Value) (*NativeCall, error) {
	reg := en.e.reg
	call := &NativeCall{Overload: b.ov, Args: make([]any, 0, len(b.ov.Args))}

	if b.ov.HasSelf() {
		if o, ok := self.(*ir.Object); !ok || o == nil {
			return nil, typeError(en.Callable, "needs a %s receiver, got %s", b.selfType, ir.TypeName(self))
		}
		n, err := reg.ToNative(self, b.selfType)
		if err != nil {
			return nil, typeError(en.Callable, "receiver: %v", err)
		}
		call.Self = n
	}

	pos := 0
	for i, a := range b.ov.Args {
		switch {
		case a.Type == ir.TypeVarargs:
			for ; pos < len(args); pos++ {
				call.Args = append(call.Args, args[pos])
			}
			continue
		case a.Removed:
			n, err := en.defaultNative(b, i)
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, n)
			continue
		}

		var (
			n   any
			err error
		)
		if pos < len(args) && !isMissing(args[pos]) {
			n, err = reg.ToNative(args[pos], a.EffectiveType())
			if err != nil {
				err = typeError(en.Callable, "argument %d (%s): %v", pos+1, a.Name, err)
			}
		} else {
			n, err = en.defaultNative(b, i)
		}
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, n)
		pos++
	}
	return call, nil
}

func isMissing(v ir.Value) bool {
	_, ok := v.(ir.Missing)
	return ok
}

func (en *Entry) defaultNative(b *boundOverload, i int) (any, error) {
	a := b.ov.Args[i]
	var dv *ir.DefaultValue
	if i < len(b.defaults) {
		dv = b.defaults[i]
	}
	if dv == nil {
		return nil, typeError(en.Callable, "missing required argument %d (%s)", i+1, a.Name)
	}
	var (
		n   any
		err error
	)
	switch dv.Kind {
	case ir.DefaultConstruct:
		n, err = en.e.reg.DefaultValue(dv.Type)
	case ir.DefaultNull:
		return nil, nil
	default:
		n, err = en.e.reg.ToNative(dv.Value, dv.Type)
	}
	if err != nil {
		return nil, typeError(en.Callable, "default of argument %d (%s): %v", i+1, a.Name, err)
	}
	return n, nil
}

// invoke runs the native implementation. Errors and panics are mapped to
// NativeException here and nowhere else.
func (en *Entry) invoke(ctx context.Context, b *boundOverload, call *NativeCall) (result any, err error) {
	if b.ov.AllowThreads {
		var reacquire func()
		ctx, reacquire = en.e.lock.Release(ctx)
		defer reacquire()
	}
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, nativeException(en.Callable, fmt.Errorf("panic in %s: %v", b.minimal, r))
		}
	}()

	result, err = b.native(ctx, call)
	if err != nil {
		var se *ScriptError
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, nativeException(en.Callable, err)
	}
	return result, nil
}

// convertReturn converts the native result. For constructors the new
// wrapper is both the result and the self of the ownership plan.
func (en *Entry) convertReturn(b *boundOverload, result any, self ir.Value) (ir.Value, ir.Value, error) {
	if b.ov.Kind == ir.FuncConstructor {
		if result == nil {
			return nil, nil, runtimeError(en.Callable, nil, "constructor returned no object")
		}
		te, ok := en.e.reg.Model().Type(b.selfType)
		if !ok {
			return nil, nil, runtimeError(en.Callable, nil, "unknown class %s", b.selfType)
		}
		var obj *ir.Object
		if te.Kind == ir.KindObject {
			obj = en.e.tracker.WrapNew(b.selfType, result)
		} else {
			obj = en.e.tracker.WrapValue(b.selfType, result)
		}
		return obj, obj, nil
	}

	var (
		ret ir.Value
		err error
	)
	switch {
	case b.rule != nil:
		ret, err = b.rule(result)
	case b.ov.IsVoid():
		ret = ir.None
	default:
		ret, err = en.e.reg.FromNative(result, b.ov.EffectiveReturn())
	}
	if err != nil {
		return nil, nil, runtimeError(en.Callable, err, "invalid return value: %v", err)
	}
	return ret, self, nil
}

// siteArgs maps script positions back to declared indexes for the
// ownership plan.
func siteArgs(ov *ir.Overload, args []ir.Value) []ir.Value {
	out := make([]ir.Value, len(ov.Args))
	pos := 0
	for i, a := range ov.Args {
		if a.Removed || a.Type == ir.TypeVarargs {
			continue
		}
		if pos < len(args) && !isMissing(args[pos]) {
			out[i] = args[pos]
		}
		pos++
	}
	return out
}

package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/crossbind/internal/ir"
)

// ErrorKind is the script-visible class of a dispatch error.
type ErrorKind string

const (
	// KindNoMatch: no overload accepts the arguments. Recoverable.
	KindNoMatch ErrorKind = "NoMatchingOverload"

	// KindTypeError: an argument could not be converted for the selected
	// overload, or keywords did not fit its parameters.
	KindTypeError ErrorKind = "TypeError"

	// KindNativeException: the native implementation failed or panicked.
	KindNativeException ErrorKind = "NativeException"

	// KindRuntimeError: the call completed but its result or ownership
	// update could not be applied, or an abstract method was called.
	KindRuntimeError ErrorKind = "RuntimeError"

	// KindNotImplemented: a reverse operator matched no overload; the
	// script side may try the other operand.
	KindNotImplemented ErrorKind = "NotImplemented"
)

// ScriptError is the only error type a dispatch entry returns.
type ScriptError struct {
	Kind     ErrorKind
	Callable string
	Message  string

	// Signatures lists every candidate call shape, for NoMatchingOverload.
	Signatures []string

	// Cause is the underlying error, e.g. the native error.
	Cause error
}

func (e *ScriptError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	if e.Callable != "" {
		fmt.Fprintf(&sb, "%s(): ", e.Callable)
	}
	sb.WriteString(e.Message)
	if len(e.Signatures) > 0 {
		sb.WriteString("\n  Supported signatures:")
		for _, s := range e.Signatures {
			sb.WriteString("\n    ")
			sb.WriteString(s)
		}
	}
	return sb.String()
}

func (e *ScriptError) Unwrap() error {
	return e.Cause
}

func kindOf(err error) ErrorKind {
	var se *ScriptError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsNoMatch reports whether err is a NoMatchingOverload error.
func IsNoMatch(err error) bool { return kindOf(err) == KindNoMatch }

// IsTypeError reports whether err is a TypeError.
func IsTypeError(err error) bool { return kindOf(err) == KindTypeError }

// IsNativeException reports whether err is a mapped native failure.
func IsNativeException(err error) bool { return kindOf(err) == KindNativeException }

// IsRuntimeError reports whether err is a RuntimeError.
func IsRuntimeError(err error) bool { return kindOf(err) == KindRuntimeError }

// IsNotImplemented reports whether err is a reverse-operator miss.
func IsNotImplemented(err error) bool { return kindOf(err) == KindNotImplemented }

func typeError(callable, format string, args ...any) *ScriptError {
	return &ScriptError{Kind: KindTypeError, Callable: callable, Message: fmt.Sprintf(format, args...)}
}

func runtimeError(callable string, cause error, format string, args ...any) *ScriptError {
	return &ScriptError{Kind: KindRuntimeError, Callable: callable, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func nativeException(callable string, cause error) *ScriptError {
	return &ScriptError{Kind: KindNativeException, Callable: callable, Message: cause.Error(), Cause: cause}
}

// describeArgs renders actual argument types, e.g. "(int, str, size=float)".
func describeArgs(args []ir.Value, kwargs map[string]ir.Value) string {
	parts := make([]string, 0, len(args)+len(kwargs))
	for _, a := range args {
		parts = append(parts, ir.TypeName(a))
	}
	for _, k := range ir.Dict(kwargs).SortedKeys() {
		parts = append(parts, k+"="+ir.TypeName(kwargs[k]))
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

package decisor

import (
	"errors"
	"fmt"
	"strings"
)

// BuildErrorCode categorizes generation-time failures.
type BuildErrorCode string

const (
	// ErrCodeAmbiguousOverload indicates two overloads no call can tell apart.
	ErrCodeAmbiguousOverload BuildErrorCode = "AMBIGUOUS_OVERLOAD"

	// ErrCodeRemovedArgumentWithoutDefault indicates a removed argument the
	// native call cannot be completed without.
	ErrCodeRemovedArgumentWithoutDefault BuildErrorCode = "REMOVED_ARGUMENT_WITHOUT_DEFAULT"

	// ErrCodeInvalidDefault indicates a default expression that cannot be evaluated.
	ErrCodeInvalidDefault BuildErrorCode = "INVALID_DEFAULT"

	// ErrCodeUnknownType indicates an argument type with no converter.
	ErrCodeUnknownType BuildErrorCode = "UNKNOWN_TYPE"

	// ErrCodeUnknownCallable indicates a callable with no overloads.
	ErrCodeUnknownCallable BuildErrorCode = "UNKNOWN_CALLABLE"
)

// BuildError is a fatal decision-tree build failure.
type BuildError struct {
	Code     BuildErrorCode
	Callable string
	Message  string

	// Signatures lists the overloads involved.
	Signatures []string
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Code, e.Callable, e.Message)
	if len(e.Signatures) > 0 {
		msg += " [" + strings.Join(e.Signatures, "; ") + "]"
	}
	return msg
}

// IsAmbiguousOverload returns true if err is an AmbiguousOverload build error.
// Uses errors.As to handle wrapped errors.
func IsAmbiguousOverload(err error) bool {
	return hasCode(err, ErrCodeAmbiguousOverload)
}

// IsRemovedArgumentWithoutDefault returns true if err is a
// RemovedArgumentWithoutDefault build error.
func IsRemovedArgumentWithoutDefault(err error) bool {
	return hasCode(err, ErrCodeRemovedArgumentWithoutDefault)
}

func hasCode(err error, code BuildErrorCode) bool {
	var be *BuildError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}

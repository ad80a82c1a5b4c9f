package ownership

import (
	"errors"
	"fmt"

	"github.com/roach88/crossbind/internal/ir"
)

// ErrorCode categorizes tracker errors.
type ErrorCode string

const (
	// ErrCodeUnknownWrapper indicates the wrapper id is not tracked, either
	// because it never was or because its native object is gone.
	ErrCodeUnknownWrapper ErrorCode = "UNKNOWN_WRAPPER"

	// ErrCodeOwnershipCycle indicates an edge would make an object its own
	// ancestor.
	ErrCodeOwnershipCycle ErrorCode = "OWNERSHIP_CYCLE"
)

// Error is a tracker error.
type Error struct {
	Code    ErrorCode
	Wrapper ir.WrapperID
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (wrapper=%s)", e.Code, e.Message, e.Wrapper)
}

// IsUnknownWrapper reports whether err is an unknown-wrapper error.
func IsUnknownWrapper(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Code == ErrCodeUnknownWrapper
}

// IsOwnershipCycle reports whether err is an ownership-cycle error.
func IsOwnershipCycle(err error) bool {
	var oe *Error
	return errors.As(err, &oe) && oe.Code == ErrCodeOwnershipCycle
}

func unknownWrapper(id ir.WrapperID) *Error {
	return &Error{Code: ErrCodeUnknownWrapper, Wrapper: id, Message: "wrapper is not tracked"}
}

package convert

import (
	"errors"
	"fmt"

	"github.com/roach88/crossbind/internal/ir"
)

// ErrSealed is returned by writes after Seal.
var ErrSealed = errors.New("conversion registry is sealed")

// ConversionError reports a value that cannot cross into or out of the
// native layer as the requested type.
type ConversionError struct {
	Target ir.TypeID
	Got    string // script type name, or Go type for native values
	Reason string
}

func (e *ConversionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot convert %s to %s: %s", e.Got, e.Target, e.Reason)
	}
	return fmt.Sprintf("cannot convert %s to %s", e.Got, e.Target)
}

// IsConversionError reports whether err wraps a ConversionError.
func IsConversionError(err error) bool {
	var ce *ConversionError
	return errors.As(err, &ce)
}

func scriptError(target ir.TypeID, v ir.Value, reason string) *ConversionError {
	return &ConversionError{Target: target, Got: ir.TypeName(v), Reason: reason}
}

func nativeError(target ir.TypeID, n any, reason string) *ConversionError {
	return &ConversionError{Target: target, Got: fmt.Sprintf("native %T", n), Reason: reason}
}

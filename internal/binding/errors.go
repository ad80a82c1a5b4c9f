package binding

import "errors"

var (
	// ErrNotLoaded is returned by calls on a torn-down runtime.
	ErrNotLoaded = errors.New("binding runtime is not loaded")

	// ErrUnknownCallable is returned for a callable the model does not declare.
	ErrUnknownCallable = errors.New("unknown callable")

	// ErrNotVirtual is returned when CallVirtual names a non-virtual overload.
	ErrNotVirtual = errors.New("overload is not virtual")
)

package analytics

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for dispatch operations.
var (
	// ErrTypeMismatch indicates an erased value was downcast to a type it
	// does not hold. Every *TypeMismatchError matches it with errors.Is.
	ErrTypeMismatch = errors.New("analytics: type mismatch")

	// ErrUnhashableHandler indicates a handler whose dynamic type cannot
	// be used as a registry key.
	ErrUnhashableHandler = errors.New("analytics: handler is not hashable")

	// ErrHandlerPanic indicates a handler panicked while tracking.
	ErrHandlerPanic = errors.New("analytics: handler panicked")
)

// TypeMismatchError reports a failed downcast of an erased event or
// metadata value.
type TypeMismatchError struct {
	Kind     string // "event" or "metadata"
	Expected string // Go type that was requested
	Actual   string // Go type actually held
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("analytics: %s type mismatch: expected %s, got %s", e.Kind, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrTypeMismatch) succeed.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// HandlerError wraps a failure of one handler during fan-out.
type HandlerError struct {
	Handler string // handler identity, for logging
	Name    any    // name of the event being tracked
	Err     error  // underlying error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("analytics: handler %s failed to track %v: %v", e.Handler, e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

func mismatch[T any](kind string, actual any) *TypeMismatchError {
	return &TypeMismatchError{
		Kind:     kind,
		Expected: reflect.TypeFor[T]().String(),
		Actual:   fmt.Sprintf("%T", actual),
	}
}

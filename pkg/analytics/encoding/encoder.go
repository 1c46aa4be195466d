// Package encoding turns analytics metadata into backend-specific
// representations.
//
// Handlers that forward events to a backend need the payload in the
// backend's shape. An Encoder produces that shape from any metadata value,
// and an EncodingFailureAction decides what a handler does when encoding
// fails. DictionaryEncoder is the reference encoder: it produces the
// string-keyed object a JSON encoder would produce for the value.
package encoding

import (
	"errors"
	"fmt"
	"strings"
)

// Encoder encodes metadata into an output of type O.
type Encoder[O any] interface {
	EncodeMetadata(v any) (O, error)
}

// EncoderFunc adapts a function to the Encoder interface.
type EncoderFunc[O any] func(v any) (O, error)

// EncodeMetadata implements Encoder.
func (f EncoderFunc[O]) EncodeMetadata(v any) (O, error) {
	return f(v)
}

// EncodingFailureAction is what a handler does when metadata fails to encode.
type EncodingFailureAction int

const (
	// FailureError reports the encoding error to the caller of Track.
	FailureError EncodingFailureAction = iota

	// FailureIgnore drops the event silently.
	FailureIgnore
)

// String returns the configuration name of the action.
func (a EncodingFailureAction) String() string {
	switch a {
	case FailureError:
		return "error"
	case FailureIgnore:
		return "ignore"
	default:
		return fmt.Sprintf("EncodingFailureAction(%d)", int(a))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a EncodingFailureAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *EncodingFailureAction) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "error", "":
		*a = FailureError
	case "ignore":
		*a = FailureIgnore
	default:
		return fmt.Errorf("unknown encoding failure action %q", text)
	}
	return nil
}

// Resolve applies the action to an encoding error: FailureIgnore swallows
// it, FailureError returns it unchanged.
func (a EncodingFailureAction) Resolve(err error) error {
	if a == FailureIgnore {
		return nil
	}
	return err
}

// ErrInvalidValue indicates a value that cannot be encoded in the
// requested shape. Every *EncodingError matches it with errors.Is.
var ErrInvalidValue = errors.New("encoding: invalid value")

// EncodingError reports a value that failed to encode.
type EncodingError struct {
	Value  any    // offending value
	Path   string // location inside the encoded value, "" for the root
	Reason string // what went wrong
	Err    error  // underlying error (optional)
}

// Error implements the error interface.
func (e *EncodingError) Error() string {
	var b strings.Builder
	b.WriteString("encoding: invalid value")
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrInvalidValue) succeed.
func (e *EncodingError) Is(target error) bool {
	return target == ErrInvalidValue
}

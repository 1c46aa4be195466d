package analytics

import (
	"context"
	"fmt"
	"reflect"
	"time"
)

// Handler receives tracked events. Implementations forward them to an
// analytics backend, a store, a log or another handler.
//
// The name type N must match the name type of the events fired on the
// handler. Handlers should be safe for concurrent use when they are
// shared between goroutines.
type Handler[N comparable] interface {
	Track(ctx context.Context, evt Descriptor[N], at time.Time, data Metadata) error
}

// HandlerFunc adapts a function to the Handler interface.
// Function values are not comparable, so a HandlerFunc cannot be
// registered on a Multiplex directly; wrap it in a pointer type instead.
type HandlerFunc[N comparable] func(ctx context.Context, evt Descriptor[N], at time.Time, data Metadata) error

// Track implements Handler.
func (f HandlerFunc[N]) Track(ctx context.Context, evt Descriptor[N], at time.Time, data Metadata) error {
	return f(ctx, evt, at, data)
}

// TrackAny tracks an erased event, wrapping data in AnyMetadata unless it
// already is one.
func TrackAny[N comparable](ctx context.Context, h Handler[N], evt AnyEvent[N], at time.Time, data Metadata) error {
	return h.Track(ctx, evt, at, EraseMetadata(data))
}

// AnyHandler forwards every event to the wrapped handler as an AnyEvent
// carrying AnyMetadata, so the wrapped handler only ever sees erased
// values.
type AnyHandler[N comparable] struct {
	handler Handler[N]
}

// NewAnyHandler wraps h. An *AnyHandler or AnyHandler is returned as is
// rather than wrapped twice.
func NewAnyHandler[N comparable](h Handler[N]) AnyHandler[N] {
	switch existing := h.(type) {
	case AnyHandler[N]:
		return existing
	case *AnyHandler[N]:
		if existing != nil {
			return *existing
		}
	}
	return AnyHandler[N]{handler: h}
}

// Track implements Handler.
func (h AnyHandler[N]) Track(ctx context.Context, evt Descriptor[N], at time.Time, data Metadata) error {
	return h.handler.Track(ctx, EraseEvent(evt), at, EraseMetadata(data))
}

// Unwrap returns the wrapped handler.
func (h AnyHandler[N]) Unwrap() Handler[N] {
	return h.handler
}

// HashableHandler is an erasing handler with a stable identity: two
// HashableHandlers are equal exactly when they wrap the same handler.
// Pointer handlers compare by address, value handlers structurally.
type HashableHandler[N comparable] struct {
	handler Handler[N]
}

// NewHashableHandler wraps h. It fails with ErrUnhashableHandler when the
// dynamic type of h cannot be compared, e.g. a func or a struct holding
// a map, instead of panicking later on a map insert.
func NewHashableHandler[N comparable](h Handler[N]) (HashableHandler[N], error) {
	if existing, ok := h.(HashableHandler[N]); ok {
		return existing, nil
	}
	if h == nil {
		return HashableHandler[N]{}, fmt.Errorf("%w: nil handler", ErrUnhashableHandler)
	}
	if !reflect.ValueOf(h).Comparable() {
		return HashableHandler[N]{}, fmt.Errorf("%w: %T", ErrUnhashableHandler, h)
	}
	return HashableHandler[N]{handler: h}, nil
}

// Key returns the identity of the handler, usable as a map key.
func (h HashableHandler[N]) Key() any {
	return h.handler
}

// Equal reports whether both values wrap the same handler.
func (h HashableHandler[N]) Equal(other HashableHandler[N]) bool {
	return h.handler == other.handler
}

// Unwrap returns the wrapped handler.
func (h HashableHandler[N]) Unwrap() Handler[N] {
	return h.handler
}

// String names the wrapped handler for logs and metrics.
func (h HashableHandler[N]) String() string {
	return handlerName(h.handler)
}

// Track implements Handler. Like AnyHandler it erases event and data.
func (h HashableHandler[N]) Track(ctx context.Context, evt Descriptor[N], at time.Time, data Metadata) error {
	return h.handler.Track(ctx, EraseEvent(evt), at, EraseMetadata(data))
}

// handlerName extracts a name for a handler (for logging/metrics).
func handlerName(h any) string {
	if s, ok := h.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", h)
}

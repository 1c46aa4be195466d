package analytics

import (
	"context"
	"time"
)

// Descriptor is the metadata-agnostic view of an event: what handlers
// receive and what routing decisions are made on.
type Descriptor[N comparable] interface {
	// Name is the routing key of the event.
	Name() N

	// Group is the set of groups the event belongs to.
	Group() Group

	// Configuration decides how the event reaches a handler.
	// A nil Configuration behaves as DefaultConfiguration.
	Configuration() Configuration
}

// Event is a named, grouped analytics signal carrying metadata of type M.
//
// The name type N is shared with Handler[N], so an event can only be
// fired on handlers of the same name type. Implementations usually
// delegate Fire to Dispatch:
//
//	func (e LoginEvent) Fire(ctx context.Context, h analytics.Handler[string], data analytics.EmptyMetadata) error {
//	    return analytics.Dispatch(ctx, analytics.Descriptor[string](e), h, data)
//	}
type Event[N comparable, M any] interface {
	Descriptor[N]

	// Fire hands data to h through the event's configuration.
	Fire(ctx context.Context, h Handler[N], data M) error
}

// Dispatch is the default Fire body. It stamps the current time, builds
// the Delivery and runs it through the event's configuration, which by
// default calls h.Track synchronously before returning.
func Dispatch[N comparable](ctx context.Context, evt Descriptor[N], h Handler[N], data Metadata) error {
	cfg := evt.Configuration()
	if cfg == nil {
		cfg = DefaultConfiguration{}
	}
	return cfg.Process(ctx, Delivery{
		Name:  evt.Name(),
		Group: evt.Group(),
		At:    time.Now(),
		Data:  data,
		track: func(ctx context.Context, at time.Time) error {
			return h.Track(ctx, evt, at, data)
		},
	})
}

// FireEmpty fires evt with the zero value of its metadata type.
// It is the natural way to fire events whose metadata is EmptyMetadata.
func FireEmpty[N comparable, M any](ctx context.Context, evt Event[N, M], h Handler[N]) error {
	var zero M
	return evt.Fire(ctx, h, zero)
}

// EventAs downcasts an event descriptor to the concrete event type E.
// It fails with a *TypeMismatchError rather than guessing.
func EventAs[E any](evt any) (E, error) {
	if typed, ok := evt.(E); ok {
		return typed, nil
	}
	var zero E
	return zero, mismatch[E]("event", evt)
}

// eventFields holds the transformable attributes of an event.
type eventFields struct {
	group         Group
	configuration Configuration
}

// EventOption transforms the group or configuration of an event being
// constructed or converted. Options apply in order.
type EventOption func(*eventFields)

// WithGroup sets the group of a new event.
func WithGroup(g Group) EventOption {
	return func(f *eventFields) {
		f.group = g
	}
}

// TransferredTo replaces the source event's group with g.
func TransferredTo(g Group) EventOption {
	return WithGroup(g)
}

// Appending adds g to the source event's group.
func Appending(g Group) EventOption {
	return func(f *eventFields) {
		f.group = f.group.Union(g)
	}
}

// WithConfiguration overrides the configuration of the event.
func WithConfiguration(c Configuration) EventOption {
	return func(f *eventFields) {
		f.configuration = c
	}
}

func defaultFields() eventFields {
	return eventFields{
		group:         Action,
		configuration: DefaultConfiguration{},
	}
}

func fieldsOf[N comparable](evt Descriptor[N]) eventFields {
	return eventFields{
		group:         evt.Group(),
		configuration: evt.Configuration(),
	}
}

func (f eventFields) apply(opts []EventOption) eventFields {
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

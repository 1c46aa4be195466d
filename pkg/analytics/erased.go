package analytics

import "context"

// AnyEvent is a fully type-erased event. It keeps the name, group and
// configuration of its source and always carries AnyMetadata.
type AnyEvent[N comparable] struct {
	name   N
	fields eventFields
}

// AnyStringEvent is an AnyEvent keyed by string names.
type AnyStringEvent = AnyEvent[string]

// Compile-time interface check.
var _ Event[string, AnyMetadata] = AnyEvent[string]{}

// NewAnyEvent creates an erased event. Without options the event belongs
// to Action and uses DefaultConfiguration.
func NewAnyEvent[N comparable](name N, opts ...EventOption) AnyEvent[N] {
	return AnyEvent[N]{
		name:   name,
		fields: defaultFields().apply(opts),
	}
}

// EraseEvent converts any event with name type N into an AnyEvent,
// keeping its name, group and configuration unless opts override them.
// An AnyEvent passed without options is returned as is.
func EraseEvent[N comparable](evt Descriptor[N], opts ...EventOption) AnyEvent[N] {
	if erased, ok := evt.(AnyEvent[N]); ok && len(opts) == 0 {
		return erased
	}
	return AnyEvent[N]{
		name:   evt.Name(),
		fields: fieldsOf(evt).apply(opts),
	}
}

// Name implements Descriptor.
func (e AnyEvent[N]) Name() N {
	return e.name
}

// Group implements Descriptor.
func (e AnyEvent[N]) Group() Group {
	return e.fields.group
}

// Configuration implements Descriptor.
func (e AnyEvent[N]) Configuration() Configuration {
	if e.fields.configuration == nil {
		return DefaultConfiguration{}
	}
	return e.fields.configuration
}

// Fire implements Event.
func (e AnyEvent[N]) Fire(ctx context.Context, h Handler[N], data AnyMetadata) error {
	return Dispatch[N](ctx, e, h, data)
}

// SomeEvent erases the concrete event type while retaining the metadata
// type M, so payloads can still be type checked downstream.
type SomeEvent[N comparable, M any] struct {
	name   N
	fields eventFields
}

// SomeStringEvent is a SomeEvent keyed by string names.
type SomeStringEvent[M any] = SomeEvent[string, M]

// Compile-time interface check.
var _ Event[string, EmptyMetadata] = SomeEvent[string, EmptyMetadata]{}

// NewSomeEvent creates an event with metadata type M. Without options the
// event belongs to Action and uses DefaultConfiguration.
func NewSomeEvent[N comparable, M any](name N, opts ...EventOption) SomeEvent[N, M] {
	return SomeEvent[N, M]{
		name:   name,
		fields: defaultFields().apply(opts),
	}
}

// SomeEventFrom converts an event into a SomeEvent with the same name
// and metadata types, keeping its fields unless opts override them.
// A SomeEvent passed without options is returned as is.
func SomeEventFrom[N comparable, M any](evt Event[N, M], opts ...EventOption) SomeEvent[N, M] {
	if some, ok := evt.(SomeEvent[N, M]); ok && len(opts) == 0 {
		return some
	}
	return RetypeEvent[N, M](evt, opts...)
}

// RetypeEvent builds a SomeEvent with metadata type M from any event with
// name type N. Unlike SomeEventFrom the source metadata type is not
// checked, so M must be given explicitly.
func RetypeEvent[N comparable, M any](evt Descriptor[N], opts ...EventOption) SomeEvent[N, M] {
	return SomeEvent[N, M]{
		name:   evt.Name(),
		fields: fieldsOf(evt).apply(opts),
	}
}

// Name implements Descriptor.
func (e SomeEvent[N, M]) Name() N {
	return e.name
}

// Group implements Descriptor.
func (e SomeEvent[N, M]) Group() Group {
	return e.fields.group
}

// Configuration implements Descriptor.
func (e SomeEvent[N, M]) Configuration() Configuration {
	if e.fields.configuration == nil {
		return DefaultConfiguration{}
	}
	return e.fields.configuration
}

// Fire implements Event.
func (e SomeEvent[N, M]) Fire(ctx context.Context, h Handler[N], data M) error {
	return Dispatch[N](ctx, e, h, data)
}

// Package analytics provides type-safe analytics event dispatch.
//
// Events are named, grouped signals with a statically typed payload.
// Firing an event hands it, with a timestamp and the payload, to a
// Handler, which forwards it to whatever backend it wraps. The caller
// never learns which backends are involved.
//
// # Core Types
//
//   - Event: a named signal with a metadata type, fired on a Handler
//   - Handler: receives tracked events
//   - Group: bitset of categories used for routing
//   - Configuration: decides how a fired event reaches the handler
//   - Multiplex: fans an event out to every handler whose groups match
//
// # Type Erasure
//
// AnyEvent and AnyMetadata erase the concrete event and payload types so
// heterogeneous events can be stored and forwarded uniformly. SomeEvent
// erases the event type but keeps the payload type. EventAs and
// MetadataAs recover the concrete types and fail with a
// *TypeMismatchError instead of guessing. Erasing an already erased
// value returns it unchanged.
//
// # Routing
//
// A Multiplex delivers an event to a handler when the handler's
// registered groups and the event's groups intersect:
//
//	mux := analytics.NewMultiplex[string](analytics.MultiplexConfig{})
//	_ = mux.Register(store, analytics.Action|analytics.State)
//	_ = mux.Register(alerts, analytics.Error|analytics.Critical)
//
//	loginFailed := analytics.NewSomeEvent[string, LoginFailure]("loginFailed",
//	    analytics.WithGroup(analytics.Action|analytics.State))
//	err := loginFailed.Fire(ctx, mux, LoginFailure{Attempts: 3})
//
// Delivery is synchronous. When Fire returns, every matching handler has
// been called.
package analytics

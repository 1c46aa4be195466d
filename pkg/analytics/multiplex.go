package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/analytics/pkg/analytics/observability"
)

// MultiplexConfig configures multiplex behavior.
type MultiplexConfig struct {
	// Erase forwards events to sub-handlers as AnyEvent with AnyMetadata
	// instead of the concrete event and payload.
	Erase bool

	// Logger for registration and delivery logs (optional).
	Logger *slog.Logger

	// Metrics recorder (optional). Default: observability.NoopMetrics.
	Metrics observability.MetricsRecorder

	// Spans manager (optional). Default: observability.NoopSpanManager.
	Spans observability.SpanManager

	// OnError is called for each failed sub-handler, after the failure is
	// logged and before the next handler runs.
	OnError func(evt any, handler string, err error)
}

// multiplexEntry stores a registered handler with its groups.
type multiplexEntry[N comparable] struct {
	handler Handler[N]
	name    string
	group   Group
}

// Multiplex fans one tracked event out to every registered handler whose
// groups intersect the event's groups.
//
// Handlers are identified by value: registering the same handler twice
// merges the groups into the existing registration. Delivery follows
// registration order. Failing or panicking sub-handlers do not stop the
// fan-out; their errors are joined into the Track result.
//
// A Multiplex is safe for concurrent use. Handlers run outside the lock,
// so a handler may register or unregister handlers while tracking.
type Multiplex[N comparable] struct {
	config MultiplexConfig

	mu      sync.RWMutex
	entries map[any]*multiplexEntry[N]
	order   []any
}

// Compile-time interface check.
var _ Handler[string] = (*Multiplex[string])(nil)

// NewMultiplex creates an empty multiplex.
func NewMultiplex[N comparable](config MultiplexConfig) *Multiplex[N] {
	if config.Metrics == nil {
		config.Metrics = observability.NoopMetrics{}
	}
	if config.Spans == nil {
		config.Spans = observability.NoopSpanManager{}
	}
	return &Multiplex[N]{
		config:  config,
		entries: make(map[any]*multiplexEntry[N]),
	}
}

// Register adds h for the groups in g. If h is already registered, g is
// unioned into its groups. Fails with ErrUnhashableHandler when h cannot
// be used as an identity.
func (m *Multiplex[N]) Register(h Handler[N], g Group) error {
	hh, err := NewHashableHandler(h)
	if err != nil {
		return err
	}
	m.RegisterHashable(hh, g)
	return nil
}

// RegisterHashable is Register for a handler already wrapped as hashable.
// The zero HashableHandler is ignored.
func (m *Multiplex[N]) RegisterHashable(h HashableHandler[N], g Group) {
	key := h.Key()
	if key == nil {
		return
	}

	m.mu.Lock()
	entry, merged := m.entries[key]
	if merged {
		entry.group = entry.group.Union(g)
	} else {
		entry = &multiplexEntry[N]{
			handler: h.Unwrap(),
			name:    h.String(),
			group:   g,
		}
		if m.config.Erase {
			entry.handler = h
		}
		m.entries[key] = entry
		m.order = append(m.order, key)
	}
	name, groups := entry.name, entry.group.String()
	m.mu.Unlock()

	observability.LogRegister(m.config.Logger, name, groups, merged)
	m.config.Metrics.RecordRegistration(context.Background(), name, groups)
}

// Unregister removes h. It reports whether h was registered.
func (m *Multiplex[N]) Unregister(h Handler[N]) bool {
	hh, err := NewHashableHandler(h)
	if err != nil {
		return false
	}
	key := hh.Key()

	m.mu.Lock()
	entry, ok := m.entries[key]
	if ok {
		delete(m.entries, key)
		for i, k := range m.order {
			if k == key {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	m.mu.Unlock()

	if ok {
		observability.LogUnregister(m.config.Logger, entry.name)
	}
	return ok
}

// Groups returns the groups h is registered for.
func (m *Multiplex[N]) Groups(h Handler[N]) (Group, bool) {
	hh, err := NewHashableHandler(h)
	if err != nil {
		return 0, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[hh.Key()]
	if !ok {
		return 0, false
	}
	return entry.group, true
}

// Len returns the number of registered handlers.
func (m *Multiplex[N]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Track implements Handler. It delivers evt to every handler whose groups
// are not disjoint from evt.Group(), in registration order.
func (m *Multiplex[N]) Track(ctx context.Context, evt Descriptor[N], at time.Time, data Metadata) error {
	eventName := fmt.Sprint(evt.Name())
	eventGroup := evt.Group()

	ctx, span := m.config.Spans.StartTrackSpan(ctx, eventName, eventGroup.String())

	m.mu.RLock()
	entries := make([]multiplexEntry[N], 0, len(m.order))
	for _, key := range m.order {
		entries = append(entries, *m.entries[key])
	}
	m.mu.RUnlock()

	var errs []error
	delivered, skipped := 0, 0
	for _, entry := range entries {
		if entry.group.IsDisjoint(eventGroup) {
			skipped++
			observability.LogSkipped(m.config.Logger, eventName, entry.name)
			m.config.Spans.AddSpanEvent(ctx, "handler.skipped", attribute.String("handler", entry.name))
			continue
		}

		delivered++
		if err := m.deliver(ctx, entry, eventName, evt, at, data); err != nil {
			observability.LogDeliveryError(m.config.Logger, eventName, entry.name, err)
			if m.config.OnError != nil {
				m.config.OnError(evt, entry.name, err)
			}
			errs = append(errs, &HandlerError{
				Handler: entry.name,
				Name:    evt.Name(),
				Err:     err,
			})
		}
	}

	m.config.Metrics.RecordFanOut(ctx, eventName, delivered, skipped)
	observability.LogFanOut(m.config.Logger, eventName, delivered, skipped, len(errs))

	err := errors.Join(errs...)
	m.config.Spans.EndSpanWithError(span, err)
	return err
}

// deliver runs a single handler, converting a panic into an error.
func (m *Multiplex[N]) deliver(
	ctx context.Context,
	entry multiplexEntry[N],
	eventName string,
	evt Descriptor[N],
	at time.Time,
	data Metadata,
) (err error) {
	ctx, span := m.config.Spans.StartDeliverySpan(ctx, entry.name)
	done := observability.TimedOperation()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
		m.config.Metrics.RecordDelivery(ctx, eventName, entry.name, time.Since(start), err)
		m.config.Spans.EndSpanWithError(span, err)
		if err == nil {
			observability.LogDelivery(m.config.Logger, eventName, entry.name, done())
		}
	}()

	return entry.handler.Track(ctx, evt, at, data)
}

package analytics_test

import (
	"context"
	"sync"
	"time"

	"github.com/randalmurphal/analytics/pkg/analytics"
)

// tracked is one recorded Track call.
type tracked struct {
	Name  string
	Group analytics.Group
	At    time.Time
	Data  analytics.Metadata
	Event analytics.Descriptor[string]
}

// recorder is a hashable handler that records every Track call.
type recorder struct {
	mu    sync.Mutex
	calls []tracked
	err   error
}

func (r *recorder) Track(_ context.Context, evt analytics.Descriptor[string], at time.Time, data analytics.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, tracked{
		Name:  evt.Name(),
		Group: evt.Group(),
		At:    at,
		Data:  data,
		Event: evt,
	})
	return r.err
}

func (r *recorder) Calls() []tracked {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tracked(nil), r.calls...)
}

// panicker panics on every Track call.
type panicker struct{}

func (*panicker) Track(context.Context, analytics.Descriptor[string], time.Time, analytics.Metadata) error {
	panic("backend exploded")
}

// loginFailure is the payload of the loginFailed event.
type loginFailure struct {
	Reason string `json:"reason"`
}

// loginEvent is a hand-written concrete event type.
type loginEvent struct {
	group analytics.Group
}

func (e loginEvent) Name() string {
	return "loginFailed"
}

func (e loginEvent) Group() analytics.Group {
	return e.group
}

func (e loginEvent) Configuration() analytics.Configuration {
	return nil
}

func (e loginEvent) Fire(ctx context.Context, h analytics.Handler[string], data loginFailure) error {
	return analytics.Dispatch[string](ctx, e, h, data)
}

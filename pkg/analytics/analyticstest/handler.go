package analyticstest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/analytics/pkg/analytics"
)

// Evaluator inspects a tracked event that fulfilled an expectation.
type Evaluator[N comparable] func(evt analytics.Descriptor[N], data analytics.Metadata)

// ExpectationHandler is a handler that fulfills expectations registered
// by event name.
type ExpectationHandler[N comparable] interface {
	analytics.Handler[N]

	// Add stores exp to be fulfilled when an event named name is tracked.
	// evaluate may be nil.
	Add(name N, exp *Expectation, evaluate Evaluator[N])
}

type registration[N comparable] struct {
	exp      *Expectation
	evaluate Evaluator[N]
}

// SingleExpectationHandler keeps one expectation per event name. Every
// tracked event with that name fulfills it again; registering the name a
// second time replaces the earlier expectation.
type SingleExpectationHandler[N comparable] struct {
	mu           sync.Mutex
	expectations map[N]registration[N]
}

// NewSingleExpectationHandler creates a handler with no expectations.
func NewSingleExpectationHandler[N comparable]() *SingleExpectationHandler[N] {
	return &SingleExpectationHandler[N]{expectations: make(map[N]registration[N])}
}

// Add implements ExpectationHandler.
func (h *SingleExpectationHandler[N]) Add(name N, exp *Expectation, evaluate Evaluator[N]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expectations[name] = registration[N]{exp: exp, evaluate: evaluate}
}

// Track implements analytics.Handler.
func (h *SingleExpectationHandler[N]) Track(_ context.Context, evt analytics.Descriptor[N], _ time.Time, data analytics.Metadata) error {
	h.mu.Lock()
	r, ok := h.expectations[evt.Name()]
	h.mu.Unlock()
	if !ok {
		return nil
	}

	r.exp.Fulfill()
	if r.evaluate != nil {
		r.evaluate(evt, data)
	}
	return nil
}

// OrderedExpectationHandler queues expectations per event name. A tracked
// event fulfills the oldest pending expectation for its name, which is
// dequeued once its expected count is reached.
type OrderedExpectationHandler[N comparable] struct {
	mu     sync.Mutex
	queues map[N][]registration[N]
}

// NewOrderedExpectationHandler creates a handler with no expectations.
func NewOrderedExpectationHandler[N comparable]() *OrderedExpectationHandler[N] {
	return &OrderedExpectationHandler[N]{queues: make(map[N][]registration[N])}
}

// Add implements ExpectationHandler.
func (h *OrderedExpectationHandler[N]) Add(name N, exp *Expectation, evaluate Evaluator[N]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.queues[name] = append(h.queues[name], registration[N]{exp: exp, evaluate: evaluate})
}

// Pending returns the number of queued expectations for name.
func (h *OrderedExpectationHandler[N]) Pending(name N) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queues[name])
}

// Track implements analytics.Handler.
func (h *OrderedExpectationHandler[N]) Track(_ context.Context, evt analytics.Descriptor[N], _ time.Time, data analytics.Metadata) error {
	name := evt.Name()

	h.mu.Lock()
	queue := h.queues[name]
	if len(queue) == 0 {
		h.mu.Unlock()
		return nil
	}
	head := queue[0]
	head.exp.Fulfill()
	if head.exp.State() != Unfulfilled {
		h.queues[name] = queue[1:]
	}
	h.mu.Unlock()

	if head.evaluate != nil {
		head.evaluate(evt, data)
	}
	return nil
}

// Expect registers an expectation that an event named name is tracked on h.
// Repeated events do not count as failures.
func Expect[N comparable](t TestingT, h ExpectationHandler[N], name N) *Expectation {
	t.Helper()
	exp := NewExpectation(t, fmt.Sprint(name)).SetAssertForOverFulfill(false)
	h.Add(name, exp, nil)
	return exp
}

// ExpectEvaluated is Expect with a callback receiving the tracked event
// and metadata as E and M. A type mismatch or an error returned by
// evaluate is reported to t.
func ExpectEvaluated[N comparable, E, M any](
	t TestingT,
	h ExpectationHandler[N],
	name N,
	evaluate func(evt E, data M) error,
) *Expectation {
	t.Helper()
	exp := NewExpectation(t, fmt.Sprint(name)).SetAssertForOverFulfill(false)
	h.Add(name, exp, func(evt analytics.Descriptor[N], data analytics.Metadata) {
		t.Helper()
		typed, err := analytics.EventAs[E](evt)
		if !assert.NoError(t, err, "event %v", name) {
			return
		}
		payload, err := analytics.MetadataAs[M](data)
		if !assert.NoError(t, err, "event %v", name) {
			return
		}
		assert.NoError(t, evaluate(typed, payload), "event %v", name)
	})
	return exp
}

// Compile-time interface checks.
var (
	_ ExpectationHandler[string] = (*SingleExpectationHandler[string])(nil)
	_ ExpectationHandler[string] = (*OrderedExpectationHandler[string])(nil)
)

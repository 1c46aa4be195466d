// Package analyticstest provides handlers and expectations for asserting
// that code under test fires analytics events.
//
// Register an expectation for an event name on an expectation handler,
// hand the handler (or a Multiplex containing it) to the code under test,
// then wait for the expectations:
//
//	h := analyticstest.NewOrderedExpectationHandler[string]()
//	exp := analyticstest.ExpectEvaluated(t, h, "loginFailed",
//	    func(evt analytics.SomeStringEvent[LoginFailure], data LoginFailure) error {
//	        assert.Equal(t, "bad password", data.Reason)
//	        return nil
//	    })
//	login(ctx, h)
//	analyticstest.AssertExpectations(t, time.Second, exp)
//
// Events whose name has no expectation are ignored.
package analyticstest

import (
	"fmt"
	"sync"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestingT is the subset of *testing.T used to report failures.
// Failures are reported with Errorf only, so handlers may run on any
// goroutine.
type TestingT interface {
	assert.TestingT
	Helper()
}

// FulfillmentState compares how often an expectation was fulfilled with
// how often it was expected to be.
type FulfillmentState int

const (
	// Unfulfilled means fewer fulfillments than expected.
	Unfulfilled FulfillmentState = iota
	// Fulfilled means exactly the expected number of fulfillments.
	Fulfilled
	// Overfulfilled means more fulfillments than expected.
	Overfulfilled
)

func (s FulfillmentState) String() string {
	switch s {
	case Unfulfilled:
		return "unfulfilled"
	case Fulfilled:
		return "fulfilled"
	case Overfulfilled:
		return "overfulfilled"
	default:
		return fmt.Sprintf("FulfillmentState(%d)", int(s))
	}
}

// Expectation counts how often an expected event was tracked.
// It is safe for concurrent use.
type Expectation struct {
	t           TestingT
	description string

	mu                   sync.Mutex
	expected             int
	current              int
	inverted             bool
	assertForOverFulfill bool
	first                chan struct{} // closed on the first Fulfill
	met                  chan struct{} // closed when current reaches expected
}

// NewExpectation creates an expectation fulfilled once, which reports
// over-fulfillment to t.
func NewExpectation(t TestingT, description string) *Expectation {
	return &Expectation{
		t:                    t,
		description:          description,
		expected:             1,
		assertForOverFulfill: true,
		first:                make(chan struct{}),
		met:                  make(chan struct{}),
	}
}

// SetExpectedCount sets how many Fulfill calls complete the expectation.
// It panics when n is not positive or Fulfill was already called.
func (e *Expectation) SetExpectedCount(n int) *Expectation {
	if n <= 0 {
		panic("analyticstest: expected fulfillment count must be positive")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current > 0 {
		panic("analyticstest: expected fulfillment count changed after fulfillment")
	}
	e.expected = n
	return e
}

// SetInverted marks the expectation as one that must not be fulfilled.
// The expected count is ignored for inverted expectations.
func (e *Expectation) SetInverted(inverted bool) *Expectation {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inverted = inverted
	return e
}

// SetAssertForOverFulfill controls whether Fulfill calls beyond the
// expected count are reported as failures.
func (e *Expectation) SetAssertForOverFulfill(enabled bool) *Expectation {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assertForOverFulfill = enabled
	return e
}

// Description returns the expectation's description.
func (e *Expectation) Description() string {
	return e.description
}

// ExpectedCount returns the number of Fulfill calls that complete the
// expectation.
func (e *Expectation) ExpectedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expected
}

// Count returns the number of Fulfill calls so far.
func (e *Expectation) Count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Inverted reports whether the expectation must not be fulfilled.
func (e *Expectation) Inverted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inverted
}

// AssertForOverFulfill reports whether over-fulfillment is a failure.
func (e *Expectation) AssertForOverFulfill() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.assertForOverFulfill
}

// State compares Count with ExpectedCount.
func (e *Expectation) State() FulfillmentState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state()
}

func (e *Expectation) state() FulfillmentState {
	switch {
	case e.current < e.expected:
		return Unfulfilled
	case e.current == e.expected:
		return Fulfilled
	default:
		return Overfulfilled
	}
}

// Fulfill records one occurrence of the expected event.
func (e *Expectation) Fulfill() {
	e.mu.Lock()
	e.current++
	current, expected := e.current, e.expected
	report := e.assertForOverFulfill && !e.inverted && current > expected
	if current == 1 {
		close(e.first)
	}
	if current == expected {
		close(e.met)
	}
	e.mu.Unlock()

	if report {
		e.t.Helper()
		e.t.Errorf("expectation %q over-fulfilled: fulfilled %d times, expected %d", e.description, current, expected)
	}
}

// Wait blocks until the expectation is met or timeout elapses and reports
// whether it is satisfied. An inverted expectation is satisfied when it is
// still unfulfilled after timeout.
func (e *Expectation) Wait(timeout time.Duration) bool {
	return e.waitUntil(time.Now().Add(timeout))
}

func (e *Expectation) waitUntil(deadline time.Time) bool {
	e.mu.Lock()
	inverted := e.inverted
	e.mu.Unlock()

	// Settle already-decided expectations without racing the timer.
	select {
	case <-e.first:
		if inverted {
			return false
		}
	default:
	}
	select {
	case <-e.met:
		if !inverted {
			return true
		}
	default:
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	if inverted {
		select {
		case <-e.first:
			return false
		case <-timer.C:
			return true
		}
	}
	select {
	case <-e.met:
		return true
	case <-timer.C:
		return false
	}
}

func (e *Expectation) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inverted {
		return fmt.Sprintf("%q (inverted, fulfilled %d times)", e.description, e.current)
	}
	return fmt.Sprintf("%q (%s, fulfilled %d of %d times)", e.description, e.state(), e.current, e.expected)
}

// AssertExpectations waits up to timeout for every expectation and reports
// each unsatisfied one to t. All expectations share the same deadline.
func AssertExpectations(t TestingT, timeout time.Duration, exps ...*Expectation) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	ok := true
	for _, e := range exps {
		if e.waitUntil(deadline) {
			continue
		}
		ok = false
		if e.Inverted() {
			t.Errorf("inverted expectation fulfilled: %s", e)
		} else {
			t.Errorf("expectation not met within %s: %s", timeout, e)
		}
	}
	return ok
}

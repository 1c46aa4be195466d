package analytics

import (
	"context"
	"time"
)

// Configuration decides how a fired event reaches its handler.
//
// Process receives every pending delivery. It must either call
// Delivery.Forward (or ForwardAt) exactly once, or deliberately drop the
// delivery by not forwarding. This is the seam for debounce, throttle and
// sampling policies; the default forwards immediately.
type Configuration interface {
	Process(ctx context.Context, d Delivery) error
}

// Delivery is one pending Track call handed to a Configuration.
type Delivery struct {
	// Name is the event name, erased for policy lookups.
	Name any

	// Group is the event's group set.
	Group Group

	// At is the fire timestamp.
	At time.Time

	// Data is the metadata supplied at fire time.
	Data Metadata

	track func(ctx context.Context, at time.Time) error
}

// Forward tracks the delivery on its handler, stamped with d.At.
func (d Delivery) Forward(ctx context.Context) error {
	return d.ForwardAt(ctx, d.At)
}

// ForwardAt tracks the delivery on its handler with a different timestamp,
// for policies that delay delivery.
func (d Delivery) ForwardAt(ctx context.Context, at time.Time) error {
	if d.track == nil {
		return nil
	}
	return d.track(ctx, at)
}

// DefaultConfiguration forwards every delivery immediately and unchanged.
type DefaultConfiguration struct{}

// Compile-time interface check.
var _ Configuration = DefaultConfiguration{}

// Process implements Configuration.
func (DefaultConfiguration) Process(ctx context.Context, d Delivery) error {
	return d.Forward(ctx)
}

// ConfigurationFunc adapts a function to the Configuration interface.
type ConfigurationFunc func(ctx context.Context, d Delivery) error

// Process implements Configuration.
func (f ConfigurationFunc) Process(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

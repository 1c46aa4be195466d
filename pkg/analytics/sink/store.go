// Package sink provides analytics handlers that forward tracked events to
// concrete backends: an append-only record store (in memory or SQLite),
// log/slog and zap.
//
// Every handler encodes the metadata with an encoding.Encoder before
// writing and applies its EncodingFailureAction when encoding fails, so a
// payload that cannot be represented either surfaces as an
// *encoding.EncodingError from Track or is dropped silently.
package sink

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/randalmurphal/analytics/pkg/analytics"
)

// Record is one tracked event as persisted by a Store.
type Record struct {
	ID    uuid.UUID
	Name  string
	Group analytics.Group
	At    time.Time
	Data  []byte // compact JSON object
}

// Store persists tracked events in arrival order.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append stores rec.
	Append(ctx context.Context, rec Record) error

	// List returns the records named name in arrival order, or every
	// record when name is empty. No records is an empty slice, not an error.
	List(ctx context.Context, name string) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases the backend. Closing twice is a no-op.
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("sink: store closed")

package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/randalmurphal/analytics/pkg/analytics"
	"github.com/randalmurphal/analytics/pkg/analytics/encoding"
	"github.com/randalmurphal/analytics/pkg/analytics/observability"
)

// Option configures a sink handler.
type Option func(*handlerOptions)

type handlerOptions struct {
	encoder   encoding.Encoder[map[string]any]
	onFailure encoding.EncodingFailureAction
}

func buildOptions(opts []Option) handlerOptions {
	o := handlerOptions{
		encoder:   encoding.NewDictionaryEncoder(),
		onFailure: encoding.FailureError,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithEncoder sets the metadata encoder. Default: a DictionaryEncoder
// with DefaultOptions.
func WithEncoder(enc encoding.Encoder[map[string]any]) Option {
	return func(o *handlerOptions) {
		if enc != nil {
			o.encoder = enc
		}
	}
}

// WithFailureAction sets what happens when metadata fails to encode.
// Default: encoding.FailureError.
func WithFailureAction(a encoding.EncodingFailureAction) Option {
	return func(o *handlerOptions) { o.onFailure = a }
}

// encode returns the encoded payload, or ok=false when the event should be
// dropped. err is set only under FailureError.
func (o handlerOptions) encode(data analytics.Metadata) (payload map[string]any, ok bool, err error) {
	payload, err = o.encoder.EncodeMetadata(data)
	if err != nil {
		return nil, false, o.onFailure.Resolve(err)
	}
	return payload, true, nil
}

// levelFor maps an event's groups to a log level. The most severe group wins.
func levelFor(g analytics.Group) slog.Level {
	switch {
	case !g.IsDisjoint(analytics.Error | analytics.Critical):
		return slog.LevelError
	case !g.IsDisjoint(analytics.Warning):
		return slog.LevelWarn
	case !g.IsEmpty() && (analytics.Trace | analytics.Debug).Contains(g):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// StoreHandler appends every tracked event to a Store as a Record whose
// Data is the compact JSON of the encoded metadata.
type StoreHandler[N comparable] struct {
	store Store
	opts  handlerOptions
}

// NewStoreHandler creates a handler writing to store.
func NewStoreHandler[N comparable](store Store, opts ...Option) *StoreHandler[N] {
	return &StoreHandler[N]{store: store, opts: buildOptions(opts)}
}

// Track implements analytics.Handler.
func (h *StoreHandler[N]) Track(ctx context.Context, evt analytics.Descriptor[N], at time.Time, data analytics.Metadata) error {
	payload, ok, err := h.opts.encode(data)
	if !ok {
		return err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return h.opts.onFailure.Resolve(&encoding.EncodingError{
			Value:  data,
			Reason: "serialization failed",
			Err:    err,
		})
	}
	return h.store.Append(ctx, Record{
		ID:    uuid.New(),
		Name:  fmt.Sprint(evt.Name()),
		Group: evt.Group(),
		At:    at,
		Data:  raw,
	})
}

// String names the handler in multiplex logs.
func (h *StoreHandler[N]) String() string {
	return fmt.Sprintf("sink.StoreHandler(%T)", h.store)
}

// LogHandler writes one slog record per tracked event. The level follows
// the event's most severe group.
type LogHandler[N comparable] struct {
	logger *slog.Logger
	opts   handlerOptions
}

// NewLogHandler creates a handler writing to logger, or slog.Default when
// logger is nil.
func NewLogHandler[N comparable](logger *slog.Logger, opts ...Option) *LogHandler[N] {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHandler[N]{logger: logger, opts: buildOptions(opts)}
}

// Track implements analytics.Handler.
func (h *LogHandler[N]) Track(ctx context.Context, evt analytics.Descriptor[N], at time.Time, data analytics.Metadata) error {
	payload, ok, err := h.opts.encode(data)
	if !ok {
		return err
	}
	group := evt.Group()
	logger := observability.EnrichLogger(h.logger, fmt.Sprint(evt.Name()), group.String())
	logger.LogAttrs(ctx, levelFor(group), "analytics event",
		slog.Time("at", at),
		slog.Any("data", payload),
	)
	return nil
}

// String names the handler in multiplex logs.
func (h *LogHandler[N]) String() string {
	return "sink.LogHandler"
}

// ZapHandler writes one zap entry per tracked event. The level follows
// the event's most severe group.
type ZapHandler[N comparable] struct {
	logger *zap.Logger
	opts   handlerOptions
}

// NewZapHandler creates a handler writing to logger, or a no-op logger
// when logger is nil.
func NewZapHandler[N comparable](logger *zap.Logger, opts ...Option) *ZapHandler[N] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapHandler[N]{logger: logger, opts: buildOptions(opts)}
}

// Track implements analytics.Handler.
func (h *ZapHandler[N]) Track(_ context.Context, evt analytics.Descriptor[N], at time.Time, data analytics.Metadata) error {
	payload, ok, err := h.opts.encode(data)
	if !ok {
		return err
	}
	group := evt.Group()
	if ce := h.logger.Check(zapLevel(levelFor(group)), "analytics event"); ce != nil {
		ce.Write(
			zap.String("event", fmt.Sprint(evt.Name())),
			zap.Stringer("groups", group),
			zap.Time("at", at),
			zap.Any("data", payload),
		)
	}
	return nil
}

// Sync flushes buffered entries.
func (h *ZapHandler[N]) Sync() error {
	return h.logger.Sync()
}

// String names the handler in multiplex logs.
func (h *ZapHandler[N]) String() string {
	return "sink.ZapHandler"
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l >= slog.LevelError:
		return zapcore.ErrorLevel
	case l >= slog.LevelWarn:
		return zapcore.WarnLevel
	case l >= slog.LevelInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// Compile-time interface checks.
var (
	_ analytics.Handler[string] = (*StoreHandler[string])(nil)
	_ analytics.Handler[string] = (*LogHandler[string])(nil)
	_ analytics.Handler[string] = (*ZapHandler[string])(nil)
)

package registry

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/nfrund/streamhub/internal/pubsub"
	"github.com/nfrund/streamhub/internal/stream"
)

type options struct {
	factory stream.Factory
	logger  *slog.Logger
	mirror  pubsub.Publisher
	tracer  trace.Tracer
}

// Option is a function that configures a Registry.
type Option func(*options)

func defaultOptions() options {
	return options{
		factory: stream.BehaviorFactory,
		logger:  slog.Default(),
		tracer:  noop.NewTracerProvider().Tracer(pubsub.TracerName),
	}
}

// WithFactory replaces the stream factory used by Initialize.
// The default builds replay-latest streams.
func WithFactory(f stream.Factory) Option {
	return func(o *options) {
		if f != nil {
			o.factory = f
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMirror forwards every published value, JSON-encoded, to p after local
// dispatch completes. The message topic is the dotted key path.
func WithMirror(p pubsub.Publisher) Option {
	return func(o *options) {
		o.mirror = p
	}
}

// WithTracer records a span around every Publish.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

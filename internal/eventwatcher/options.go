package eventwatcher

import (
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds Retrieve when the caller passes no timeout.
const DefaultTimeout = 20 * time.Second

type options struct {
	name           string
	defaultTimeout time.Duration
	tracer         trace.Tracer
	maxBuffered    int
}

// Option configures a Watcher.
type Option func(*options)

// WithName labels the watcher in logs, errors and spans.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDefaultTimeout replaces DefaultTimeout for this watcher.
// Non-positive values are ignored.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.defaultTimeout = d
		}
	}
}

// WithTracer sets the tracer used for Retrieve spans. Defaults to the
// global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithMaxBuffered caps the number of events held for the consumer. Intake
// returns ErrBufferFull once the cap is reached. Zero or negative means
// unbounded, the default.
func WithMaxBuffered(n int) Option {
	return func(o *options) {
		o.maxBuffered = n
	}
}

// Package eventwatcher collects events delivered asynchronously by an event
// source and hands them, one at a time, to a single consumer.
//
// Producers call Intake from any number of goroutines. The consumer calls
// Retrieve, which returns the oldest buffered event or blocks until one
// arrives, the timeout elapses, or the context ends. Only one Retrieve may be
// outstanding per watcher; a second concurrent call is reported as a
// *MisuseError rather than queued.
package eventwatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/botcheck/internal/log"
	"github.com/zjrosen/botcheck/internal/queue"
	"github.com/zjrosen/botcheck/internal/tracing"
)

// Filter maps a raw event to an accepted value. Returning false rejects the
// event. Filters run in the producer's goroutine and must be safe for
// concurrent use.
type Filter[R, A any] func(raw R) (A, bool)

// request is the single outstanding waiter.
type request[A any] struct {
	id    string
	cell  *cell[A]
	timer *time.Timer
}

// Watcher buffers accepted events until a consumer retrieves them.
type Watcher[R, A any] struct {
	id             string
	name           string
	filter         Filter[R, A]
	defaultTimeout time.Duration
	tracer         trace.Tracer

	mu      sync.Mutex
	buffer  *queue.Queue[A]
	pending *request[A]
	closed  bool
}

// New creates a Watcher that accepts raw events passing filter.
func New[R, A any](filter Filter[R, A], opts ...Option) *Watcher[R, A] {
	o := options{defaultTimeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	id := uuid.NewString()
	if o.name == "" {
		o.name = id
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracing.InstrumentationName)
	}

	return &Watcher[R, A]{
		id:             id,
		name:           o.name,
		filter:         filter,
		defaultTimeout: o.defaultTimeout,
		tracer:         o.tracer,
		buffer:         queue.New[A](o.maxBuffered),
	}
}

// ID returns the watcher's unique identifier.
func (w *Watcher[R, A]) ID() string { return w.id }

// Name returns the watcher's label.
func (w *Watcher[R, A]) Name() string { return w.name }

// Intake offers a raw event to the watcher. Rejected events return nil
// without touching shared state. An accepted event goes to the pending
// Retrieve if there is one, otherwise to the back of the buffer.
//
// Intake never blocks on the consumer. After Close it returns a *MisuseError
// wrapping ErrClosed. A bounded watcher at capacity drops the event and
// returns ErrBufferFull.
func (w *Watcher[R, A]) Intake(raw R) error {
	v, ok := w.filter(raw)
	if !ok {
		return nil
	}

	delivered, err := w.offer(v)
	if err != nil {
		log.Warn(log.CatWatcher, "intake rejected", "watcher", w.name, "error", err)
		return err
	}
	if delivered != nil {
		log.Debug(log.CatWatcher, "delivered to waiter", "watcher", w.name, "request", delivered.id)
	}
	return nil
}

// offer hands v to the waiter or buffers it. Returns the waiter it resolved.
func (w *Watcher[R, A]) offer(v A) (*request[A], error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, &MisuseError{Op: "intake", Watcher: w.name, Err: ErrClosed}
	}

	// A waiter that already timed out or was cancelled keeps its outcome;
	// the event is buffered for the next Retrieve instead.
	if req := w.pending; req != nil && req.cell.resolve(v) {
		return req, nil
	}

	if err := w.buffer.Push(v); err != nil {
		return nil, fmt.Errorf("eventwatcher %s: %w", w.name, err)
	}
	return nil, nil
}

// Retrieve returns the next accepted event. If one is buffered it is returned
// at once. Otherwise Retrieve waits up to timeout (the watcher default when
// timeout <= 0) for Intake to deliver one.
//
// Errors: ErrTimeout when the wait expires, ErrClosed if the watcher is
// closed before or during the wait, ctx.Err() if ctx ends first, and a
// *MisuseError wrapping ErrConcurrentRetrieve if another Retrieve is pending.
func (w *Watcher[R, A]) Retrieve(ctx context.Context, timeout time.Duration) (A, error) {
	if timeout <= 0 {
		timeout = w.defaultTimeout
	}

	ctx, span := w.tracer.Start(ctx, tracing.SpanRetrieve,
		trace.WithAttributes(
			attribute.String(tracing.AttrWatcherID, w.id),
			attribute.String(tracing.AttrWatcherName, w.name),
			attribute.Int64(tracing.AttrTimeoutMs, timeout.Milliseconds()),
		),
	)
	defer span.End()

	v, outcome, err := w.retrieve(ctx, span, timeout)

	span.SetAttributes(attribute.String(tracing.AttrOutcome, outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug(log.CatWatcher, "retrieve failed", "watcher", w.name, "outcome", outcome, "error", err)
	}
	return v, err
}

func (w *Watcher[R, A]) retrieve(ctx context.Context, span trace.Span, timeout time.Duration) (A, string, error) {
	var zero A

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return zero, tracing.OutcomeClosed, fmt.Errorf("eventwatcher %s: %w", w.name, ErrClosed)
	}
	if v, ok := w.buffer.Pop(); ok {
		buffered := w.buffer.Len()
		w.mu.Unlock()
		span.SetAttributes(attribute.Int(tracing.AttrBuffered, buffered))
		return v, tracing.OutcomeImmediate, nil
	}
	if w.pending != nil {
		w.mu.Unlock()
		return zero, tracing.OutcomeMisuse, &MisuseError{Op: "retrieve", Watcher: w.name, Err: ErrConcurrentRetrieve}
	}

	req := &request[A]{
		id:   uuid.NewString(),
		cell: newCell[A](),
	}
	req.timer = time.AfterFunc(timeout, func() {
		req.cell.cancel(ErrTimeout)
	})
	w.pending = req
	w.mu.Unlock()

	span.SetAttributes(attribute.String(tracing.AttrRequestID, req.id))

	select {
	case <-req.cell.done:
	case <-ctx.Done():
		// Loses to a concurrent resolve, in which case the value is kept
		req.cell.cancel(ctx.Err())
		<-req.cell.done
	}

	w.mu.Lock()
	if w.pending == req {
		w.pending = nil
	}
	req.timer.Stop()
	w.mu.Unlock()

	v, err := req.cell.result()
	switch {
	case err == nil:
		span.AddEvent(tracing.EventDelivered)
		return v, tracing.OutcomeWoken, nil
	case errors.Is(err, ErrTimeout):
		return zero, tracing.OutcomeTimeout, fmt.Errorf("eventwatcher %s: %w after %s", w.name, ErrTimeout, timeout)
	case errors.Is(err, ErrClosed):
		return zero, tracing.OutcomeClosed, fmt.Errorf("eventwatcher %s: %w", w.name, ErrClosed)
	default:
		return zero, tracing.OutcomeCancelled, fmt.Errorf("eventwatcher %s: %w", w.name, err)
	}
}

// Close disposes of the watcher. Buffered events are dropped, a pending
// Retrieve returns ErrClosed, and later Intake calls report a *MisuseError.
// Close is idempotent.
//
// Callers should unregister Intake from its event source before closing.
func (w *Watcher[R, A]) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	dropped := len(w.buffer.Drain())
	released := false
	if w.pending != nil {
		released = w.pending.cell.cancel(ErrClosed)
	}
	w.mu.Unlock()

	log.Debug(log.CatWatcher, "watcher closed", "watcher", w.name, "dropped", dropped, "released_waiter", released)
	return nil
}

// Len returns the number of buffered events.
func (w *Watcher[R, A]) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buffer.Len()
}

// Waiting reports whether a Retrieve is currently pending.
func (w *Watcher[R, A]) Waiting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending != nil
}

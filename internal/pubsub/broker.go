package pubsub

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 64

// Broker is a generic pub/sub event broker.
// It allows multiple subscribers to receive events published by publishers.
//
// Channel subscribers are lossy: a full subscriber channel drops the event.
// Handlers registered with Handle are lossless: Publish calls them in the
// publishing goroutine before it returns.
type Broker[T any] struct {
	subs       map[chan Event[T]]struct{}
	handlers   map[uint64]func(Event[T])
	nextID     uint64
	mu         sync.RWMutex
	done       chan struct{}
	bufferSize int
}

var _ Source[struct{}] = (*Broker[struct{}])(nil)

// NewBroker creates a new broker with the default buffer size (64).
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer creates a new broker with a custom buffer size.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	return &Broker[T]{
		subs:       make(map[chan Event[T]]struct{}),
		handlers:   make(map[uint64]func(Event[T])),
		done:       make(chan struct{}),
		bufferSize: size,
	}
}

// Subscribe creates a new subscription channel.
// The channel is automatically closed when ctx is cancelled.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Check if broker is closed
	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	sub := make(chan Event[T], b.bufferSize)
	b.subs[sub] = struct{}{}

	// Cleanup goroutine
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		defer b.mu.Unlock()

		select {
		case <-b.done:
			return // Already closed
		default:
		}

		delete(b.subs, sub)
		close(sub)
	}()

	return sub
}

// Handle registers fn to be called for every published event.
// Handlers of concurrent Publish calls run concurrently. Once remove returns,
// fn is not running and will not be called again. fn must not call back into
// the broker.
func (b *Broker[T]) Handle(fn func(Event[T])) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return func() {}
	default:
	}

	b.nextID++
	id := b.nextID
	b.handlers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
		})
	}
}

// Publish sends an event to all subscribers and handlers.
// Non-blocking for channel subscribers: drops events if a channel is full.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return
	default:
	}

	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	for sub := range b.subs {
		select {
		case sub <- event:
			// Delivered
		default:
			// Channel full - drop to prevent blocking
		}
	}

	for _, fn := range b.handlers {
		fn(event)
	}
}

// Close shuts down the broker, closes all subscriber channels and drops
// every handler.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		return // Already closed
	default:
	}

	close(b.done)
	for sub := range b.subs {
		close(sub)
	}
	b.subs = nil
	b.handlers = nil
}

// SubscriberCount returns the number of active channel subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// HandlerCount returns the number of registered handlers.
func (b *Broker[T]) HandlerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

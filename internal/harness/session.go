// Package harness wires an event source to per-channel event watchers so a
// test driver can send commands and wait for the bot's replies.
package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/botcheck/internal/cachemanager"
	"github.com/zjrosen/botcheck/internal/chat"
	"github.com/zjrosen/botcheck/internal/eventwatcher"
	"github.com/zjrosen/botcheck/internal/log"
	"github.com/zjrosen/botcheck/internal/pubsub"
)

// DefaultDedupeTTL is how long a delivered message ID is remembered.
const DefaultDedupeTTL = 10 * time.Minute

// Config configures a Session.
type Config struct {
	// SelfID is the tester's own author ID. Its messages are never replies.
	SelfID string
	// DefaultTimeout applies to Channel.Next calls with timeout <= 0.
	DefaultTimeout time.Duration
	// DedupeTTL bounds duplicate suppression. Zero uses DefaultDedupeTTL.
	DedupeTTL time.Duration
	// MaxBuffered caps unread replies per channel. Zero means unbounded.
	MaxBuffered int
	// Tracer receives Retrieve spans. Nil uses the global provider.
	Tracer trace.Tracer
	// Source delivers raw messages. Nil creates an in-process broker.
	Source pubsub.Source[chat.Message]
}

// Session owns the event source and every channel watcher built on it.
type Session struct {
	cfg    Config
	source pubsub.Source[chat.Message]
	seen   cachemanager.CacheManager[string, struct{}]

	mu       sync.Mutex
	channels map[string]*Channel
	closed   bool
}

// NewSession creates a session. The session owns cfg.Source and closes it.
func NewSession(cfg Config) *Session {
	if cfg.DedupeTTL <= 0 {
		cfg.DedupeTTL = DefaultDedupeTTL
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = eventwatcher.DefaultTimeout
	}
	source := cfg.Source
	if source == nil {
		source = pubsub.NewBroker[chat.Message]()
	}
	return &Session{
		cfg:      cfg,
		source:   source,
		seen:     cachemanager.NewInMemoryCacheManager[string, struct{}]("seen-messages", cfg.DedupeTTL, 2*cfg.DedupeTTL),
		channels: make(map[string]*Channel),
	}
}

// Publish delivers one raw message to every channel watcher. It returns after
// each watcher has taken the message in.
func (s *Session) Publish(msg chat.Message) {
	s.source.Publish(pubsub.CreatedEvent, msg)
}

// Subscribe exposes the raw message stream for observers such as loggers.
// Delivery is best effort.
func (s *Session) Subscribe(ctx context.Context) <-chan pubsub.Event[chat.Message] {
	return s.source.Subscribe(ctx)
}

// Watch starts collecting replies in channelID. A channel may be watched by
// at most one Channel at a time.
func (s *Session) Watch(channelID string) (*Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &eventwatcher.MisuseError{Op: "watch", Watcher: channelID, Err: eventwatcher.ErrClosed}
	}
	if _, ok := s.channels[channelID]; ok {
		return nil, &eventwatcher.MisuseError{Op: "watch", Watcher: channelID, Err: ErrAlreadyWatched}
	}

	filter := chat.Dedupe(chat.RepliesIn(channelID, s.cfg.SelfID), s.seen, s.cfg.DedupeTTL)
	w := eventwatcher.New(filter,
		eventwatcher.WithName("channel:"+channelID),
		eventwatcher.WithDefaultTimeout(s.cfg.DefaultTimeout),
		eventwatcher.WithMaxBuffered(s.cfg.MaxBuffered),
		eventwatcher.WithTracer(s.cfg.Tracer),
	)

	c := &Channel{id: channelID, session: s, watcher: w}
	c.remove = s.source.Handle(func(ev pubsub.Event[chat.Message]) {
		if err := w.Intake(ev.Payload); err != nil {
			// The filter already recorded the ID; a redelivery must get through.
			_ = s.seen.Delete(context.Background(), chat.DedupeKey(ev.Payload))
			log.ErrorErr(log.CatHarness, "intake failed", err, "channel", channelID, "message", ev.Payload.ID)
		}
	})
	s.channels[channelID] = c

	log.Debug(log.CatHarness, "watching channel", "channel", channelID, "watcher", w.ID())
	return c, nil
}

// Close closes every channel and the event source. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	channels := make([]*Channel, 0, len(s.channels))
	for _, c := range s.channels {
		channels = append(channels, c)
	}
	s.mu.Unlock()

	for _, c := range channels {
		if err := c.Close(); err != nil {
			return fmt.Errorf("closing channel %s: %w", c.id, err)
		}
	}
	s.source.Close()
	return s.seen.Flush(context.Background())
}

func (s *Session) forget(c *Channel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channels[c.id] == c {
		delete(s.channels, c.id)
	}
}

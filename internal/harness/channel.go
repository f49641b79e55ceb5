package harness

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zjrosen/botcheck/internal/chat"
	"github.com/zjrosen/botcheck/internal/eventwatcher"
	"github.com/zjrosen/botcheck/internal/log"
)

// ErrAlreadyWatched is wrapped in the MisuseError returned by a second Watch
// of the same channel.
var ErrAlreadyWatched = errors.New("channel already watched")

// Channel collects replies posted in one channel.
type Channel struct {
	id      string
	session *Session
	watcher *eventwatcher.Watcher[chat.Message, chat.Message]
	remove  func()

	closeOnce sync.Once
	closeErr  error
}

// ID returns the watched channel ID.
func (c *Channel) ID() string { return c.id }

// Next returns the next reply, waiting up to timeout for one to arrive.
func (c *Channel) Next(ctx context.Context, timeout time.Duration) (chat.Message, error) {
	return c.watcher.Retrieve(ctx, timeout)
}

// Collect returns the next n replies. It stops at the first error and
// returns the replies gathered so far alongside it.
func (c *Channel) Collect(ctx context.Context, n int, timeout time.Duration) ([]chat.Message, error) {
	out := make([]chat.Message, 0, n)
	for len(out) < n {
		msg, err := c.Next(ctx, timeout)
		if err != nil {
			return out, err
		}
		out = append(out, msg)
	}
	return out, nil
}

// Pending returns the number of replies buffered and not yet returned by Next.
func (c *Channel) Pending() int { return c.watcher.Len() }

// Close stops watching the channel. The source is detached before the
// watcher is closed, so no message is delivered to a closed watcher.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.remove()
		c.closeErr = c.watcher.Close()
		c.session.forget(c)
		log.Debug(log.CatHarness, "stopped watching channel", "channel", c.id)
	})
	return c.closeErr
}

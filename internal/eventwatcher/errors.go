package eventwatcher

import (
	"errors"
	"fmt"

	"github.com/zjrosen/botcheck/internal/queue"
)

var (
	// ErrTimeout is returned by Retrieve when no accepted event arrives in time.
	ErrTimeout = errors.New("timed out waiting for event")

	// ErrClosed is returned once the watcher has been closed.
	ErrClosed = errors.New("watcher closed")

	// ErrConcurrentRetrieve reports a Retrieve issued while another is pending.
	ErrConcurrentRetrieve = errors.New("retrieve already pending")

	// ErrBufferFull is returned by Intake when a bounded watcher is at capacity.
	ErrBufferFull = queue.ErrQueueFull
)

// MisuseError reports a programming error by the caller, such as overlapping
// Retrieve calls or Intake after Close. The watcher state is left untouched.
type MisuseError struct {
	Op      string // "intake", "retrieve", or a caller-defined operation
	Watcher string
	Err     error
}

func (e *MisuseError) Error() string {
	return fmt.Sprintf("eventwatcher %s: misuse in %s: %v", e.Watcher, e.Op, e.Err)
}

func (e *MisuseError) Unwrap() error {
	return e.Err
}

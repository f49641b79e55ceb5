package eventwatcher

import "sync/atomic"

type cellState int32

const (
	cellPending cellState = iota
	cellResolved
	cellCancelled
)

// cell is a single-assignment result slot. The first of resolve or cancel
// wins; later attempts return false and change nothing. value and err are
// written by the winner before done is closed and read only after.
type cell[A any] struct {
	state atomic.Int32
	value A
	err   error
	done  chan struct{}
}

func newCell[A any]() *cell[A] {
	return &cell[A]{done: make(chan struct{})}
}

func (c *cell[A]) resolve(v A) bool {
	if !c.state.CompareAndSwap(int32(cellPending), int32(cellResolved)) {
		return false
	}
	c.value = v
	close(c.done)
	return true
}

func (c *cell[A]) cancel(err error) bool {
	if !c.state.CompareAndSwap(int32(cellPending), int32(cellCancelled)) {
		return false
	}
	c.err = err
	close(c.done)
	return true
}

func (c *cell[A]) pending() bool {
	return cellState(c.state.Load()) == cellPending
}

// result must only be called after done is closed.
func (c *cell[A]) result() (A, error) {
	return c.value, c.err
}

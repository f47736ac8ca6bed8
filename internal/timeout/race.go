// Package timeout races a blocking call against a deadline.
package timeout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrTimedOut is returned when the deadline wins the race.
var ErrTimedOut = errors.New("operation timed out")

type outcome[T any] struct {
	value T
	err   error
}

// cell accepts exactly one outcome. Later deliveries are dropped.
type cell[T any] struct {
	claimed atomic.Bool
	ch      chan outcome[T]
}

func newCell[T any]() *cell[T] {
	return &cell[T]{ch: make(chan outcome[T], 1)}
}

func (c *cell[T]) deliver(o outcome[T]) bool {
	if !c.claimed.CompareAndSwap(false, true) {
		return false
	}
	c.ch <- o
	return true
}

// Race runs fn and returns its result, or ErrTimedOut once d elapses.
// fn receives a context that is cancelled when the race is decided; a late
// result is discarded.
func Race[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c := newCell[T]()
	go func() {
		v, err := fn(raceCtx)
		c.deliver(outcome[T]{value: v, err: err})
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case o := <-c.ch:
		return o.value, o.err
	case <-timer.C:
		c.deliver(outcome[T]{value: zero, err: fmt.Errorf("%w after %s", ErrTimedOut, d)})
	case <-ctx.Done():
		c.deliver(outcome[T]{value: zero, err: ctx.Err()})
	}
	// Whichever side claimed the cell first has already sent its outcome.
	o := <-c.ch
	return o.value, o.err
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package idempotency

import (
	"context"
	"sync"
)

// Completion delivers a leader's outcome to every follower of one record.
//
// It is created together with the PROCESSING record, so a follower that can
// see the record can always wait on it. Delivery happens by closing a
// channel: waiters that arrive after the outcome was set return immediately.
type Completion struct {
	once     sync.Once
	done     chan struct{}
	outcome  Outcome
	released bool
}

func newCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Publish records a successful outcome and wakes all waiters.
// Only the first Publish or Release has any effect; it reports whether this call won.
func (c *Completion) Publish(o Outcome) bool {
	return c.finish(o, false)
}

// Release wakes all waiters with a failure outcome. The record it belongs to
// is gone, so later requests for the key start over.
func (c *Completion) Release(o Outcome) bool {
	return c.finish(o, true)
}

func (c *Completion) finish(o Outcome, released bool) bool {
	won := false
	c.once.Do(func() {
		c.outcome = o
		c.released = released
		close(c.done)
		won = true
	})
	return won
}

// Done is closed once an outcome is available.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Await blocks until an outcome is available or ctx ends.
func (c *Completion) Await(ctx context.Context) (Outcome, error) {
	select {
	case <-c.done:
		return c.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// Released reports whether the leader gave up instead of completing.
// Only meaningful after Done is closed.
func (c *Completion) Released() bool {
	select {
	case <-c.done:
		return c.released
	default:
		return false
	}
}

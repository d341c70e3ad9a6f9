// Package signal provides the cross-task communication primitives used by the
// coordinators: latest-value cells, a one-shot reset latch, and a small
// broadcast bus for gesture events. All primitives are safe for concurrent
// use, and no method ever blocks.
package signal

import "sync"

// Value is a single-slot, overwrite-on-publish cell. Readers see the most
// recently published value or nothing at all; there is no history and no
// backpressure.
type Value[T any] struct {
	mu  sync.Mutex
	v   T
	set bool
}

// Set publishes v, replacing any previous value.
func (c *Value[T]) Set(v T) {
	c.mu.Lock()
	c.v = v
	c.set = true
	c.mu.Unlock()
}

// Get returns the most recently published value. The second return is false
// if nothing has been published yet.
func (c *Value[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v, c.set
}

// Latch is a one-shot boolean broadcast: the producer trips it, and the
// consumer that observes it clears it in the same operation. At most one
// trip is pending at a time; tripping an already-tripped latch is a no-op.
type Latch struct {
	mu      sync.Mutex
	tripped bool
}

// Trip arms the latch.
func (l *Latch) Trip() {
	l.mu.Lock()
	l.tripped = true
	l.mu.Unlock()
}

// TakeIf reports whether the latch was tripped, clearing it atomically so
// that exactly one caller observes each trip.
func (l *Latch) TakeIf() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.tripped
	l.tripped = false
	return t
}

package signal

import (
	"sync"

	"github.com/sweeney/pdswitch/internal/button"
)

// SubscriptionDepth is the per-subscriber backlog. Coordinators drain one
// event per tick, so two slots absorb a click arriving while a hold pair is
// still queued; anything beyond that is deliberately dropped.
const SubscriptionDepth = 2

// Bus fans gesture events out to independent subscribers. Publish never
// blocks: a subscriber whose backlog is full loses its oldest event, so one
// slow consumer cannot stall the detector or starve the others.
type Bus struct {
	mu   sync.Mutex
	subs []*Subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new independent cursor. All events published after
// this call are delivered to the subscription, subject to backlog capacity.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s
}

// Publish delivers ev to every subscriber, dropping each subscriber's oldest
// buffered event on overflow.
func (b *Bus) Publish(ev button.Event) {
	b.mu.Lock()
	subs := b.subs
	b.mu.Unlock()
	for _, s := range subs {
		s.push(ev)
	}
}

// Subscription is one consumer's view of the bus. Each coordinator owns
// exactly one and drains it with TryNext from its own tick loop.
type Subscription struct {
	mu      sync.Mutex
	buf     [SubscriptionDepth]button.Event
	head    int // next read position
	count   int
	dropped int
}

func (s *Subscription) push(ev button.Event) {
	s.mu.Lock()
	if s.count == len(s.buf) {
		// Overwrite the oldest; delivery is at-most-recent, not guaranteed.
		s.head = (s.head + 1) % len(s.buf)
		s.count--
		s.dropped++
	}
	s.buf[(s.head+s.count)%len(s.buf)] = ev
	s.count++
	s.mu.Unlock()
}

// TryNext returns the next pending event without blocking. The second return
// is false when the backlog is empty.
func (s *Subscription) TryNext() (button.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == 0 {
		return "", false
	}
	ev := s.buf[s.head]
	s.head = (s.head + 1) % len(s.buf)
	s.count--
	return ev, true
}

// Dropped returns the number of events lost to backlog overflow since the
// subscription was created.
func (s *Subscription) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

package button

import (
	"context"
	"sync"
)

// FakePin is a test double driven by explicit SetActive calls. Waits are
// level-triggered, so tests never race the detector: setting the level before
// the detector starts waiting still unblocks it.
type FakePin struct {
	mu      sync.Mutex
	active  bool
	changed chan struct{}
}

// NewFakePin creates a FakePin in the inactive state.
func NewFakePin() *FakePin {
	return &FakePin{changed: make(chan struct{})}
}

// SetActive sets the pin level. Pending waiters for that level are released.
func (p *FakePin) SetActive(active bool) {
	p.mu.Lock()
	if p.active != active {
		p.active = active
		close(p.changed)
		p.changed = make(chan struct{})
	}
	p.mu.Unlock()
}

// IsActive returns the current level.
func (p *FakePin) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// WaitForActive blocks until the pin is active.
func (p *FakePin) WaitForActive(ctx context.Context) error {
	return p.waitLevel(ctx, true)
}

// WaitForInactive blocks until the pin is inactive.
func (p *FakePin) WaitForInactive(ctx context.Context) error {
	return p.waitLevel(ctx, false)
}

func (p *FakePin) waitLevel(ctx context.Context, want bool) error {
	for {
		p.mu.Lock()
		if p.active == want {
			p.mu.Unlock()
			return nil
		}
		ch := p.changed
		p.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

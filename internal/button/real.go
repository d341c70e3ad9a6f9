//go:build linux

package button

import (
	"context"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealPin reads a physical button through the Linux GPIO character device,
// using edge events rather than polling so waits suspend in the kernel.
type RealPin struct {
	line    *gpiocdev.Line
	mu      sync.Mutex
	active  bool
	changed chan struct{}
}

// NewRealPin requests the given line as an input with both-edge events.
// The button is wired active-high with an external pull-down.
func NewRealPin(chip string, offset int) (*RealPin, error) {
	p := &RealPin{changed: make(chan struct{})}
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(p.handleEdge))
	if err != nil {
		return nil, fmt.Errorf("request button pin %d: %w", offset, err)
	}
	p.line = line

	v, err := line.Value()
	if err != nil {
		line.Close()
		return nil, fmt.Errorf("read button pin %d: %w", offset, err)
	}
	p.setLevel(v != 0)
	return p, nil
}

func (p *RealPin) handleEdge(evt gpiocdev.LineEvent) {
	p.setLevel(evt.Type == gpiocdev.LineEventRisingEdge)
}

func (p *RealPin) setLevel(active bool) {
	p.mu.Lock()
	if p.active != active {
		p.active = active
		close(p.changed)
		p.changed = make(chan struct{})
	}
	p.mu.Unlock()
}

// IsActive returns the last observed level.
func (p *RealPin) IsActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// WaitForActive blocks until the pin is active.
func (p *RealPin) WaitForActive(ctx context.Context) error {
	return p.waitLevel(ctx, true)
}

// WaitForInactive blocks until the pin is inactive.
func (p *RealPin) WaitForInactive(ctx context.Context) error {
	return p.waitLevel(ctx, false)
}

func (p *RealPin) waitLevel(ctx context.Context, want bool) error {
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

// Close releases the GPIO line.
func (p *RealPin) Close() error {
	return p.line.Close()
}

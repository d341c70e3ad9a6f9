// Package button turns a noisy physical push-button into a stream of discrete
// gesture events: a debounced click, and a long-press pair whose start fires
// at the threshold instant rather than at release. The detector is
// polymorphic over its time source and pin so tests can drive it with a fake
// clock and scripted pin levels, with no real sleeps anywhere.
package button

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

// Event is a discrete gesture. Each physical interaction produces its events
// exactly once; they are never replayed.
type Event string

const (
	// EventClick is a press held for at least the debounce interval and
	// released before the long-press threshold.
	EventClick Event = "CLICK"
	// EventHoldStart fires the instant a press crosses the long-press
	// threshold, while the button is still down.
	EventHoldStart Event = "HOLD_START"
	// EventHoldEnd fires when a long press is released.
	EventHoldEnd Event = "HOLD_END"
)

// Default gesture timing.
const (
	DefaultDebounce  = 50 * time.Millisecond
	DefaultLongPress = 1000 * time.Millisecond
)

// Pin is a level-triggered view of the physical button. Waits return
// immediately if the pin is already at the requested level, and honour
// context cancellation.
type Pin interface {
	// IsActive returns the current logical level (true = pressed).
	IsActive() bool
	// WaitForActive blocks until the pin is active.
	WaitForActive(ctx context.Context) error
	// WaitForInactive blocks until the pin is inactive.
	WaitForInactive(ctx context.Context) error
}

type state int

const (
	stateIdle state = iota
	stateDebouncing
	stateHeld
	stateLongHeld
)

// Detector is the per-button gesture state machine. It is exclusively owned
// by the goroutine calling Next and holds no shared state.
type Detector struct {
	clock     clockwork.Clock
	pin       Pin
	debounce  time.Duration
	longPress time.Duration

	state       state
	pressStart  time.Time
	pressCount  int
	bounceCount int
}

// NewDetector creates a detector for one button. Zero durations fall back to
// the package defaults.
func NewDetector(clock clockwork.Clock, pin Pin, debounce, longPress time.Duration) *Detector {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if longPress <= 0 {
		longPress = DefaultLongPress
	}
	return &Detector{
		clock:     clock,
		pin:       pin,
		debounce:  debounce,
		longPress: longPress,
	}
}

// Next blocks until the next gesture event. It returns an error only when
// ctx is cancelled or the pin wait fails; bounce and other input noise are
// absorbed silently.
//
// Guarantees, per physical press:
//   - shorter than the debounce interval: no event;
//   - within [debounce, longPress): exactly one Click at release;
//   - at or past longPress: exactly one HoldStart at pressStart+longPress,
//     then exactly one HoldEnd at release, no matter how long the hold lasts.
func (d *Detector) Next(ctx context.Context) (Event, error) {
	for {
		switch d.state {
		case stateIdle:
			d.pressStart = time.Time{}
			if err := d.pin.WaitForActive(ctx); err != nil {
				return "", err
			}
			d.pressStart = d.clock.Now()
			d.pressCount++
			d.state = stateDebouncing

		case stateDebouncing:
			if err := d.sleep(ctx, d.debounce); err != nil {
				return "", err
			}
			if !d.pin.IsActive() {
				// Released inside the debounce window: mechanical bounce.
				d.bounceCount++
				d.state = stateIdle
				continue
			}
			d.state = stateHeld

		case stateHeld:
			deadline := d.pressStart.Add(d.longPress)
			released, err := d.waitInactiveOrDeadline(ctx, deadline)
			if err != nil {
				return "", err
			}
			if !released || !d.clock.Now().Before(deadline) {
				// Deadline reached, or release landed exactly on it: the
				// hold side wins ties.
				d.state = stateLongHeld
				return EventHoldStart, nil
			}
			held := d.clock.Now().Sub(d.pressStart)
			d.state = stateIdle
			if held < d.debounce {
				d.bounceCount++
				continue
			}
			return EventClick, nil

		case stateLongHeld:
			if err := d.pin.WaitForInactive(ctx); err != nil {
				return "", err
			}
			d.state = stateIdle
			return EventHoldEnd, nil
		}
	}
}

// PressCount returns the number of raw press edges seen, including bounces.
func (d *Detector) PressCount() int { return d.pressCount }

// BounceCount returns the number of presses discarded as noise.
func (d *Detector) BounceCount() int { return d.bounceCount }

func (d *Detector) sleep(ctx context.Context, dur time.Duration) error {
	select {
	case <-d.clock.After(dur):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitInactiveOrDeadline races a release against the long-press deadline and
// reports which side won.
func (d *Detector) waitInactiveOrDeadline(ctx context.Context, deadline time.Time) (released bool, err error) {
	remaining := deadline.Sub(d.clock.Now())
	if remaining <= 0 {
		return false, nil
	}
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	relCh := make(chan error, 1)
	go func() {
		relCh <- d.pin.WaitForInactive(waitCtx)
	}()
	select {
	case err := <-relCh:
		if err != nil {
			return false, err
		}
		return true, nil
	case <-d.clock.After(remaining):
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

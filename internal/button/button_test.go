package button

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	testDebounce  = 50 * time.Millisecond
	testLongPress = 1000 * time.Millisecond
)

// harness runs a detector in a goroutine and exposes deterministic levers:
// the fake clock only moves via Advance, and the fake pin only moves via
// SetActive, so every test is exact to the millisecond.
type harness struct {
	t      *testing.T
	clock  clockwork.FakeClock
	pin    *FakePin
	cancel context.CancelFunc
	events chan Event
	errs   chan error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		clock:  clockwork.NewFakeClock(),
		pin:    NewFakePin(),
		events: make(chan Event, 16),
		errs:   make(chan error, 1),
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	det := NewDetector(h.clock, h.pin, testDebounce, testLongPress)
	go func() {
		for {
			ev, err := det.Next(ctx)
			if err != nil {
				h.errs <- err
				return
			}
			h.events <- ev
		}
	}()
	t.Cleanup(cancel)
	return h
}

// press drives the pin active and advances through the debounce window,
// leaving the detector in the held state with its long-press timer armed.
func (h *harness) press() {
	h.t.Helper()
	h.pin.SetActive(true)
	h.clock.BlockUntil(1) // debounce sleep armed; press start recorded
	h.clock.Advance(testDebounce)
	h.clock.BlockUntil(1) // long-press timer armed; pin re-checked
}

func (h *harness) waitEvent() Event {
	h.t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case err := <-h.errs:
		h.t.Fatalf("detector stopped: %v", err)
	case <-time.After(5 * time.Second):
		h.t.Fatal("timed out waiting for event")
	}
	return ""
}

// flush advances past any stale long-press timer left from a completed
// press so BlockUntil counts start from zero in the next cycle.
func (h *harness) flush() {
	h.clock.Advance(2 * testLongPress)
}

func TestClick(t *testing.T) {
	h := newHarness(t)

	h.press()
	h.clock.Advance(450 * time.Millisecond) // released at 500ms total
	h.pin.SetActive(false)

	if ev := h.waitEvent(); ev != EventClick {
		t.Fatalf("expected %s, got %s", EventClick, ev)
	}
}

func TestClickAtExactDebounceBoundary(t *testing.T) {
	h := newHarness(t)

	h.press()
	// Release with no further advance: held for exactly the debounce
	// interval, which is inside the valid click window (inclusive bound).
	h.pin.SetActive(false)

	if ev := h.waitEvent(); ev != EventClick {
		t.Fatalf("expected %s at exact debounce duration, got %s", EventClick, ev)
	}
}

func TestSubDebouncePressEmitsNothing(t *testing.T) {
	h := newHarness(t)

	// Press and release inside the debounce window.
	h.pin.SetActive(true)
	h.clock.BlockUntil(1)
	h.pin.SetActive(false)
	h.clock.Advance(testDebounce) // debounce expires on an inactive pin

	// A following clean click must be the first event observed, proving the
	// bounce produced nothing.
	h.press()
	h.clock.Advance(100 * time.Millisecond)
	h.pin.SetActive(false)

	if ev := h.waitEvent(); ev != EventClick {
		t.Fatalf("expected only %s after bounce, got %s", EventClick, ev)
	}
}

func TestHoldStartFiresAtThresholdNotRelease(t *testing.T) {
	h := newHarness(t)

	h.press()
	h.clock.Advance(testLongPress - testDebounce) // exactly at the threshold

	// HoldStart must arrive without any release or further time movement.
	if ev := h.waitEvent(); ev != EventHoldStart {
		t.Fatalf("expected %s at threshold, got %s", EventHoldStart, ev)
	}

	// Keep holding well past the threshold: no second HoldStart.
	h.clock.Advance(10 * time.Second)
	select {
	case ev := <-h.events:
		t.Fatalf("unexpected extra event %s during continued hold", ev)
	default:
	}

	h.pin.SetActive(false)
	if ev := h.waitEvent(); ev != EventHoldEnd {
		t.Fatalf("expected %s at release, got %s", EventHoldEnd, ev)
	}
}

func TestHoldExactlyAtThresholdResolvesToHold(t *testing.T) {
	h := newHarness(t)

	h.press()
	h.clock.Advance(testLongPress - testDebounce)
	// Release lands at the same instant as the deadline; the hold side wins.
	h.pin.SetActive(false)

	if ev := h.waitEvent(); ev != EventHoldStart {
		t.Fatalf("expected %s on threshold tie, got %s", EventHoldStart, ev)
	}
	if ev := h.waitEvent(); ev != EventHoldEnd {
		t.Fatalf("expected %s after tie release, got %s", EventHoldEnd, ev)
	}
}

func TestRepeatedClickCycles(t *testing.T) {
	h := newHarness(t)

	const n = 5
	for i := 0; i < n; i++ {
		h.press()
		h.clock.Advance(200 * time.Millisecond)
		h.pin.SetActive(false)
		if ev := h.waitEvent(); ev != EventClick {
			t.Fatalf("cycle %d: expected %s, got %s", i, EventClick, ev)
		}
		h.flush()
	}
}

func TestRepeatedHoldCycles(t *testing.T) {
	h := newHarness(t)

	const n = 3
	for i := 0; i < n; i++ {
		h.press()
		h.clock.Advance(testLongPress - testDebounce)
		if ev := h.waitEvent(); ev != EventHoldStart {
			t.Fatalf("cycle %d: expected %s, got %s", i, EventHoldStart, ev)
		}
		h.clock.Advance(3 * time.Second)
		h.pin.SetActive(false)
		if ev := h.waitEvent(); ev != EventHoldEnd {
			t.Fatalf("cycle %d: expected %s, got %s", i, EventHoldEnd, ev)
		}
	}
}

func TestClickThenHoldSequence(t *testing.T) {
	h := newHarness(t)

	h.press()
	h.clock.Advance(300 * time.Millisecond)
	h.pin.SetActive(false)
	if ev := h.waitEvent(); ev != EventClick {
		t.Fatalf("expected %s, got %s", EventClick, ev)
	}
	h.flush()

	h.press()
	h.clock.Advance(testLongPress - testDebounce)
	if ev := h.waitEvent(); ev != EventHoldStart {
		t.Fatalf("expected %s, got %s", EventHoldStart, ev)
	}
	h.pin.SetActive(false)
	if ev := h.waitEvent(); ev != EventHoldEnd {
		t.Fatalf("expected %s, got %s", EventHoldEnd, ev)
	}
}

func TestCancelStopsDetector(t *testing.T) {
	h := newHarness(t)

	h.cancel()
	select {
	case err := <-h.errs:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("detector did not stop on cancel")
	}
}

func TestFakePinLevelTriggeredWaits(t *testing.T) {
	pin := NewFakePin()
	pin.SetActive(true)

	// Wait must return immediately when the level is already reached.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pin.WaitForActive(ctx); err != nil {
		t.Fatalf("WaitForActive on active pin: %v", err)
	}
	if !pin.IsActive() {
		t.Fatal("expected pin active")
	}
}

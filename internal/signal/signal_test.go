package signal

import (
	"testing"

	"github.com/sweeney/pdswitch/internal/button"
)

func TestValueUnsetThenSet(t *testing.T) {
	var v Value[float64]

	if _, ok := v.Get(); ok {
		t.Fatal("expected no value before first Set")
	}

	v.Set(5.1)
	got, ok := v.Get()
	if !ok || got != 5.1 {
		t.Fatalf("Get() = %v, %v; want 5.1, true", got, ok)
	}

	v.Set(9.0)
	got, _ = v.Get()
	if got != 9.0 {
		t.Fatalf("Get() after overwrite = %v; want 9.0", got)
	}
}

func TestLatchTakeIfClears(t *testing.T) {
	var l Latch

	if l.TakeIf() {
		t.Fatal("latch should start clear")
	}

	l.Trip()
	if !l.TakeIf() {
		t.Fatal("expected tripped latch to be taken")
	}
	if l.TakeIf() {
		t.Fatal("taking the latch must clear it")
	}
}

func TestLatchTripIsIdempotent(t *testing.T) {
	var l Latch

	l.Trip()
	l.Trip()
	if !l.TakeIf() {
		t.Fatal("expected tripped latch")
	}
	if l.TakeIf() {
		t.Fatal("double Trip must still clear with one take")
	}
}

func TestBusFanOut(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(button.EventClick)

	for name, sub := range map[string]*Subscription{"a": a, "b": b} {
		ev, ok := sub.TryNext()
		if !ok || ev != button.EventClick {
			t.Fatalf("subscriber %s: got %v, %v; want CLICK", name, ev, ok)
		}
		if _, ok := sub.TryNext(); ok {
			t.Fatalf("subscriber %s: expected empty queue after drain", name)
		}
	}
}

func TestBusIndependentCursors(t *testing.T) {
	bus := NewBus()
	fast := bus.Subscribe()
	slow := bus.Subscribe()

	bus.Publish(button.EventClick)
	if ev, ok := fast.TryNext(); !ok || ev != button.EventClick {
		t.Fatalf("fast: got %v, %v", ev, ok)
	}

	bus.Publish(button.EventHoldStart)

	// The slow subscriber still holds both events in order.
	if ev, _ := slow.TryNext(); ev != button.EventClick {
		t.Fatalf("slow first: got %v; want CLICK", ev)
	}
	if ev, _ := slow.TryNext(); ev != button.EventHoldStart {
		t.Fatalf("slow second: got %v; want HOLD_START", ev)
	}
}

func TestBusDropsOldestWhenFull(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	bus.Publish(button.EventClick)
	bus.Publish(button.EventHoldStart)
	bus.Publish(button.EventHoldEnd) // overflows, CLICK is discarded

	if ev, _ := sub.TryNext(); ev != button.EventHoldStart {
		t.Fatalf("first after overflow: got %v; want HOLD_START", ev)
	}
	if ev, _ := sub.TryNext(); ev != button.EventHoldEnd {
		t.Fatalf("second after overflow: got %v; want HOLD_END", ev)
	}
	if got := sub.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d; want 1", got)
	}
}

func TestBusOverflowIsPerSubscriber(t *testing.T) {
	bus := NewBus()
	slow := bus.Subscribe()
	fast := bus.Subscribe()

	bus.Publish(button.EventClick)
	fast.TryNext()
	bus.Publish(button.EventClick)
	fast.TryNext()
	bus.Publish(button.EventClick)
	fast.TryNext()

	if got := fast.Dropped(); got != 0 {
		t.Fatalf("fast Dropped() = %d; want 0", got)
	}
	if got := slow.Dropped(); got != 1 {
		t.Fatalf("slow Dropped() = %d; want 1", got)
	}
}

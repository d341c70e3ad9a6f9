// Package sysmode implements the system-mode coordinator. It owns the
// Standby/Working arbitration, drives the primary input enable line and the
// breathing/solid status LED, and broadcasts the reset that forces the
// secondary output back to a known state on every Standby to Working
// transition.
package sysmode

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sweeney/pdswitch/internal/button"
	"github.com/sweeney/pdswitch/internal/hw"
	"github.com/sweeney/pdswitch/internal/signal"
)

// Mode is the global system mode, owned exclusively by this coordinator.
type Mode string

const (
	// ModeStandby keeps the primary input disabled; the status LED breathes.
	ModeStandby Mode = "STANDBY"
	// ModeWorking enables the primary input; the status LED tracks the
	// secondary output.
	ModeWorking Mode = "WORKING"
)

// ledState is the visual style of the status LED.
type ledState string

const (
	ledOff       ledState = "OFF"
	ledBreathing ledState = "BREATHING"
	ledSolid     ledState = "SOLID"
)

// Timing. The breathing ramp covers a full period in breathPeriod ticks of
// the 20ms loop, a 3 second triangular pulse.
const (
	DefaultInterval = 20 * time.Millisecond
	breathPeriod    = 150
	reportEvery     = 250 // 250 * 20ms = 5s
)

// Inputs are the shared cells and channels the coordinator consumes.
type Inputs struct {
	Events      *signal.Subscription   // own gesture cursor
	VbusEnabled *signal.Value[bool]    // secondary coordinator's published state
	Primary     *signal.Value[float64] // input rail voltage, for reports only
}

// Outputs are the hardware and fabric outputs the coordinator owns.
type Outputs struct {
	Enable hw.Line             // primary input enable
	LED    hw.PWM              // status LED, open-drain (duty inverted)
	Reset  *signal.Latch       // reset broadcast to the secondary coordinator
	Mode   *signal.Value[Mode] // published mode, read by the secondary coordinator
}

// Coordinator owns Mode and everything derived from it. All state is
// confined to the goroutine calling Tick.
type Coordinator struct {
	in  Inputs
	out Outputs

	mode        Mode
	led         ledState
	breathPhase int
	tickCounter int
}

// New creates a coordinator in Standby with hardware applied accordingly.
func New(in Inputs, out Outputs) *Coordinator {
	c := &Coordinator{in: in, out: out, mode: ModeStandby, led: ledBreathing}
	out.Enable.Set(false)
	out.Mode.Set(ModeStandby)
	log.Printf("sysmode: initialized in %s", ModeStandby)
	return c
}

// Mode returns the current mode.
func (c *Coordinator) Mode() Mode { return c.mode }

// Tick runs one decision cycle: drain at most one gesture, update mode and
// hardware, and advance the LED effect.
func (c *Coordinator) Tick(now time.Time) {
	if ev, ok := c.in.Events.TryNext(); ok {
		switch ev {
		case button.EventHoldEnd:
			// Mode toggles on the release of a long press only. HoldStart is
			// UX feedback and must not toggle, or a single gesture would
			// flip the mode twice.
			c.toggle()
		default:
			log.Printf("sysmode: ignoring %s", ev)
		}
	}

	c.updateLEDState()
	c.driveLED()

	c.tickCounter++
	if c.tickCounter%reportEvery == 0 {
		log.Printf("sysmode: mode=%s led=%s vin=%.2fV", c.mode, c.led, c.primaryVolts())
	}
}

func (c *Coordinator) toggle() {
	next := ModeWorking
	if c.mode == ModeWorking {
		next = ModeStandby
	}
	log.Printf("sysmode: toggling %s -> %s", c.mode, next)

	if c.mode == ModeStandby && next == ModeWorking {
		// The secondary output must come up disabled after a power-mode
		// cycle. Trip the reset before touching hardware so the secondary
		// coordinator observes it on its very next cycle.
		c.out.Reset.Trip()
		log.Printf("sysmode: primary re-enabled, reset broadcast to secondary output")
	}

	c.mode = next
	c.out.Mode.Set(next)
	c.out.Enable.Set(next == ModeWorking)
}

func (c *Coordinator) updateLEDState() {
	var next ledState
	switch c.mode {
	case ModeStandby:
		next = ledBreathing
	case ModeWorking:
		if c.vbusEnabled() {
			next = ledSolid
		} else {
			next = ledOff
		}
	}
	if next != c.led {
		log.Printf("sysmode: led %s -> %s", c.led, next)
		c.led = next
	}
}

// driveLED recomputes the duty every cycle from the free-running breathing
// phase. The LED is wired open-drain, so the duty written to the PWM is the
// inverse of the brightness.
func (c *Coordinator) driveLED() {
	var brightness int
	switch c.led {
	case ledOff:
		brightness = 0
	case ledSolid:
		brightness = 100
	case ledBreathing:
		c.breathPhase++
		if c.breathPhase >= breathPeriod {
			c.breathPhase = 0
		}
		half := breathPeriod / 2
		if c.breathPhase < half {
			brightness = c.breathPhase * 100 / half
		} else {
			brightness = (breathPeriod - c.breathPhase) * 100 / half
		}
	}
	c.out.LED.SetDuty(100 - brightness)
}

func (c *Coordinator) vbusEnabled() bool {
	v, ok := c.in.VbusEnabled.Get()
	return ok && v
}

func (c *Coordinator) primaryVolts() float64 {
	v, _ := c.in.Primary.Get()
	return v
}

// Run ticks the coordinator at the given cadence until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, clock clockwork.Clock, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.Tick(clock.Now())
		}
	}
}

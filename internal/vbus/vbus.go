// Package vbus implements the secondary-output coordinator. It owns the
// switchable output rail, toggled by clicks while the system is working and
// forced off by the reset broadcast whenever the primary input power-cycles.
// A bicolor LED shows rail voltage (color) and switch state (solid/blink).
package vbus

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sweeney/pdswitch/internal/button"
	"github.com/sweeney/pdswitch/internal/hw"
	"github.com/sweeney/pdswitch/internal/signal"
	"github.com/sweeney/pdswitch/internal/sysmode"
)

// State is the secondary output state, owned exclusively by this coordinator.
type State string

const (
	// StateDisabled holds the output rail off.
	StateDisabled State = "DISABLED"
	// StateEnabled drives the output rail on.
	StateEnabled State = "ENABLED"
)

// LedColor is the bicolor LED color, a pure function of rail voltage.
type LedColor string

const (
	// ColorGreen indicates the rail is below the voltage threshold.
	ColorGreen LedColor = "GREEN"
	// ColorRed indicates the rail is at or above the voltage threshold.
	ColorRed LedColor = "RED"
)

// LedMode is the display mode, a pure function of State.
type LedMode string

const (
	// LedSolid shows the color continuously while the output is enabled.
	LedSolid LedMode = "SOLID"
	// LedBlinking flashes the color while the output is disabled.
	LedBlinking LedMode = "BLINKING"
)

const (
	// VoltageThreshold splits green from red on the bicolor LED.
	VoltageThreshold = 5.5

	// UndervoltageThreshold is the rail voltage below which an enabled
	// output is forced off to protect the load.
	UndervoltageThreshold = 5.0
	// UndervoltageRecoveryDelay is how long the rail must hold above the
	// threshold before a protected output is switched back on.
	UndervoltageRecoveryDelay = time.Second

	// DefaultInterval is the decision cadence.
	DefaultInterval = 20 * time.Millisecond
	// blinkHalfPeriod is ticks per blink half-cycle: 25 * 20ms = 500ms.
	blinkHalfPeriod = 25
	reportEvery     = 500 // 500 * 20ms = 10s
)

// Inputs are the shared cells and channels the coordinator consumes.
type Inputs struct {
	Events    *signal.Subscription        // own gesture cursor
	Mode      *signal.Value[sysmode.Mode] // system mode mirror
	Secondary *signal.Value[float64]      // output rail voltage
	Reset     *signal.Latch               // reset broadcast, consumer side
}

// Outputs are the hardware and fabric outputs the coordinator owns.
type Outputs struct {
	Enable hw.Line             // output rail switch
	LED    hw.Line             // bicolor LED pin: low = green, high = red
	State  *signal.Value[bool] // published enabled state, read by sysmode
}

// Coordinator owns State and its derived hardware. All fields are confined
// to the goroutine calling Tick.
type Coordinator struct {
	in  Inputs
	out Outputs

	state        State
	color        LedColor
	mode         LedMode
	blinkOn      bool
	blinkCounter int
	tickCounter  int

	protected bool      // undervoltage latch, pin held off while set
	recoverAt time.Time // earliest re-enable time, zero while voltage is low
}

// New creates a coordinator with the output disabled and hardware applied.
func New(in Inputs, out Outputs) *Coordinator {
	c := &Coordinator{
		in:    in,
		out:   out,
		state: StateDisabled,
		color: ColorGreen,
		mode:  LedBlinking,
	}
	out.Enable.Set(false)
	out.State.Set(false)
	out.LED.Set(false)
	log.Printf("vbus: initialized in %s", StateDisabled)
	return c
}

// State returns the current output state.
func (c *Coordinator) State() State { return c.state }

// Tick runs one decision cycle: drain at most one gesture, consume any
// pending reset, recompute the LED, and apply hardware. The reset check is
// unconditional every cycle, so a power-mode cycle is repaired within one
// tick regardless of event traffic.
func (c *Coordinator) Tick(now time.Time) {
	if ev, ok := c.in.Events.TryNext(); ok {
		c.handleEvent(ev)
	}

	if c.in.Reset.TakeIf() {
		log.Printf("vbus: reset broadcast received, forcing %s", StateDisabled)
		c.setState(StateDisabled)
	}

	c.updateProtection(now)

	c.updateLED()

	c.tickCounter++
	if c.tickCounter%reportEvery == 0 {
		log.Printf("vbus: state=%s led=%s/%s vbus=%.2fV", c.state, c.color, c.mode, c.secondaryVolts())
	}
}

func (c *Coordinator) handleEvent(ev button.Event) {
	if ev != button.EventClick {
		// Hold gestures belong to the system-mode coordinator.
		return
	}
	if mode, ok := c.in.Mode.Get(); !ok || mode != sysmode.ModeWorking {
		log.Printf("vbus: click ignored in standby")
		return
	}
	next := StateEnabled
	if c.state == StateEnabled {
		next = StateDisabled
	}
	log.Printf("vbus: click toggles %s -> %s", c.state, next)
	c.setState(next)
}

func (c *Coordinator) setState(next State) {
	if c.state == next {
		return
	}
	c.state = next
	enabled := next == StateEnabled
	c.out.Enable.Set(enabled)
	c.out.State.Set(enabled)
	log.Printf("vbus: output %s", next)
}

// updateProtection guards an enabled output against rail undervoltage. A
// reading below the threshold forces the pin off while the logical state
// stays ENABLED; once the rail holds above the threshold for the recovery
// delay the pin is switched back on. No sample yet means no decision.
func (c *Coordinator) updateProtection(now time.Time) {
	if c.state != StateEnabled {
		if c.protected {
			c.protected = false
			c.recoverAt = time.Time{}
		}
		return
	}
	v, ok := c.in.Secondary.Get()
	if !ok {
		return
	}
	if !c.protected {
		if v < UndervoltageThreshold {
			c.protected = true
			c.recoverAt = time.Time{}
			c.out.Enable.Set(false)
			log.Printf("vbus: undervoltage %.2fV < %.2fV, output forced off", v, UndervoltageThreshold)
		}
		return
	}
	if v < UndervoltageThreshold {
		c.recoverAt = time.Time{}
		return
	}
	if c.recoverAt.IsZero() {
		c.recoverAt = now.Add(UndervoltageRecoveryDelay)
		log.Printf("vbus: rail recovered to %.2fV, re-enable in %s", v, UndervoltageRecoveryDelay)
		return
	}
	if !now.Before(c.recoverAt) {
		c.protected = false
		c.recoverAt = time.Time{}
		c.out.Enable.Set(true)
		log.Printf("vbus: undervoltage cleared, output restored")
	}
}

// updateLED recomputes color from voltage and mode from state, logging only
// on edges, then applies the blink timer and pin level.
func (c *Coordinator) updateLED() {
	color := ColorGreen
	if c.secondaryVolts() >= VoltageThreshold {
		color = ColorRed
	}
	if color != c.color {
		log.Printf("vbus: led color %s -> %s (%.2fV)", c.color, color, c.secondaryVolts())
		c.color = color
	}

	mode := LedBlinking
	if c.state == StateEnabled {
		mode = LedSolid
	}
	if mode != c.mode {
		log.Printf("vbus: led mode %s -> %s", c.mode, mode)
		c.mode = mode
	}

	switch c.mode {
	case LedSolid:
		c.applyColor(true)
	case LedBlinking:
		c.blinkCounter++
		if c.blinkCounter >= blinkHalfPeriod {
			c.blinkCounter = 0
			c.blinkOn = !c.blinkOn
		}
		c.applyColor(c.blinkOn)
	}
}

// applyColor drives the single bicolor pin: high selects red, low selects
// green, and "off" shares the green level by hardware design.
func (c *Coordinator) applyColor(on bool) {
	c.out.LED.Set(on && c.color == ColorRed)
}

func (c *Coordinator) secondaryVolts() float64 {
	v, _ := c.in.Secondary.Get()
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

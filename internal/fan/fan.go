// Package fan implements the cooling fan controller: a fixed-length startup
// self-test followed by two-threshold hysteresis on board temperature.
package fan

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sweeney/pdswitch/internal/hw"
	"github.com/sweeney/pdswitch/internal/signal"
)

// Phase is the controller lifecycle phase. The transition out of StartupTest
// happens once and is irreversible.
type Phase string

const (
	// PhaseStartupTest forces the fan on as a self-test and initial purge.
	PhaseStartupTest Phase = "STARTUP_TEST"
	// PhaseNormal is temperature-driven operation.
	PhaseNormal Phase = "NORMAL"
)

// Controller thresholds and timing.
const (
	// HighThreshold turns the fan on when reached from below (fan off).
	HighThreshold = 50.0
	// LowThreshold turns the fan off when reached from above (fan on).
	LowThreshold = 45.0
	// AnomalyThreshold marks readings as sensor faults rather than heat.
	AnomalyThreshold = 100.0

	// StartupTestDuration is how long the fan runs after boot.
	StartupTestDuration = 5 * time.Second
	// DefaultInterval is the decision cadence.
	DefaultInterval = 5 * time.Second

	// reportEvery is decision cycles between periodic status lines.
	reportEvery = 12
)

// Status is the published controller state, consumed by the status reporter.
type Status struct {
	Enabled bool
	Phase   Phase
}

// Controller owns the fan pin. Temperature arrives through a latest-value
// cell and may be stale or missing; either case retains the previous state.
type Controller struct {
	pin         hw.Line
	temperature *signal.Value[float64]
	state       *signal.Value[Status] // published fan state, read by status

	phase       Phase
	enabled     bool
	startedAt   time.Time
	lastTemp    float64
	tickCounter int
}

// New creates a controller in the startup-test phase with the fan already
// running. startedAt anchors the self-test window.
func New(pin hw.Line, temperature *signal.Value[float64], state *signal.Value[Status], startedAt time.Time) *Controller {
	pin.Set(true)
	state.Set(Status{Enabled: true, Phase: PhaseStartupTest})
	log.Printf("fan: startup test running (high=%.0fC low=%.0fC)", HighThreshold, LowThreshold)
	return &Controller{
		pin:         pin,
		temperature: temperature,
		state:       state,
		phase:       PhaseStartupTest,
		enabled:     true,
		startedAt:   startedAt,
		lastTemp:    25.0,
	}
}

// Phase returns the current lifecycle phase.
func (c *Controller) Phase() Phase { return c.phase }

// Enabled returns whether the fan is currently driven on.
func (c *Controller) Enabled() bool { return c.enabled }

// Tick runs one decision cycle.
func (c *Controller) Tick(now time.Time) {
	c.tickCounter++

	if c.phase == PhaseStartupTest {
		if now.Sub(c.startedAt) < StartupTestDuration {
			return
		}
		c.phase = PhaseNormal
		c.setEnabled(false, c.lastTemp)
		log.Printf("fan: startup test complete, entering normal operation")
		return
	}

	temp, ok := c.temperature.Get()
	if !ok {
		// No sample yet; retain current state.
		return
	}
	if temp > AnomalyThreshold {
		log.Printf("fan: implausible temperature %.1fC (> %.0fC), ignoring", temp, AnomalyThreshold)
		return
	}
	c.lastTemp = temp

	var want bool
	if c.enabled {
		// Stay on until the temperature falls to the low threshold.
		want = temp > LowThreshold
	} else {
		// Stay off until the temperature reaches the high threshold.
		want = temp >= HighThreshold
	}
	if want != c.enabled {
		c.setEnabled(want, temp)
	}

	if c.tickCounter%reportEvery == 0 {
		log.Printf("fan: temperature=%.1fC enabled=%v", c.lastTemp, c.enabled)
	}
}

func (c *Controller) setEnabled(enabled bool, temp float64) {
	c.enabled = enabled
	c.pin.Set(enabled)
	c.state.Set(Status{Enabled: enabled, Phase: c.phase})
	if enabled {
		log.Printf("fan: enabled at %.1fC (threshold %.0fC)", temp, HighThreshold)
	} else {
		log.Printf("fan: disabled at %.1fC (threshold %.0fC)", temp, LowThreshold)
	}
}

// Run ticks the controller at the given cadence until ctx is cancelled.
func (c *Controller) Run(ctx context.Context, clock clockwork.Clock, interval time.Duration) {
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

// Package telemetry carries calibrated sensor readings from the measurement
// subsystem into the coordinator fabric. The ADC math itself lives behind the
// Reader interface; this package owns the sampling cadence, exponential
// smoothing of the voltage channels, and publication into latest-value cells.
package telemetry

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sweeney/pdswitch/internal/signal"
)

// Sample is one calibrated reading set.
type Sample struct {
	PrimaryVolts   float64 // input rail (VIN sense)
	SecondaryVolts float64 // switched output rail (VBUS sense)
	Temperature    float64 // board temperature, degrees C
	FanRPM         int     // fan tachometer reading
}

// Reader produces calibrated samples. The real implementation wraps the ADC
// front end and is wired up in main; tests use FakeReader.
type Reader interface {
	Read() (Sample, error)
}

// DefaultInterval is the sampling cadence.
const DefaultInterval = 100 * time.Millisecond

// emaAlpha is the smoothing factor applied to the voltage channels, matching
// a time constant of roughly 800ms at the default cadence.
const emaAlpha = 0.1176

// maxPlausibleRPM bounds the tachometer reading. The measurement daemon
// derives RPM from pulse periods, and a glitched period can produce an
// absurd figure; anything above this reads as a stopped fan.
const maxPlausibleRPM = 10000

// Outputs are the latest-value cells the sampler publishes into. Each
// consumer polls its cell; nobody blocks on a sample.
type Outputs struct {
	Primary     *signal.Value[float64]
	Secondary   *signal.Value[float64]
	Temperature *signal.Value[float64]
	FanRPM      *signal.Value[int]
}

// Sampler periodically reads the Reader and publishes smoothed values.
type Sampler struct {
	reader   Reader
	clock    clockwork.Clock
	interval time.Duration
	out      Outputs

	primed        bool
	primaryPrev   float64
	secondaryPrev float64
}

// NewSampler creates a sampler. A zero interval falls back to the default.
func NewSampler(reader Reader, clock clockwork.Clock, interval time.Duration, out Outputs) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Sampler{reader: reader, clock: clock, interval: interval, out: out}
}

// Poll takes one sample and publishes it. A read error is logged and the
// previously published values are left in place; the next cycle re-derives
// everything from fresh inputs.
func (s *Sampler) Poll() {
	sample, err := s.reader.Read()
	if err != nil {
		log.Printf("telemetry: read: %v", err)
		return
	}
	if !s.primed {
		s.primaryPrev = sample.PrimaryVolts
		s.secondaryPrev = sample.SecondaryVolts
		s.primed = true
	} else {
		s.primaryPrev = ema(s.primaryPrev, sample.PrimaryVolts)
		s.secondaryPrev = ema(s.secondaryPrev, sample.SecondaryVolts)
	}
	s.out.Primary.Set(s.primaryPrev)
	s.out.Secondary.Set(s.secondaryPrev)
	// Temperature moves slowly; publish it unsmoothed.
	s.out.Temperature.Set(sample.Temperature)

	rpm := sample.FanRPM
	if rpm > maxPlausibleRPM {
		log.Printf("telemetry: implausible fan reading %d rpm, reporting 0", rpm)
		rpm = 0
	}
	s.out.FanRPM.Set(rpm)
}

// Run polls at the configured cadence until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.Poll()
		}
	}
}

func ema(prev, next float64) float64 {
	return prev + emaAlpha*(next-prev)
}

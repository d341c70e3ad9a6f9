// Package status provides a thread-safe status tracker for the pdswitch
// daemon. It is read by the HTTP handlers and the MQTT heartbeat publisher.
// The tracker deliberately stores plain strings for the coordinator states so
// it depends on none of the coordinator packages.
package status

import (
	"sync"
	"time"
)

// Config contains daemon configuration for display.
type Config struct {
	DebounceMs  int64
	LongPressMs int64
	UITickMs    int64
	FanTickMs   int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	PDTargetMv  int64
}

// Telemetry is the last published sensor readings.
type Telemetry struct {
	PrimaryVolts   float64
	SecondaryVolts float64
	Temperature    float64
	FanRPM         int
}

// EventCounts tracks the number of each gesture event since startup.
type EventCounts struct {
	Clicks     int
	HoldStarts int
	HoldEnds   int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Mode          string
	Vbus          string
	FanEnabled    bool
	FanPhase      string
	PDReady       bool
	Telemetry     Telemetry
	Counts        EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetPower sets the coordinator states. Called from the reporter loop.
func (t *Tracker) SetPower(mode, vbus string, fanEnabled bool, fanPhase string) {
	t.mu.Lock()
	t.snap.Mode = mode
	t.snap.Vbus = vbus
	t.snap.FanEnabled = fanEnabled
	t.snap.FanPhase = fanPhase
	t.mu.Unlock()
}

// SetTelemetry sets the last sensor readings.
func (t *Tracker) SetTelemetry(tel Telemetry) {
	t.mu.Lock()
	t.snap.Telemetry = tel
	t.mu.Unlock()
}

// SetPDReady sets whether a PD contract is in effect.
func (t *Tracker) SetPDReady(ready bool) {
	t.mu.Lock()
	t.snap.PDReady = ready
	t.mu.Unlock()
}

// CountEvent increments the counter for one gesture event.
func (t *Tracker) CountEvent(kind string) {
	t.mu.Lock()
	switch kind {
	case "CLICK":
		t.snap.Counts.Clicks++
	case "HOLD_START":
		t.snap.Counts.HoldStarts++
	case "HOLD_END":
		t.snap.Counts.HoldEnds++
	}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

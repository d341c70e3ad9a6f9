package main

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sweeney/pdswitch/internal/fan"
	"github.com/sweeney/pdswitch/internal/mqtt"
	"github.com/sweeney/pdswitch/internal/signal"
	"github.com/sweeney/pdswitch/internal/status"
	"github.com/sweeney/pdswitch/internal/sysmode"
)

// reporter folds the coordinators' published state into the status tracker
// and emits MQTT transition events on edges plus periodic heartbeats. It is
// a pure observer: it polls the latest-value cells and owns no hardware.
type reporter struct {
	tracker    *status.Tracker
	publisher  mqtt.Publisher // nil when MQTT is disabled
	connStatus mqtt.ConnectionStatus
	mode       *signal.Value[sysmode.Mode]
	vbusState  *signal.Value[bool]
	fanState   *signal.Value[fan.Status]
	primary    *signal.Value[float64]
	secondary  *signal.Value[float64]
	temp       *signal.Value[float64]
	fanRPM     *signal.Value[int]
	heartbeat  time.Duration

	lastMode      sysmode.Mode
	lastVbus      bool
	lastFan       bool
	seen          bool
	lastHeartbeat time.Time
}

const reporterInterval = time.Second

func (r *reporter) run(ctx context.Context, clock clockwork.Clock) {
	r.lastHeartbeat = clock.Now()
	ticker := clock.NewTicker(reporterInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.poll(clock.Now())
		}
	}
}

func (r *reporter) poll(now time.Time) {
	mode, modeOK := r.mode.Get()
	vbusOn, _ := r.vbusState.Get()
	fanSt, _ := r.fanState.Get()

	vbusStr := "DISABLED"
	if vbusOn {
		vbusStr = "ENABLED"
	}
	r.tracker.SetPower(string(mode), vbusStr, fanSt.Enabled, string(fanSt.Phase))

	var tel status.Telemetry
	tel.PrimaryVolts, _ = r.primary.Get()
	tel.SecondaryVolts, _ = r.secondary.Get()
	tel.Temperature, _ = r.temp.Get()
	tel.FanRPM, _ = r.fanRPM.Get()
	r.tracker.SetTelemetry(tel)

	if r.connStatus != nil {
		r.tracker.SetMQTTConnected(r.connStatus.IsConnected())
	}

	if !modeOK {
		return
	}

	if r.seen {
		r.emitEdges(now, mode, vbusOn, fanSt.Enabled, vbusStr)
	}
	r.lastMode, r.lastVbus, r.lastFan = mode, vbusOn, fanSt.Enabled
	r.seen = true

	if r.heartbeat > 0 && now.Sub(r.lastHeartbeat) >= r.heartbeat {
		r.lastHeartbeat = now
		snap := r.tracker.Snapshot()
		log.Printf("heartbeat: uptime=%v mode=%s vbus=%s fan=%v",
			snap.Uptime().Truncate(time.Second), snap.Mode, snap.Vbus, snap.FanEnabled)
		r.publishSystem(mqtt.SystemEvent{
			Timestamp:  now,
			Event:      "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
		})
	}
}

func (r *reporter) emitEdges(now time.Time, mode sysmode.Mode, vbusOn, fanOn bool, vbusStr string) {
	if mode != r.lastMode {
		typ := mqtt.EventModeStandby
		if mode == sysmode.ModeWorking {
			typ = mqtt.EventModeWorking
		}
		r.publish(now, typ, mode, vbusStr, fanOn)
	}
	if vbusOn != r.lastVbus {
		typ := mqtt.EventVbusDisabled
		if vbusOn {
			typ = mqtt.EventVbusEnabled
		}
		r.publish(now, typ, mode, vbusStr, fanOn)
	}
	if fanOn != r.lastFan {
		typ := mqtt.EventFanOff
		if fanOn {
			typ = mqtt.EventFanOn
		}
		r.publish(now, typ, mode, vbusStr, fanOn)
	}
}

func (r *reporter) publish(now time.Time, typ mqtt.EventType, mode sysmode.Mode, vbusStr string, fanOn bool) {
	if r.publisher == nil {
		return
	}
	fanStr := "OFF"
	if fanOn {
		fanStr = "ON"
	}
	err := r.publisher.Publish(mqtt.Event{
		Timestamp: now,
		Type:      typ,
		Mode:      string(mode),
		Vbus:      vbusStr,
		Fan:       fanStr,
	})
	if err != nil {
		log.Printf("publish error: %v", err)
	}
}

func (r *reporter) publishSystem(ev mqtt.SystemEvent) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishSystem(ev); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

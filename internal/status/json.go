package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Mode          string        `json:"mode"`
	Vbus          string        `json:"vbus"`
	Fan           FanJSON       `json:"fan"`
	PDReady       bool          `json:"pd_ready"`
	Telemetry     TelemetryJSON `json:"telemetry"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"event_counts"`
	Config        ConfigJSON    `json:"config"`
}

// FanJSON reports fan state.
type FanJSON struct {
	Enabled bool   `json:"enabled"`
	Phase   string `json:"phase"`
}

// TelemetryJSON is the JSON representation of the last sensor readings.
type TelemetryJSON struct {
	PrimaryVolts   float64 `json:"primary_volts"`
	SecondaryVolts float64 `json:"secondary_volts"`
	TemperatureC   float64 `json:"temperature_c"`
	FanRPM         int     `json:"fan_rpm"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of gesture event counts.
type CountsJSON struct {
	Clicks     int `json:"clicks"`
	HoldStarts int `json:"hold_starts"`
	HoldEnds   int `json:"hold_ends"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	DebounceMs  int64  `json:"debounce_ms"`
	LongPressMs int64  `json:"long_press_ms"`
	UITickMs    int64  `json:"ui_tick_ms"`
	FanTickMs   int64  `json:"fan_tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	PDTargetMv  int64  `json:"pd_target_mv"`
}

func buildInner(snap Snapshot) StatusInner {
	mode := snap.Mode
	if mode == "" {
		mode = "UNKNOWN"
	}
	vbus := snap.Vbus
	if vbus == "" {
		vbus = "UNKNOWN"
	}

	return StatusInner{
		Mode:    mode,
		Vbus:    vbus,
		Fan:     FanJSON{Enabled: snap.FanEnabled, Phase: snap.FanPhase},
		PDReady: snap.PDReady,
		Telemetry: TelemetryJSON{
			PrimaryVolts:   snap.Telemetry.PrimaryVolts,
			SecondaryVolts: snap.Telemetry.SecondaryVolts,
			TemperatureC:   snap.Telemetry.Temperature,
			FanRPM:         snap.Telemetry.FanRPM,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Clicks:     snap.Counts.Clicks,
			HoldStarts: snap.Counts.HoldStarts,
			HoldEnds:   snap.Counts.HoldEnds,
		},
		Config: ConfigJSON{
			DebounceMs:  snap.Config.DebounceMs,
			LongPressMs: snap.Config.LongPressMs,
			UITickMs:    snap.Config.UITickMs,
			FanTickMs:   snap.Config.FanTickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			PDTargetMv:  snap.Config.PDTargetMv,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

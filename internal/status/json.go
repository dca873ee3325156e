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
	Light         string        `json:"light"`
	Schedule      *ScheduleJSON `json:"schedule"`
	LastTick      string        `json:"last_tick,omitempty"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Counts        CountsJSON    `json:"counts"`
	Config        ConfigJSON    `json:"config"`
}

// ScheduleJSON is the active schedule; null when none is set.
type ScheduleJSON struct {
	OnTime  string `json:"on_time"`
	OffTime string `json:"off_time"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Topic     string `json:"topic"`
}

// CountsJSON is the JSON representation of command and update counters.
type CountsJSON struct {
	On       int `json:"on"`
	Off      int `json:"off"`
	Failures int `json:"failures"`
	Updates  int `json:"updates"`
	Rejected int `json:"rejected"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	TickMs      int64  `json:"tick_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	SinkMode    string `json:"sink_mode"`
	SinkTarget  string `json:"sink_target,omitempty"`
	Refire      bool   `json:"refire"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	light := string(snap.Actuator)
	if light == "" {
		light = "UNKNOWN"
	}

	inner := StatusInner{
		Light:         light,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Topic:     snap.Config.Topic,
		},
		Counts: CountsJSON{
			On:       snap.Counts.On,
			Off:      snap.Counts.Off,
			Failures: snap.Counts.Failures,
			Updates:  snap.Updates,
			Rejected: snap.Rejected,
		},
		Config: ConfigJSON{
			TickMs:      snap.Config.TickMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			SinkMode:    snap.Config.SinkMode,
			SinkTarget:  snap.Config.SinkTarget,
			Refire:      snap.Config.Refire,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.Schedule != nil {
		inner.Schedule = &ScheduleJSON{
			OnTime:  snap.Schedule.On.String(),
			OffTime: snap.Schedule.Off.String(),
		}
	}
	if snap.LastTick != nil {
		inner.LastTick = snap.LastTick.String()
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
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

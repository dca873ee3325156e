// Package status provides a thread-safe status tracker for the bridge daemon.
// It is written by the tick loop and the schedule subscriber and read by
// HTTP handlers and heartbeat events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/light-relay/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	TickMs      int64
	HeartbeatMs int64
	Broker      string
	Topic       string
	SinkMode    string
	SinkTarget  string // serial port or gpio line, empty when simulated
	Refire      bool
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Schedule      *logic.Schedule
	Actuator      logic.State
	Counts        logic.Counts
	Updates       int // schedules accepted
	Rejected      int // payloads rejected by ingest
	LastTick      *logic.TimeOfDay
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
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Actuator:  logic.StateUnknown,
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update records the evaluator state after a tick.
func (t *Tracker) Update(actuator logic.State, counts logic.Counts, tick logic.TimeOfDay) {
	t.mu.Lock()
	t.snap.Actuator = actuator
	t.snap.Counts = counts
	t.snap.LastTick = &tick
	t.mu.Unlock()
}

// SetSchedule records a newly accepted schedule.
func (t *Tracker) SetSchedule(s logic.Schedule) {
	t.mu.Lock()
	t.snap.Schedule = &s
	t.snap.Updates++
	t.mu.Unlock()
}

// Reject counts a payload that failed validation.
func (t *Tracker) Reject() {
	t.mu.Lock()
	t.snap.Rejected++
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
	s.Now = t.now()
	return s
}

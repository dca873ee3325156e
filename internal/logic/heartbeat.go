package logic

import "time"

// Heartbeat decides when the bridge should emit a periodic status event.
type Heartbeat struct {
	interval  time.Duration
	startTime time.Time
	last      time.Time
}

// HeartbeatData describes a heartbeat that is due.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
}

// NewHeartbeat creates a Heartbeat counting from startTime. An interval
// <= 0 disables it.
func NewHeartbeat(interval time.Duration, startTime time.Time) *Heartbeat {
	return &Heartbeat{
		interval:  interval,
		startTime: startTime,
		last:      startTime,
	}
}

// Check returns heartbeat data if the interval has elapsed since the last
// heartbeat (or startup). Returns nil if the interval has not elapsed or the
// heartbeat is disabled.
func (h *Heartbeat) Check(now time.Time) *HeartbeatData {
	if h.interval <= 0 {
		return nil
	}
	if now.Sub(h.last) < h.interval {
		return nil
	}

	h.last = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
	}
}

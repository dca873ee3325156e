// Package mqtt carries schedules and bridge lifecycle events over MQTT,
// with an abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/light-relay/internal/logic"
)

// DefaultTopic is the MQTT topic schedules are published on.
const DefaultTopic = "light/schedule"

// DefaultSystemTopic is the MQTT topic for bridge lifecycle events.
const DefaultSystemTopic = "light/schedule/system"

// Publisher publishes schedules and system events to MQTT.
type Publisher interface {
	// PublishSchedule sends an accepted schedule to the broker.
	PublishSchedule(a Announcement) error

	// PublishSystem sends a system lifecycle event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Handler receives the raw payload of each schedule message.
type Handler func(payload []byte)

// Subscriber delivers schedule messages to a handler.
type Subscriber interface {
	Subscribe(handler Handler) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Announcement is a schedule accepted by the publisher, ready to go out.
type Announcement struct {
	Schedule   logic.Schedule
	AcceptedAt time.Time
	ID         string
}

// SchedulePayload is the JSON message on the schedule topic.
type SchedulePayload struct {
	OnTime    string `json:"on_time"`
	OffTime   string `json:"off_time"`
	Timestamp string `json:"timestamp"`
	ID        string `json:"id,omitempty"`
}

// FormatSchedulePayload creates the JSON payload for an accepted schedule.
// The timestamp keeps the local offset of AcceptedAt.
func FormatSchedulePayload(a Announcement) ([]byte, error) {
	return json.Marshal(SchedulePayload{
		OnTime:    a.Schedule.On.String(),
		OffTime:   a.Schedule.Off.String(),
		Timestamp: a.AcceptedAt.Format(time.RFC3339),
		ID:        a.ID,
	})
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Lifecycle event names.
const (
	EventStartup   = "STARTUP"
	EventShutdown  = "SHUTDOWN"
	EventHeartbeat = "HEARTBEAT"
	EventOffline   = "OFFLINE"
)

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}

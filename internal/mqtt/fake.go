package mqtt

import (
	"errors"
	"sync"
)

// FakeClient records published messages for test assertions and lets tests
// deliver schedule payloads to the subscribed handler. Safe for concurrent use.
type FakeClient struct {
	// PublishError, if set, will be returned by PublishSchedule.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// SubscribeError, if set, will be returned by Subscribe.
	SubscribeError error

	mu            sync.Mutex
	announcements []Announcement
	payloads      [][]byte
	systemEvents  []SystemEvent
	handler       Handler
	connected     bool
	closed        bool
}

// NewFakeClient creates a connected FakeClient.
func NewFakeClient() *FakeClient {
	return &FakeClient{connected: true}
}

// PublishSchedule records the announcement.
func (f *FakeClient) PublishSchedule(a Announcement) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatSchedulePayload(a)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.announcements = append(f.announcements, a)
	f.payloads = append(f.payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.systemEvents = append(f.systemEvents, event)
	return nil
}

// Subscribe stores handler for Deliver.
func (f *FakeClient) Subscribe(handler Handler) error {
	if f.SubscribeError != nil {
		return f.SubscribeError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return nil
}

// Deliver passes payload to the subscribed handler, as the broker would.
func (f *FakeClient) Deliver(payload []byte) error {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()

	if handler == nil {
		return errors.New("fake mqtt: no subscriber")
	}
	handler(payload)
	return nil
}

// Announcements returns the schedules published so far.
func (f *FakeClient) Announcements() []Announcement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Announcement(nil), f.announcements...)
}

// Payloads returns the JSON payloads published on the schedule topic.
func (f *FakeClient) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// SystemEvents returns the system events published so far.
func (f *FakeClient) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// SetConnected controls the return value of IsConnected.
func (f *FakeClient) SetConnected(connected bool) {
	f.mu.Lock()
	f.connected = connected
	f.mu.Unlock()
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (f *FakeClient) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

package actuator

import (
	"github.com/sweeney/light-relay/internal/logic"
)

// FakeSink records asserted states for test assertions.
type FakeSink struct {
	// Asserted contains every state that was accepted.
	Asserted []logic.State

	// Attempts counts calls to Assert, including failed ones.
	Attempts int

	// AssertError, if set, will be returned by Assert.
	AssertError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSink creates a FakeSink for testing.
func NewFakeSink() *FakeSink {
	return &FakeSink{}
}

// Assert records the state.
func (f *FakeSink) Assert(state logic.State) error {
	f.Attempts++
	if f.AssertError != nil {
		return f.AssertError
	}
	f.Asserted = append(f.Asserted, state)
	return nil
}

// Close marks the sink as closed.
func (f *FakeSink) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeSink) Reset() {
	f.Asserted = nil
	f.Attempts = 0
	f.AssertError = nil
	f.Closed = false
}

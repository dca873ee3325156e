// Package actuator provides command sinks that drive the light relay.
// The serial sink talks to an Arduino, the gpio sink switches a relay line
// directly, and the simulated sink only logs what it would have done.
package actuator

import (
	"fmt"
	"time"

	"github.com/sweeney/light-relay/internal/logic"
)

// Sink forwards ON/OFF commands to the physical (or simulated) actuator.
type Sink interface {
	logic.Sink

	// Close releases the underlying device. Safe to call more than once.
	Close() error
}

// Modes accepted by New.
const (
	ModeSimulated = "simulated"
	ModeSerial    = "serial"
	ModeGPIO      = "gpio"
)

// Wire protocol bytes understood by the Arduino sketch.
const (
	CommandOn  byte = '1'
	CommandOff byte = '0'
)

// Config selects and configures a sink.
type Config struct {
	Mode string

	// Serial
	Port         string
	Baud         int
	Settle       time.Duration // wait after open; the Arduino resets on connect
	WriteTimeout time.Duration

	// GPIO
	Chip      string
	Line      int
	ActiveLow bool
}

// CommandByte maps a state to its wire byte. StateUnknown is not assertable.
func CommandByte(state logic.State) (byte, error) {
	switch state {
	case logic.StateOn:
		return CommandOn, nil
	case logic.StateOff:
		return CommandOff, nil
	default:
		return 0, fmt.Errorf("actuator: cannot assert state %q", state)
	}
}

// New opens the sink selected by cfg.Mode. Open failures are returned as
// *ConnectionError.
func New(cfg Config) (Sink, error) {
	switch cfg.Mode {
	case ModeSimulated, "":
		return NewSimulatedSink(), nil
	case ModeSerial:
		s, err := OpenSerial(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case ModeGPIO:
		g, err := OpenGPIO(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("actuator: unknown mode %q", cfg.Mode)
	}
}

//go:build !linux

package actuator

import (
	"errors"

	"github.com/sweeney/light-relay/internal/logic"
)

var errGPIOUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// GPIOSink is not available on non-Linux platforms.
type GPIOSink struct{}

// OpenGPIO returns a ConnectionError on non-Linux platforms.
func OpenGPIO(cfg Config) (*GPIOSink, error) {
	return nil, &ConnectionError{Mode: ModeGPIO, Target: cfg.Chip, Err: errGPIOUnsupported}
}

// Assert is not implemented on non-Linux platforms.
func (g *GPIOSink) Assert(logic.State) error {
	return &SinkError{Kind: NotConnected, Err: errGPIOUnsupported}
}

// Close is not implemented on non-Linux platforms.
func (g *GPIOSink) Close() error {
	return nil
}

//go:build linux

package actuator

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/light-relay/internal/logic"
)

// GPIOSink switches a relay wired to a single GPIO output line using the
// Linux GPIO character device.
type GPIOSink struct {
	mu   sync.Mutex
	chip *gpiocdev.Chip
	line *gpiocdev.Line
	name string
}

// OpenGPIO requests cfg.Line on cfg.Chip as an output, initially inactive.
func OpenGPIO(cfg Config) (*GPIOSink, error) {
	chipName := cfg.Chip
	if chipName == "" {
		chipName = "gpiochip0"
	}
	target := fmt.Sprintf("%s:%d", chipName, cfg.Line)

	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("light-relay"))
	if err != nil {
		return nil, &ConnectionError{Mode: ModeGPIO, Target: target, Err: fmt.Errorf("open gpio chip: %w", err)}
	}

	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if cfg.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := chip.RequestLine(cfg.Line, opts...)
	if err != nil {
		chip.Close()
		return nil, &ConnectionError{Mode: ModeGPIO, Target: target, Err: fmt.Errorf("request line %d: %w", cfg.Line, err)}
	}

	log.Info().Str("line", target).Bool("active_low", cfg.ActiveLow).Msg("connected to gpio relay")
	return &GPIOSink{chip: chip, line: line, name: target}, nil
}

// Assert drives the line active for ON and inactive for OFF.
func (g *GPIOSink) Assert(state logic.State) error {
	b, err := CommandByte(state)
	if err != nil {
		return err
	}
	value := 0
	if b == CommandOn {
		value = 1
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.line == nil {
		return &SinkError{Kind: NotConnected, Err: fmt.Errorf("gpio line %s is closed", g.name)}
	}
	if err := g.line.SetValue(value); err != nil {
		return &SinkError{Kind: WriteFailure, Err: err}
	}

	log.Info().Str("line", g.name).Int("value", value).Str("state", string(state)).Msg("set relay line")
	return nil
}

// Close releases the line and chip.
// Reconfigures the line as an input with pull-down (matching Pi boot defaults)
// before closing so the relay does not hold state across reboot.
func (g *GPIOSink) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error
	if g.line != nil {
		if err := g.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure line: %w", err))
		}
		if err := g.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
		g.line = nil
	}
	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		g.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

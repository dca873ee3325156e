package actuator

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/light-relay/internal/logic"
)

// SimulatedSink logs commands instead of driving hardware. Used when no
// actuator is attached.
type SimulatedSink struct {
	mu       sync.Mutex
	commands []logic.State
}

// NewSimulatedSink creates a SimulatedSink.
func NewSimulatedSink() *SimulatedSink {
	log.Info().Msg("running in simulated mode, actuator connection simulated")
	return &SimulatedSink{}
}

// Assert records and logs the command. It never fails for ON or OFF.
func (s *SimulatedSink) Assert(state logic.State) error {
	b, err := CommandByte(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.commands = append(s.commands, state)
	s.mu.Unlock()

	log.Info().Str("command", string(b)).Msgf("simulated command sent, light would turn %s", state)
	return nil
}

// Commands returns a copy of the commands asserted so far.
func (s *SimulatedSink) Commands() []logic.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]logic.State(nil), s.commands...)
}

// Close is a no-op.
func (s *SimulatedSink) Close() error {
	return nil
}

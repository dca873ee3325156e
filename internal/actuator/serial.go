package actuator

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tarm/serial"

	"github.com/sweeney/light-relay/internal/logic"
)

// DefaultWriteTimeout bounds a single command write.
const DefaultWriteTimeout = time.Second

// SerialSink writes single-byte commands to a serial port.
type SerialSink struct {
	mu           sync.Mutex
	port         io.WriteCloser
	name         string
	writeTimeout time.Duration

	// inflight is set while a timed-out write has not returned yet.
	inflight chan writeResult
}

// OpenSerial opens the configured port and waits cfg.Settle for the board
// to come out of reset.
func OpenSerial(cfg Config) (*SerialSink, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.WriteTimeout,
	})
	if err != nil {
		return nil, &ConnectionError{Mode: ModeSerial, Target: cfg.Port, Err: err}
	}

	if cfg.Settle > 0 {
		time.Sleep(cfg.Settle)
	}
	log.Info().Str("port", cfg.Port).Int("baud", cfg.Baud).Msg("connected to actuator")

	return NewSerialSink(port, cfg.Port, cfg.WriteTimeout), nil
}

// NewSerialSink wraps an already-open port. A zero timeout selects
// DefaultWriteTimeout.
func NewSerialSink(port io.WriteCloser, name string, writeTimeout time.Duration) *SerialSink {
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	return &SerialSink{port: port, name: name, writeTimeout: writeTimeout}
}

type writeResult struct {
	n   int
	err error
}

// Assert writes '1' for ON or '0' for OFF.
func (s *SerialSink) Assert(state logic.State) error {
	b, err := CommandByte(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return &SinkError{Kind: NotConnected, Err: fmt.Errorf("serial port %s is closed", s.name)}
	}

	if s.inflight != nil {
		select {
		case <-s.inflight:
			s.inflight = nil
		default:
			return &SinkError{Kind: WriteFailure, Err: errWritePending}
		}
	}

	// The write runs in its own goroutine so a wedged port cannot stall the
	// tick loop past writeTimeout.
	port := s.port
	done := make(chan writeResult, 1)
	go func() {
		n, err := port.Write([]byte{b})
		done <- writeResult{n: n, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return &SinkError{Kind: WriteFailure, Err: r.err}
		}
		if r.n != 1 {
			return &SinkError{Kind: WriteFailure, Err: io.ErrShortWrite}
		}
	case <-time.After(s.writeTimeout):
		s.inflight = done
		return &SinkError{Kind: WriteFailure, Err: errWriteTimeout}
	}

	log.Info().Str("command", string(b)).Str("state", string(state)).Msg("sent command")
	return nil
}

// Close closes the port. A write still pending after a timeout is
// abandoned; closing the port unblocks it.
func (s *SerialSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	s.inflight = nil
	if err != nil {
		return fmt.Errorf("close serial port %s: %w", s.name, err)
	}
	return nil
}

package actuator

import (
	"errors"
	"fmt"
)

// SinkErrorKind classifies command failures.
type SinkErrorKind string

const (
	NotConnected SinkErrorKind = "not_connected"
	WriteFailure SinkErrorKind = "write_failure"
)

// Sentinels for errors.Is; only the Kind is compared.
var (
	ErrNotConnected = &SinkError{Kind: NotConnected}
	ErrWriteFailure = &SinkError{Kind: WriteFailure}
)

var (
	errWriteTimeout = errors.New("write timed out")
	errWritePending = errors.New("previous write still pending")
)

// SinkError is returned by Assert when a command could not be delivered.
type SinkError struct {
	Kind SinkErrorKind
	Err  error
}

func (e *SinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("actuator %s: %v", e.Kind, e.Err)
	}
	return "actuator " + string(e.Kind)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// Is matches any SinkError of the same kind.
func (e *SinkError) Is(target error) bool {
	t, ok := target.(*SinkError)
	return ok && t.Kind == e.Kind
}

// ConnectionError is returned when a live sink cannot be opened at startup.
type ConnectionError struct {
	Mode   string
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s actuator %s: %v", e.Mode, e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

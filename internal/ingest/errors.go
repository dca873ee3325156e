package ingest

import "fmt"

// ErrorKind classifies why a payload was rejected.
type ErrorKind string

const (
	// MalformedEncoding means the payload is not a JSON object.
	MalformedEncoding ErrorKind = "malformed_encoding"
	// MissingField means the on or off time is absent or empty.
	MissingField ErrorKind = "missing_field"
	// InvalidTime means a time field is present but not HH:MM.
	InvalidTime ErrorKind = "invalid_time"
)

// Sentinels for errors.Is; only the Kind is compared.
var (
	ErrMalformedEncoding = &ParseError{Kind: MalformedEncoding}
	ErrMissingField      = &ParseError{Kind: MissingField}
	ErrInvalidTime       = &ParseError{Kind: InvalidTime}
)

// ParseError is returned for any rejected schedule payload.
type ParseError struct {
	Kind  ErrorKind
	Field string // on_time or off_time, empty for MalformedEncoding
	Err   error
}

func (e *ParseError) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " " + e.Field
	}
	if e.Err != nil {
		return fmt.Sprintf("parse schedule: %s: %v", msg, e.Err)
	}
	return "parse schedule: " + msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches any ParseError of the same kind.
func (e *ParseError) Is(target error) bool {
	t, ok := target.(*ParseError)
	return ok && t.Kind == e.Kind
}

// Package logic contains the schedule evaluation core of the light relay.
// This package has NO external dependencies (no serial, MQTT, OS, or time.Sleep).
// Time is always injectable via TimeOfDay values or a now function.
package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// State represents the last known state of the actuator.
type State string

const (
	StateUnknown State = "UNKNOWN"
	StateOn      State = "ON"
	StateOff     State = "OFF"
)

// ErrInvalidTime is returned when a time-of-day string is not HH:MM (24h).
var ErrInvalidTime = errors.New("invalid time of day")

// minutesPerDay is the number of distinct TimeOfDay values.
const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time at minute resolution, stored as minutes
// since local midnight. The zero value is 00:00.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour (0-23) and minute (0-59).
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d", ErrInvalidTime, hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustTimeOfDay is like ParseTimeOfDay but panics on malformed input.
// Intended for constants and tests.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay parses "HH:MM" (24h). A single-digit hour ("7:05") is
// accepted; minutes must always be two digits.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hh[0] == '+' || hh[0] == '-' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || mm[0] == '+' || mm[0] == '-' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return NewTimeOfDay(hour, minute)
}

// At returns the time of day of t in t's location.
func At(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Truncate rounds t down to a multiple of d. Durations below one minute
// leave t unchanged.
func (t TimeOfDay) Truncate(d time.Duration) TimeOfDay {
	g := int(d / time.Minute)
	if g <= 1 {
		return t
	}
	return TimeOfDay(int(t) / g * g)
}

// Hour returns the hour component (0-23).
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component (0-59).
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats t as zero-padded HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Schedule is a daily on/off pair. It is a value type and is replaced
// wholesale, never mutated in place. On and Off may be equal or in either
// order; only time of day is compared, so a schedule may span midnight.
type Schedule struct {
	On  TimeOfDay
	Off TimeOfDay
}

// Degenerate reports whether on and off fall on the same minute.
// Evaluation of such a schedule only ever asserts ON.
func (s Schedule) Degenerate() bool {
	return s.On == s.Off
}

// String formats the schedule for logs.
func (s Schedule) String() string {
	return fmt.Sprintf("on=%s off=%s", s.On, s.Off)
}

// Counts tracks the commands issued by an Evaluator since startup.
type Counts struct {
	On       int
	Off      int
	Failures int
}

// Next returns the first boundary strictly after now and the state it
// asserts. A boundary equal to now counts as a full day away. ON wins when
// both boundaries fall on the same minute.
func (s Schedule) Next(now TimeOfDay) (State, TimeOfDay) {
	untilOn := untilBoundary(now, s.On)
	untilOff := untilBoundary(now, s.Off)
	if untilOn <= untilOff {
		return StateOn, s.On
	}
	return StateOff, s.Off
}

func untilBoundary(now, boundary TimeOfDay) int {
	d := (int(boundary) - int(now) + minutesPerDay) % minutesPerDay
	if d == 0 {
		return minutesPerDay
	}
	return d
}

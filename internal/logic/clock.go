package logic

import "time"

// Clock samples local wall-clock time at a fixed granularity.
type Clock struct {
	now         func() time.Time
	granularity time.Duration
}

// NewClock creates a Clock reading from now. Granularity is rounded down to
// whole minutes; anything below one minute samples at minute resolution.
func NewClock(now func() time.Time, granularity time.Duration) *Clock {
	g := granularity.Truncate(time.Minute)
	if g < time.Minute {
		g = time.Minute
	}
	return &Clock{now: now, granularity: g}
}

// TimeOfDay returns the current time of day truncated to the granularity.
func (c *Clock) TimeOfDay() TimeOfDay {
	return c.Sample(c.now())
}

// Sample truncates the time of day of t to the granularity.
func (c *Clock) Sample(t time.Time) TimeOfDay {
	return At(t).Truncate(c.granularity)
}

// Granularity returns the sampling step, at least one minute.
func (c *Clock) Granularity() time.Duration {
	return c.granularity
}

// Now returns the underlying wall-clock time.
func (c *Clock) Now() time.Time {
	return c.now()
}

package logic

import "time"

// Sink receives the commands decided by an Evaluator.
type Sink interface {
	// Assert drives the actuator to state (StateOn or StateOff).
	Assert(state State) error
}

// Options tunes evaluator behavior.
type Options struct {
	// Refire re-asserts the matching command on every tick that lands on a
	// boundary minute, without consulting the last asserted state. This is
	// the legacy behavior; with a 30s cadence it sends each command twice.
	Refire bool

	// Granularity is the step the sampled time of day moves in. Schedule
	// boundaries are truncated to it before comparison so a boundary that
	// falls between samples still fires. Zero means one minute.
	Granularity time.Duration
}

// Result describes what a single Tick did.
type Result struct {
	Now TimeOfDay
	// Scheduled is false when no schedule was set at tick time.
	Scheduled bool
	// Command is the state sent to the sink, or StateUnknown if none was sent.
	Command State
	// Err is the sink error, if the command failed.
	Err error
}

// Fired reports whether a command was sent and accepted by the sink.
func (r Result) Fired() bool {
	return r.Command != StateUnknown && r.Err == nil
}

// Evaluator compares the active schedule with the time of day and asserts
// ON or OFF exactly once per boundary crossing. Not safe for concurrent
// use; it is driven from a single loop goroutine.
type Evaluator struct {
	store       *Store
	sink        Sink
	refire      bool
	granularity time.Duration
	last        State
	counts      Counts
}

// NewEvaluator creates an evaluator reading from store and writing to sink.
// The last asserted state starts as StateUnknown.
func NewEvaluator(store *Store, sink Sink, opts Options) *Evaluator {
	return &Evaluator{
		store:       store,
		sink:        sink,
		refire:      opts.Refire,
		granularity: opts.Granularity,
		last:        StateUnknown,
	}
}

// Tick evaluates the schedule at now. Boundaries are truncated to the
// granularity and match by exact equality, so a tick that never lands on
// the on or off sample skips that trigger for the day. ON is checked before OFF; with a
// degenerate schedule, or one whose boundaries truncate to the same
// sample, only ON is ever asserted.
//
// Sink failures are returned in the Result and leave the last asserted
// state unchanged, so a later tick on the same boundary retries.
func (e *Evaluator) Tick(now TimeOfDay) Result {
	res := Result{Now: now, Command: StateUnknown}

	schedule, ok := e.store.Get()
	if !ok {
		return res
	}
	res.Scheduled = true

	var want State
	switch now {
	case schedule.On.Truncate(e.granularity):
		want = StateOn
	case schedule.Off.Truncate(e.granularity):
		want = StateOff
	default:
		return res
	}

	if !e.refire && e.last == want {
		return res
	}

	res.Command = want
	if err := e.sink.Assert(want); err != nil {
		e.counts.Failures++
		res.Err = err
		return res
	}

	e.last = want
	switch want {
	case StateOn:
		e.counts.On++
	case StateOff:
		e.counts.Off++
	}
	return res
}

// LastAsserted returns the last state successfully sent to the sink.
func (e *Evaluator) LastAsserted() State {
	return e.last
}

// Counts returns the command counters since construction.
func (e *Evaluator) Counts() Counts {
	return e.counts
}

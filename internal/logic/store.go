package logic

import "sync/atomic"

// Store holds at most one active schedule. Set and Get may be called from
// different goroutines; readers always observe a complete Schedule because
// the slot is swapped as a single immutable pointer.
type Store struct {
	current atomic.Pointer[Schedule]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Set replaces the current schedule unconditionally.
func (s *Store) Set(schedule Schedule) {
	s.current.Store(&schedule)
}

// Get returns the current schedule, or false if none has been set.
func (s *Store) Get() (Schedule, bool) {
	p := s.current.Load()
	if p == nil {
		return Schedule{}, false
	}
	return *p, true
}

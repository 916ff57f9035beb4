package outcome

import "sync/atomic"

// Slot holds the latest outcome of one logical command, such as a job
// that is re-run on demand. Readers always see a complete outcome; a
// finished run replaces the previous one in a single store.
type Slot struct {
	current  atomic.Pointer[holder]
	inFlight atomic.Bool
}

// holder boxes the interface so it can live behind an atomic.Pointer.
type holder struct {
	o Outcome
}

// Load returns the latest outcome, or None before the first Store.
func (s *Slot) Load() Outcome {
	h := s.current.Load()
	if h == nil {
		return None{}
	}
	return h.o
}

// Store replaces the visible outcome.
func (s *Slot) Store(o Outcome) {
	if o == nil {
		o = None{}
	}
	s.current.Store(&holder{o: o})
}

// Begin marks a classification as in flight. It returns false if one
// already is; the caller must not start another run for this slot.
func (s *Slot) Begin() bool {
	return s.inFlight.CompareAndSwap(false, true)
}

// End clears the in-flight mark set by Begin.
func (s *Slot) End() {
	s.inFlight.Store(false)
}

// Busy reports whether a classification is in flight.
func (s *Slot) Busy() bool {
	return s.inFlight.Load()
}

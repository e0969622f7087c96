package display

import (
	"sync"

	"github.com/zombor/scanai/internal/scanning"
)

// Surface renders what the core reports. All state lives on the surface side.
type Surface interface {
	ServerStatus(status scanning.ServerStatus, message string)
	Scanning(attempt uint64)
	Outcome(o scanning.Outcome)
}

// Multi fans every report out to several surfaces in order
type Multi []Surface

func (m Multi) ServerStatus(status scanning.ServerStatus, message string) {
	for _, s := range m {
		s.ServerStatus(status, message)
	}
}

func (m Multi) Scanning(attempt uint64) {
	for _, s := range m {
		s.Scanning(attempt)
	}
}

func (m Multi) Outcome(o scanning.Outcome) {
	for _, s := range m {
		s.Outcome(o)
	}
}

// Slot holds the current result. Attempts are ordered by number:
// the newest begun attempt owns the slot and older outcomes are dropped,
// whatever order they arrive in.
type Slot struct {
	mu      sync.Mutex
	latest  uint64
	pending bool
	current *scanning.Outcome
}

// Begin marks attempt as in flight. It returns false for an attempt older than the current one.
func (s *Slot) Begin(attempt uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt < s.latest {
		return false
	}
	s.latest = attempt
	s.pending = true
	s.current = nil
	return true
}

// Offer stores o if it belongs to the newest attempt and reports whether it was kept
func (s *Slot) Offer(o scanning.Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Attempt < s.latest {
		return false
	}
	s.latest = o.Attempt
	s.pending = false
	s.current = &o
	return true
}

// Current returns the displayed outcome, if any
func (s *Slot) Current() (scanning.Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return scanning.Outcome{}, false
	}
	return *s.current, true
}

// Pending reports whether the newest attempt is still in flight
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

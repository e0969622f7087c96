package capture

import (
	"context"
	"sync"

	"github.com/zombor/scanai/internal/scanning"
)

// Attempt is the single-resolution handle of one capture gesture
type Attempt struct {
	number  uint64
	once    sync.Once
	done    chan struct{}
	outcome scanning.Outcome
}

func newAttempt(number uint64) *Attempt {
	return &Attempt{number: number, done: make(chan struct{})}
}

// Number is the monotonic attempt number
func (a *Attempt) Number() uint64 {
	return a.number
}

// Done is closed once the outcome is available
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Outcome returns the outcome without blocking
func (a *Attempt) Outcome() (scanning.Outcome, bool) {
	select {
	case <-a.done:
		return a.outcome, true
	default:
		return scanning.Outcome{}, false
	}
}

// Wait blocks until the attempt resolves or ctx ends.
// Giving up waiting does not cancel the attempt.
func (a *Attempt) Wait(ctx context.Context) (scanning.Outcome, error) {
	select {
	case <-a.done:
		return a.outcome, nil
	case <-ctx.Done():
		return scanning.Outcome{}, ctx.Err()
	}
}

// resolve stores the outcome and runs deliver exactly once
func (a *Attempt) resolve(o scanning.Outcome, deliver func(scanning.Outcome)) bool {
	resolved := false
	a.once.Do(func() {
		a.outcome = o
		resolved = true
		defer close(a.done)
		deliver(o)
	})
	return resolved
}

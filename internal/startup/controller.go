package startup

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/zombor/scanai/internal/scanning"
)

// Status texts shown while starting up
const (
	MessageWarmingUp   = "Warming up server…"
	MessageRetrying    = "Retrying…"
	MessageUnreachable = "Unable to reach server."
	MessageReady       = "Server ready."
)

var (
	ErrAlreadyStarted = errors.New("startup already started")
	ErrNotFailed      = errors.New("retry is only possible after a failed probe")
)

// State of the startup handshake
type State int

const (
	StateIdle State = iota
	StateProbing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Prober checks once whether the analysis service is available
type Prober interface {
	Probe(ctx context.Context) scanning.ProbeResult
}

// StatusObserver receives server status transitions
type StatusObserver interface {
	ServerStatus(status scanning.ServerStatus, message string)
}

// Controller drives the availability handshake.
// Failures are surfaced, never retried automatically; Retry is manual and unlimited.
type Controller struct {
	prober   Prober
	observer StatusObserver
	onReady  func()

	mu    sync.Mutex
	state State
	cycle uint64

	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures a Controller
type Option func(*Controller)

// WithOnReady registers a callback run exactly once when the service becomes ready
func WithOnReady(fn func()) Option {
	return func(c *Controller) {
		c.onReady = fn
	}
}

// New creates a new Controller in StateIdle
func New(prober Prober, observer StatusObserver, opts ...Option) *Controller {
	if observer == nil {
		observer = nopObserver{}
	}
	c := &Controller{
		prober:   prober,
		observer: observer,
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start moves Idle to Probing and probes in the background
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	cycle := c.beginLocked()
	c.mu.Unlock()

	c.launch(ctx, cycle, MessageWarmingUp)
	return nil
}

// Retry moves Failed back to Probing and issues exactly one new probe
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateFailed {
		c.mu.Unlock()
		return ErrNotFailed
	}
	cycle := c.beginLocked()
	c.mu.Unlock()

	c.launch(ctx, cycle, MessageRetrying)
	return nil
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready is closed once the service has been reached
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

func (c *Controller) beginLocked() uint64 {
	c.cycle++
	c.state = StateProbing
	return c.cycle
}

// launch reports Probing before the probe goroutine exists so that the
// cycle's final status can never be observed first
func (c *Controller) launch(ctx context.Context, cycle uint64, message string) {
	slog.Info("Probing server", "cycle", cycle)
	c.observer.ServerStatus(scanning.StatusProbing, message)
	go c.probe(ctx, cycle)
}

func (c *Controller) probe(ctx context.Context, cycle uint64) {
	result := c.prober.Probe(ctx)
	c.finish(cycle, result)
}

func (c *Controller) finish(cycle uint64, result scanning.ProbeResult) {
	c.mu.Lock()
	if c.state != StateProbing || c.cycle != cycle {
		c.mu.Unlock()
		slog.Warn("Ignoring stale probe result", "cycle", cycle)
		return
	}
	if result.Reachable() {
		c.state = StateReady
	} else {
		c.state = StateFailed
	}
	state := c.state
	c.mu.Unlock()

	if state == StateReady {
		slog.Info("Server ready", "cycle", cycle, "status_code", result.StatusCode)
		c.observer.ServerStatus(scanning.StatusReady, MessageReady)
		c.signalReady()
		return
	}

	slog.Error("Server unreachable", "cycle", cycle, "status_code", result.StatusCode, "error", result.Err)
	c.observer.ServerStatus(scanning.StatusUnreachable, MessageUnreachable)
}

func (c *Controller) signalReady() {
	c.readyOnce.Do(func() {
		close(c.ready)
		if c.onReady != nil {
			c.onReady()
		}
	})
}

type nopObserver struct{}

func (nopObserver) ServerStatus(scanning.ServerStatus, string) {}

// v2
// internal/breaker/breaker.go

// Package breaker guards the ingestion transport with a three-state circuit
// breaker. While the circuit is open, fetches fail fast instead of piling up
// timeouts against an unreachable broker; after the reset timeout a probe
// decides whether the circuit closes again. The breaker's state doubles as
// the transport reachability answer of the liveness endpoint.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State enumerates the circuit phases.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned when the circuit fast-fails an operation.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config tunes the breaker thresholds.
type Config struct {
	// MaxFailures is how many consecutive failures open the circuit.
	MaxFailures int
	// ResetTimeout is how long the circuit stays open before a probe.
	ResetTimeout time.Duration
}

// Breaker wraps operations against one downstream dependency.
type Breaker struct {
	name  string
	cfg   Config
	log   *slog.Logger
	probe func(ctx context.Context) error

	mu          sync.Mutex
	state       State
	recentFails int
	openedAt    time.Time
}

// New builds a closed breaker. The optional probe runs before retrying an
// operation through a half-open circuit.
func New(name string, cfg Config, log *slog.Logger, probe func(ctx context.Context) error) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	b := &Breaker{name: name, cfg: cfg, log: log, probe: probe, state: Closed}
	b.log.Info("breaker_created",
		"name", name,
		"maxFailures", cfg.MaxFailures,
		"resetTimeout", cfg.ResetTimeout.String(),
	)
	return b
}

// Execute runs op through the circuit. An open circuit inside its reset
// window returns ErrOpen without calling op.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	if state == Open {
		if time.Since(openedAt) < b.cfg.ResetTimeout {
			return ErrOpen
		}
		return b.tryProbeThenOp(ctx, op)
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}
	// Context cancellation is the caller shutting down, not the dependency
	// failing; it never trips the circuit.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	b.onFailure(err)
	return err
}

// State reports the current circuit phase.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) tryProbeThenOp(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	b.state = HalfOpen
	b.mu.Unlock()
	b.log.Info("breaker_probe_start", "name", b.name)

	if b.probe != nil {
		if err := b.probe(ctx); err != nil {
			b.log.Warn("breaker_probe_failed", "name", b.name, "err", err)
			b.reopen()
			return ErrOpen
		}
	}

	if err := op(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		b.log.Warn("breaker_halfopen_op_failed", "name", b.name, "err", err)
		b.reopen()
		return err
	}

	b.mu.Lock()
	b.state = Closed
	b.recentFails = 0
	b.mu.Unlock()
	b.log.Info("breaker_closed_after_probe", "name", b.name)
	return nil
}

func (b *Breaker) reopen() {
	b.mu.Lock()
	b.state = Open
	b.openedAt = time.Now()
	b.recentFails++
	b.mu.Unlock()
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Closed {
		b.log.Info("breaker_state_to_closed", "name", b.name, "from", b.state.String())
	}
	b.state = Closed
	b.recentFails = 0
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentFails++
	if b.recentFails >= b.cfg.MaxFailures && b.state != Open {
		b.state = Open
		b.openedAt = time.Now()
		b.log.Error("breaker_opened",
			"name", b.name,
			"failures", b.recentFails,
			"err", err,
		)
	}
}

// Package breaker implements the circuit breaker guarding the external
// classification service.
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fixedassets/depflow/internal/common"
)

// State is the circuit breaker state.
type State string

// Breaker states.
const (
	StateClosed   State = "CLOSED"
	StateOpen     State = "OPEN"
	StateHalfOpen State = "HALF_OPEN"
)

// Config tunes the breaker's transitions.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// RecoveryTimeout is how long the circuit stays open before trial calls.
	RecoveryTimeout time.Duration
	// HalfOpenSuccesses is the number of consecutive trial successes that close the circuit.
	HalfOpenSuccesses int
}

// DefaultConfig returns the standard breaker tuning.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:  5,
		RecoveryTimeout:   60 * time.Second,
		HalfOpenSuccesses: 2,
	}
}

// Stats exposes breaker counters for diagnostics. Rate-limited calls are
// tracked here but never counted toward opening the circuit.
type Stats struct {
	Calls       int64
	Successes   int64
	Failures    int64
	RateLimited int64
	Blocked     int64
}

// CircuitBreaker protects one external dependency. All state transitions
// happen under a single mutex.
type CircuitBreaker struct {
	lastFailure       time.Time
	now               func() time.Time
	logger            *slog.Logger
	state             State
	config            Config
	stats             Stats
	consecutiveFails  int
	halfOpenSuccesses int
	mu                sync.Mutex
}

// New creates a circuit breaker with the given configuration.
func New(config Config, logger *slog.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 60 * time.Second
	}
	if config.HalfOpenSuccesses <= 0 {
		config.HalfOpenSuccesses = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CircuitBreaker{
		state:  StateClosed,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Execute runs fn if the circuit permits it, recording the outcome.
// When the circuit is open it returns common.ErrCircuitOpen without
// invoking fn, so callers fall back immediately.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.allow() {
		cb.mu.Lock()
		cb.stats.Blocked++
		cb.mu.Unlock()
		return common.ErrCircuitOpen
	}

	err := fn(ctx)
	cb.record(err)
	return err
}

// State returns the current state, applying the open-to-half-open
// transition if the recovery timeout has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpenLocked()
	return cb.state
}

// Snapshot returns a copy of the breaker counters.
func (cb *CircuitBreaker) Snapshot() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpenLocked()
	return cb.state != StateOpen
}

func (cb *CircuitBreaker) maybeHalfOpenLocked() {
	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.config.RecoveryTimeout {
		cb.state = StateHalfOpen
		cb.halfOpenSuccesses = 0
		cb.logger.Info("circuit breaker entering half-open state")
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.Calls++

	if err == nil {
		cb.stats.Successes++
		cb.onSuccessLocked()
		return
	}

	// A throttled-but-healthy service must not trip the breaker.
	if common.IsRateLimit(err) {
		cb.stats.RateLimited++
		return
	}

	cb.stats.Failures++
	cb.onFailureLocked()
}

func (cb *CircuitBreaker) onSuccessLocked() {
	switch cb.state {
	case StateClosed:
		cb.consecutiveFails = 0
	case StateHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.HalfOpenSuccesses {
			cb.state = StateClosed
			cb.consecutiveFails = 0
			cb.halfOpenSuccesses = 0
			cb.logger.Info("circuit breaker closed")
		}
	case StateOpen:
		// Success while open can only come from a call admitted before
		// the transition; ignore it.
	}
}

func (cb *CircuitBreaker) onFailureLocked() {
	cb.lastFailure = cb.now()

	switch cb.state {
	case StateHalfOpen:
		cb.state = StateOpen
		cb.halfOpenSuccesses = 0
		cb.logger.Warn("circuit breaker reopened after half-open failure")
	case StateClosed:
		cb.consecutiveFails++
		if cb.consecutiveFails >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.logger.Warn("circuit breaker opened",
				"consecutive_failures", cb.consecutiveFails)
		}
	case StateOpen:
	}
}

// Package resilience provides fault-tolerance primitives for calls to
// external dependencies: a circuit breaker, retry with backoff, and a
// deadline wrapper for slow work such as document extraction.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig controls when the breaker trips and how it recovers.
// OnStateChange, when set, is called outside the breaker's lock.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	OnStateChange       func(name string, from, to State)
}

// CircuitBreaker trips open after FailureThreshold consecutive failures.
// Once ResetTimeout has passed it lets a limited number of probes through;
// a successful probe closes it again.
type CircuitBreaker struct {
	name     string
	cfg      CircuitBreakerConfig
	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probes   int
	now      func() time.Time
	logger   *slog.Logger
}

func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		state:  StateClosed,
		now:    time.Now,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn if the breaker admits the call and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	cb.mu.Unlock()
	cb.notify(from, StateClosed)
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	from := cb.state
	var err error
	switch cb.state {
	case StateOpen:
		if wait := cb.cfg.ResetTimeout - cb.now().Sub(cb.openedAt); wait > 0 {
			err = fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, wait.Round(time.Millisecond))
			break
		}
		cb.state = StateHalfOpen
		cb.probes = 1
	case StateHalfOpen:
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			err = fmt.Errorf("%w: %s (probe in flight)", ErrCircuitOpen, cb.name)
			break
		}
		cb.probes++
	}
	to := cb.state
	cb.mu.Unlock()
	cb.notify(from, to)
	return err
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	from := cb.state
	if err == nil {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.state = StateClosed
			cb.probes = 0
		}
	} else {
		cb.failures++
		switch {
		case cb.state == StateHalfOpen:
			cb.state = StateOpen
			cb.openedAt = cb.now()
		case cb.state == StateClosed && cb.failures >= cb.cfg.FailureThreshold:
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	}
	to := cb.state
	failures := cb.failures
	cb.mu.Unlock()
	if from != to && to == StateOpen {
		cb.logger.Warn("circuit opened", "consecutive_failures", failures, "error", err)
	}
	cb.notify(from, to)
}

func (cb *CircuitBreaker) notify(from, to State) {
	if from == to {
		return
	}
	cb.logger.Info("circuit state changed", "from", from.String(), "to", to.String())
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, from, to)
	}
}

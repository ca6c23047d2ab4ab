package provider

import (
	"errors"
	"sync"
	"time"

	"github.com/Billhebert/chatIAS-sub000/internal/config"
)

// Breaker states (spec §3: CircuitBreakerState).
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// ErrCircuitOpen is returned by Allow when the breaker is gating calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker is the per-provider circuit breaker of spec §4.4 step 4:
// closed -> open after failure_threshold consecutive failures; open ->
// half-open after open_timeout_ms; half-open -> closed after
// success_threshold consecutive successes; any half-open failure
// re-opens immediately.
type Breaker struct {
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration

	mu              sync.Mutex
	state           string
	failures        int
	successes       int
	lastStateChange time.Time
}

// NewBreaker builds a Breaker from a provider's CircuitBreakerConfig,
// applying the defaults C1 would already have set.
func NewBreaker(cfg config.CircuitBreakerConfig) *Breaker {
	failureThreshold := cfg.FailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	successThreshold := cfg.SuccessThreshold
	if successThreshold <= 0 {
		successThreshold = 2
	}
	openTimeout := time.Duration(cfg.OpenTimeoutMs) * time.Millisecond
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	return &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:       openTimeout,
		state:             StateClosed,
		lastStateChange:   time.Now(),
	}
}

// Allow reports whether a candidate may be attempted, transitioning
// open -> half-open as a side effect once the timeout has elapsed
// (spec §4.4 step 1).
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.lastStateChange) >= b.openTimeout {
			b.transitionLocked(StateHalfOpen)
			return nil
		}
		return ErrCircuitOpen
	default:
		return nil
	}
}

// RecordSuccess advances the breaker on a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.transitionLocked(StateClosed)
		}
	case StateOpen:
		// unreachable under normal Allow() gating, kept for completeness
		b.transitionLocked(StateHalfOpen)
	}
}

// RecordFailure advances the breaker on a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes = 0
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		b.transitionLocked(StateOpen)
	}
}

func (b *Breaker) transitionLocked(to string) {
	b.state = to
	b.lastStateChange = time.Now()
	b.failures = 0
	b.successes = 0
}

// State returns the breaker's current state for introspection/logging.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

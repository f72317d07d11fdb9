package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned when a call is rejected without being attempted.
var ErrBreakerOpen = eris.New("resilience: circuit open")

// BreakerState is the state of a circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls immediately with ErrBreakerOpen.
	BreakerOpen
	// BreakerHalfOpen lets probe calls through to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig controls when a Breaker opens and when it probes again.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5.
	FailureThreshold int

	// CoolDown is how long the circuit stays open before a probe call is
	// let through. Default: 30s.
	CoolDown time.Duration

	// Now allows test injection of time.
	Now func() time.Time
}

// DefaultBreakerConfig suits the dataset and feed providers: open after a
// handful of consecutive failures, probe again after half a minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		CoolDown:         30 * time.Second,
	}
}

// Breaker is a circuit breaker guarding one external service. When the
// service fails repeatedly the breaker opens and calls fail fast instead of
// re-timing-out per request; after the cool-down a probe call decides
// whether it closes again.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
}

// NewBreaker returns a closed Breaker for the named service.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{name: name, cfg: cfg}
}

// State returns the current state, accounting for an elapsed cool-down.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && b.cfg.Now().Sub(b.openedAt) >= b.cfg.CoolDown {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen {
		if b.cfg.Now().Sub(b.openedAt) < b.cfg.CoolDown {
			return ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A canceled caller says nothing about the service.
	if err != nil && errors.Is(err, context.Canceled) {
		return
	}

	if err == nil {
		if b.state != BreakerClosed {
			zap.L().Info("circuit closed", zap.String("service", b.name))
		}
		b.state = BreakerClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == BreakerHalfOpen || b.failures >= b.cfg.FailureThreshold {
		if b.state != BreakerOpen {
			zap.L().Warn("circuit opened",
				zap.String("service", b.name),
				zap.Int("consecutive_failures", b.failures),
			)
		}
		b.state = BreakerOpen
		b.openedAt = b.cfg.Now()
	}
}

// BreakVal runs fn through the breaker, preserving its value. While the
// circuit is open the call fails immediately with ErrBreakerOpen.
func BreakVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}

	val, err := fn(ctx)
	b.record(err)
	return val, err
}

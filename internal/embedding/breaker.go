package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects calls after repeated
// embedder failures.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig tunes the breaker guarding remote embedders.
type BreakerConfig struct {
	// MaxFailures consecutive failures trip the breaker.
	MaxFailures uint32
	// Timeout is how long the breaker stays open before trying again.
	Timeout time.Duration
	// HalfOpenMaxSuccesses trial requests must succeed to close it again.
	HalfOpenMaxSuccesses uint32
}

// DefaultBreakerConfig returns 3 failures, 30s open, 2 trial requests.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxFailures: 3, Timeout: 30 * time.Second, HalfOpenMaxSuccesses: 2}
}

type breaker struct {
	cb *gobreaker.CircuitBreaker
}

func newBreaker(name string, cfg BreakerConfig, onChange func(from, to gobreaker.State)) *breaker {
	return &breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// a superseded request is not the remote's fault
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if onChange != nil {
				onChange(from, to)
			}
		},
	})}
}

func (b *breaker) execute(ctx context.Context, fn func() (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrCircuitOpen
	}
	return res, err
}

func (b *breaker) state() string {
	return b.cb.State().String()
}

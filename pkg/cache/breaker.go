package cache

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings tunes when a Breaker stops calling its backend
type BreakerSettings struct {
	Name string
	// ConsecutiveFailures in a row open the breaker
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// Breaker wraps a ResultCache with a circuit breaker so a failing backend is
// skipped instead of adding latency to every listing request. While open, Get
// and Set return gobreaker.ErrOpenState without touching the backend.
type Breaker struct {
	inner ResultCache
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps inner
func NewBreaker(inner ResultCache, settings BreakerSettings, log *zap.Logger) *Breaker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Breaker{
		inner: inner,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        settings.Name,
			MaxRequests: 1,
			Timeout:     settings.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("Cache circuit breaker state change",
					zap.String("name", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

// Get implements ResultCache
func (b *Breaker) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	hit, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Get(ctx, key, dest)
	})
	if err != nil {
		return false, err
	}
	return hit.(bool), nil
}

// Set implements ResultCache
func (b *Breaker) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Set(ctx, key, value, ttl)
	})
	return err
}

// Close closes the wrapped cache
func (b *Breaker) Close() error {
	return b.inner.Close()
}

// State reports the breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

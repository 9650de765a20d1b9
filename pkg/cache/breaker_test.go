package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyCache struct {
	err   error
	calls int
}

func (f *flakyCache) Get(context.Context, string, interface{}) (bool, error) {
	f.calls++
	return f.err == nil, f.err
}

func (f *flakyCache) Set(context.Context, string, interface{}, time.Duration) error {
	f.calls++
	return f.err
}

func (f *flakyCache) Close() error { return nil }

func TestBreakerPassesThrough(t *testing.T) {
	inner := &flakyCache{}
	b := NewBreaker(inner, BreakerSettings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	hit, err := b.Get(context.Background(), "k", nil)
	require.NoError(t, err)
	assert.True(t, hit)
	require.NoError(t, b.Set(context.Background(), "k", "v", time.Minute))
	assert.Equal(t, 2, inner.calls)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	inner := &flakyCache{err: errors.New("connection refused")}
	b := NewBreaker(inner, BreakerSettings{Name: "test", ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)
	ctx := context.Background()

	_, err := b.Get(ctx, "k", nil)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateClosed, b.State())

	_, err = b.Get(ctx, "k", nil)
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, b.State())

	hit, err := b.Get(ctx, "k", nil)
	assert.False(t, hit)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.ErrorIs(t, b.Set(ctx, "k", "v", time.Minute), gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls)
}

package cache

import (
	"context"
	"time"
)

// ResultCache stores JSON-serializable values by key
type ResultCache interface {
	// Get decodes the cached value into dest. A miss returns (false, nil).
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Close() error
}

// Noop is a cache that never stores anything
type Noop struct{}

// Get always misses
func (Noop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }

// Set discards the value
func (Noop) Set(context.Context, string, interface{}, time.Duration) error { return nil }

// Close does nothing
func (Noop) Close() error { return nil }

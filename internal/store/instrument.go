package store

import (
	"context"
	"errors"
	"time"

	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
)

// instrumented records duration metrics and debug logs around a Collection
type instrumented[T Record] struct {
	name  string
	inner Collection[T]
}

func instrument[T Record](name string, inner Collection[T]) Collection[T] {
	return &instrumented[T]{name: name, inner: inner}
}

func (i *instrumented[T]) observe(ctx context.Context, op string, start time.Time, err error) {
	prometheus.TrackStoreOperation(i.name, op)(start)
	log := logger.FromContext(ctx)
	if errors.Is(err, ErrDuplicate) {
		log.Warn("Duplicate record", zap.String("collection", i.name))
		return
	}
	if err != nil {
		log.Error("Store operation failed",
			zap.String("collection", i.name),
			zap.String("operation", op),
			zap.Error(err))
		return
	}
	log.Debug("Store operation",
		zap.String("collection", i.name),
		zap.String("operation", op),
		zap.Duration("duration", time.Since(start)))
}

func (i *instrumented[T]) Get(ctx context.Context, id string) (T, bool, error) {
	start := time.Now()
	rec, ok, err := i.inner.Get(ctx, id)
	i.observe(ctx, "get", start, err)
	return rec, ok, err
}

func (i *instrumented[T]) Find(ctx context.Context, pred func(T) bool) (T, bool, error) {
	start := time.Now()
	rec, ok, err := i.inner.Find(ctx, pred)
	i.observe(ctx, "find", start, err)
	return rec, ok, err
}

func (i *instrumented[T]) List(ctx context.Context, pred func(T) bool) ([]T, error) {
	start := time.Now()
	recs, err := i.inner.List(ctx, pred)
	i.observe(ctx, "list", start, err)
	return recs, err
}

func (i *instrumented[T]) Insert(ctx context.Context, record T) error {
	start := time.Now()
	err := i.inner.Insert(ctx, record)
	i.observe(ctx, "insert", start, err)
	return err
}

func (i *instrumented[T]) Update(ctx context.Context, id string, patch func(*T)) (T, bool, error) {
	start := time.Now()
	rec, ok, err := i.inner.Update(ctx, id, patch)
	i.observe(ctx, "update", start, err)
	return rec, ok, err
}

func (i *instrumented[T]) Delete(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	ok, err := i.inner.Delete(ctx, id)
	i.observe(ctx, "delete", start, err)
	return ok, err
}

// Package store persists users, orders and carts behind a small collection
// interface so handlers never depend on a particular backend.
package store

import (
	"context"
	"errors"

	"github.com/suteetoe/storefront/internal/model"
)

// Collection names
const (
	CollectionUsers  = "users"
	CollectionOrders = "orders"
	CollectionCarts  = "carts"
)

// ErrDuplicate is returned by Insert when a record with the same id, or the
// same unique key, exists
var ErrDuplicate = errors.New("record already exists")

// Record is anything stored in a Collection
type Record interface {
	RecordID() string
}

// Unique is implemented by records with a secondary key that must not repeat
// within their collection. An empty key is not checked.
type Unique interface {
	UniqueKey() string
}

func uniqueKeyOf(record interface{}) string {
	if u, ok := record.(Unique); ok {
		return u.UniqueKey()
	}
	return ""
}

// Collection is a keyed set of records of one type. Predicates are evaluated in
// process; backends make no promise about iteration order beyond insertion order
// for the file backend.
type Collection[T Record] interface {
	// Get returns the record with the given id. Absence is (zero, false, nil).
	Get(ctx context.Context, id string) (T, bool, error)
	// Find returns the first record matching pred. Absence is (zero, false, nil).
	Find(ctx context.Context, pred func(T) bool) (T, bool, error)
	// List returns every record matching pred. A nil pred matches everything.
	List(ctx context.Context, pred func(T) bool) ([]T, error)
	// Insert fails with ErrDuplicate on an id or Unique key collision.
	Insert(ctx context.Context, record T) error
	// Update applies patch to the record with the given id and stores the result.
	Update(ctx context.Context, id string, patch func(*T)) (T, bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Stores bundles the collections the handlers work with
type Stores struct {
	Users  Collection[model.User]
	Orders Collection[model.Order]
	Carts  Collection[model.Cart]

	closeFn func(ctx context.Context) error
}

// Close releases backend resources
func (s *Stores) Close(ctx context.Context) error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn(ctx)
}

func matchAll[T any](pred func(T) bool) func(T) bool {
	if pred == nil {
		return func(T) bool { return true }
	}
	return pred
}

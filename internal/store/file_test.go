package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/storefront/internal/model"
)

func newStores(t *testing.T) (*Stores, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFileStores(dir)
	require.NoError(t, err)
	return s, dir
}

func TestFileCollectionCRUD(t *testing.T) {
	ctx := context.Background()
	s, dir := newStores(t)

	_, ok, err := s.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	u := model.User{ID: "u1", Name: "Ana", Email: "ana@example.com", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.Users.Insert(ctx, u))
	assert.FileExists(t, filepath.Join(dir, "users.json"))

	found, ok, err := s.Users.Find(ctx, func(x model.User) bool { return x.Email == "ana@example.com" })
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ana", found.Name)

	updated, ok, err := s.Users.Update(ctx, "u1", func(x *model.User) { x.Name = "Ana Maria" })
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Ana Maria", updated.Name)

	found, _, err = s.Users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", found.Name)

	deleted, err := s.Users.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Users.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFileCollectionInsertDuplicate(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t)

	require.NoError(t, s.Orders.Insert(ctx, model.Order{ID: "o1"}))
	assert.ErrorIs(t, s.Orders.Insert(ctx, model.Order{ID: "o1"}), ErrDuplicate)
}

func TestFileCollectionRejectsDuplicateUniqueKey(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t)

	require.NoError(t, s.Users.Insert(ctx, model.User{ID: "u1", Email: "ana@example.com"}))
	assert.ErrorIs(t, s.Users.Insert(ctx, model.User{ID: "u2", Email: "ana@example.com"}), ErrDuplicate)
	require.NoError(t, s.Users.Insert(ctx, model.User{ID: "u3", Email: "bea@example.com"}))

	_, _, err := s.Users.Update(ctx, "u3", func(u *model.User) { u.Email = "ana@example.com" })
	assert.ErrorIs(t, err, ErrDuplicate)

	found, ok, err := s.Users.Get(ctx, "u3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "bea@example.com", found.Email)

	_, err = s.Users.Delete(ctx, "u1")
	require.NoError(t, err)
	assert.NoError(t, s.Users.Insert(ctx, model.User{ID: "u4", Email: "ana@example.com"}))
}

func TestFileCollectionConcurrentInsertsKeepKeyUnique(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t)

	const writers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Users.Insert(ctx, model.User{ID: fmt.Sprintf("u%d", i), Email: "ana@example.com"})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrDuplicate)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	users, err := s.Users.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestFileCollectionUpdateMissing(t *testing.T) {
	s, _ := newStores(t)

	_, ok, err := s.Carts.Update(context.Background(), "nobody", func(c *model.Cart) {
		t.Fatal("patch must not run for a missing record")
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileCollectionListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t)

	for i := 0; i < 5; i++ {
		owner := "u1"
		if i%2 == 1 {
			owner = "u2"
		}
		require.NoError(t, s.Orders.Insert(ctx, model.Order{ID: fmt.Sprintf("o%d", i), UserID: owner}))
	}

	all, err := s.Orders.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	mine, err := s.Orders.List(ctx, func(o model.Order) bool { return o.UserID == "u1" })
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, []string{"o0", "o2", "o4"}, []string{mine[0].ID, mine[1].ID, mine[2].ID})
}

func TestFileCollectionConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	s, _ := newStores(t)
	require.NoError(t, s.Carts.Insert(ctx, model.Cart{ID: "u1"}))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := s.Carts.Update(ctx, "u1", func(c *model.Cart) {
				c.SetQuantity(fmt.Sprintf("p%d", i), 1)
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	cart, ok, err := s.Carts.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, cart.Items, writers)
}

func TestFileCollectionEmptyAndCorruptFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.json"), nil, 0o644))
	users, err := NewFileCollection[model.User](dir, CollectionUsers)
	require.NoError(t, err)
	list, err := users.List(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.json"), []byte("{not json"), 0o644))
	orders, err := NewFileCollection[model.Order](dir, CollectionOrders)
	require.NoError(t, err)
	_, err = orders.List(ctx, nil)
	assert.Error(t, err)
}

func TestFileCollectionLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	s, dir := newStores(t)

	require.NoError(t, s.Users.Insert(ctx, model.User{ID: "u1"}))
	_, _, err := s.Users.Update(ctx, "u1", func(u *model.User) { u.Name = "x" })
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, ".json", filepath.Ext(e.Name()), e.Name())
	}
}

func TestStoresCloseWithoutBackend(t *testing.T) {
	s, _ := newStores(t)
	assert.NoError(t, s.Close(context.Background()))
}

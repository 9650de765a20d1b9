package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suteetoe/storefront/internal/catalog"
)

type listing struct {
	Products   []catalog.Product      `json:"products"`
	Total      int                    `json:"total"`
	Page       *float64               `json:"page"`
	Limit      *float64               `json:"limit"`
	TotalPages *float64               `json:"totalPages"`
	Filters    map[string]interface{} `json:"filters"`
}

func ids(products []catalog.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestListProductsDefaults(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/products", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	var got listing
	decode(t, rec, &got)
	assert.Equal(t, 16, got.Total)
	assert.Len(t, got.Products, 12)
	require.NotNil(t, got.TotalPages)
	assert.Equal(t, 2.0, *got.TotalPages)
	assert.Empty(t, got.Filters)
}

func TestListProductsFiltersAndSort(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/products?category=ELECTRONICS&inStock=true&sortBy=price&sortOrder=desc", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got listing
	decode(t, rec, &got)
	assert.Equal(t, 4, got.Total)
	assert.NotContains(t, ids(got.Products), "3")
	for i := 1; i < len(got.Products); i++ {
		assert.GreaterOrEqual(t, got.Products[i-1].BasePrice, got.Products[i].BasePrice)
	}
	assert.Equal(t, "ELECTRONICS", got.Filters["category"])
	assert.Equal(t, true, got.Filters["inStock"])
}

func TestListProductsMalformedLimit(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/products?limit=abc", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got listing
	decode(t, rec, &got)
	assert.Equal(t, 16, got.Total)
	assert.Empty(t, got.Products)
	assert.Nil(t, got.Limit)
	assert.Nil(t, got.TotalPages)
}

// memoryCache is a ResultCache backed by a map of encoded values
type memoryCache struct {
	data   map[string][]byte
	setErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memoryCache) Close() error { return nil }

func TestListProductsCache(t *testing.T) {
	s := newTestServer(t)
	mc := newMemoryCache()
	s.h.cache = mc

	first := s.do(t, http.MethodGet, "/api/products?brand=sonora&page=1", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.Len(t, mc.data, 1)

	// same parameters in a different order share the entry
	second := s.do(t, http.MethodGet, "/api/products?page=1&brand=sonora", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}

func TestListProductsCacheFailureIsIgnored(t *testing.T) {
	s := newTestServer(t)
	mc := newMemoryCache()
	mc.setErr = errors.New("connection refused")
	s.h.cache = mc

	rec := s.do(t, http.MethodGet, "/api/products", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/products/5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p catalog.Product
	decode(t, rec, &p)
	assert.Equal(t, "5", p.ID)

	rec = s.do(t, http.MethodGet, "/api/products/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Product not found"}`, rec.Body.String())
}

func TestProductFilters(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/products/filters", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var meta catalog.FilterMetadata
	decode(t, rec, &meta)
	assert.Len(t, meta.Categories, 4)
	assert.Equal(t, 13, meta.Availability.InStock)
	assert.Equal(t, 3, meta.Availability.OutOfStock)
}

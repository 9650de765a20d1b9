package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getCart(t *testing.T, s *testServer, token string) cartView {
	t.Helper()
	rec := s.do(t, http.MethodGet, "/api/cart", "", withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v cartView
	decode(t, rec, &v)
	return v
}

func TestCartRequiresAuth(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/cart", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"1","quantity":1}`).Code)
}

func TestCartItems(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Ada", "ada@example.com")

	v := getCart(t, s, token)
	assert.Empty(t, v.Items)
	assert.Zero(t, v.Subtotal)

	rec := s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"2","quantity":2}`, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"5","quantity":1}`, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"2","quantity":3}`, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)

	v = getCart(t, s, token)
	require.Len(t, v.Items, 2)
	assert.Equal(t, 3, v.Items[0].Quantity)
	require.NotNil(t, v.Items[0].Product)
	assert.Equal(t, 387.0, v.Items[0].LineTotal)
	assert.Equal(t, 432.0, v.Subtotal)
	assert.Equal(t, 4, v.ItemCount)

	rec = s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"2","quantity":0}`, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	v = getCart(t, s, token)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "5", v.Items[0].ProductID)

	rec = s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"999","quantity":1}`, withBearer(token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"1","quantity":100}`, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/cart/items/5", "", withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/cart/items/5", "", withBearer(token))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartIsPerUser(t *testing.T) {
	s := newTestServer(t)
	ada := s.register(t, "Ada", "ada@example.com")
	bob := s.register(t, "Bob", "bob@example.com")

	rec := s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"1","quantity":1}`, withBearer(ada))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Len(t, getCart(t, s, ada).Items, 1)
	assert.Empty(t, getCart(t, s, bob).Items)
}

func TestClearCart(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Ada", "ada@example.com")
	s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"1","quantity":1}`, withBearer(token))

	rec := s.do(t, http.MethodDelete, "/api/cart", "", withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, getCart(t, s, token).Items)
}

func TestCheckout(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Ada", "ada@example.com")
	checkout := `{"shippingAddress":` + address + `}`

	rec := s.do(t, http.MethodPost, "/api/cart/checkout", checkout, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Cart is empty"}`, rec.Body.String())

	s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"2","quantity":2}`, withBearer(token))
	s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"5","quantity":1}`, withBearer(token))

	rec = s.do(t, http.MethodPost, "/api/cart/checkout", checkout, withBearer(token))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp orderResponse
	decode(t, rec, &resp)
	assert.Equal(t, 303.0, resp.Order.Subtotal)
	assert.Equal(t, "ada@example.com", resp.Order.Email)
	assert.Empty(t, getCart(t, s, token).Items)

	rec = s.do(t, http.MethodGet, "/api/orders", "", withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), resp.Order.ID)
}

func TestCheckoutKeepsCartOnFailure(t *testing.T) {
	s := newTestServer(t)
	token := s.register(t, "Ada", "ada@example.com")
	s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"1","quantity":1}`, withBearer(token))

	// the cart accepts out-of-stock products, checkout does not
	rec := s.do(t, http.MethodPut, "/api/cart/items", `{"productId":"3","quantity":1}`, withBearer(token))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/cart/checkout", `{"shippingAddress":`+address+`}`, withBearer(token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, getCart(t, s, token).Items, 2)
}

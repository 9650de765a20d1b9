package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/catalog"
	"github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/pkg/logger"
	"go.uber.org/zap"
)

type setCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=0,max=99"`
}

type checkoutRequest struct {
	Email           string                `json:"email" validate:"omitempty,email"`
	ShippingAddress model.ShippingAddress `json:"shippingAddress" validate:"required"`
}

func (r *checkoutRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
}

type cartLine struct {
	ProductID string           `json:"productId"`
	Quantity  int              `json:"quantity"`
	Product   *catalog.Product `json:"product,omitempty"`
	LineTotal float64          `json:"lineTotal"`
}

type cartView struct {
	Items     []cartLine `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	ItemCount int        `json:"itemCount"`
}

// view joins cart items with current catalog data. Products that left the
// catalog are listed without a snapshot and priced at zero.
func (h *Handler) view(cart model.Cart) cartView {
	v := cartView{Items: make([]cartLine, 0, len(cart.Items))}
	var subtotal float64
	for _, item := range cart.Items {
		line := cartLine{ProductID: item.ProductID, Quantity: item.Quantity}
		if p, ok := h.catalog.Get(item.ProductID); ok {
			line.Product = &p
			line.LineTotal = model.RoundCents(p.BasePrice * float64(item.Quantity))
		}
		subtotal += line.LineTotal
		v.ItemCount += item.Quantity
		v.Items = append(v.Items, line)
	}
	v.Subtotal = model.RoundCents(subtotal)
	return v
}

func (h *Handler) loadCart(c echo.Context) (model.Cart, error) {
	claims, _ := middleware.ClaimsFrom(c)
	cart, found, err := h.stores.Carts.Get(c.Request().Context(), claims.UserID)
	if err != nil {
		return cart, err
	}
	if !found {
		cart = model.Cart{ID: claims.UserID, Items: []model.CartItem{}}
	}
	return cart, nil
}

// GetCart returns the caller's cart
func (h *Handler) GetCart(c echo.Context) error {
	cart, err := h.loadCart(c)
	if err != nil {
		return internalError(c, "Failed to load cart", err)
	}
	return c.JSON(http.StatusOK, h.view(cart))
}

// SetCartItem sets a product quantity in the caller's cart. Zero removes it.
func (h *Handler) SetCartItem(c echo.Context) error {
	var req setCartItemRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if _, ok := h.catalog.Get(req.ProductID); !ok {
		return errorJSON(c, http.StatusNotFound, "Product not found")
	}

	claims, _ := middleware.ClaimsFrom(c)
	ctx := c.Request().Context()
	now := h.now()

	cart, found, err := h.stores.Carts.Update(ctx, claims.UserID, func(cart *model.Cart) {
		cart.SetQuantity(req.ProductID, req.Quantity)
		cart.UpdatedAt = now
	})
	if err != nil {
		return internalError(c, "Failed to update cart", err)
	}
	if !found {
		cart = model.Cart{ID: claims.UserID, Items: []model.CartItem{}, UpdatedAt: now}
		cart.SetQuantity(req.ProductID, req.Quantity)
		if err := h.stores.Carts.Insert(ctx, cart); err != nil {
			return internalError(c, "Failed to update cart", err)
		}
	}

	logger.FromEcho(c).Debug("Cart item set",
		zap.String("product_id", req.ProductID),
		zap.Int("quantity", req.Quantity))
	return c.JSON(http.StatusOK, h.view(cart))
}

// RemoveCartItem drops a product from the caller's cart
func (h *Handler) RemoveCartItem(c echo.Context) error {
	claims, _ := middleware.ClaimsFrom(c)
	productID := c.Param("productId")

	removed := false
	cart, found, err := h.stores.Carts.Update(c.Request().Context(), claims.UserID, func(cart *model.Cart) {
		removed = cart.Remove(productID)
		cart.UpdatedAt = h.now()
	})
	if err != nil {
		return internalError(c, "Failed to update cart", err)
	}
	if !found || !removed {
		return errorJSON(c, http.StatusNotFound, "Item not in cart")
	}
	return c.JSON(http.StatusOK, h.view(cart))
}

// ClearCart empties the caller's cart
func (h *Handler) ClearCart(c echo.Context) error {
	claims, _ := middleware.ClaimsFrom(c)
	if _, err := h.stores.Carts.Delete(c.Request().Context(), claims.UserID); err != nil {
		return internalError(c, "Failed to clear cart", err)
	}
	return c.JSON(http.StatusOK, h.view(model.Cart{ID: claims.UserID}))
}

// Checkout places an order for the cart contents and clears the cart
func (h *Handler) Checkout(c echo.Context) error {
	var req checkoutRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	cart, err := h.loadCart(c)
	if err != nil {
		return internalError(c, "Failed to load cart", err)
	}
	if len(cart.Items) == 0 {
		return errorJSON(c, http.StatusBadRequest, "Cart is empty")
	}

	lines := make([]orderItemRequest, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, orderItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	resp, err := h.placeOrder(c, lines, req.Email, req.ShippingAddress)
	if err != nil {
		return orderFailed(c, err)
	}

	if _, err := h.stores.Carts.Delete(c.Request().Context(), cart.ID); err != nil {
		// the order already went out; a stale cart is recoverable
		logger.FromEcho(c).Error("Failed to clear cart after checkout", zap.Error(err))
	}
	return c.JSON(http.StatusCreated, resp)
}

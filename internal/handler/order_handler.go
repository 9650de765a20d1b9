package handler

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/internal/model"
	"github.com/suteetoe/storefront/pkg/jwtutil"
	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
)

type orderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
}

type createOrderRequest struct {
	Items           []orderItemRequest    `json:"items" validate:"required,min=1,dive"`
	Email           string                `json:"email" validate:"omitempty,email"`
	ShippingAddress model.ShippingAddress `json:"shippingAddress" validate:"required"`
}

type updateOrderRequest struct {
	Status          string                 `json:"status" validate:"omitempty,oneof=cancelled"`
	ShippingAddress *model.ShippingAddress `json:"shippingAddress" validate:"omitempty"`
}

type orderResponse struct {
	Order      model.Order `json:"order"`
	GuestToken string      `json:"guestToken,omitempty"`
}

func (r *createOrderRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
}

// requestError is a client mistake found while placing an order
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// priceItems resolves requested lines against the catalog
func (h *Handler) priceItems(lines []orderItemRequest) ([]model.OrderItem, error) {
	items := make([]model.OrderItem, 0, len(lines))
	for _, line := range lines {
		product, ok := h.catalog.Get(line.ProductID)
		if !ok {
			return nil, &requestError{msg: fmt.Sprintf("Product %s not found", line.ProductID)}
		}
		if !product.InStock {
			return nil, &requestError{msg: fmt.Sprintf("Product %s is out of stock", line.ProductID)}
		}
		items = append(items, model.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.BasePrice,
			Quantity:  line.Quantity,
			LineTotal: model.RoundCents(product.BasePrice * float64(line.Quantity)),
		})
	}
	return items, nil
}

// placeOrder prices and stores an order. Guests must supply an email and get a
// guest token back. Client mistakes are returned as *requestError.
func (h *Handler) placeOrder(c echo.Context, lines []orderItemRequest, email string, address model.ShippingAddress) (orderResponse, error) {
	claims, authenticated := middleware.ClaimsFrom(c)

	if email == "" && authenticated {
		email = claims.Email
	}
	if email == "" {
		return orderResponse{}, &requestError{msg: "Email is required for guest checkout"}
	}

	items, err := h.priceItems(lines)
	if err != nil {
		return orderResponse{}, err
	}

	now := h.now()
	order := model.Order{
		ID:              uuid.NewString(),
		Email:           normalizeEmail(email),
		Items:           items,
		Subtotal:        model.SubtotalOf(items),
		ShippingAddress: address,
		Status:          model.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if authenticated {
		order.UserID = claims.UserID
	}

	if err := h.stores.Orders.Insert(c.Request().Context(), order); err != nil {
		return orderResponse{}, err
	}

	resp := orderResponse{Order: order}
	kind := "user"
	if order.IsGuest() {
		kind = "guest"
		resp.GuestToken = jwtutil.NewGuestToken(order.ID)
	}
	prometheus.RecordOrder(kind)

	logger.FromEcho(c).Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("kind", kind),
		zap.Int("items", len(order.Items)),
		zap.Float64("subtotal", order.Subtotal))
	return resp, nil
}

// orderFailed writes the response for a placeOrder error
func orderFailed(c echo.Context, err error) error {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return errorJSON(c, http.StatusBadRequest, reqErr.msg)
	}
	return internalError(c, "Failed to place order", err)
}

// CreateOrder places an order for the authenticated user or a guest
func (h *Handler) CreateOrder(c echo.Context) error {
	var req createOrderRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}

	resp, err := h.placeOrder(c, req.Items, req.Email, req.ShippingAddress)
	if err != nil {
		return orderFailed(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// ListOrders returns the authenticated user's orders, newest first
func (h *Handler) ListOrders(c echo.Context) error {
	claims, _ := middleware.ClaimsFrom(c)

	orders, err := h.stores.Orders.List(c.Request().Context(), func(o model.Order) bool {
		return o.UserID == claims.UserID
	})
	if err != nil {
		return internalError(c, "Failed to load orders", err)
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// loadOwnedOrder fetches an order and checks the caller owns it. On failure it
// writes the response and returns ok=false.
func (h *Handler) loadOwnedOrder(c echo.Context) (model.Order, bool, error) {
	claims, _ := middleware.ClaimsFrom(c)
	id := c.Param("id")

	order, found, err := h.stores.Orders.Get(c.Request().Context(), id)
	if err != nil {
		return order, false, internalError(c, "Failed to load order", err)
	}
	if !found {
		return order, false, errorJSON(c, http.StatusNotFound, "Order not found")
	}
	if order.UserID != claims.UserID {
		logger.FromEcho(c).Warn("Order access denied", zap.String("order_id", id))
		return order, false, errorJSON(c, http.StatusForbidden, "Forbidden")
	}
	return order, true, nil
}

// GetOrder returns an order to its owner, or to anyone holding its guest token
func (h *Handler) GetOrder(c echo.Context) error {
	log := logger.FromEcho(c)
	id := c.Param("id")

	order, found, err := h.stores.Orders.Get(c.Request().Context(), id)
	if err != nil {
		return internalError(c, "Failed to load order", err)
	}
	if !found {
		return errorJSON(c, http.StatusNotFound, "Order not found")
	}

	claims, authenticated := middleware.ClaimsFrom(c)
	if authenticated && order.UserID != "" && order.UserID == claims.UserID {
		return c.JSON(http.StatusOK, orderResponse{Order: order})
	}

	// Guest tokens are only checked by prefix. This is a convenience lookup,
	// not an access control boundary.
	guestToken := middleware.GuestToken(c)
	if guestToken != "" && jwtutil.GuestTokenMatches(guestToken, order.ID) {
		log.Info("Order accessed with guest token", zap.String("order_id", order.ID))
		return c.JSON(http.StatusOK, orderResponse{Order: order})
	}

	if !authenticated && guestToken == "" {
		return errorJSON(c, http.StatusUnauthorized, "Unauthorized")
	}
	log.Warn("Order access denied", zap.String("order_id", order.ID))
	return errorJSON(c, http.StatusForbidden, "Forbidden")
}

// UpdateOrder lets the owner of a pending order cancel it or change its address
func (h *Handler) UpdateOrder(c echo.Context) error {
	var req updateOrderRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if req.Status == "" && req.ShippingAddress == nil {
		return errorJSON(c, http.StatusBadRequest, "Nothing to update")
	}

	order, ok, err := h.loadOwnedOrder(c)
	if !ok {
		return err
	}
	if order.Status != model.OrderStatusPending {
		return errorJSON(c, http.StatusConflict, "Only pending orders can be modified")
	}

	// the status may have changed since the order was loaded
	notPending := false
	updated, found, err := h.stores.Orders.Update(c.Request().Context(), order.ID, func(o *model.Order) {
		if o.Status != model.OrderStatusPending {
			notPending = true
			return
		}
		if req.Status != "" {
			o.Status = req.Status
		}
		if req.ShippingAddress != nil {
			o.ShippingAddress = *req.ShippingAddress
		}
		o.UpdatedAt = h.now()
	})
	if err != nil {
		return internalError(c, "Failed to update order", err)
	}
	if !found {
		return errorJSON(c, http.StatusNotFound, "Order not found")
	}
	if notPending {
		return errorJSON(c, http.StatusConflict, "Only pending orders can be modified")
	}

	logger.FromEcho(c).Info("Order updated",
		zap.String("order_id", updated.ID),
		zap.String("status", updated.Status))
	return c.JSON(http.StatusOK, orderResponse{Order: updated})
}

// DeleteOrder removes a cancelled order owned by the caller
func (h *Handler) DeleteOrder(c echo.Context) error {
	order, ok, err := h.loadOwnedOrder(c)
	if !ok {
		return err
	}
	if order.Status != model.OrderStatusCancelled {
		return errorJSON(c, http.StatusConflict, "Only cancelled orders can be deleted")
	}

	deleted, err := h.stores.Orders.Delete(c.Request().Context(), order.ID)
	if err != nil {
		return internalError(c, "Failed to delete order", err)
	}
	if !deleted {
		return errorJSON(c, http.StatusNotFound, "Order not found")
	}

	logger.FromEcho(c).Info("Order deleted", zap.String("order_id", order.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Order deleted successfully"})
}

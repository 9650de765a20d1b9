package handler

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/suteetoe/storefront/internal/catalog"
	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
)

// ListProducts runs the listing query pipeline over the catalog
func (h *Handler) ListProducts(c echo.Context) error {
	log := logger.FromEcho(c)
	ctx := c.Request().Context()
	values := c.QueryParams()
	key := catalog.CacheKey(values)

	var cached jsoniter.RawMessage
	hit, err := h.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Warn("Listing cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	prometheus.RecordCacheLookup(hit)
	if hit {
		c.Response().Header().Set("X-Cache", "HIT")
		return c.JSONBlob(http.StatusOK, cached)
	}
	c.Response().Header().Set("X-Cache", "MISS")

	result := catalog.RunQuery(h.catalog.Products(), catalog.ParseQuery(values))
	prometheus.RecordListing(result.Total)

	body, err := json.Marshal(result)
	if err != nil {
		return internalError(c, "Failed to encode products", err)
	}

	if err := h.cache.Set(ctx, key, jsoniter.RawMessage(body), h.cacheTTL); err != nil {
		log.Warn("Failed to cache product listing", zap.String("key", key), zap.Error(err))
	}

	log.Debug("Products listed",
		zap.Int("total", result.Total),
		zap.Int("returned", len(result.Products)))
	return c.JSONBlob(http.StatusOK, body)
}

// GetProduct returns a single product by id
func (h *Handler) GetProduct(c echo.Context) error {
	id := c.Param("id")

	product, ok := h.catalog.Get(id)
	if !ok {
		logger.FromEcho(c).Info("Product not found", zap.String("product_id", id))
		return errorJSON(c, http.StatusNotFound, "Product not found")
	}

	prometheus.RecordProductView(product.ID, product.Category)
	return c.JSON(http.StatusOK, product)
}

// ProductFilters returns the facets available for filtering the catalog
func (h *Handler) ProductFilters(c echo.Context) error {
	return c.JSON(http.StatusOK, h.facets)
}

// HealthCheck reports service liveness
func (h *Handler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":   "ok",
		"products": h.catalog.Len(),
	})
}

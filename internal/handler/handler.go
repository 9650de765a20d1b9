package handler

import (
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/storefront/internal/catalog"
	"github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/internal/store"
	"github.com/suteetoe/storefront/pkg/cache"
	"github.com/suteetoe/storefront/pkg/jwtutil"
	"github.com/suteetoe/storefront/prometheus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler serves the storefront API. All dependencies are injected.
type Handler struct {
	catalog  *catalog.Catalog
	facets   catalog.FilterMetadata
	stores   *store.Stores
	jwt      *jwtutil.JWTUtil
	cache    cache.ResultCache
	cacheTTL time.Duration
	now      func() time.Time
}

// Options configures a Handler
type Options struct {
	Catalog  *catalog.Catalog
	Stores   *store.Stores
	JWT      *jwtutil.JWTUtil
	Cache    cache.ResultCache
	CacheTTL time.Duration
}

// New creates a Handler. A nil cache disables listing caching.
func New(opts Options) *Handler {
	c := opts.Cache
	if c == nil {
		c = cache.Noop{}
	}
	return &Handler{
		catalog:  opts.Catalog,
		facets:   catalog.Facets(opts.Catalog.Products()),
		stores:   opts.Stores,
		jwt:      opts.JWT,
		cache:    c,
		cacheTTL: opts.CacheTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CORS allows browser clients from any origin, including preflight requests
// carrying a bearer or guest token
func CORS() echo.MiddlewareFunc {
	return echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderAuthorization, echo.HeaderContentType, middleware.GuestHeader,
		},
	})
}

// Mount registers the API routes on e
func (h *Handler) Mount(e *echo.Echo) {
	requireAuth := middleware.JWTAuthMiddleware(h.jwt)
	optionalAuth := middleware.OptionalJWTMiddleware(h.jwt)

	e.GET("/health", h.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.Handler()))

	api := e.Group("/api")

	products := api.Group("/products")
	products.GET("", h.ListProducts)
	products.GET("/filters", h.ProductFilters)
	products.GET("/:id", h.GetProduct)

	auth := api.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.GET("/me", h.Me, requireAuth)

	orders := api.Group("/orders")
	orders.POST("", h.CreateOrder, optionalAuth)
	orders.GET("", h.ListOrders, requireAuth)
	orders.GET("/:id", h.GetOrder, optionalAuth)
	orders.PATCH("/:id", h.UpdateOrder, requireAuth)
	orders.DELETE("/:id", h.DeleteOrder, requireAuth)

	cart := api.Group("/cart", requireAuth)
	cart.GET("", h.GetCart)
	cart.PUT("/items", h.SetCartItem)
	cart.DELETE("/items/:productId", h.RemoveCartItem)
	cart.DELETE("", h.ClearCart)
	cart.POST("/checkout", h.Checkout)
}

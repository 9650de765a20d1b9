package prometheus

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Authentication metrics
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_login_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_register_total",
			Help: "Total number of registration attempts",
		},
	)

	AuthErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_errors_total",
			Help: "Total number of authentication errors by reason",
		},
		[]string{"reason"},
	)

	// Record store metrics
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of record store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation"},
	)

	// Catalog metrics
	ProductListingsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "product_listings_total",
			Help: "Total number of product listing queries",
		},
	)

	ProductListingResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "product_listing_matches",
			Help:    "Number of products matching a listing query before pagination",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		},
	)

	ProductViewsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "product_views_total",
			Help: "Total number of product detail views",
		},
		[]string{"product_id", "category"},
	)

	// Order metrics
	OrdersCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Total number of orders placed",
		},
		[]string{"kind"},
	)

	// Cache metrics
	CacheLookupsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listing_cache_lookups_total",
			Help: "Listing cache lookups by result",
		},
		[]string{"result"},
	)
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()
)

// InitMetrics registers the collectors. The prefix is applied as a constant
// "service" label so dashboards can tell services apart on a shared Prometheus.
func InitMetrics(prefix string) {
	registerOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(prometheus.Labels{"service": prefix}, registry)
		reg.MustRegister(
			HttpRequestsTotal,
			HttpRequestDuration,
			LoginCounter,
			RegisterCounter,
			AuthErrorsCounter,
			StoreOperationDuration,
			ProductListingsCounter,
			ProductListingResults,
			ProductViewsCounter,
			OrdersCounter,
			CacheLookupsCounter,
		)
		registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	})
}

// Handler serves the registered metrics
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// TrackStoreOperation returns a function that records the duration of a store operation
func TrackStoreOperation(collection, operation string) func(startTime time.Time) {
	return func(startTime time.Time) {
		StoreOperationDuration.WithLabelValues(collection, operation).Observe(time.Since(startTime).Seconds())
	}
}

// RecordAuthError increments the auth error counter for the given reason
func RecordAuthError(reason string) {
	AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// RecordListing records a listing query and its match count
func RecordListing(total int) {
	ProductListingsCounter.Inc()
	ProductListingResults.Observe(float64(total))
}

// RecordProductView increments the counter for product views
func RecordProductView(productID string, category string) {
	ProductViewsCounter.WithLabelValues(productID, category).Inc()
}

// RecordOrder increments the order counter; kind is "user" or "guest"
func RecordOrder(kind string) {
	OrdersCounter.WithLabelValues(kind).Inc()
}

// RecordCacheLookup increments the cache lookup counter
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsCounter.WithLabelValues(result).Inc()
}

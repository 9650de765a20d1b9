package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/storefront/internal/catalog"
	"github.com/suteetoe/storefront/internal/handler"
	"github.com/suteetoe/storefront/internal/middleware"
	"github.com/suteetoe/storefront/internal/store"
	"github.com/suteetoe/storefront/pkg/cache"
	"github.com/suteetoe/storefront/pkg/config"
	"github.com/suteetoe/storefront/pkg/database"
	"github.com/suteetoe/storefront/pkg/jwtutil"
	"github.com/suteetoe/storefront/pkg/logger"
	"github.com/suteetoe/storefront/prometheus"
	"go.uber.org/zap"
)

const serviceName = "storefront-service"

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: cfg.ServiceName,
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer func() { _ = log.Sync() }()
	log.Info("Starting storefront service...", cfg.LogConfig()...)

	if cfg.UsesDefaultSigningKey() {
		log.Warn("JWT_SIGNING_KEY is not set, using the built-in development key")
	}

	prometheus.InitMetrics(cfg.Metrics.Prefix)
	log.Info("Prometheus metrics initialized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := loadCatalog(cfg)
	if err != nil {
		log.Fatal("Failed to load catalog", zap.Error(err))
	}
	log.Info("Catalog loaded", zap.Int("products", cat.Len()))

	stores, err := connectStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open record store", zap.Error(err), zap.String("driver", cfg.Store.Driver))
	}
	log.Info("Record store ready", zap.String("driver", cfg.Store.Driver))

	resultCache := openCache(ctx, cfg, log)

	h := handler.New(handler.Options{
		Catalog: cat,
		Stores:  stores,
		JWT: jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
			SigningKey:      cfg.JWT.SigningKey,
			ExpirationHours: cfg.JWT.ExpirationHours,
		}),
		Cache:    resultCache,
		CacheTTL: cfg.Redis.TTL,
	})

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(handler.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(middleware.MetricsMiddleware)

	h.Mount(e)

	go func() {
		port := cfg.Server.Port
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := stores.Close(shutdownCtx); err != nil {
		log.Error("Failed to close record store", zap.Error(err))
	}
	if err := resultCache.Close(); err != nil {
		log.Error("Failed to close cache", zap.Error(err))
	}
	log.Info("Server stopped")
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path != "" {
		return catalog.Load(cfg.Catalog.Path)
	}
	return catalog.LoadDefault()
}

// connectStores retries openStores with exponential backoff so the service can
// start alongside its database.
func connectStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store.Stores, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = cfg.Store.ConnectTimeout

	var stores *store.Stores
	err := backoff.RetryNotify(func() error {
		s, err := openStores(ctx, cfg)
		if err != nil && cfg.Store.Driver == config.StoreDriverFile {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		stores = s
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		log.Warn("Record store not ready, retrying", zap.Error(err), zap.Duration("retry_in", next))
	})
	return stores, err
}

func openStores(ctx context.Context, cfg *config.Config) (*store.Stores, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.InitDB(&cfg.DB)
		if err != nil {
			return nil, err
		}
		return store.NewGormStores(db)
	case config.StoreDriverMongo:
		client, err := database.InitMongo(ctx, &cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return store.NewMongoStores(ctx, client, cfg.Mongo.Database)
	case config.StoreDriverFile:
		return store.NewFileStores(cfg.Store.DataDir)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// openCache connects to Redis when configured. Listing still works without it.
func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) cache.ResultCache {
	if cfg.Redis.Addr == "" {
		log.Info("Listing cache disabled")
		return cache.Noop{}
	}
	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, listing cache disabled", zap.Error(err))
		return cache.Noop{}
	}
	log.Info("Listing cache enabled", zap.String("addr", cfg.Redis.Addr))
	return cache.NewBreaker(r, cache.BreakerSettings{
		Name:                "listing-cache",
		ConsecutiveFailures: uint32(cfg.Redis.BreakerFailures),
		OpenTimeout:         cfg.Redis.BreakerTimeout,
	}, log)
}

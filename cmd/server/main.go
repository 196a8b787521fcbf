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

	"github.com/amogham/storefront/internal/admin"
	"github.com/amogham/storefront/internal/auth"
	"github.com/amogham/storefront/internal/backend"
	"github.com/amogham/storefront/internal/cart"
	"github.com/amogham/storefront/internal/checkout"
	"github.com/amogham/storefront/internal/checkout/razorpay"
	"github.com/amogham/storefront/internal/config"
	"github.com/amogham/storefront/internal/handler"
	"github.com/amogham/storefront/internal/metrics"
	"github.com/amogham/storefront/internal/router"
	"github.com/amogham/storefront/internal/storage"
	"github.com/amogham/storefront/internal/storage/pgstore"
	"github.com/amogham/storefront/internal/storage/redisstore"
	"github.com/amogham/storefront/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	devAdminPassword = "admin12"
	cartTTL          = 30 * 24 * time.Hour
)

func main() {
	cfg := config.Load()

	// Setup logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, closeStore, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open cart storage", zap.String("kind", cfg.CartStore), zap.Error(err))
	}
	defer closeStore()

	api := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger)
	carts := cart.NewSessions(store, logger)
	bridge := razorpay.NewBridge(cfg.RazorpayKeySecret, cfg.PaymentAttemptTTL, logger)
	scripts := checkout.NewHTTPScriptLoader(cfg.GatewayScriptURL, &http.Client{Timeout: 10 * time.Second}, logger)

	opts := checkout.Options{
		KeyID:       cfg.RazorpayKeyID,
		Currency:    cfg.Currency,
		StoreName:   cfg.StoreName,
		Image:       cfg.StoreImage,
		LocalCity:   cfg.LocalDeliveryCity,
		ShippingFee: cfg.ShippingFee,
	}
	pool := checkout.NewPool(func(c checkout.CartStore) *checkout.Orchestrator {
		return checkout.NewOrchestrator(c, scripts, bridge, api, opts, logger, m)
	})

	go sweepIdleCarts(ctx, carts, pool, cfg.CartIdleTTL, logger)

	passwordHash := cfg.AdminPasswordHash
	if passwordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, using the development password")
		if passwordHash, err = auth.HashPassword(devAdminPassword); err != nil {
			logger.Fatal("Failed to hash admin password", zap.Error(err))
		}
	}
	sessions := auth.NewSessionManager(cfg.JWTSecret, cfg.SessionTTL, passwordHash)

	hub := ws.NewHub(logger)
	go hub.Run(ctx)
	dashboard := ws.NewDashboard(hub)

	sync := admin.New(admin.Config{
		Backend:  api,
		Dialogs:  dashboard,
		Notifier: dashboard,
		Interval: cfg.PollInterval,
		Logger:   logger,
		Metrics:  m,
	})
	if err := sync.Start(ctx); err != nil {
		logger.Fatal("Failed to start dashboard sync", zap.Error(err))
	}
	defer sync.Stop()

	r := router.New(router.Deps{
		Config:   cfg,
		Logger:   logger,
		Gatherer: reg,
		Metrics:  m,
		Sessions: sessions,
		Carts:    carts,
		Catalog:  api,
		Checkouts: func(sid string, c *cart.Store) handler.Checkouter {
			return pool.For(sid, c)
		},
		CartGuard: pool,
		Attempts:  bridge,
		Dashboard: sync,
		Hub:       hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port), zap.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-srvErr:
		logger.Error("Server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
	logger.Info("Server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// sweepIdleCarts drops in-memory carts and orchestrators of sessions idle
// for longer than idle. Carts with a payment in flight are kept.
func sweepIdleCarts(ctx context.Context, carts *cart.Sessions, pool *checkout.Pool, idle time.Duration, logger *zap.Logger) {
	if idle <= 0 {
		return
	}
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := carts.Evict(idle, pool.Processing)
			for _, sid := range evicted {
				pool.Forget(sid)
			}
			if len(evicted) > 0 {
				logger.Info("Evicted idle carts", zap.Int("count", len(evicted)), zap.Int("live", carts.Len()))
			}
		}
	}
}

// openStorage picks the cart backend named by CART_STORE.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, func(), error) {
	switch cfg.CartStore {
	case "memory":
		return storage.NewMemoryStorage(), func() {}, nil
	case "redis":
		rdb, err := redisstore.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Cart storage on redis", zap.String("addr", cfg.RedisAddr))
		return redisstore.New(rdb, "storefront:", cartTTL), func() { rdb.Close() }, nil
	case "postgres":
		db, err := pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Cart storage on postgres")
		return pgstore.New(db), db.Close, nil
	default:
		fs, err := storage.NewFileStorage(cfg.CartDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Cart storage on disk", zap.String("dir", cfg.CartDir))
		return fs, func() {}, nil
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/bookcourier/bookcourier/pkg/api"
	"github.com/bookcourier/bookcourier/pkg/auth"
	"github.com/bookcourier/bookcourier/pkg/config"
	"github.com/bookcourier/bookcourier/pkg/middleware"
	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/payments"
	"github.com/bookcourier/bookcourier/pkg/rbac"
	"github.com/bookcourier/bookcourier/pkg/storage"
	"github.com/bookcourier/bookcourier/pkg/storage/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ParseLevel("info"), os.Stderr).
			Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.WithError(err).Error("server exited")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	logger.Info("database ready")

	var store storage.Store = postgres.New(db, metrics)

	var roles rbac.Resolver = rbac.NewStoreResolver(store)
	var invalidateRole func(email string)

	if cfg.Storage.CacheEnabled {
		redisClient, err := postgres.ConnectRedis(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		store = postgres.NewCachedStore(store, redisClient, cfg.Storage.BookCacheTTL, logger)

		cached, err := rbac.NewCachedResolver(roles, redisClient, cfg.Auth.RoleCacheSize, cfg.Storage.RoleCacheTTL, logger)
		if err != nil {
			return err
		}
		roles = cached
		invalidateRole = func(email string) { cached.Invalidate(context.Background(), email) }
		logger.Info("caching enabled")
	}

	signer := auth.NewSigner(cfg.Auth.JWTSecret)
	gate := rbac.NewGate(signer, roles, logger, metrics)

	var intents api.IntentCreator
	if cfg.Stripe.SecretKey != "" {
		intents = payments.NewStripeClient(cfg.Stripe.SecretKey)
	} else {
		logger.Warn("stripe key not configured, payment intents disabled")
		intents = payments.DisabledIntents{}
	}

	server := api.NewServer(api.ServerConfig{
		Store:          store,
		Signer:         signer,
		Gate:           gate,
		Roles:          roles,
		Payments:       payments.NewService(store, logger, metrics),
		Intents:        intents,
		Logger:         logger,
		Metrics:        metrics,
		InvalidateRole: invalidateRole,
	})

	cors := middleware.NewCORSMiddleware(cfg.AllowedOrigins)
	logging := middleware.NewLoggingMiddleware(logger, metrics)
	recovery := middleware.NewRecoveryMiddleware(logger)
	handler := cors.Handler(logging.Handler(recovery.Handler(server)))

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthMux := http.NewServeMux()
	healthMux.Handle("/healthz", observability.HealthHandler(map[string]observability.HealthChecker{
		"postgres": store,
	}))
	healthMux.Handle("/metrics", metrics.Handler())
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("api server listening", "addr", apiServer.Addr)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		logger.Info("health server listening", "addr", healthServer.Addr)
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		healthServer.Shutdown(shutdownCtx)
		return apiServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/bookcourier/bookcourier/pkg/config"
	"github.com/bookcourier/bookcourier/pkg/observability"
	"github.com/bookcourier/bookcourier/pkg/payments"
	"github.com/bookcourier/bookcourier/pkg/storage/postgres"
)

var (
	schedule = flag.String("schedule", "*/15 * * * *", "Cron schedule for reconciliation sweeps (default: every 15 minutes)")
	runOnce  = flag.Bool("run-once", false, "Run one sweep and exit")
)

func main() {
	flag.Parse()

	storageCfg, err := config.LoadStorageConfig()
	if err != nil {
		observability.NewLogger(observability.ParseLevel("info"), os.Stderr).
			Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.ParseLevel(os.Getenv("BOOKCOURIER_LOG_LEVEL")), os.Stdout)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, storageCfg)
	if err != nil {
		logger.WithError(err).Error("database connection failed")
		os.Exit(1)
	}
	defer db.Close()

	store := postgres.New(db, metrics)
	reconciler := payments.NewReconciler(store, logger, metrics)

	if *runOnce {
		count, err := reconciler.Run(ctx)
		if err != nil {
			logger.WithError(err).Error("reconciliation failed")
			os.Exit(1)
		}
		logger.Info("reconciliation complete", "drifting", count)
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, func() {
		if _, err := reconciler.Run(context.Background()); err != nil {
			logger.WithError(err).Error("reconciliation sweep failed")
		}
	}); err != nil {
		logger.WithError(err).Error("invalid schedule")
		os.Exit(1)
	}

	c.Start()
	logger.Info("payment reconciler started", "schedule", *schedule)

	<-ctx.Done()
	logger.Info("shutting down")

	stopCtx := c.Stop()
	<-stopCtx.Done()
}

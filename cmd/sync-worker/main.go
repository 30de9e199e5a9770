package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jcalloway/tillpoint-backend/internal/catalog"
	"github.com/jcalloway/tillpoint-backend/internal/kitchen"
	"github.com/jcalloway/tillpoint-backend/internal/members"
	"github.com/jcalloway/tillpoint-backend/internal/settlement"
	"github.com/jcalloway/tillpoint-backend/internal/syncer"
	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/metrics"
	"github.com/jcalloway/tillpoint-backend/pkg/migrate"
	"github.com/jcalloway/tillpoint-backend/pkg/redis"
)

// sync-worker runs the snapshot push loop without the register UI. It is
// meant for terminals that only feed the reporting hub, for example a
// kitchen display box.
func main() {
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "sync-worker"

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	syncMetrics := metrics.NewSyncJobMetrics(prometheus.DefaultRegisterer)

	syncService, err := syncer.NewService(
		cfg.App.TerminalID,
		cfg.Sync,
		redisClient,
		catalog.NewRepository(dbClient.DB()),
		members.NewRepository(dbClient.DB()),
		kitchen.NewRepository(dbClient.DB()),
		settlement.NewRepository(dbClient.DB()),
		dbClient,
		syncMetrics,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"terminal": cfg.App.TerminalID,
	})
	logg.Info(ctx, "starting sync worker")

	if err := syncService.Pull(ctx); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "startup snapshot pull failed")
	}

	scheduler := syncer.NewScheduler(syncService, cfg.Sync, logg)
	scheduler.Start(ctx)

	<-ctx.Done()
	scheduler.Stop()

	logg.Info(ctx, "sync worker shutting down gracefully")
}

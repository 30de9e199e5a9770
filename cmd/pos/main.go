package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jcalloway/tillpoint-backend/api/routes"
	"github.com/jcalloway/tillpoint-backend/internal/catalog"
	"github.com/jcalloway/tillpoint-backend/internal/kitchen"
	"github.com/jcalloway/tillpoint-backend/internal/members"
	"github.com/jcalloway/tillpoint-backend/internal/sessions"
	"github.com/jcalloway/tillpoint-backend/internal/settlement"
	"github.com/jcalloway/tillpoint-backend/internal/syncer"
	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/metrics"
	"github.com/jcalloway/tillpoint-backend/pkg/migrate"
	"github.com/jcalloway/tillpoint-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "pos"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "pos",
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

	// Redis is best-effort: the terminal runs standalone when the sync
	// backbone is unreachable.
	var redisClient *redis.Client
	if client, err := redis.New(context.Background(), cfg.Redis, logg); err != nil {
		logg.Warn(context.Background(), "redis unavailable, snapshot sync disabled")
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
	syncMetrics := metrics.NewSyncJobMetrics(prometheus.DefaultRegisterer)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	memberRepo := members.NewRepository(dbClient.DB())
	kitchenRepo := kitchen.NewRepository(dbClient.DB())
	settlementRepo := settlement.NewRepository(dbClient.DB())

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	memberService, err := members.NewService(memberRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create members service", err)
		os.Exit(1)
	}

	kitchenService, err := kitchen.NewService(kitchenRepo, catalogService, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create kitchen service", err)
		os.Exit(1)
	}

	manager, err := sessions.NewManager(catalogService, memberService, cfg.Loyalty, sessions.NewSnapshotStore(dbClient.DB()), orderMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}
	if err := manager.Restore(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to restore held sessions", err)
		os.Exit(1)
	}

	var syncService syncer.Service
	var scheduler *syncer.Scheduler
	if redisClient != nil {
		syncService, err = syncer.NewService(
			cfg.App.TerminalID,
			cfg.Sync,
			redisClient,
			catalogRepo,
			memberRepo,
			kitchenRepo,
			settlementRepo,
			dbClient,
			syncMetrics,
			logg,
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create sync service", err)
			os.Exit(1)
		}
		scheduler = syncer.NewScheduler(syncService, cfg.Sync, logg)
	}

	var notifier settlement.Notifier
	if scheduler != nil {
		notifier = scheduler
	}

	settlementService, err := settlement.NewService(
		manager,
		settlementRepo,
		catalogRepo,
		memberRepo,
		kitchenRepo,
		dbClient,
		cfg.Loyalty,
		orderMetrics,
		notifier,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scheduler != nil {
		// Hydrate reference data from the hub before serving, then keep
		// pushing on the scheduler's cadence.
		if err := syncService.Pull(ctx); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "startup snapshot pull failed")
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"terminal": cfg.App.TerminalID,
	})
	logg.Info(ctx, "starting pos terminal")

	var redisPinger redis.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisPinger,
			prometheus.DefaultGatherer,
			manager,
			catalogService,
			memberService,
			kitchenService,
			settlementService,
			syncService,
			orderMetrics,
		),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "pos terminal stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "pos terminal shutting down gracefully")
}

package controllers

import (
	"net/http"

	"github.com/jcalloway/tillpoint-backend/api/responses"
	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tillpoint-Terminal", cfg.App.TerminalID)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness per dependency. The terminal keeps serving
// when redis is down because sync is best-effort, so a redis failure is
// reported as degraded rather than failing the check.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-Tillpoint-Terminal", cfg.App.TerminalID)

		checks := map[string]string{}

		if dbP == nil {
			checks["db"] = "not configured"
		} else if err := dbP.Ping(ctx); err != nil {
			if logg != nil {
				logg.Error(ctx, "health.db_ping_failed", err)
			}
			checks["db"] = "unavailable"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"checks": checks,
			})
			return
		} else {
			checks["db"] = "ok"
		}

		status := "ready"
		if redisP == nil {
			checks["redis"] = "not configured"
		} else if err := redisP.Ping(ctx); err != nil {
			if logg != nil {
				logg.Error(ctx, "health.redis_ping_failed", err)
			}
			checks["redis"] = "unavailable"
			status = "degraded"
		} else {
			checks["redis"] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}

package controllers

import (
	"net/http"

	"github.com/jcalloway/tillpoint-backend/api/responses"
	syncersvc "github.com/jcalloway/tillpoint-backend/internal/syncer"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
)

// SyncPush publishes the terminal's full snapshot immediately, outside the
// scheduler's cadence.
func SyncPush(svc syncersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Push(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "pushed"})
	}
}

// SyncPull overwrites local reference data with the latest remote snapshot.
func SyncPull(svc syncersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Pull(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "pulled"})
	}
}

package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcalloway/tillpoint-backend/api/responses"
	"github.com/jcalloway/tillpoint-backend/api/validators"
	kitchensvc "github.com/jcalloway/tillpoint-backend/internal/kitchen"
	"github.com/jcalloway/tillpoint-backend/internal/sessions"
	"github.com/jcalloway/tillpoint-backend/pkg/enums"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
)

func KitchenList(svc kitchensvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orders, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

func KitchenDetail(svc kitchensvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type advanceStationRequest struct {
	Status string `json:"status" validate:"required"`
}

// KitchenAdvanceStation moves one station of a ticket through the
// pending, preparing, ready progression.
func KitchenAdvanceStation(svc kitchensvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		station, err := enums.ParseStation(chi.URLParam(r, "station"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid station"))
			return
		}

		var payload advanceStationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseStationStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid station status"))
			return
		}

		order, err := svc.AdvanceStation(r.Context(), id, station, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// KitchenArchive drops a ticket regardless of station readiness. Staff use
// it to clear abandoned orders.
func KitchenArchive(svc kitchensvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Archive(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "archived"})
	}
}

// KitchenImport pulls a kiosk ticket into the register as a held session so
// the cashier can take payment for it.
func KitchenImport(svc kitchensvc.Service, mgr *sessions.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := mgr.ImportKioskOrder(r.Context(), order)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

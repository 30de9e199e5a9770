package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jcalloway/tillpoint-backend/api/responses"
	"github.com/jcalloway/tillpoint-backend/api/validators"
	kitchensvc "github.com/jcalloway/tillpoint-backend/internal/kitchen"
	"github.com/jcalloway/tillpoint-backend/pkg/config"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/metrics"
)

type kioskOrderItemRequest struct {
	ProductID      uuid.UUID   `json:"product_id" validate:"required"`
	Quantity       int         `json:"quantity" validate:"required,min=1"`
	AddonOptionIDs []uuid.UUID `json:"addon_option_ids,omitempty"`
	Note           string      `json:"note,omitempty" validate:"max=500"`
}

type kioskOrderRequest struct {
	Items        []kioskOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	CustomerName string                  `json:"customer_name,omitempty" validate:"max=120"`
	TableNumber  *int                    `json:"table_number,omitempty" validate:"omitempty,min=1"`
}

// KioskSubmitOrder accepts a self-service order and routes it onto the
// kitchen queue with a fresh ticket number.
func KioskSubmitOrder(cfg *config.Config, svc kitchensvc.Service, orderMetrics *metrics.OrderMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Kiosk.Enabled {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeAdmissionDenied, "kiosk ordering is disabled"))
			return
		}

		var payload kioskOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]kitchensvc.SubmitItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, kitchensvc.SubmitItem{
				ProductID:      item.ProductID,
				Quantity:       item.Quantity,
				AddonOptionIDs: item.AddonOptionIDs,
				Note:           validators.SanitizeString(item.Note, 500),
			})
		}

		order, err := svc.Submit(r.Context(), kitchensvc.SubmitInput{
			Items:        items,
			CustomerName: validators.SanitizeString(payload.CustomerName, 120),
			TableNumber:  payload.TableNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderMetrics.IncKioskOrder()
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// KioskOrderStatus lets the kiosk poll a ticket by its printed number.
func KioskOrderStatus(svc kitchensvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := chi.URLParam(r, "ticketNumber")
		ticket, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ticket < 1 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid ticket number"))
			return
		}

		order, err := svc.GetByTicketNumber(r.Context(), ticket)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

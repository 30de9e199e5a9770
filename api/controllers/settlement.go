package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jcalloway/tillpoint-backend/api/responses"
	"github.com/jcalloway/tillpoint-backend/api/validators"
	"github.com/jcalloway/tillpoint-backend/internal/pricing"
	settlementsvc "github.com/jcalloway/tillpoint-backend/internal/settlement"
	"github.com/jcalloway/tillpoint-backend/pkg/logger"
	"github.com/jcalloway/tillpoint-backend/pkg/pagination"
)

type settlePaymentRequest struct {
	MethodID   string          `json:"method_id" validate:"required,max=64"`
	MethodName string          `json:"method_name" validate:"required,max=120"`
	Amount     decimal.Decimal `json:"amount" validate:"required"`
}

type settleRequest struct {
	Payments []settlePaymentRequest `json:"payments" validate:"required,min=1,dive"`
	Cashier  string                 `json:"cashier,omitempty" validate:"max=120"`
}

// Settle finalizes the active session. Everything that touches durable
// state happens atomically, the session resets only after commit.
func Settle(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload settleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payments := make([]pricing.Payment, 0, len(payload.Payments))
		for _, p := range payload.Payments {
			payments = append(payments, pricing.Payment{
				MethodID:   p.MethodID,
				MethodName: p.MethodName,
				Amount:     p.Amount,
			})
		}

		result, err := svc.Settle(r.Context(), settlementsvc.SettleInput{
			Payments: payments,
			Cashier:  validators.SanitizeString(payload.Cashier, 120),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type transactionListResponse struct {
	Transactions any    `json:"transactions"`
	NextCursor   string `json:"next_cursor,omitempty"`
}

func TransactionList(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, next, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transactionListResponse{
			Transactions: list,
			NextCursor:   next,
		})
	}
}

func TransactionDetail(svc settlementsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tx, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tx)
	}
}

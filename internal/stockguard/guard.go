package stockguard

import (
	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	pkgerrors "github.com/jcalloway/tillpoint-backend/pkg/errors"
)

// Denial reasons surfaced in admission-denied error details and metrics.
const (
	ReasonStock       = "stock"
	ReasonUnavailable = "unavailable"
	ReasonPoints      = "points"
	ReasonFrozen      = "frozen"
)

// CanIncrease decides whether a quantity-increasing cart mutation is
// admitted. committed is the quantity of the product already held across the
// active session's lines, regardless of addon configuration: stock is pooled
// per product, not per variant. initialAdd distinguishes a first add (which
// an unavailable product blocks) from bumping an existing line.
func CanIncrease(product *models.Product, committed, delta int, initialAdd bool) error {
	if product == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if initialAdd && !product.IsAvailable {
		return pkgerrors.New(pkgerrors.CodeAdmissionDenied, "product is unavailable").
			WithDetails(map[string]any{"reason": ReasonUnavailable, "product_id": product.ID})
	}
	if !product.TrackInventory {
		return nil
	}
	if committed+delta > product.Stock {
		remaining := product.Stock - committed
		if remaining < 0 {
			remaining = 0
		}
		return pkgerrors.New(pkgerrors.CodeAdmissionDenied, "insufficient stock").
			WithDetails(map[string]any{
				"reason":     ReasonStock,
				"product_id": product.ID,
				"remaining":  remaining,
			})
	}
	return nil
}

// CanRedeem decides whether a redemption-increasing mutation (manual points
// or a reward line) stays within the member's balance. currentTotal is the
// cart's present total redemption; addCost is the increment being requested.
func CanRedeem(member *models.Member, loyaltyEnabled bool, currentTotal, addCost int) error {
	if !loyaltyEnabled {
		return pkgerrors.New(pkgerrors.CodeAdmissionDenied, "loyalty program is disabled").
			WithDetails(map[string]any{"reason": ReasonPoints})
	}
	if member == nil {
		return pkgerrors.New(pkgerrors.CodeAdmissionDenied, "no member assigned").
			WithDetails(map[string]any{"reason": ReasonPoints})
	}
	if member.Frozen {
		return pkgerrors.New(pkgerrors.CodeAdmissionDenied, "member account is frozen").
			WithDetails(map[string]any{"reason": ReasonFrozen, "member_id": member.ID})
	}
	if currentTotal+addCost > member.Points {
		return pkgerrors.New(pkgerrors.CodeAdmissionDenied, "insufficient points").
			WithDetails(map[string]any{
				"reason":    ReasonPoints,
				"member_id": member.ID,
				"balance":   member.Points,
				"requested": currentTotal + addCost,
			})
	}
	return nil
}

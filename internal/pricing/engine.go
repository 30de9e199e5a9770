package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	"github.com/jcalloway/tillpoint-backend/pkg/enums"
)

// SettleEpsilon absorbs floating-point drift in payment amounts entered at
// the till. An order is payable once the outstanding balance drops to or
// below this value.
var SettleEpsilon = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// Line is the pricing view of one cart line. Reward lines carry a zero unit
// price and a points cost instead.
type Line struct {
	UnitPrice  decimal.Decimal
	AddonTotal decimal.Decimal
	Quantity   int
	IsReward   bool
	PointsCost int
}

// Input bundles everything Quote needs. The engine is a pure function over
// this value; it never touches shared state.
type Input struct {
	Lines          []Line
	PointsToRedeem int
	Member         *models.Member
	Coupon         *models.Coupon
	TaxRates       []models.TaxRate
	Loyalty        config.LoyaltyConfig
}

// Breakdown is the priced view of a cart.
type Breakdown struct {
	Subtotal            decimal.Decimal `json:"subtotal"`
	CouponDiscount      decimal.Decimal `json:"coupon_discount"`
	PointsDiscount      decimal.Decimal `json:"points_discount"`
	ItemsPointsCost     int             `json:"items_points_cost"`
	TotalPointsRedeemed int             `json:"total_points_redeemed"`
	AfterDiscount       decimal.Decimal `json:"after_discount"`
	TaxRatePercent      decimal.Decimal `json:"tax_rate_percent"`
	Tax                 decimal.Decimal `json:"tax"`
	Total               decimal.Decimal `json:"total"`
}

// LineTotal returns unit price plus selected addon deltas, times quantity.
func LineTotal(line Line) decimal.Decimal {
	unit := line.UnitPrice.Add(line.AddonTotal)
	return unit.Mul(decimal.NewFromInt(int64(line.Quantity)))
}

// Quote prices a cart. Coupon and points discounts are combined before the
// aggregate is floored at zero, so a large coupon can absorb part of a
// points discount without producing a negative total.
func Quote(in Input) Breakdown {
	var out Breakdown

	subtotal := decimal.Zero
	itemsPointsCost := 0
	for _, line := range in.Lines {
		subtotal = subtotal.Add(LineTotal(line))
		if line.IsReward {
			itemsPointsCost += line.PointsCost * line.Quantity
		}
	}
	out.Subtotal = subtotal
	out.ItemsPointsCost = itemsPointsCost

	if in.Coupon != nil && in.Coupon.Enabled {
		switch in.Coupon.Type {
		case enums.CouponTypePercent:
			out.CouponDiscount = subtotal.Mul(in.Coupon.Value).Div(oneHundred)
		case enums.CouponTypeFixed:
			out.CouponDiscount = in.Coupon.Value
		}
	}

	if in.Loyalty.Enabled && in.Member != nil && in.Loyalty.RedeemRate > 0 && in.PointsToRedeem > 0 {
		redeemRate := decimal.NewFromFloat(in.Loyalty.RedeemRate)
		out.PointsDiscount = decimal.NewFromInt(int64(in.PointsToRedeem)).Div(redeemRate)
		out.TotalPointsRedeemed = in.PointsToRedeem
	}
	out.TotalPointsRedeemed += itemsPointsCost

	afterDiscount := subtotal.Sub(out.CouponDiscount).Sub(out.PointsDiscount)
	if afterDiscount.IsNegative() {
		afterDiscount = decimal.Zero
	}
	out.AfterDiscount = afterDiscount

	ratePercent := decimal.Zero
	for _, rate := range in.TaxRates {
		if rate.Enabled {
			ratePercent = ratePercent.Add(rate.RatePercent)
		}
	}
	out.TaxRatePercent = ratePercent
	out.Tax = afterDiscount.Mul(ratePercent).Div(oneHundred)
	out.Total = afterDiscount.Add(out.Tax)

	return out
}

// Payment is one tender applied against a total.
type Payment struct {
	MethodID   string
	MethodName string
	Amount     decimal.Decimal
}

// Reconciliation is the paid/due/change view of a payment set.
type Reconciliation struct {
	Paid   decimal.Decimal `json:"paid"`
	Due    decimal.Decimal `json:"due"`
	Change decimal.Decimal `json:"change"`
}

// Reconcile sums payments against the total. Due and change are floored at
// zero independently.
func Reconcile(total decimal.Decimal, payments []Payment) Reconciliation {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	due := total.Sub(paid)
	if due.IsNegative() {
		due = decimal.Zero
	}
	change := paid.Sub(total)
	if change.IsNegative() {
		change = decimal.Zero
	}
	return Reconciliation{Paid: paid, Due: due, Change: change}
}

// CanSettle reports whether the outstanding balance is within the settle
// epsilon.
func CanSettle(due decimal.Decimal) bool {
	return due.LessThanOrEqual(SettleEpsilon)
}

// PointsEarned computes the loyalty accrual for a settled total, floored.
func PointsEarned(total decimal.Decimal, loyalty config.LoyaltyConfig, member *models.Member) int {
	if !loyalty.Enabled || member == nil || loyalty.EarnRate <= 0 {
		return 0
	}
	earned := total.Mul(decimal.NewFromFloat(loyalty.EarnRate))
	return int(earned.Floor().IntPart())
}

package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jcalloway/tillpoint-backend/pkg/config"
	"github.com/jcalloway/tillpoint-backend/pkg/db/models"
	"github.com/jcalloway/tillpoint-backend/pkg/enums"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func loyaltyOn(redeemRate float64) config.LoyaltyConfig {
	return config.LoyaltyConfig{Enabled: true, EarnRate: 1, RedeemRate: redeemRate}
}

func TestQuoteSubtotalWithAddons(t *testing.T) {
	// 2 units at 5.00 with a +1.00 addon each.
	out := Quote(Input{
		Lines: []Line{{UnitPrice: dec("5.00"), AddonTotal: dec("1.00"), Quantity: 2}},
	})
	if !out.Subtotal.Equal(dec("12.00")) {
		t.Fatalf("expected subtotal 12.00, got %s", out.Subtotal)
	}
}

func TestQuoteCouponAndTax(t *testing.T) {
	out := Quote(Input{
		Lines:  []Line{{UnitPrice: dec("5.00"), AddonTotal: dec("1.00"), Quantity: 2}},
		Coupon: &models.Coupon{Code: "SAVE10", Type: enums.CouponTypePercent, Value: dec("10"), Enabled: true},
		TaxRates: []models.TaxRate{
			{Name: "sales", RatePercent: dec("8"), Enabled: true},
			{Name: "disabled", RatePercent: dec("50"), Enabled: false},
		},
	})

	if !out.CouponDiscount.Equal(dec("1.20")) {
		t.Fatalf("expected discount 1.20, got %s", out.CouponDiscount)
	}
	if !out.AfterDiscount.Equal(dec("10.80")) {
		t.Fatalf("expected after-discount 10.80, got %s", out.AfterDiscount)
	}
	if !out.Tax.Equal(dec("0.864")) {
		t.Fatalf("expected tax 0.864, got %s", out.Tax)
	}
	if !out.Total.Equal(dec("11.664")) {
		t.Fatalf("expected total 11.664, got %s", out.Total)
	}
}

func TestQuoteDisabledCouponIgnored(t *testing.T) {
	out := Quote(Input{
		Lines:  []Line{{UnitPrice: dec("10.00"), Quantity: 1}},
		Coupon: &models.Coupon{Code: "OFF", Type: enums.CouponTypeFixed, Value: dec("5"), Enabled: false},
	})
	if !out.CouponDiscount.IsZero() {
		t.Fatalf("disabled coupon must not discount, got %s", out.CouponDiscount)
	}
}

func TestQuotePointsRedemption(t *testing.T) {
	member := &models.Member{Points: 50}
	out := Quote(Input{
		Lines:          []Line{{UnitPrice: dec("10.00"), Quantity: 1}},
		PointsToRedeem: 50,
		Member:         member,
		Loyalty:        loyaltyOn(100),
	})
	if !out.PointsDiscount.Equal(dec("0.5")) {
		t.Fatalf("expected points discount 0.50, got %s", out.PointsDiscount)
	}
	if out.TotalPointsRedeemed != 50 {
		t.Fatalf("expected 50 points redeemed, got %d", out.TotalPointsRedeemed)
	}
}

func TestQuoteRewardItemsCountPoints(t *testing.T) {
	out := Quote(Input{
		Lines: []Line{
			{UnitPrice: dec("4.00"), Quantity: 1},
			{UnitPrice: decimal.Zero, Quantity: 2, IsReward: true, PointsCost: 120},
		},
		Member:  &models.Member{Points: 500},
		Loyalty: loyaltyOn(100),
	})
	if out.ItemsPointsCost != 240 {
		t.Fatalf("expected reward cost 240, got %d", out.ItemsPointsCost)
	}
	if out.TotalPointsRedeemed != 240 {
		t.Fatalf("expected total redeemed 240, got %d", out.TotalPointsRedeemed)
	}
	if !out.Subtotal.Equal(dec("4.00")) {
		t.Fatalf("reward lines must not add to subtotal, got %s", out.Subtotal)
	}
}

func TestQuoteCombinedDiscountFlooredInAggregate(t *testing.T) {
	// Coupon alone exceeds the subtotal; points discount rides along. The
	// combined amount floors at zero rather than each source independently.
	out := Quote(Input{
		Lines:          []Line{{UnitPrice: dec("5.00"), Quantity: 1}},
		Coupon:         &models.Coupon{Code: "BIG", Type: enums.CouponTypeFixed, Value: dec("10"), Enabled: true},
		PointsToRedeem: 100,
		Member:         &models.Member{Points: 100},
		Loyalty:        loyaltyOn(100),
	})
	if !out.AfterDiscount.IsZero() {
		t.Fatalf("expected zero after-discount, got %s", out.AfterDiscount)
	}
	if !out.Total.IsZero() {
		t.Fatalf("expected zero total, got %s", out.Total)
	}
}

func TestReconcile(t *testing.T) {
	total := dec("11.664")

	t.Run("due above epsilon blocks settlement", func(t *testing.T) {
		rec := Reconcile(total, []Payment{{Amount: dec("11.64")}})
		if CanSettle(rec.Due) {
			t.Fatalf("due %s should block settlement", rec.Due)
		}
	})

	t.Run("exact payment settles", func(t *testing.T) {
		rec := Reconcile(total, []Payment{{Amount: dec("11.664")}})
		if !rec.Due.IsZero() {
			t.Fatalf("expected zero due, got %s", rec.Due)
		}
		if !CanSettle(rec.Due) {
			t.Fatal("exact payment must settle")
		}
	})

	t.Run("overpayment yields change", func(t *testing.T) {
		rec := Reconcile(total, []Payment{{Amount: dec("11.664")}, {Amount: dec("5.00")}})
		if !rec.Change.Equal(dec("5.00")) {
			t.Fatalf("expected change 5.00, got %s", rec.Change)
		}
		if !rec.Due.IsZero() {
			t.Fatalf("expected zero due, got %s", rec.Due)
		}
	})

	t.Run("split payment accumulates", func(t *testing.T) {
		rec := Reconcile(total, []Payment{{Amount: dec("6.00")}, {Amount: dec("5.664")}})
		if !rec.Paid.Equal(total) {
			t.Fatalf("expected paid %s, got %s", total, rec.Paid)
		}
		if !CanSettle(rec.Due) {
			t.Fatal("fully split-paid cart must settle")
		}
	})
}

func TestPointsEarned(t *testing.T) {
	member := &models.Member{}
	if got := PointsEarned(dec("11.664"), loyaltyOn(100), member); got != 11 {
		t.Fatalf("expected 11 points, got %d", got)
	}
	if got := PointsEarned(dec("11.664"), config.LoyaltyConfig{}, member); got != 0 {
		t.Fatalf("loyalty disabled must earn 0, got %d", got)
	}
	if got := PointsEarned(dec("11.664"), loyaltyOn(100), nil); got != 0 {
		t.Fatalf("no member must earn 0, got %d", got)
	}
}

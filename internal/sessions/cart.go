package sessions

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jcalloway/tillpoint-backend/internal/pricing"
	"github.com/jcalloway/tillpoint-backend/pkg/enums"
)

// SelectedAddon snapshots one chosen option. The snapshot is immutable once
// attached to a line; later catalog edits do not reprice lines already held.
type SelectedAddon struct {
	OptionID   uuid.UUID       `json:"option_id"`
	GroupID    uuid.UUID       `json:"group_id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// CartLine is one priced line of a held cart.
type CartLine struct {
	ID             uuid.UUID             `json:"id"`
	ProductID      uuid.UUID             `json:"product_id"`
	ProductName    string                `json:"product_name"`
	Category       enums.ProductCategory `json:"category"`
	UnitPrice      decimal.Decimal       `json:"unit_price"`
	TrackInventory bool                  `json:"track_inventory"`
	Quantity       int                   `json:"quantity"`
	Addons         []SelectedAddon       `json:"addons,omitempty"`
	Note           string                `json:"note,omitempty"`
	IsReward       bool                  `json:"is_reward"`
	PointsCost     int                   `json:"points_cost,omitempty"`
}

// MergeKey identifies a line for re-add merging. Two adds of the same product
// with the same addon set and note collapse into one line.
func (l CartLine) MergeKey() string {
	ids := make([]string, 0, len(l.Addons))
	for _, a := range l.Addons {
		ids = append(ids, a.OptionID.String())
	}
	sort.Strings(ids)
	parts := []string{l.ProductID.String(), strings.Join(ids, ","), l.Note}
	if l.IsReward {
		parts = append(parts, "reward")
	}
	return strings.Join(parts, "|")
}

// AddonTotal sums the price deltas of the selected addons.
func (l CartLine) AddonTotal() decimal.Decimal {
	total := decimal.Zero
	for _, a := range l.Addons {
		total = total.Add(a.PriceDelta)
	}
	return total
}

// HeldCart is one open order session.
type HeldCart struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	TicketNumber   *int64     `json:"ticket_number,omitempty"`
	Lines          []CartLine `json:"lines"`
	MemberID       *uuid.UUID `json:"member_id,omitempty"`
	PointsToRedeem int        `json:"points_to_redeem"`
	CouponCode     *string    `json:"coupon_code,omitempty"`
	Note           string     `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// CommittedQuantity sums line quantities for a product across all addon
// configurations. Stock is pooled per product, not per variant.
func (c *HeldCart) CommittedQuantity(productID uuid.UUID) int {
	total := 0
	for _, l := range c.Lines {
		if l.ProductID == productID {
			total += l.Quantity
		}
	}
	return total
}

// RewardPointsCost sums points_cost × quantity over reward lines.
func (c *HeldCart) RewardPointsCost() int {
	total := 0
	for _, l := range c.Lines {
		if l.IsReward {
			total += l.PointsCost * l.Quantity
		}
	}
	return total
}

// TotalPointsRedeemed is the manual redemption plus reward-line cost.
func (c *HeldCart) TotalPointsRedeemed() int {
	return c.PointsToRedeem + c.RewardPointsCost()
}

// IsEmpty reports whether the cart holds no lines.
func (c *HeldCart) IsEmpty() bool { return len(c.Lines) == 0 }

// PricingLines converts the cart to the pricing engine's input shape.
func (c *HeldCart) PricingLines() []pricing.Line {
	lines := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, pricing.Line{
			UnitPrice:  l.UnitPrice,
			AddonTotal: l.AddonTotal(),
			Quantity:   l.Quantity,
			IsReward:   l.IsReward,
			PointsCost: l.PointsCost,
		})
	}
	return lines
}

// reset clears the cart back to a fresh empty session, keeping its identity.
func (c *HeldCart) reset(name string) {
	c.Name = name
	c.TicketNumber = nil
	c.Lines = nil
	c.MemberID = nil
	c.PointsToRedeem = 0
	c.CouponCode = nil
	c.Note = ""
	c.CreatedAt = time.Now().UTC()
}

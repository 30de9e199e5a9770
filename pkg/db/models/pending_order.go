package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/jcalloway/tillpoint-backend/pkg/db/types"
	"github.com/jcalloway/tillpoint-backend/pkg/enums"
)

// PendingOrder is a kiosk-submitted ticket awaiting preparation or cashier
// import. Removed from the pending set on archive or settlement.
type PendingOrder struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	TicketNumber    int64                    `gorm:"column:ticket_number;not null;uniqueIndex"`
	CustomerName    string                   `gorm:"column:customer_name;not null"`
	TableNumber     *int                     `gorm:"column:table_number"`
	Total           decimal.Decimal          `gorm:"column:total;type:numeric(12,2);not null"`
	Status          enums.OrderStatus        `gorm:"column:status;not null"`
	StationStatuses dbtypes.StationStatusMap `gorm:"column:station_statuses;type:text;not null"`
	Items           TicketItems              `gorm:"column:items;type:text;not null"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
}

func (PendingOrder) TableName() string { return "pending_orders" }

// TicketItem is the JSON snapshot of one ordered line on a kiosk ticket.
type TicketItem struct {
	ProductID uuid.UUID             `json:"product_id"`
	Name      string                `json:"name"`
	Category  enums.ProductCategory `json:"category"`
	UnitPrice decimal.Decimal       `json:"unit_price"`
	Quantity  int                   `json:"quantity"`
	Addons    []TicketAddon         `json:"addons,omitempty"`
	Note      string                `json:"note,omitempty"`
}

// TicketAddon snapshots a chosen addon option.
type TicketAddon struct {
	OptionID   uuid.UUID       `json:"option_id"`
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// TicketItems serializes the line list into a JSON column.
type TicketItems []TicketItem

func (t *TicketItems) Scan(src any) error {
	if src == nil {
		*t = TicketItems{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("TicketItems: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*t = TicketItems{}
		return nil
	}
	out := TicketItems{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("TicketItems: parse: %w", err)
	}
	*t = out
	return nil
}

func (t TicketItems) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("TicketItems: marshal: %w", err)
	}
	return string(raw), nil
}

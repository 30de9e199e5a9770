package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is the immutable record of one settled order. Rows are never
// updated after insert.
type Transaction struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber    int64             `gorm:"column:order_number;not null;uniqueIndex"`
	Subtotal       decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Discount       decimal.Decimal   `gorm:"column:discount;type:numeric(12,2);not null"`
	Tax            decimal.Decimal   `gorm:"column:tax;type:numeric(12,2);not null"`
	Total          decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	MemberID       *uuid.UUID        `gorm:"column:member_id;type:uuid"`
	PointsEarned   int               `gorm:"column:points_earned;not null;default:0"`
	PointsRedeemed int               `gorm:"column:points_redeemed;not null;default:0"`
	Cashier        string            `gorm:"column:cashier;not null"`
	Items          []TransactionItem `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	Payments       []PaymentDetail   `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}

func (Transaction) TableName() string { return "transactions" }

// TransactionItem snapshots one cart line at the moment of settlement.
type TransactionItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name          string          `gorm:"column:name;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	AddonSummary  string          `gorm:"column:addon_summary"`
	Note          string          `gorm:"column:note"`
	IsReward      bool            `gorm:"column:is_reward;not null;default:false"`
	PointsCost    int             `gorm:"column:points_cost;not null;default:0"`
	LineTotal     decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}

func (TransactionItem) TableName() string { return "transaction_items" }

// PaymentDetail records one tender applied to a transaction. An order may be
// split across several methods.
type PaymentDetail struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"column:transaction_id;type:uuid;not null;index"`
	MethodID      string          `gorm:"column:method_id;not null"`
	MethodName    string          `gorm:"column:method_name;not null"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
}

func (PaymentDetail) TableName() string { return "payment_details" }

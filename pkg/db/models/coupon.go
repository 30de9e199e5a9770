package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcalloway/tillpoint-backend/pkg/enums"
)

// Coupon is a read-only pricing input keyed by its code.
type Coupon struct {
	Code      string           `gorm:"column:code;primaryKey"`
	Type      enums.CouponType `gorm:"column:type;not null"`
	Value     decimal.Decimal  `gorm:"column:value;type:numeric(12,2);not null"`
	Enabled   bool             `gorm:"column:enabled;not null;default:true"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (Coupon) TableName() string { return "coupons" }

// TaxRate is one additive tax configuration line.
type TaxRate struct {
	ID          int             `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string          `gorm:"column:name;not null"`
	RatePercent decimal.Decimal `gorm:"column:rate_percent;type:numeric(6,3);not null"`
	Enabled     bool            `gorm:"column:enabled;not null;default:true"`
}

func (TaxRate) TableName() string { return "tax_rates" }

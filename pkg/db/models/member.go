package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is a loyalty account. The order engine reads the balance and writes
// it back only from settlement.
type Member struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone;uniqueIndex"`
	Points    int       `gorm:"column:points;not null;default:0"`
	Frozen    bool      `gorm:"column:frozen;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Member) TableName() string { return "members" }

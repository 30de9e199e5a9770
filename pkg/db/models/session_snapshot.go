package models

import "time"

// SessionSnapshot persists the held-cart list as a single JSON document so a
// terminal restart reproduces the exact same open orders. Corrupt payloads
// are discarded in favor of one fresh empty session.
type SessionSnapshot struct {
	ID        int       `gorm:"column:id;primaryKey"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SessionSnapshot) TableName() string { return "session_snapshots" }

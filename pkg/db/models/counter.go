package models

// Counter backs the monotonically increasing order and ticket numbers. The
// value is read and incremented inside the settlement transaction.
type Counter struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value int64  `gorm:"column:value;not null;default:0"`
}

func (Counter) TableName() string { return "counters" }

const (
	CounterOrderNumber  = "order_number"
	CounterTicketNumber = "ticket_number"
)

package models

import "time"

// OrderSequence is the single-row counter behind order number allocation.
type OrderSequence struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	NextValue int64     `gorm:"column:next_value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (OrderSequence) TableName() string { return "order_sequences" }

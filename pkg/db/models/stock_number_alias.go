package models

import "time"

// StockNumberAlias tracks every distributor stock number a catalog product has
// carried. At most one alias per product is current; the rest are historical.
type StockNumberAlias struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ProductID   int64     `gorm:"column:product_id;not null;index"`
	StockNumber string    `gorm:"column:stock_number;not null;index"`
	Current     bool      `gorm:"column:current;not null;default:false"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (StockNumberAlias) TableName() string { return "stock_number_aliases" }

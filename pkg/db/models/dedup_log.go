package models

import "time"

// DedupLog records a duplicate catalog row being demoted in favor of a
// surviving canonical product.
type DedupLog struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UPC        string    `gorm:"column:upc;not null;index"`
	SurvivorID int64     `gorm:"column:survivor_id;not null"`
	DemotedID  int64     `gorm:"column:demoted_id;not null"`
	Reason     string    `gorm:"column:reason;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (DedupLog) TableName() string { return "dedup_logs" }

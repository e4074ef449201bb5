package models

import "time"

// ComplianceSetting is the single-row policy record overriding the env
// defaults for hold evaluation.
type ComplianceSetting struct {
	ID                int64     `gorm:"column:id;primaryKey"`
	WindowDays        int       `gorm:"column:window_days;not null"`
	RegulatedLimit    int       `gorm:"column:regulated_limit;not null"`
	EnableCountHold   bool      `gorm:"column:enable_count_hold;not null;default:true"`
	EnableDealerCheck bool      `gorm:"column:enable_dealer_check;not null;default:true"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (ComplianceSetting) TableName() string { return "compliance_settings" }

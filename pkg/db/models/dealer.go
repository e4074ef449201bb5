package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rockcreekarms/ordersync-backend/pkg/types"
)

// Dealer is a licensed transfer dealer on file. Regulated groups can only
// ship to a dealer whose license is present and unexpired.
type Dealer struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	License   string         `gorm:"column:license;not null;uniqueIndex"`
	Name      string         `gorm:"column:name;not null"`
	Address   *types.Address `gorm:"column:address;type:jsonb;serializer:json"`
	ExpiresAt *time.Time     `gorm:"column:expires_at"`
	IsActive  bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Dealer) TableName() string { return "dealers" }

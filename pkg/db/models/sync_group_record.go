package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
	"github.com/rockcreekarms/ordersync-backend/pkg/types"
)

// SyncGroupRecord tracks one split group's trip through the CRM pipeline.
// Each group succeeds or fails on its own; re-syncs only touch groups that
// have not reached synced.
type SyncGroupRecord struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	GroupKey         enums.FulfillmentPath `gorm:"column:group_key;type:text;not null"`
	OrderNumber      string                `gorm:"column:order_number;not null;uniqueIndex"`
	Suffix           string                `gorm:"column:suffix;not null"`
	ConsigneeType    enums.ConsigneeType   `gorm:"column:consignee_type;type:text;not null"`
	ConsigneeAddress *types.Address        `gorm:"column:consignee_address;type:jsonb;serializer:json"`
	DealerLicense    *string               `gorm:"column:dealer_license"`
	Status           enums.SyncStatus      `gorm:"column:status;type:text;not null;default:'pending'"`
	CRMContactID     *string               `gorm:"column:crm_contact_id"`
	CRMDealID        *string               `gorm:"column:crm_deal_id"`
	Attempts         int                   `gorm:"column:attempts;not null;default:0"`
	LastError        *string               `gorm:"column:last_error"`
	SyncedAt         *time.Time            `gorm:"column:synced_at"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (SyncGroupRecord) TableName() string { return "sync_group_records" }

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
	"github.com/rockcreekarms/ordersync-backend/pkg/types"
)

// Order is an ingested storefront order. BaseSequence is allocated once at
// intake and persisted here so retries rebuild the exact same order numbers.
type Order struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SourceOrderID   string            `gorm:"column:source_order_id;not null;uniqueIndex"`
	BuyerEmail      string            `gorm:"column:buyer_email;not null;index"`
	BuyerName       string            `gorm:"column:buyer_name;not null"`
	BuyerTier       enums.BuyerTier   `gorm:"column:buyer_tier;type:text;not null;default:'retail'"`
	ShippingAddress *types.Address    `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	DealerLicense   *string           `gorm:"column:dealer_license"`
	PaymentRef      string            `gorm:"column:payment_ref;not null"`
	Status          enums.OrderStatus `gorm:"column:status;type:text;not null;default:'received'"`
	Holds           pq.StringArray    `gorm:"column:holds;type:text[];not null;default:'{}'"`
	TestMode        bool              `gorm:"column:test_mode;not null;default:false"`
	BaseSequence    int64             `gorm:"column:base_sequence;not null"`
	Total           decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Lines           []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Groups          []SyncGroupRecord `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (Order) TableName() string { return "orders" }

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
)

// OrderLine is a single purchased item. Fulfillment flags are snapshotted at
// intake so later catalog edits never change how a past order was split.
type OrderLine struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID              `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID        *int64                 `gorm:"column:product_id"`
	MPN              string                 `gorm:"column:mpn;not null;default:''"`
	UPC              string                 `gorm:"column:upc;not null"`
	StockNumber      string                 `gorm:"column:stock_number;not null"`
	Name             string                 `gorm:"column:name;not null"`
	Quantity         int                    `gorm:"column:quantity;not null"`
	UnitPrice        decimal.Decimal        `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Regulated        bool                   `gorm:"column:regulated;not null;default:false"`
	DropShipEligible bool                   `gorm:"column:drop_ship_eligible;not null;default:false"`
	InHouseOnly      bool                   `gorm:"column:in_house_only;not null;default:false"`
	GroupKey         *enums.FulfillmentPath `gorm:"column:group_key;type:text"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides the default pluralization.
func (OrderLine) TableName() string { return "order_lines" }

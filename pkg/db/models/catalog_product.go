package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CatalogProduct is one row of the merchant's product catalog. IDs are
// monotonically increasing, so the lowest ID is always the oldest record.
type CatalogProduct struct {
	ID               int64              `gorm:"column:id;primaryKey;autoIncrement"`
	MPN              string             `gorm:"column:mpn;not null;default:'';index"`
	UPC              string             `gorm:"column:upc;not null;index"`
	StockNumber      string             `gorm:"column:stock_number;not null"`
	Name             string             `gorm:"column:name;not null"`
	Description      *string            `gorm:"column:description"`
	Manufacturer     *string            `gorm:"column:manufacturer"`
	Category         *string            `gorm:"column:category"`
	Regulated        bool               `gorm:"column:regulated;not null;default:false"`
	DropShipEligible bool               `gorm:"column:drop_ship_eligible;not null;default:false"`
	InHouseOnly      bool               `gorm:"column:in_house_only;not null;default:false"`
	Price            decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null"`
	IsActive         bool               `gorm:"column:is_active;not null;default:true"`
	CRMRecordID      *string            `gorm:"column:crm_record_id"`
	Aliases          []StockNumberAlias `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides the default pluralization.
func (CatalogProduct) TableName() string { return "catalog_products" }

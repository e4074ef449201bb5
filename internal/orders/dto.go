package orders

import (
	"github.com/shopspring/decimal"

	"github.com/rockcreekarms/ordersync-backend/pkg/types"
)

// SubmitLineInput is one purchased item as the storefront reports it. The
// fulfillment flags are snapshotted onto the stored line at intake.
type SubmitLineInput struct {
	MPN              string          `json:"mpn"`
	UPC              string          `json:"upc"`
	StockNumber      string          `json:"stock_number"`
	Name             string          `json:"name" validate:"required"`
	Quantity         int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Regulated        bool            `json:"regulated"`
	DropShipEligible bool            `json:"drop_ship_eligible"`
	InHouseOnly      bool            `json:"in_house_only"`
}

// SubmitOrderInput is the intake payload for one storefront order.
type SubmitOrderInput struct {
	SourceOrderID   string            `json:"source_order_id" validate:"required"`
	BuyerEmail      string            `json:"buyer_email" validate:"required,email"`
	BuyerName       string            `json:"buyer_name" validate:"required"`
	BuyerTier       string            `json:"buyer_tier"`
	ShippingAddress *types.Address    `json:"shipping_address"`
	DealerLicense   *string           `json:"dealer_license"`
	PaymentRef      string            `json:"payment_ref"`
	TestMode        bool              `json:"test_mode"`
	Lines           []SubmitLineInput `json:"lines" validate:"required,min=1,dive"`
}

// SubmitResult reports whether intake stored a new order or found a prior one.
type SubmitResult struct {
	OrderID       string `json:"order_id"`
	SourceOrderID string `json:"source_order_id"`
	Created       bool   `json:"created"`
}

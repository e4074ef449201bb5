package enums

import "fmt"

// ConsigneeType names who receives the shipment for a split group.
type ConsigneeType string

const (
	// ConsigneeTypeCustomer ships straight to the buyer's address.
	ConsigneeTypeCustomer ConsigneeType = "customer"
	// ConsigneeTypeDealer routes regulated items through the buyer's licensed dealer.
	ConsigneeTypeDealer ConsigneeType = "dealer"
	// ConsigneeTypeMerchant keeps the group at the merchant's own facility.
	ConsigneeTypeMerchant ConsigneeType = "merchant"
)

var validConsigneeTypes = []ConsigneeType{
	ConsigneeTypeCustomer,
	ConsigneeTypeDealer,
	ConsigneeTypeMerchant,
}

// String implements fmt.Stringer.
func (c ConsigneeType) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConsigneeType.
func (c ConsigneeType) IsValid() bool {
	for _, candidate := range validConsigneeTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConsigneeType converts raw input into a ConsigneeType.
func ParseConsigneeType(value string) (ConsigneeType, error) {
	for _, candidate := range validConsigneeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid consignee type %q", value)
}

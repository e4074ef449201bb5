package enums

import "fmt"

// BuyerTier is the buyer's membership level, carried onto the CRM contact.
type BuyerTier string

const (
	BuyerTierRetail    BuyerTier = "retail"
	BuyerTierMember    BuyerTier = "member"
	BuyerTierWholesale BuyerTier = "wholesale"
)

var validBuyerTiers = []BuyerTier{
	BuyerTierRetail,
	BuyerTierMember,
	BuyerTierWholesale,
}

// String implements fmt.Stringer.
func (b BuyerTier) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BuyerTier.
func (b BuyerTier) IsValid() bool {
	for _, candidate := range validBuyerTiers {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBuyerTier converts raw input into a BuyerTier.
func ParseBuyerTier(value string) (BuyerTier, error) {
	for _, candidate := range validBuyerTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid buyer tier %q", value)
}

package enums

import "fmt"

// HoldType is a compliance reason that parks an order before sync. The string
// values are written verbatim into the CRM deal, so they stay human readable.
type HoldType string

const (
	HoldTypeDealerNotOnFile HoldType = "FFL not on file"
	HoldTypeRegulatedCount  HoldType = "Gun Count Rule"
)

var validHoldTypes = []HoldType{
	HoldTypeDealerNotOnFile,
	HoldTypeRegulatedCount,
}

// String implements fmt.Stringer.
func (h HoldType) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HoldType.
func (h HoldType) IsValid() bool {
	for _, candidate := range validHoldTypes {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHoldType converts raw input into a HoldType.
func ParseHoldType(value string) (HoldType, error) {
	for _, candidate := range validHoldTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid hold type %q", value)
}

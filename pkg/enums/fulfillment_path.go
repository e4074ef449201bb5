package enums

import "fmt"

// FulfillmentPath identifies how a split group leaves the warehouse. The
// string values double as group keys, so their lexicographic order decides
// suffix assignment when an order splits.
type FulfillmentPath string

const (
	FulfillmentPathDealer  FulfillmentPath = "dealer"
	FulfillmentPathDirect  FulfillmentPath = "direct"
	FulfillmentPathInHouse FulfillmentPath = "in-house"
)

var validFulfillmentPaths = []FulfillmentPath{
	FulfillmentPathDealer,
	FulfillmentPathDirect,
	FulfillmentPathInHouse,
}

// String implements fmt.Stringer.
func (f FulfillmentPath) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentPath.
func (f FulfillmentPath) IsValid() bool {
	for _, candidate := range validFulfillmentPaths {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFulfillmentPath converts raw input into a FulfillmentPath.
func ParseFulfillmentPath(value string) (FulfillmentPath, error) {
	for _, candidate := range validFulfillmentPaths {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment path %q", value)
}

package ordersplit

import (
	"sort"

	"github.com/google/uuid"

	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
)

// Line carries the per-line flags the splitter partitions on. The flags are
// snapshots taken at intake, so the partition of a past order never changes
// when the catalog does.
type Line struct {
	ID               uuid.UUID
	Regulated        bool
	DropShipEligible bool
	InHouseOnly      bool
}

// Group is one fulfillment partition of an order. Groups are transient: they
// exist only while a sync attempt runs, and are rebuilt identically from the
// same lines every time.
type Group struct {
	Key       enums.FulfillmentPath
	Consignee enums.ConsigneeType
	Lines     []Line
}

// Split partitions lines into fulfillment groups. Rules run per line, in
// order: in-house-only wins over everything, then direct shipment for
// unregulated drop-ship lines, then the dealer path as the default. Regulated
// lines never ship direct regardless of their drop-ship flag.
func Split(lines []Line) ([]Group, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no lines to split")
	}

	byKey := map[enums.FulfillmentPath][]Line{}
	for _, line := range lines {
		key := pathFor(line)
		byKey[key] = append(byKey[key], line)
	}

	keys := make([]enums.FulfillmentPath, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	groups := make([]Group, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, Group{
			Key:       key,
			Consignee: consigneeFor(key),
			Lines:     byKey[key],
		})
	}
	return groups, nil
}

func pathFor(line Line) enums.FulfillmentPath {
	switch {
	case line.InHouseOnly:
		return enums.FulfillmentPathInHouse
	case line.DropShipEligible && !line.Regulated:
		return enums.FulfillmentPathDirect
	default:
		return enums.FulfillmentPathDealer
	}
}

func consigneeFor(key enums.FulfillmentPath) enums.ConsigneeType {
	switch key {
	case enums.FulfillmentPathDirect:
		return enums.ConsigneeTypeCustomer
	case enums.FulfillmentPathDealer:
		return enums.ConsigneeTypeDealer
	default:
		return enums.ConsigneeTypeMerchant
	}
}

// Keys returns the group keys in the order their groups were produced.
func Keys(groups []Group) []enums.FulfillmentPath {
	keys := make([]enums.FulfillmentPath, 0, len(groups))
	for _, group := range groups {
		keys = append(keys, group.Key)
	}
	return keys
}

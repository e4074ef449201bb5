package ordersplit

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
	pkgerrors "github.com/rockcreekarms/ordersync-backend/pkg/errors"
)

func line(regulated, dropShip, inHouse bool) Line {
	return Line{ID: uuid.New(), Regulated: regulated, DropShipEligible: dropShip, InHouseOnly: inHouse}
}

func TestSplitEmptyOrder(t *testing.T) {
	if _, err := Split(nil); err == nil {
		t.Fatal("expected error for empty order")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSplitRuleOrder(t *testing.T) {
	cases := []struct {
		name string
		line Line
		want enums.FulfillmentPath
	}{
		{"plain accessory drop ships", line(false, true, false), enums.FulfillmentPathDirect},
		{"regulated never ships direct", line(true, true, false), enums.FulfillmentPathDealer},
		{"regulated without drop ship", line(true, false, false), enums.FulfillmentPathDealer},
		{"unregulated without drop ship", line(false, false, false), enums.FulfillmentPathDealer},
		{"in-house wins over drop ship", line(false, true, true), enums.FulfillmentPathInHouse},
		{"in-house wins over regulated", line(true, true, true), enums.FulfillmentPathInHouse},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			groups, err := Split([]Line{tc.line})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(groups) != 1 {
				t.Fatalf("expected one group, got %d", len(groups))
			}
			if groups[0].Key != tc.want {
				t.Fatalf("expected path %s, got %s", tc.want, groups[0].Key)
			}
		})
	}
}

func TestSplitConsigneeMapping(t *testing.T) {
	groups, err := Split([]Line{
		line(false, true, false),
		line(true, false, false),
		line(false, false, true),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[enums.FulfillmentPath]enums.ConsigneeType{
		enums.FulfillmentPathDealer:  enums.ConsigneeTypeDealer,
		enums.FulfillmentPathDirect:  enums.ConsigneeTypeCustomer,
		enums.FulfillmentPathInHouse: enums.ConsigneeTypeMerchant,
	}
	for _, group := range groups {
		if group.Consignee != want[group.Key] {
			t.Fatalf("group %s: expected consignee %s, got %s", group.Key, want[group.Key], group.Consignee)
		}
	}
}

func TestSplitPartitionCompleteAndDisjoint(t *testing.T) {
	lines := []Line{
		line(false, true, false),
		line(true, true, false),
		line(false, false, true),
		line(false, true, false),
		line(true, false, false),
	}
	groups, err := Split(lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := map[uuid.UUID]int{}
	total := 0
	for _, group := range groups {
		total += len(group.Lines)
		for _, l := range group.Lines {
			seen[l.ID]++
		}
	}
	if total != len(lines) {
		t.Fatalf("partition lost lines: had %d, placed %d", len(lines), total)
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("line %s appears in %d groups", id, count)
		}
	}
}

func TestSplitGroupsSortedByKey(t *testing.T) {
	groups, err := Split([]Line{
		line(false, false, true),
		line(false, true, false),
		line(true, false, false),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := Keys(groups)
	want := []enums.FulfillmentPath{
		enums.FulfillmentPathDealer,
		enums.FulfillmentPathDirect,
		enums.FulfillmentPathInHouse,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected keys %v, got %v", want, got)
	}
}

func TestSplitDeterministic(t *testing.T) {
	lines := []Line{
		line(true, true, false),
		line(false, true, false),
		line(false, false, true),
	}
	first, err := Split(lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := Split(lines)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("split is not deterministic: run %d differs", i)
		}
	}
}

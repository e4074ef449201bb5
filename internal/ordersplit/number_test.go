package ordersplit

import (
	"reflect"
	"testing"

	"github.com/rockcreekarms/ordersync-backend/pkg/enums"
)

func TestNumberOrderSingleGroup(t *testing.T) {
	numbering, err := NumberOrder(42, false, []enums.FulfillmentPath{enums.FulfillmentPathInHouse})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := numbering.Children[enums.FulfillmentPathInHouse]; got != "00000420" {
		t.Fatalf("expected child 00000420, got %s", got)
	}
	if numbering.Parent != "00000420" {
		t.Fatalf("single group parent should equal child, got %s", numbering.Parent)
	}
}

func TestNumberOrderMultiGroupTestMode(t *testing.T) {
	keys := []enums.FulfillmentPath{
		enums.FulfillmentPathInHouse,
		enums.FulfillmentPathDealer,
		enums.FulfillmentPathDirect,
	}
	numbering, err := NumberOrder(42, true, keys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[enums.FulfillmentPath]string{
		enums.FulfillmentPathDealer:  "test0000042A",
		enums.FulfillmentPathDirect:  "test0000042B",
		enums.FulfillmentPathInHouse: "test0000042C",
	}
	if !reflect.DeepEqual(numbering.Children, want) {
		t.Fatalf("expected children %v, got %v", want, numbering.Children)
	}
	if numbering.Parent != "test0000042Z" {
		t.Fatalf("expected parent test0000042Z, got %s", numbering.Parent)
	}
}

func TestNumberOrderSuffixIndependentOfInputOrder(t *testing.T) {
	forward, err := NumberOrder(7, false, []enums.FulfillmentPath{
		enums.FulfillmentPathDealer,
		enums.FulfillmentPathDirect,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reversed, err := NumberOrder(7, false, []enums.FulfillmentPath{
		enums.FulfillmentPathDirect,
		enums.FulfillmentPathDealer,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(forward.Children, reversed.Children) {
		t.Fatalf("suffix assignment depends on input order: %v vs %v", forward.Children, reversed.Children)
	}
	if forward.Children[enums.FulfillmentPathDealer] != "0000007A" {
		t.Fatalf("dealer should sort first, got %s", forward.Children[enums.FulfillmentPathDealer])
	}
	if forward.Children[enums.FulfillmentPathDirect] != "0000007B" {
		t.Fatalf("direct should sort second, got %s", forward.Children[enums.FulfillmentPathDirect])
	}
}

func TestNumberOrderRejectsBadInput(t *testing.T) {
	if _, err := NumberOrder(0, false, []enums.FulfillmentPath{enums.FulfillmentPathDealer}); err == nil {
		t.Fatal("expected error for non-positive sequence")
	}
	if _, err := NumberOrder(5, false, nil); err == nil {
		t.Fatal("expected error for empty group keys")
	}
	if _, err := NumberOrder(5, false, []enums.FulfillmentPath{
		enums.FulfillmentPathDealer,
		enums.FulfillmentPathDealer,
	}); err == nil {
		t.Fatal("expected error for duplicate group keys")
	}
}

func TestFormatBase(t *testing.T) {
	if got := FormatBase(1, false); got != "0000001" {
		t.Fatalf("expected 0000001, got %s", got)
	}
	if got := FormatBase(1234567, false); got != "1234567" {
		t.Fatalf("expected 1234567, got %s", got)
	}
	if got := FormatBase(99, true); got != "test0000099" {
		t.Fatalf("expected test0000099, got %s", got)
	}
	// sequences past seven digits keep growing rather than wrapping
	if got := FormatBase(12345678, false); got != "12345678" {
		t.Fatalf("expected 12345678, got %s", got)
	}
}

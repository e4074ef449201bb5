package types

import (
	"errors"
	"testing"
)

func TestAddressValidate(t *testing.T) {
	valid := Address{Line1: "100 Main St", City: "Bozeman", State: "MT", PostalCode: "59715"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid address, got %v", err)
	}

	invalid := Address{City: "Bozeman"}
	err := invalid.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	var missing *MissingFieldsError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldsError, got %T", err)
	}
	if len(missing.Fields) != 3 {
		t.Fatalf("expected 3 missing fields, got %v", missing.Fields)
	}
}

func TestAddressNormalized(t *testing.T) {
	line2 := "  Suite 4  "
	addr := Address{
		Line1:      " 100 Main St ",
		Line2:      &line2,
		City:       "Bozeman",
		State:      "mt",
		PostalCode: " 59715 ",
	}

	got := addr.Normalized()
	if got.State != "MT" {
		t.Fatalf("expected state MT, got %q", got.State)
	}
	if got.Country != "US" {
		t.Fatalf("expected defaulted country US, got %q", got.Country)
	}
	if got.Line2 == nil || *got.Line2 != "Suite 4" {
		t.Fatalf("expected trimmed line2, got %v", got.Line2)
	}

	empty := Address{Line1: "x", City: "y", State: "z", PostalCode: "1"}
	if empty.Normalized().Line2 != nil {
		t.Fatal("expected nil line2 when absent")
	}
}

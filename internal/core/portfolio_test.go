package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAssetPositionValuation(t *testing.T) {
	cases := []struct {
		quantity  string
		unitPrice string
		wantCents int64
	}{
		{"10", "150.25", 150250},
		{"0.5", "100", 5000},
		{"3", "33.333", 10000}, // 99.999 rounds half-up
		{"1.5", "0.01", 2},     // 0.015 rounds half-up
	}
	for _, tc := range cases {
		pos, err := ParsePosition(tc.quantity, tc.unitPrice)
		if err != nil {
			t.Fatalf("ParsePosition(%q, %q): %v", tc.quantity, tc.unitPrice, err)
		}
		if got := pos.Valuation().Cents; got != tc.wantCents {
			t.Fatalf("Valuation(%s x %s) = %d cents, want %d", tc.quantity, tc.unitPrice, got, tc.wantCents)
		}
	}
}

func TestParsePositionRejectsBadInput(t *testing.T) {
	cases := []struct {
		quantity  string
		unitPrice string
	}{
		{"", "10"},
		{"abc", "10"},
		{"0", "10"},
		{"-1", "10"},
		{"1", "-10"},
		{"1", "x"},
	}
	for _, tc := range cases {
		if _, err := ParsePosition(tc.quantity, tc.unitPrice); err == nil {
			t.Fatalf("ParsePosition(%q, %q) expected error", tc.quantity, tc.unitPrice)
		}
	}
}

func TestAssetPositionValidate(t *testing.T) {
	ok := AssetPosition{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)}
	if err := ok.Validate(); err != nil {
		t.Fatalf("expected valid position, got %v", err)
	}
	// Zero unit price is allowed: delisted assets keep their quantity.
	free := AssetPosition{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.Zero}
	if err := free.Validate(); err != nil {
		t.Fatalf("zero unit price should validate, got %v", err)
	}
}

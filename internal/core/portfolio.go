package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

// AssetPosition carries the quantity and unit price of a portfolio asset.
// Quantities are fractional (shares, crypto), so both fields use decimal
// arithmetic rather than cents.
type AssetPosition struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
}

var (
	ErrInvalidQuantity  = errors.New("invalid asset quantity")
	ErrInvalidUnitPrice = errors.New("invalid asset unit price")
)

func (a AssetPosition) Validate() error {
	if a.Quantity.IsNegative() || a.Quantity.IsZero() {
		return ErrInvalidQuantity
	}
	if a.UnitPrice.IsNegative() {
		return ErrInvalidUnitPrice
	}
	return nil
}

// Valuation returns quantity * unit price as Money, rounded half-up to the
// cent.
func (a AssetPosition) Valuation() Money {
	cents := a.Quantity.Mul(a.UnitPrice).Mul(decimal.NewFromInt(100)).Round(0)
	return Money{Cents: cents.IntPart()}
}

// ParsePosition builds an AssetPosition from decimal strings.
func ParsePosition(quantity, unitPrice string) (AssetPosition, error) {
	q, err := decimal.NewFromString(quantity)
	if err != nil {
		return AssetPosition{}, ErrInvalidQuantity
	}
	p, err := decimal.NewFromString(unitPrice)
	if err != nil {
		return AssetPosition{}, ErrInvalidUnitPrice
	}
	pos := AssetPosition{Quantity: q, UnitPrice: p}
	if err := pos.Validate(); err != nil {
		return AssetPosition{}, err
	}
	return pos, nil
}

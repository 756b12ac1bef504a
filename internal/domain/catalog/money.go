package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParsePrice converts a major-unit amount such as "19.99" into minor units,
// rounding half away from zero to the nearest cent.
func ParsePrice(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	cents := d.Mul(hundred).Round(0)
	if !cents.IsPositive() {
		return 0, ErrInvalidPrice
	}
	return cents.IntPart(), nil
}

// MajorUnits renders minor units as a two-decimal amount for presentation.
func MajorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amounts are stored as NUMERIC(18,2).
const (
	AmountScale     = 2
	AmountPrecision = 18
)

var maxAmount = decimal.New(1, AmountPrecision-AmountScale)

// ValidateAmount rejects negative amounts and amounts that do not fit the
// fixed-point representation.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidAmount, amount, AmountScale)
	}
	if amount.GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: %s exceeds %d digits", ErrInvalidAmount, amount, AmountPrecision)
	}
	return nil
}

// ParseAmount parses a decimal string and validates it.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// ValidateDay checks a canonical day of month.
func ValidateDay(day int) error {
	if day < 1 || day > 31 {
		return fmt.Errorf("%w: got %d", ErrInvalidDay, day)
	}
	return nil
}

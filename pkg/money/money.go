package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every stored amount carries.
const Scale = 2

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// ApplyRate multiplies amount by rate and rounds half-up to two decimal
// places. All percentage application in the settlement engine goes through
// here so fee math is identical everywhere it happens.
func ApplyRate(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(Scale)
}

// Percent converts a percentage value (e.g. 2 for 2%) into a rate.
func Percent(p decimal.Decimal) decimal.Decimal {
	return p.Div(decimal.NewFromInt(100))
}

// Round normalizes an amount to the stored scale.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Scale)
}

// Sum adds amounts and rounds the result to the stored scale.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total.Round(Scale)
}

// RequirePositive returns an error unless amount > 0.
func RequirePositive(name string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%s must be positive, got %s", name, amount)
	}
	return nil
}

// RequireNonNegative returns an error if amount < 0.
func RequireNonNegative(name string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%s must not be negative, got %s", name, amount)
	}
	return nil
}

package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the minor-unit precision every stored or transmitted amount is
// rounded to. All arithmetic rounds through this before a balance write or
// an outbound provider call so repeated small postings cannot drift.
const Places = 2

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// Round normalizes an amount to minor-unit precision using half-up rounding.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Parse converts a user- or provider-supplied amount string into a rounded
// decimal. Negative amounts are rejected here since no API accepts them.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", s)
	}
	return Round(d), nil
}

// MustParse is Parse for trusted literals such as configuration defaults.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ApplyRate multiplies an amount by a fractional rate (e.g. 0.025 for 2.5%)
// and rounds the result to minor-unit precision.
func ApplyRate(amount, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate))
}

// IsPositive reports whether the amount is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}

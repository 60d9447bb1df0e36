package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a major-unit amount to minor units (x100), rounding half to even.
// 499.99 -> 49999, 0.005 -> 0, 0.015 -> 2. Amounts that do not fit in int64 minor
// units return ErrInvalidAmount.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	minor := amount.Mul(hundred).RoundBank(0)
	if !minor.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return minor.IntPart(), nil
}

package valueobject

import "github.com/shopspring/decimal"

var half = decimal.NewFromFloat(0.5)

// RoundHalfUp rounds a monetary amount to a whole unit: a fractional part of
// 0.5 or more rounds up, anything below rounds down. This is the single
// rounding rule used anywhere an amount is computed for storage or display,
// so the same value can never round two different ways at two call sites.
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	floor := d.Floor()
	if d.Sub(floor).GreaterThanOrEqual(half) {
		return floor.Add(decimal.NewFromInt(1))
	}
	return floor
}

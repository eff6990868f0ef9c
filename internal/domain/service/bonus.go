package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// BonusCalculator – domain service for completion-bonus computation
// ---------------------------------------------------------------------------

// BonusTable maps a calendar-month key ("M4", "M7") to a bonus percentage.
// Like the penalty rules it is an immutable input supplied per call.
type BonusTable map[string]decimal.Decimal

// BonusResult is the outcome of a bonus lookup.
type BonusResult struct {
	PeriodKey string
	Percent   decimal.Decimal
	Base      decimal.Decimal
	Amount    decimal.Decimal
}

// BonusCalculator resolves the month-indexed bonus for a payment.
type BonusCalculator struct{}

// NewBonusCalculator returns a new calculator instance.
func NewBonusCalculator() *BonusCalculator {
	return &BonusCalculator{}
}

// Compute resolves the bonus for the installment at monthIndex (0-based).
//
// The lookup is one period in arrears: the first three calendar months never
// carry a bonus, the last month uses its own configured percent, and every
// other month uses the previous month's. A missing table entry is a
// legitimate zero, not an error.
//
// The base the percentage applies to depends on the family: free-schedule
// contracts use the money actually put in so far, fixed-cadence contracts
// use the declared monthly amount times the months elapsed.
func (c *BonusCalculator) Compute(
	monthIndex, plannedDuration int,
	table BonusTable,
	family valueobject.ContractFamily,
	accumulatedAmount, monthlyAmount decimal.Decimal,
) BonusResult {
	if monthIndex < 3 {
		return BonusResult{}
	}

	key := fmt.Sprintf("M%d", monthIndex)
	if monthIndex+1 == plannedDuration {
		key = fmt.Sprintf("M%d", monthIndex+1)
	}

	percent, ok := table[key]
	if !ok || percent.LessThanOrEqual(decimal.Zero) {
		return BonusResult{PeriodKey: key}
	}

	base := monthlyAmount.Mul(decimal.NewFromInt(int64(monthIndex + 1)))
	if family.Equal(valueobject.ContractFamilyFreeSchedule) {
		base = accumulatedAmount
	}

	amount := valueobject.RoundHalfUp(base.Mul(percent).Div(decimal.NewFromInt(100)))
	return BonusResult{
		PeriodKey: key,
		Percent:   percent,
		Base:      base,
		Amount:    amount,
	}
}

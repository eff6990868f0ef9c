package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// PenaltyCalculator – domain service for delay-banded penalty assessment
// ---------------------------------------------------------------------------

// PenaltyRules carries the per-family penalty configuration. It is supplied
// at call time, never read from process-wide state, so the calculator stays
// testable without a live configuration store. PerDayRate is a fraction
// (0.005 = 0.5% of the installment per day late) effective only inside the
// 4–12 day window.
type PenaltyRules struct {
	PerDayRate decimal.Decimal
}

const (
	toleranceMinDays = 1
	toleranceMaxDays = 3
	penaltyMaxDays   = 12

	daysPerMonth = 30
)

// Assessment is the outcome of a penalty evaluation for one payment.
// Applied is the charged penalty; Estimated is the pre-payment preview
// figure. BeyondPenaltyWindow flags a delay past twelve days; the
// calculator only reports it, the Contract state machine owns the
// DEFAULTED transition.
type Assessment struct {
	Applied             decimal.Decimal
	Estimated           decimal.Decimal
	Remark              string
	DaysLate            int
	QualityScore        int
	Tolerance           bool
	BeyondPenaltyWindow bool
}

// PenaltyCalculator evaluates how late a payment is and what it costs.
type PenaltyCalculator struct{}

// NewPenaltyCalculator returns a new calculator instance.
func NewPenaltyCalculator() *PenaltyCalculator {
	return &PenaltyCalculator{}
}

// DaysLate returns the whole days between the due date and the paid date,
// never negative.
func (c *PenaltyCalculator) DaysLate(dueDate, paidDate time.Time) int {
	if !paidDate.After(dueDate) {
		return 0
	}
	return int(paidDate.Sub(dueDate).Hours() / 24)
}

// Estimate computes the penalty figure shown before a payment is recorded:
// one thirtieth of the installment per day late, rounded half-up.
func (c *PenaltyCalculator) Estimate(installmentAmount decimal.Decimal, daysLate int) decimal.Decimal {
	if daysLate <= 0 {
		return decimal.Zero
	}
	raw := installmentAmount.
		Mul(decimal.NewFromInt(int64(daysLate))).
		Div(decimal.NewFromInt(daysPerMonth))
	return valueobject.RoundHalfUp(raw)
}

// Assess evaluates a recorded payment against its due date.
//
// Bands:
//
//	0 days        -> nothing owed
//	1–3 days      -> tolerance window, no penalty but flagged for reporting
//	4–12 days     -> installment * perDayRate * daysLate
//	beyond 12     -> no per-day penalty; the contract defaults instead
func (c *PenaltyCalculator) Assess(
	installmentAmount decimal.Decimal,
	dueDate, paidDate time.Time,
	rules PenaltyRules,
) Assessment {
	daysLate := c.DaysLate(dueDate, paidDate)
	score, remark := qualityScore(daysLate)

	a := Assessment{
		DaysLate:     daysLate,
		Estimated:    c.Estimate(installmentAmount, daysLate),
		Applied:      decimal.Zero,
		QualityScore: score,
		Remark:       remark,
	}

	switch {
	case daysLate == 0:
	case daysLate <= toleranceMaxDays:
		a.Tolerance = true
	case daysLate <= penaltyMaxDays:
		a.Applied = installmentAmount.
			Mul(rules.PerDayRate).
			Mul(decimal.NewFromInt(int64(daysLate)))
	default:
		a.BeyondPenaltyWindow = true
	}
	return a
}

// qualityScore maps a delay to the 0–10 audit score and its remark. The six
// bands and thresholds are fixed; only the wording is local.
func qualityScore(daysLate int) (int, string) {
	switch {
	case daysLate <= 0:
		return 10, "on time"
	case daysLate <= 7:
		return 8, "minor delay"
	case daysLate <= 15:
		return 6, "moderate delay"
	case daysLate <= 30:
		return 4, "serious delay"
	case daysLate <= 60:
		return 2, "severe delay"
	default:
		return 1, "critical delay"
	}
}

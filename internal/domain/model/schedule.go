package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/valueobject"
)

// ScheduleEntry is an immutable value object representing one due period in
// a contract's payment schedule.
type ScheduleEntry struct {
	DueDate          time.Time
	Payment          decimal.Decimal
	Interest         decimal.Decimal
	Principal        decimal.Decimal
	RemainingBalance decimal.Decimal
	MonthIndex       int
}

// ScheduleResult is the outcome of a schedule computation. When the duration
// cap is hit before the balance clears, Converged is false and the result
// carries the shortfall plus the installment amount that would have cleared
// it. That is a validity signal for the caller, never a silent failure.
type ScheduleResult struct {
	Entries              []ScheduleEntry
	RemainingAtCap       decimal.Decimal
	SuggestedInstallment decimal.Decimal
	Converged            bool
}

// FixedInstallmentSchedule computes a schedule from a declared per-period
// installment, solving for duration.
//
// Each period:
//
//	interest  = remaining * rate
//	actualPay = min(installment, remaining + interest)
//	remaining = max(0, remaining + interest - actualPay)
//
// The iteration stops when the balance reaches zero or maxDuration periods
// have elapsed. maxDuration <= 0 means uncapped, in which case the
// installment must at least cover the first period's interest or the
// balance would grow forever.
func FixedInstallmentSchedule(
	principal, monthlyRate, installment decimal.Decimal,
	cadence valueobject.Cadence,
	firstDue time.Time,
	maxDuration int,
) (ScheduleResult, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return ScheduleResult{}, errs.NewValidation("principal", "must be positive")
	}
	if monthlyRate.IsNegative() {
		return ScheduleResult{}, errs.NewValidation("monthlyRate", "must not be negative")
	}
	if installment.LessThanOrEqual(decimal.Zero) {
		return ScheduleResult{}, errs.NewValidation("installment", "must be positive")
	}
	if maxDuration <= 0 {
		firstInterest := valueobject.RoundHalfUp(principal.Mul(monthlyRate))
		if installment.LessThanOrEqual(firstInterest) {
			return ScheduleResult{}, errs.NewValidation("installment", "does not cover accruing interest")
		}
	}

	var entries []ScheduleEntry
	remaining := principal

	for period := 0; maxDuration <= 0 || period < maxDuration; period++ {
		interest := valueobject.RoundHalfUp(remaining.Mul(monthlyRate))
		balanceWithInterest := remaining.Add(interest)

		actual := installment
		if actual.GreaterThan(balanceWithInterest) {
			actual = balanceWithInterest
		}
		remaining = balanceWithInterest.Sub(actual)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}

		entries = append(entries, ScheduleEntry{
			MonthIndex:       period,
			DueDate:          dueDateAt(firstDue, cadence, period),
			Payment:          actual,
			Interest:         interest,
			Principal:        actual.Sub(interest),
			RemainingBalance: remaining,
		})

		if remaining.IsZero() {
			return ScheduleResult{Entries: entries, Converged: true}, nil
		}
	}

	// Cap reached with a balance left over: report the shortfall and the
	// fixed-duration installment that would have cleared it.
	return ScheduleResult{
		Entries:              entries,
		RemainingAtCap:       remaining,
		SuggestedInstallment: SuggestedInstallment(principal, monthlyRate, maxDuration),
		Converged:            false,
	}, nil
}

// SuggestedInstallment solves the fixed-duration policy: compound the
// principal over the full duration, split evenly, round half-up.
func SuggestedInstallment(principal, monthlyRate decimal.Decimal, duration int) decimal.Decimal {
	if duration <= 0 {
		return decimal.Zero
	}
	global := compound(principal, monthlyRate, duration)
	return valueobject.RoundHalfUp(global.Div(decimal.NewFromInt(int64(duration))))
}

// ReferenceSchedule computes the fixed-duration reference schedule for a
// family's duration cap: the principal is compounded to a global amount with
// no payments subtracted, the global amount is split into equal rounded
// installments, and the rows draw that global amount down to exactly zero,
// the last row absorbing the rounding residue. The interest column spreads
// the total compounded interest evenly across the rows on the same basis.
// The schedule always has exactly duration rows ending at zero: the rows
// state the fixed-duration plan and are never a re-simulation of the
// balance, which would clear early once rounding pushes the installment
// above the exact split.
func ReferenceSchedule(
	principal, monthlyRate decimal.Decimal,
	cadence valueobject.Cadence,
	firstDue time.Time,
	duration int,
) (ScheduleResult, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return ScheduleResult{}, errs.NewValidation("principal", "must be positive")
	}
	if duration <= 0 {
		return ScheduleResult{}, errs.NewValidation("duration", "must be positive")
	}

	periods := decimal.NewFromInt(int64(duration))
	global := compound(principal, monthlyRate, duration)
	installment := valueobject.RoundHalfUp(global.Div(periods))
	totalInterest := global.Sub(principal)
	interestShare := valueobject.RoundHalfUp(totalInterest.Div(periods))

	entries := make([]ScheduleEntry, 0, duration)
	remaining := global
	interestLeft := totalInterest

	for period := 0; period < duration; period++ {
		payment := installment
		interest := interestShare
		if period == duration-1 {
			// Last row absorbs all rounding so the balance lands on zero.
			payment = remaining
			interest = interestLeft
		}
		remaining = remaining.Sub(payment)
		interestLeft = interestLeft.Sub(interest)

		entries = append(entries, ScheduleEntry{
			MonthIndex:       period,
			DueDate:          dueDateAt(firstDue, cadence, period),
			Payment:          payment,
			Interest:         interest,
			Principal:        payment.Sub(interest),
			RemainingBalance: remaining,
		})
	}

	return ScheduleResult{Entries: entries, Converged: true}, nil
}

// CustomSchedule computes a free-form schedule from caller-supplied payments.
// Interest still compounds period by period; validity means the declared
// payments clear the compounded balance within the family's duration cap.
func CustomSchedule(
	principal, monthlyRate decimal.Decimal,
	payments []decimal.Decimal,
	cadence valueobject.Cadence,
	firstDue time.Time,
	maxDuration int,
) (ScheduleResult, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return ScheduleResult{}, errs.NewValidation("principal", "must be positive")
	}
	if len(payments) == 0 {
		return ScheduleResult{}, errs.NewValidation("payments", "at least one payment is required")
	}
	if maxDuration > 0 && len(payments) > maxDuration {
		return ScheduleResult{}, errs.NewValidation("payments", "more payments than the family's duration cap allows")
	}
	for _, p := range payments {
		if p.LessThanOrEqual(decimal.Zero) {
			return ScheduleResult{}, errs.NewValidation("payments", "every payment must be positive")
		}
	}

	entries := make([]ScheduleEntry, 0, len(payments))
	remaining := principal

	for period, declared := range payments {
		interest := valueobject.RoundHalfUp(remaining.Mul(monthlyRate))
		balanceWithInterest := remaining.Add(interest)

		actual := declared
		if actual.GreaterThan(balanceWithInterest) {
			actual = balanceWithInterest
		}
		remaining = balanceWithInterest.Sub(actual)

		entries = append(entries, ScheduleEntry{
			MonthIndex:       period,
			DueDate:          dueDateAt(firstDue, cadence, period),
			Payment:          actual,
			Interest:         interest,
			Principal:        actual.Sub(interest),
			RemainingBalance: remaining,
		})

		if remaining.IsZero() {
			break
		}
	}

	result := ScheduleResult{Entries: entries, Converged: remaining.IsZero()}
	if !result.Converged {
		result.RemainingAtCap = remaining
		if maxDuration > 0 {
			result.SuggestedInstallment = SuggestedInstallment(principal, monthlyRate, maxDuration)
		}
	}
	return result, nil
}

// compound applies period-by-period compounding with no payment subtraction.
func compound(principal, rate decimal.Decimal, periods int) decimal.Decimal {
	one := decimal.NewFromInt(1)
	global := principal
	for i := 0; i < periods; i++ {
		global = global.Mul(one.Add(rate))
	}
	return global
}

func dueDateAt(firstDue time.Time, cadence valueobject.Cadence, period int) time.Time {
	if cadence.Equal(valueobject.CadenceDaily) {
		return firstDue.AddDate(0, 0, period)
	}
	return firstDue.AddDate(0, period, 0)
}

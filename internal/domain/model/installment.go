package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is the derived state of one due period. It is never
// stored as authoritative data: it is recomputed from the accumulated
// amount, the target amount and the clock.
type InstallmentStatus string

const (
	InstallmentStatusDue     InstallmentStatus = "DUE"
	InstallmentStatusPartial InstallmentStatus = "PARTIAL"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
	InstallmentStatusLate    InstallmentStatus = "LATE"
)

// PaymentEvent is a single recorded inflow against an installment. Amount is
// the gross inflow; CreditedAmount is what actually reached the installment
// after a support-advance settlement took its cut. Penalty and bonus are
// audit lines only and never feed the accumulated amount.
type PaymentEvent struct {
	ID               string
	PaidAt           time.Time
	Mode             string
	Amount           decimal.Decimal
	CreditedAmount   decimal.Decimal
	AdvanceRepayment decimal.Decimal
	AdvanceID        string
	Penalty          decimal.Decimal
	Bonus            decimal.Decimal
	DaysLate         int
	QualityScore     int
	Remark           string
	Tolerance        bool
}

// Installment is one due period in a contract's schedule. Installments are
// owned by their contract and mutated only through the aggregate.
type Installment struct {
	DueDate           time.Time
	TargetAmount      decimal.Decimal
	AccumulatedAmount decimal.Decimal
	Payments          []PaymentEvent
	MonthIndex        int
	ScheduleVersion   int
}

// IsPaid reports whether the accumulated amount has reached the target.
func (i Installment) IsPaid() bool {
	return i.AccumulatedAmount.GreaterThanOrEqual(i.TargetAmount)
}

// Status derives the installment state at the given instant. PAID wins over
// everything; LATE overrides DUE and PARTIAL once the due date has passed.
func (i Installment) Status(now time.Time) InstallmentStatus {
	if i.IsPaid() {
		return InstallmentStatusPaid
	}
	if now.After(i.DueDate) {
		return InstallmentStatusLate
	}
	if i.AccumulatedAmount.IsPositive() {
		return InstallmentStatusPartial
	}
	return InstallmentStatusDue
}

// Remaining returns the amount still owed on this installment, never
// negative.
func (i Installment) Remaining() decimal.Decimal {
	r := i.TargetAmount.Sub(i.AccumulatedAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// credit returns a copy of the installment with the event recorded and the
// credited amount added. The accumulated amount only ever grows.
func (i Installment) credit(ev PaymentEvent) Installment {
	next := i
	next.AccumulatedAmount = i.AccumulatedAmount.Add(ev.CreditedAmount)
	next.Payments = make([]PaymentEvent, len(i.Payments), len(i.Payments)+1)
	copy(next.Payments, i.Payments)
	next.Payments = append(next.Payments, ev)
	return next
}

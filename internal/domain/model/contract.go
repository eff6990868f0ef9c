package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/event"
	"github.com/tontina/caisse-engine/internal/domain/valueobject"
)

// ---------------------------------------------------------------------------
// Contract aggregate root (Installment & Advance Ledger)
// ---------------------------------------------------------------------------

// Contract is an immutable aggregate. Mutations return a new copy; the
// aggregate is the single point of truth for how much has been paid against
// each installment.
type Contract struct {
	id                string
	memberID          string
	family            valueobject.ContractFamily
	cadence           valueobject.Cadence
	principal         decimal.Decimal
	monthlyRate       decimal.Decimal
	installmentAmount decimal.Decimal
	plannedDuration   int
	firstDueDate      time.Time
	status            valueobject.ContractStatus
	installments      []Installment
	scheduleVersion   int
	advanceMin        decimal.Decimal
	advanceMax        decimal.Decimal
	version           int
	createdAt         time.Time
	updatedAt         time.Time
	domainEvents      []event.DomainEvent
}

// PaymentApplication carries one incoming payment through the aggregate.
// Amount is the gross inflow; AdvanceRepayment is the slice already claimed
// by an active support advance, so the installment is credited with the
// difference. The penalty/bonus fields are audit data computed by the
// calculators and stored on the payment event; they never touch the
// accumulated amount.
type PaymentApplication struct {
	MonthIndex       int
	PaidAt           time.Time
	Mode             string
	Amount           decimal.Decimal
	AdvanceRepayment decimal.Decimal
	AdvanceID        string
	Penalty          decimal.Decimal
	Bonus            decimal.Decimal
	DaysLate         int
	QualityScore     int
	Remark           string
	Tolerance        bool
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewContract creates a contract in PENDING status. The schedule is not
// computed here; it is attached at activation.
func NewContract(
	memberID string,
	family valueobject.ContractFamily,
	cadence valueobject.Cadence,
	principal, monthlyRate, installmentAmount decimal.Decimal,
	plannedDuration int,
	firstDueDate time.Time,
	advanceMin, advanceMax decimal.Decimal,
	now time.Time,
) (Contract, error) {
	if memberID == "" {
		return Contract{}, errs.NewValidation("memberID", "is required")
	}
	if family.IsZero() {
		return Contract{}, errs.NewValidation("family", "is required")
	}
	if cadence.IsZero() {
		return Contract{}, errs.NewValidation("cadence", "is required")
	}
	if principal.LessThanOrEqual(decimal.Zero) {
		return Contract{}, errs.NewValidation("principal", "must be positive")
	}
	if monthlyRate.IsNegative() {
		return Contract{}, errs.NewValidation("monthlyRate", "must not be negative")
	}
	if plannedDuration <= 0 {
		return Contract{}, errs.NewValidation("plannedDuration", "must be positive")
	}
	if cap, capped := family.DurationCap(); capped && plannedDuration > cap {
		return Contract{}, errs.NewValidation("plannedDuration", "exceeds the family's duration cap")
	}
	if firstDueDate.IsZero() {
		return Contract{}, errs.NewValidation("firstDueDate", "is required")
	}
	if advanceMin.IsNegative() || advanceMax.LessThan(advanceMin) {
		return Contract{}, errs.NewValidation("advanceBounds", "min must be >= 0 and max >= min")
	}

	return Contract{
		id:                uuid.New().String(),
		memberID:          memberID,
		family:            family,
		cadence:           cadence,
		principal:         principal,
		monthlyRate:       monthlyRate,
		installmentAmount: installmentAmount,
		plannedDuration:   plannedDuration,
		firstDueDate:      firstDueDate,
		status:            valueobject.ContractStatusPending,
		scheduleVersion:   0,
		advanceMin:        advanceMin,
		advanceMax:        advanceMax,
		version:           1,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

// ReconstructContract rebuilds a Contract aggregate from persistence.
func ReconstructContract(
	id, memberID string,
	family valueobject.ContractFamily,
	cadence valueobject.Cadence,
	principal, monthlyRate, installmentAmount decimal.Decimal,
	plannedDuration int,
	firstDueDate time.Time,
	status valueobject.ContractStatus,
	installments []Installment,
	scheduleVersion int,
	advanceMin, advanceMax decimal.Decimal,
	version int,
	createdAt, updatedAt time.Time,
) Contract {
	return Contract{
		id:                id,
		memberID:          memberID,
		family:            family,
		cadence:           cadence,
		principal:         principal,
		monthlyRate:       monthlyRate,
		installmentAmount: installmentAmount,
		plannedDuration:   plannedDuration,
		firstDueDate:      firstDueDate,
		status:            status,
		installments:      installments,
		scheduleVersion:   scheduleVersion,
		advanceMin:        advanceMin,
		advanceMax:        advanceMax,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

// ---------------------------------------------------------------------------
// Review loop
// ---------------------------------------------------------------------------

// StartReview transitions PENDING -> UNDER_REVIEW.
func (c Contract) StartReview(now time.Time) (Contract, error) {
	if !c.status.Equal(valueobject.ContractStatusPending) {
		return c, valueobject.ErrInvalidStatusTransition
	}
	next := c
	next.status = valueobject.ContractStatusUnderReview
	next.updatedAt = now
	next.domainEvents = copyEvents(c.domainEvents)
	return next, nil
}

// SendBack transitions UNDER_REVIEW -> PENDING. This is the only cycle the
// status machine allows.
func (c Contract) SendBack(now time.Time) (Contract, error) {
	if !c.status.Equal(valueobject.ContractStatusUnderReview) {
		return c, valueobject.ErrInvalidStatusTransition
	}
	next := c
	next.status = valueobject.ContractStatusPending
	next.updatedAt = now
	next.domainEvents = copyEvents(c.domainEvents)
	return next, nil
}

// ---------------------------------------------------------------------------
// Activation
// ---------------------------------------------------------------------------

// Activate attaches the computed reference schedule and transitions the
// contract to ACTIVE. All installments are created atomically from the
// schedule entries; the schedule is immutable from here on, and any later
// change must go through Reschedule, which creates a new version.
func (c Contract) Activate(entries []ScheduleEntry, now time.Time) (Contract, error) {
	if !c.status.Equal(valueobject.ContractStatusPending) && !c.status.Equal(valueobject.ContractStatusUnderReview) {
		return c, valueobject.ErrInvalidStatusTransition
	}
	if len(entries) == 0 {
		return c, errs.NewValidation("schedule", "must contain at least one entry")
	}

	installments := make([]Installment, 0, len(entries))
	for _, e := range entries {
		installments = append(installments, Installment{
			MonthIndex:        e.MonthIndex,
			DueDate:           e.DueDate,
			TargetAmount:      e.Payment,
			AccumulatedAmount: decimal.Zero,
			ScheduleVersion:   1,
		})
	}

	next := c
	next.status = valueobject.ContractStatusActive
	next.installments = installments
	next.scheduleVersion = 1
	next.updatedAt = now
	next.domainEvents = copyEvents(c.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewContractActivated(
		c.id, c.family.String(), c.principal, c.plannedDuration, c.firstDueDate,
	))
	return next, nil
}

// ---------------------------------------------------------------------------
// Ledger mutation
// ---------------------------------------------------------------------------

// ApplyPayment credits an installment with the portion of the incoming
// amount left after advance settlement and records the payment event. The
// accumulated amount only ever grows; penalty and bonus figures ride along
// as audit lines.
func (c Contract) ApplyPayment(app PaymentApplication, now time.Time) (Contract, error) {
	if !c.status.Equal(valueobject.ContractStatusActive) && !c.status.Equal(valueobject.ContractStatusDefaulted) {
		return c, errs.NewValidation("status", "payments are only accepted on active or defaulted contracts")
	}
	if app.Amount.LessThanOrEqual(decimal.Zero) {
		return c, errs.NewValidation("amount", "must be positive")
	}
	if app.AdvanceRepayment.IsNegative() || app.AdvanceRepayment.GreaterThan(app.Amount) {
		return c, errs.NewValidation("advanceRepayment", "must be between zero and the payment amount")
	}

	idx, ok := c.installmentIndex(app.MonthIndex)
	if !ok {
		lazy, created := c.lazyInstallment(app.MonthIndex)
		if !created {
			return c, errs.NewNotFound("installment", installmentRef(c.id, app.MonthIndex))
		}
		c.installments = append(copyInstallments(c.installments), lazy)
		idx = len(c.installments) - 1
	}

	credited := app.Amount.Sub(app.AdvanceRepayment)
	ev := PaymentEvent{
		ID:               uuid.New().String(),
		PaidAt:           app.PaidAt,
		Mode:             app.Mode,
		Amount:           app.Amount,
		CreditedAmount:   credited,
		AdvanceRepayment: app.AdvanceRepayment,
		AdvanceID:        app.AdvanceID,
		Penalty:          app.Penalty,
		Bonus:            app.Bonus,
		DaysLate:         app.DaysLate,
		QualityScore:     app.QualityScore,
		Remark:           app.Remark,
		Tolerance:        app.Tolerance,
	}

	next := c
	next.installments = copyInstallments(c.installments)
	next.installments[idx] = next.installments[idx].credit(ev)
	next.updatedAt = now
	next.domainEvents = copyEvents(c.domainEvents)

	inst := next.installments[idx]
	next.domainEvents = append(next.domainEvents, event.NewInstallmentPaid(
		c.id, inst.MonthIndex, app.Amount, inst.AccumulatedAmount, string(inst.Status(now)),
	))
	if next.AllPaid() {
		next.domainEvents = append(next.domainEvents, event.NewContractFullyPaid(c.id, next.TotalAccumulated()))
	}
	return next, nil
}

// MarkDefaulted transitions ACTIVE -> DEFAULTED. The penalty calculator
// reports when a payment falls beyond the 12-day window; the transition
// itself is owned here.
func (c Contract) MarkDefaulted(monthIndex, daysLate int, now time.Time) (Contract, error) {
	if !c.status.Equal(valueobject.ContractStatusActive) {
		return c, valueobject.ErrInvalidStatusTransition
	}
	next := c
	next.status = valueobject.ContractStatusDefaulted
	next.updatedAt = now
	next.domainEvents = copyEvents(c.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewContractDefaulted(c.id, monthIndex, daysLate))
	return next, nil
}

// Cancel transitions ACTIVE -> CANCELED. Fired exclusively by an early
// refund request; no payment is accepted afterwards.
func (c Contract) Cancel(now time.Time) (Contract, error) {
	if !c.status.Equal(valueobject.ContractStatusActive) {
		return c, valueobject.ErrInvalidStatusTransition
	}
	next := c
	next.status = valueobject.ContractStatusCanceled
	next.updatedAt = now
	next.domainEvents = copyEvents(c.domainEvents)
	return next, nil
}

// Finish transitions ACTIVE -> FINISHED. Fired exclusively by a final
// refund request.
func (c Contract) Finish(now time.Time) (Contract, error) {
	if !c.status.Equal(valueobject.ContractStatusActive) {
		return c, valueobject.ErrInvalidStatusTransition
	}
	next := c
	next.status = valueobject.ContractStatusFinished
	next.updatedAt = now
	next.domainEvents = copyEvents(c.domainEvents)
	return next, nil
}

// Reschedule replaces the unpaid tail of the schedule with a new version.
// Paid installments are carried into the new version untouched except for
// the version stamp; partially paid ones keep their accumulated amount and
// payment history under the new target and due date. Every live row carries
// the new schedule version, so persistence writes a fresh set of rows and
// the prior version's rows survive in the store for audit.
func (c Contract) Reschedule(entries []ScheduleEntry, now time.Time) (Contract, error) {
	if !c.status.Equal(valueobject.ContractStatusActive) {
		return c, valueobject.ErrInvalidStatusTransition
	}
	if len(entries) == 0 {
		return c, errs.NewValidation("schedule", "must contain at least one entry")
	}

	newVersion := c.scheduleVersion + 1
	byIndex := make(map[int]Installment, len(c.installments))
	for _, inst := range c.installments {
		byIndex[inst.MonthIndex] = inst
	}

	installments := make([]Installment, 0, len(entries))
	for _, e := range entries {
		if old, ok := byIndex[e.MonthIndex]; ok && old.IsPaid() {
			old.ScheduleVersion = newVersion
			installments = append(installments, old)
			continue
		}
		inst := Installment{
			MonthIndex:        e.MonthIndex,
			DueDate:           e.DueDate,
			TargetAmount:      e.Payment,
			AccumulatedAmount: decimal.Zero,
			ScheduleVersion:   newVersion,
		}
		if old, ok := byIndex[e.MonthIndex]; ok {
			inst.AccumulatedAmount = old.AccumulatedAmount
			inst.Payments = old.Payments
		}
		installments = append(installments, inst)
	}

	next := c
	next.installments = installments
	next.scheduleVersion = newVersion
	next.updatedAt = now
	next.domainEvents = copyEvents(c.domainEvents)
	return next, nil
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Installment returns the installment at the given month index.
func (c Contract) Installment(monthIndex int) (Installment, bool) {
	idx, ok := c.installmentIndex(monthIndex)
	if !ok {
		return Installment{}, false
	}
	return c.installments[idx], true
}

// DueDateFor returns the due date of the given period, whether or not the
// installment has materialized yet.
func (c Contract) DueDateFor(monthIndex int) time.Time {
	if inst, ok := c.Installment(monthIndex); ok {
		return inst.DueDate
	}
	return dueDateAt(c.firstDueDate, c.cadence, monthIndex)
}

// PaidCount returns the number of fully paid installments.
func (c Contract) PaidCount() int {
	n := 0
	for _, inst := range c.installments {
		if inst.IsPaid() {
			n++
		}
	}
	return n
}

// AllPaid reports whether every installment has reached its target.
func (c Contract) AllPaid() bool {
	if len(c.installments) == 0 {
		return false
	}
	for _, inst := range c.installments {
		if !inst.IsPaid() {
			return false
		}
	}
	return true
}

// TotalAccumulated sums the accumulated amounts over all installments.
func (c Contract) TotalAccumulated() decimal.Decimal {
	total := decimal.Zero
	for _, inst := range c.installments {
		total = total.Add(inst.AccumulatedAmount)
	}
	return total
}

// LastPaidInstallments returns up to n most recently paid installments,
// ordered oldest first. This is the walk order the advance deduction
// bookkeeping uses.
func (c Contract) LastPaidInstallments(n int) []Installment {
	var paid []Installment
	for _, inst := range c.installments {
		if inst.IsPaid() {
			paid = append(paid, inst)
		}
	}
	if len(paid) > n {
		paid = paid[len(paid)-n:]
	}
	return paid
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (c Contract) ID() string                         { return c.id }
func (c Contract) MemberID() string                   { return c.memberID }
func (c Contract) Family() valueobject.ContractFamily { return c.family }
func (c Contract) Cadence() valueobject.Cadence       { return c.cadence }
func (c Contract) Principal() decimal.Decimal         { return c.principal }
func (c Contract) MonthlyRate() decimal.Decimal       { return c.monthlyRate }
func (c Contract) InstallmentAmount() decimal.Decimal { return c.installmentAmount }
func (c Contract) PlannedDuration() int               { return c.plannedDuration }
func (c Contract) FirstDueDate() time.Time            { return c.firstDueDate }
func (c Contract) Status() valueobject.ContractStatus { return c.status }
func (c Contract) ScheduleVersion() int               { return c.scheduleVersion }
func (c Contract) AdvanceMin() decimal.Decimal        { return c.advanceMin }
func (c Contract) AdvanceMax() decimal.Decimal        { return c.advanceMax }
func (c Contract) Version() int                       { return c.version }
func (c Contract) CreatedAt() time.Time               { return c.createdAt }
func (c Contract) UpdatedAt() time.Time               { return c.updatedAt }
func (c Contract) DomainEvents() []event.DomainEvent  { return c.domainEvents }

// Installments returns a defensive copy of the installment list.
func (c Contract) Installments() []Installment {
	return copyInstallments(c.installments)
}

// ClearEvents returns a copy with an empty event list.
func (c Contract) ClearEvents() Contract {
	next := c
	next.domainEvents = nil
	return next
}

// ---------------------------------------------------------------------------
// internal helpers
// ---------------------------------------------------------------------------

func (c Contract) installmentIndex(monthIndex int) (int, bool) {
	for i, inst := range c.installments {
		if inst.MonthIndex == monthIndex {
			return i, true
		}
	}
	return 0, false
}

// lazyInstallment creates an installment from the contract's declared terms
// when the schedule converged before the planned duration but a payment
// still targets a later period.
func (c Contract) lazyInstallment(monthIndex int) (Installment, bool) {
	if monthIndex < 0 || monthIndex >= c.plannedDuration {
		return Installment{}, false
	}
	if c.installmentAmount.LessThanOrEqual(decimal.Zero) {
		return Installment{}, false
	}
	return Installment{
		MonthIndex:        monthIndex,
		DueDate:           dueDateAt(c.firstDueDate, c.cadence, monthIndex),
		TargetAmount:      c.installmentAmount,
		AccumulatedAmount: decimal.Zero,
		ScheduleVersion:   c.scheduleVersion,
	}, true
}

func installmentRef(contractID string, monthIndex int) string {
	return fmt.Sprintf("%s#%d", contractID, monthIndex)
}

func copyInstallments(in []Installment) []Installment {
	if in == nil {
		return nil
	}
	out := make([]Installment, len(in))
	copy(out, in)
	return out
}

func copyEvents(in []event.DomainEvent) []event.DomainEvent {
	if in == nil {
		return nil
	}
	out := make([]event.DomainEvent, len(in))
	copy(out, in)
	return out
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/event"
)

// AdvanceStatus is the lifecycle state of a support advance.
type AdvanceStatus string

const (
	AdvanceStatusActive AdvanceStatus = "ACTIVE"
	AdvanceStatusRepaid AdvanceStatus = "REPAID"
)

// AdvanceMinimumPaidInstallments is the eligibility floor: a member must
// have this many fully paid installments before an advance can be granted.
const AdvanceMinimumPaidInstallments = 3

// AdvanceDeduction records which past installment an advance notionally
// drew from. Deductions are bookkeeping only: they never reduce the stored
// accumulated amount of the source installment.
type AdvanceDeduction struct {
	MonthIndex int
	Amount     decimal.Decimal
}

// DocumentRef is the stored reference to an uploaded proof document. The
// engine never interprets the file contents.
type DocumentRef struct {
	URL  string
	Path string
	Size int64
}

// ---------------------------------------------------------------------------
// SupportAdvance aggregate root
// ---------------------------------------------------------------------------

// SupportAdvance is an emergency cash advance against a contract. At most
// one ACTIVE advance exists per contract at any time, and it must be repaid
// in full before ordinary installment payments resume.
type SupportAdvance struct {
	id              string
	contractID      string
	amount          decimal.Decimal
	amountRepaid    decimal.Decimal
	amountRemaining decimal.Decimal
	deductions      []AdvanceDeduction
	proof           DocumentRef
	status          AdvanceStatus
	version         int
	createdAt       time.Time
	updatedAt       time.Time
	domainEvents    []event.DomainEvent
}

// NewSupportAdvance grants an advance against a contract. Eligibility
// (enough paid installments, no other active advance) and the amount bounds
// are checked against the contract's state; the deduction walk covers the
// oldest of the last three paid installments forward, greedily, until the
// advance amount is fully allocated or the three installments are
// exhausted.
func NewSupportAdvance(
	contract Contract,
	amount decimal.Decimal,
	proof DocumentRef,
	now time.Time,
) (SupportAdvance, error) {
	paid := contract.PaidCount()
	if paid < AdvanceMinimumPaidInstallments {
		return SupportAdvance{}, &errs.NotEligibleError{
			Reason:    "at least three paid installments are required",
			PaidCount: paid,
		}
	}
	if amount.LessThan(contract.AdvanceMin()) || amount.GreaterThan(contract.AdvanceMax()) {
		return SupportAdvance{}, &errs.OutOfBoundsError{
			Amount: amount,
			Min:    contract.AdvanceMin(),
			Max:    contract.AdvanceMax(),
		}
	}

	id := uuid.New().String()
	adv := SupportAdvance{
		id:              id,
		contractID:      contract.ID(),
		amount:          amount,
		amountRepaid:    decimal.Zero,
		amountRemaining: amount,
		deductions:      deductionWalk(contract, amount),
		proof:           proof,
		status:          AdvanceStatusActive,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}
	adv.domainEvents = append(adv.domainEvents, event.NewAdvanceRequested(
		id, contract.ID(), amount, proof.URL,
	))
	return adv, nil
}

// ReconstructSupportAdvance rebuilds a SupportAdvance from persistence.
func ReconstructSupportAdvance(
	id, contractID string,
	amount, amountRepaid, amountRemaining decimal.Decimal,
	deductions []AdvanceDeduction,
	proof DocumentRef,
	status AdvanceStatus,
	version int,
	createdAt, updatedAt time.Time,
) SupportAdvance {
	return SupportAdvance{
		id:              id,
		contractID:      contractID,
		amount:          amount,
		amountRepaid:    amountRepaid,
		amountRemaining: amountRemaining,
		deductions:      deductions,
		proof:           proof,
		status:          status,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// Settle intercepts an incoming payment while the advance is active. The
// advance must be cleared in one stroke: an amount below the remaining debt
// is rejected outright so the caller can prompt for the full clearing
// amount. On success the advance is REPAID and the residual is what the
// current installment actually receives, possibly zero.
func (a SupportAdvance) Settle(incoming decimal.Decimal, now time.Time) (SupportAdvance, decimal.Decimal, decimal.Decimal, error) {
	if a.status != AdvanceStatusActive {
		return a, decimal.Zero, decimal.Zero, errs.NewValidation("status", "advance is not active")
	}
	if incoming.LessThan(a.amountRemaining) {
		return a, decimal.Zero, decimal.Zero, &errs.AdvanceOutstandingError{
			AdvanceID: a.id,
			Remaining: a.amountRemaining,
			Offered:   incoming,
		}
	}

	repayment := a.amountRemaining
	residual := incoming.Sub(repayment)

	next := a
	next.amountRepaid = a.amountRepaid.Add(repayment)
	next.amountRemaining = decimal.Zero
	next.status = AdvanceStatusRepaid
	next.updatedAt = now
	next.domainEvents = copyEvents(a.domainEvents)
	next.domainEvents = append(next.domainEvents, event.NewAdvanceRepaid(
		a.id, a.contractID, repayment, residual,
	))
	return next, repayment, residual, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (a SupportAdvance) ID() string                        { return a.id }
func (a SupportAdvance) ContractID() string                { return a.contractID }
func (a SupportAdvance) Amount() decimal.Decimal           { return a.amount }
func (a SupportAdvance) AmountRepaid() decimal.Decimal     { return a.amountRepaid }
func (a SupportAdvance) AmountRemaining() decimal.Decimal  { return a.amountRemaining }
func (a SupportAdvance) Proof() DocumentRef                { return a.proof }
func (a SupportAdvance) Status() AdvanceStatus             { return a.status }
func (a SupportAdvance) Version() int                      { return a.version }
func (a SupportAdvance) CreatedAt() time.Time              { return a.createdAt }
func (a SupportAdvance) UpdatedAt() time.Time              { return a.updatedAt }
func (a SupportAdvance) DomainEvents() []event.DomainEvent { return a.domainEvents }

// Deductions returns a defensive copy of the deduction records.
func (a SupportAdvance) Deductions() []AdvanceDeduction {
	if a.deductions == nil {
		return nil
	}
	out := make([]AdvanceDeduction, len(a.deductions))
	copy(out, a.deductions)
	return out
}

// ClearEvents returns a copy with an empty event list.
func (a SupportAdvance) ClearEvents() SupportAdvance {
	next := a
	next.domainEvents = nil
	return next
}

// deductionWalk allocates the advance amount across the last three paid
// installments, oldest first.
func deductionWalk(contract Contract, amount decimal.Decimal) []AdvanceDeduction {
	var deductions []AdvanceDeduction
	remaining := amount
	for _, inst := range contract.LastPaidInstallments(AdvanceMinimumPaidInstallments) {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := inst.AccumulatedAmount
		if take.GreaterThan(remaining) {
			take = remaining
		}
		deductions = append(deductions, AdvanceDeduction{
			MonthIndex: inst.MonthIndex,
			Amount:     take,
		})
		remaining = remaining.Sub(take)
	}
	return deductions
}

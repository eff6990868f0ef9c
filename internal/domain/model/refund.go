package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/event"
	"github.com/tontina/caisse-engine/internal/domain/valueobject"
)

// RefundKind distinguishes an early withdrawal from a final one.
type RefundKind string

const (
	RefundKindEarly RefundKind = "EARLY"
	RefundKindFinal RefundKind = "FINAL"
)

// RefundStatus is the lifecycle state of a refund request. Transitions are
// one-directional; only ARCHIVED requests stop blocking new ones.
type RefundStatus string

const (
	RefundStatusPending  RefundStatus = "PENDING"
	RefundStatusApproved RefundStatus = "APPROVED"
	RefundStatusPaid     RefundStatus = "PAID"
	RefundStatusArchived RefundStatus = "ARCHIVED"
)

// RefundDeadlineDays is how long the back office has to settle a request.
const RefundDeadlineDays = 45

// RefundRequest is an early or final withdrawal that closes out a contract.
// The nominal amount is the sum of everything accumulated on the ledger;
// the bonus amount is always zero under current policy.
type RefundRequest struct {
	id            string
	contractID    string
	kind          RefundKind
	amountNominal decimal.Decimal
	amountBonus   decimal.Decimal
	proof         DocumentRef
	deadlineAt    time.Time
	status        RefundStatus
	version       int
	createdAt     time.Time
	updatedAt     time.Time
	domainEvents  []event.DomainEvent
}

// NewRefundRequest creates a refund request against an active contract. The
// caller is responsible for the duplicate check against the store; the
// ledger preconditions (contract active, enough paid installments) are
// enforced here.
func NewRefundRequest(contract Contract, kind RefundKind, proof DocumentRef, now time.Time) (RefundRequest, error) {
	if !contract.Status().Equal(valueobject.ContractStatusActive) {
		return RefundRequest{}, &errs.NotEligibleError{Reason: "contract is not active"}
	}
	switch kind {
	case RefundKindEarly:
		if contract.PaidCount() < 1 {
			return RefundRequest{}, &errs.NotEligibleError{
				Reason:    "at least one paid installment is required for an early refund",
				PaidCount: contract.PaidCount(),
			}
		}
	case RefundKindFinal:
		if !contract.AllPaid() {
			return RefundRequest{}, &errs.NotEligibleError{
				Reason:    "all installments must be paid for a final refund",
				PaidCount: contract.PaidCount(),
			}
		}
	default:
		return RefundRequest{}, errs.NewValidation("kind", "must be EARLY or FINAL")
	}

	id := uuid.New().String()
	nominal := contract.TotalAccumulated()
	bonus := decimal.Zero
	deadline := now.AddDate(0, 0, RefundDeadlineDays)

	req := RefundRequest{
		id:            id,
		contractID:    contract.ID(),
		kind:          kind,
		amountNominal: nominal,
		amountBonus:   bonus,
		proof:         proof,
		deadlineAt:    deadline,
		status:        RefundStatusPending,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}
	req.domainEvents = append(req.domainEvents, event.NewRefundRequested(
		id, contract.ID(), string(kind), nominal, bonus, deadline,
	))
	return req, nil
}

// ReconstructRefundRequest rebuilds a RefundRequest from persistence.
func ReconstructRefundRequest(
	id, contractID string,
	kind RefundKind,
	amountNominal, amountBonus decimal.Decimal,
	proof DocumentRef,
	deadlineAt time.Time,
	status RefundStatus,
	version int,
	createdAt, updatedAt time.Time,
) RefundRequest {
	return RefundRequest{
		id:            id,
		contractID:    contractID,
		kind:          kind,
		amountNominal: amountNominal,
		amountBonus:   amountBonus,
		proof:         proof,
		deadlineAt:    deadlineAt,
		status:        status,
		version:       version,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// Approve transitions PENDING -> APPROVED.
func (r RefundRequest) Approve(now time.Time) (RefundRequest, error) {
	if r.status != RefundStatusPending {
		return r, valueobject.ErrInvalidStatusTransition
	}
	next := r
	next.status = RefundStatusApproved
	next.updatedAt = now
	next.domainEvents = copyEvents(r.domainEvents)
	return next, nil
}

// MarkPaid transitions APPROVED -> PAID.
func (r RefundRequest) MarkPaid(now time.Time) (RefundRequest, error) {
	if r.status != RefundStatusApproved {
		return r, valueobject.ErrInvalidStatusTransition
	}
	next := r
	next.status = RefundStatusPaid
	next.updatedAt = now
	next.domainEvents = copyEvents(r.domainEvents)
	return next, nil
}

// Archive transitions PAID -> ARCHIVED, freeing the (contract, kind) slot.
func (r RefundRequest) Archive(now time.Time) (RefundRequest, error) {
	if r.status != RefundStatusPaid {
		return r, valueobject.ErrInvalidStatusTransition
	}
	next := r
	next.status = RefundStatusArchived
	next.updatedAt = now
	next.domainEvents = copyEvents(r.domainEvents)
	return next, nil
}

// Blocks reports whether this request still blocks a new request of the
// same kind on the contract.
func (r RefundRequest) Blocks() bool {
	return r.status != RefundStatusArchived
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (r RefundRequest) ID() string                        { return r.id }
func (r RefundRequest) ContractID() string                { return r.contractID }
func (r RefundRequest) Kind() RefundKind                  { return r.kind }
func (r RefundRequest) AmountNominal() decimal.Decimal    { return r.amountNominal }
func (r RefundRequest) AmountBonus() decimal.Decimal      { return r.amountBonus }
func (r RefundRequest) Proof() DocumentRef                { return r.proof }
func (r RefundRequest) DeadlineAt() time.Time             { return r.deadlineAt }
func (r RefundRequest) Status() RefundStatus              { return r.status }
func (r RefundRequest) Version() int                      { return r.version }
func (r RefundRequest) CreatedAt() time.Time              { return r.createdAt }
func (r RefundRequest) UpdatedAt() time.Time              { return r.updatedAt }
func (r RefundRequest) DomainEvents() []event.DomainEvent { return r.domainEvents }

// ClearEvents returns a copy with an empty event list.
func (r RefundRequest) ClearEvents() RefundRequest {
	next := r
	next.domainEvents = nil
	return next
}

package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DomainEvent is the interface all engine events implement. Events are
// emitted to the notification sink fire-and-forget; a delivery failure never
// rolls back the ledger mutation that produced the event.
type DomainEvent interface {
	EventID() string
	EventType() string
	AggregateID() string
	AggregateType() string
	OccurredAt() time.Time
}

// BaseEvent provides a default implementation of DomainEvent.
type BaseEvent struct {
	id            string
	eventType     string
	aggregateID   string
	aggregateType string
	occurredAt    time.Time
}

// NewBaseEvent creates a BaseEvent with a generated UUID and the current time.
func NewBaseEvent(eventType, aggregateID, aggregateType string) BaseEvent {
	return BaseEvent{
		id:            uuid.New().String(),
		eventType:     eventType,
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		occurredAt:    time.Now().UTC(),
	}
}

// EventID returns the unique identifier for this event.
func (e BaseEvent) EventID() string { return e.id }

// EventType returns the type name of this event.
func (e BaseEvent) EventType() string { return e.eventType }

// AggregateID returns the identifier of the aggregate that produced this event.
func (e BaseEvent) AggregateID() string { return e.aggregateID }

// AggregateType returns the type name of the aggregate that produced this event.
func (e BaseEvent) AggregateType() string { return e.aggregateType }

// OccurredAt returns the time at which this event occurred.
func (e BaseEvent) OccurredAt() time.Time { return e.occurredAt }

// ---------------------------------------------------------------------------
// Contract events
// ---------------------------------------------------------------------------

// ContractActivated is raised when a contract's schedule is created and the
// contract goes ACTIVE.
type ContractActivated struct {
	BaseEvent
	FirstDueDate    time.Time       `json:"first_due_date"`
	Family          string          `json:"family"`
	Principal       decimal.Decimal `json:"principal"`
	PlannedDuration int             `json:"planned_duration"`
}

func NewContractActivated(contractID, family string, principal decimal.Decimal, plannedDuration int, firstDueDate time.Time) ContractActivated {
	return ContractActivated{
		BaseEvent:       NewBaseEvent("caisse.contract.activated", contractID, "Contract"),
		Family:          family,
		Principal:       principal,
		PlannedDuration: plannedDuration,
		FirstDueDate:    firstDueDate,
	}
}

// InstallmentPaid is raised every time a payment credits an installment.
type InstallmentPaid struct {
	BaseEvent
	Amount      decimal.Decimal `json:"amount"`
	Accumulated decimal.Decimal `json:"accumulated"`
	Status      string          `json:"status"`
	MonthIndex  int             `json:"month_index"`
}

func NewInstallmentPaid(contractID string, monthIndex int, amount, accumulated decimal.Decimal, status string) InstallmentPaid {
	return InstallmentPaid{
		BaseEvent:   NewBaseEvent("caisse.installment.paid", contractID, "Contract"),
		MonthIndex:  monthIndex,
		Amount:      amount,
		Accumulated: accumulated,
		Status:      status,
	}
}

// ContractFullyPaid is raised when every installment of a contract has
// reached its target.
type ContractFullyPaid struct {
	BaseEvent
	TotalAccumulated decimal.Decimal `json:"total_accumulated"`
}

func NewContractFullyPaid(contractID string, total decimal.Decimal) ContractFullyPaid {
	return ContractFullyPaid{
		BaseEvent:        NewBaseEvent("caisse.contract.fully_paid", contractID, "Contract"),
		TotalAccumulated: total,
	}
}

// ContractDefaulted is raised when a payment arrives beyond the penalty
// window and the contract transitions to DEFAULTED.
type ContractDefaulted struct {
	BaseEvent
	MonthIndex int `json:"month_index"`
	DaysLate   int `json:"days_late"`
}

func NewContractDefaulted(contractID string, monthIndex, daysLate int) ContractDefaulted {
	return ContractDefaulted{
		BaseEvent:  NewBaseEvent("caisse.contract.defaulted", contractID, "Contract"),
		MonthIndex: monthIndex,
		DaysLate:   daysLate,
	}
}

// ---------------------------------------------------------------------------
// Support advance events
// ---------------------------------------------------------------------------

// AdvanceRequested is raised when an emergency advance is granted.
type AdvanceRequested struct {
	BaseEvent
	ContractID string          `json:"contract_id"`
	ProofURL   string          `json:"proof_url"`
	Amount     decimal.Decimal `json:"amount"`
}

func NewAdvanceRequested(advanceID, contractID string, amount decimal.Decimal, proofURL string) AdvanceRequested {
	return AdvanceRequested{
		BaseEvent:  NewBaseEvent("caisse.advance.requested", advanceID, "SupportAdvance"),
		ContractID: contractID,
		Amount:     amount,
		ProofURL:   proofURL,
	}
}

// AdvanceRepaid is raised when an incoming payment clears an advance in full.
type AdvanceRepaid struct {
	BaseEvent
	ContractID string          `json:"contract_id"`
	Amount     decimal.Decimal `json:"amount"`
	Residual   decimal.Decimal `json:"residual"`
}

func NewAdvanceRepaid(advanceID, contractID string, amount, residual decimal.Decimal) AdvanceRepaid {
	return AdvanceRepaid{
		BaseEvent:  NewBaseEvent("caisse.advance.repaid", advanceID, "SupportAdvance"),
		ContractID: contractID,
		Amount:     amount,
		Residual:   residual,
	}
}

// ---------------------------------------------------------------------------
// Refund events
// ---------------------------------------------------------------------------

// RefundRequested is raised when an early or final withdrawal closes a
// contract.
type RefundRequested struct {
	BaseEvent
	DeadlineAt    time.Time       `json:"deadline_at"`
	ContractID    string          `json:"contract_id"`
	Kind          string          `json:"kind"`
	AmountNominal decimal.Decimal `json:"amount_nominal"`
	AmountBonus   decimal.Decimal `json:"amount_bonus"`
}

func NewRefundRequested(requestID, contractID, kind string, nominal, bonus decimal.Decimal, deadlineAt time.Time) RefundRequested {
	return RefundRequested{
		BaseEvent:     NewBaseEvent("caisse.refund.requested", requestID, "RefundRequest"),
		ContractID:    contractID,
		Kind:          kind,
		AmountNominal: nominal,
		AmountBonus:   bonus,
		DeadlineAt:    deadlineAt,
	}
}

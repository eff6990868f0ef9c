package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/service"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// SchedulePolicy selects how the activation schedule is computed.
type SchedulePolicy string

const (
	// PolicyFixedInstallment solves for duration from a declared installment.
	PolicyFixedInstallment SchedulePolicy = "FIXED_INSTALLMENT"
	// PolicyReference compounds a global amount over the planned duration
	// and splits it evenly.
	PolicyReference SchedulePolicy = "REFERENCE"
	// PolicyCustom takes caller-declared payments per period.
	PolicyCustom SchedulePolicy = "CUSTOM"
)

// CreateContractRequest carries the data needed to register a new contract.
type CreateContractRequest struct {
	MemberID          string          `json:"member_id"`
	Family            string          `json:"family"`
	Cadence           string          `json:"cadence"`
	Principal         decimal.Decimal `json:"principal"`
	MonthlyRate       decimal.Decimal `json:"monthly_rate"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	PlannedDuration   int             `json:"planned_duration"`
	FirstDueDate      time.Time       `json:"first_due_date"`
	AdvanceMin        decimal.Decimal `json:"advance_min"`
	AdvanceMax        decimal.Decimal `json:"advance_max"`
}

// ActivateContractRequest attaches a schedule to a pending contract.
type ActivateContractRequest struct {
	ContractID     string            `json:"contract_id"`
	Policy         SchedulePolicy    `json:"policy"`
	CustomPayments []decimal.Decimal `json:"custom_payments,omitempty"`
}

// ReviewContractRequest moves a pending contract through the back-office
// review loop.
type ReviewContractRequest struct {
	ContractID string `json:"contract_id"`
	Action     string `json:"action"`
}

// ApplyPaymentRequest carries one incoming payment. The penalty rules and
// bonus table are immutable per-family configuration supplied by the caller
// at invocation time.
type ApplyPaymentRequest struct {
	ContractID   string               `json:"contract_id"`
	MonthIndex   int                  `json:"month_index"`
	Amount       decimal.Decimal      `json:"amount"`
	PaidAt       time.Time            `json:"paid_at"`
	Mode         string               `json:"mode"`
	PenaltyRules service.PenaltyRules `json:"-"`
	BonusTable   service.BonusTable   `json:"-"`
}

// RequestAdvanceRequest asks for an emergency advance against a contract.
type RequestAdvanceRequest struct {
	ContractID    string          `json:"contract_id"`
	Amount        decimal.Decimal `json:"amount"`
	ProofFilename string          `json:"proof_filename"`
	ProofContent  []byte          `json:"-"`
}

// RequestRefundRequest asks for an early or final withdrawal.
type RequestRefundRequest struct {
	ContractID    string `json:"contract_id"`
	Kind          string `json:"kind"`
	ProofFilename string `json:"proof_filename"`
	ProofContent  []byte `json:"-"`
}

// RescheduleContractRequest replaces the unpaid tail of an active
// contract's schedule. InstallmentAmount overrides the contract's declared
// installment when positive.
type RescheduleContractRequest struct {
	ContractID        string            `json:"contract_id"`
	Policy            SchedulePolicy    `json:"policy"`
	InstallmentAmount decimal.Decimal   `json:"installment_amount"`
	CustomPayments    []decimal.Decimal `json:"custom_payments,omitempty"`
}

// ProgressRefundRequest applies a back-office settlement action to a refund
// request.
type ProgressRefundRequest struct {
	ContractID string `json:"contract_id"`
	RefundID   string `json:"refund_id"`
	Action     string `json:"action"`
}

// GetContractRequest identifies a contract to retrieve.
type GetContractRequest struct {
	ContractID string `json:"contract_id"`
}

// ListMemberContractsRequest identifies a member whose contracts to list.
type ListMemberContractsRequest struct {
	MemberID string `json:"member_id"`
}

// ListAdvancesRequest identifies a contract whose advances to list.
type ListAdvancesRequest struct {
	ContractID string `json:"contract_id"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// InstallmentResponse represents one due period of a contract.
type InstallmentResponse struct {
	MonthIndex        int             `json:"month_index"`
	DueDate           time.Time       `json:"due_date"`
	TargetAmount      decimal.Decimal `json:"target_amount"`
	AccumulatedAmount decimal.Decimal `json:"accumulated_amount"`
	Status            string          `json:"status"`
	ScheduleVersion   int             `json:"schedule_version"`
}

// ContractResponse is the external representation of a contract.
type ContractResponse struct {
	ID                string                `json:"id"`
	MemberID          string                `json:"member_id"`
	Family            string                `json:"family"`
	Cadence           string                `json:"cadence"`
	Principal         decimal.Decimal       `json:"principal"`
	MonthlyRate       decimal.Decimal       `json:"monthly_rate"`
	InstallmentAmount decimal.Decimal       `json:"installment_amount"`
	PlannedDuration   int                   `json:"planned_duration"`
	FirstDueDate      time.Time             `json:"first_due_date"`
	Status            string                `json:"status"`
	ScheduleVersion   int                   `json:"schedule_version"`
	TotalAccumulated  decimal.Decimal       `json:"total_accumulated"`
	Installments      []InstallmentResponse `json:"installments"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// ScheduleEntryResponse is one row of a computed schedule.
type ScheduleEntryResponse struct {
	MonthIndex       int             `json:"month_index"`
	DueDate          time.Time       `json:"due_date"`
	Payment          decimal.Decimal `json:"payment"`
	Interest         decimal.Decimal `json:"interest"`
	Principal        decimal.Decimal `json:"principal"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// ActivateContractResponse reports the activation outcome. When the declared
// installment cannot clear the balance within the family's duration cap the
// contract is left untouched, Converged is false, and SuggestedInstallment
// carries the amount that would.
type ActivateContractResponse struct {
	Converged            bool                    `json:"converged"`
	RemainingAtCap       decimal.Decimal         `json:"remaining_at_cap"`
	SuggestedInstallment decimal.Decimal         `json:"suggested_installment"`
	Schedule             []ScheduleEntryResponse `json:"schedule"`
	Contract             ContractResponse        `json:"contract"`
}

// RescheduleContractResponse reports the reschedule outcome with the same
// convergence contract as activation: a non-converging schedule leaves the
// contract untouched.
type RescheduleContractResponse struct {
	Converged            bool                    `json:"converged"`
	RemainingAtCap       decimal.Decimal         `json:"remaining_at_cap"`
	SuggestedInstallment decimal.Decimal         `json:"suggested_installment"`
	Schedule             []ScheduleEntryResponse `json:"schedule"`
	Contract             ContractResponse        `json:"contract"`
}

// PaymentResponse reports the outcome of a payment application.
type PaymentResponse struct {
	ContractID        string          `json:"contract_id"`
	MonthIndex        int             `json:"month_index"`
	Amount            decimal.Decimal `json:"amount"`
	CreditedAmount    decimal.Decimal `json:"credited_amount"`
	AdvanceRepayment  decimal.Decimal `json:"advance_repayment"`
	AccumulatedAmount decimal.Decimal `json:"accumulated_amount"`
	InstallmentStatus string          `json:"installment_status"`
	ContractStatus    string          `json:"contract_status"`
	Penalty           decimal.Decimal `json:"penalty"`
	Bonus             decimal.Decimal `json:"bonus"`
	DaysLate          int             `json:"days_late"`
	Tolerance         bool            `json:"tolerance"`
	QualityScore      int             `json:"quality_score"`
	Remark            string          `json:"remark"`
}

// DeductionResponse reports one advance-deduction bookkeeping line.
type DeductionResponse struct {
	MonthIndex int             `json:"month_index"`
	Amount     decimal.Decimal `json:"amount"`
}

// AdvanceResponse is the external representation of a support advance.
type AdvanceResponse struct {
	ID              string              `json:"id"`
	ContractID      string              `json:"contract_id"`
	Amount          decimal.Decimal     `json:"amount"`
	AmountRepaid    decimal.Decimal     `json:"amount_repaid"`
	AmountRemaining decimal.Decimal     `json:"amount_remaining"`
	Status          string              `json:"status"`
	Deductions      []DeductionResponse `json:"deductions"`
	ProofURL        string              `json:"proof_url"`
	CreatedAt       time.Time           `json:"created_at"`
}

// RefundResponse is the external representation of a refund request.
type RefundResponse struct {
	ID             string          `json:"id"`
	ContractID     string          `json:"contract_id"`
	Kind           string          `json:"kind"`
	AmountNominal  decimal.Decimal `json:"amount_nominal"`
	AmountBonus    decimal.Decimal `json:"amount_bonus"`
	DeadlineAt     time.Time       `json:"deadline_at"`
	Status         string          `json:"status"`
	ContractStatus string          `json:"contract_status"`
}

// Package errs defines the engine's error taxonomy. Business-rule
// rejections carry enough context for callers to explain the refusal to an
// end user; they are surfaced verbatim and never retried.
package errs

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports bad input: an amount out of range, a duration
// exceeding the family cap, a malformed parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a named field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound builds a NotFoundError.
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// NotEligibleError reports that a business precondition does not hold, e.g.
// an advance requested before three installments are paid.
type NotEligibleError struct {
	Reason    string
	PaidCount int
}

func (e *NotEligibleError) Error() string {
	return "not eligible: " + e.Reason
}

// OutOfBoundsError reports an amount outside contract-configured bounds.
type OutOfBoundsError struct {
	Amount decimal.Decimal
	Min    decimal.Decimal
	Max    decimal.Decimal
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("amount %s outside bounds [%s, %s]", e.Amount, e.Min, e.Max)
}

// AdvanceOutstandingError reports a payment rejected because an active
// support advance must be repaid in full first. Remaining is the amount the
// caller has to cover before any installment payment is accepted again.
type AdvanceOutstandingError struct {
	AdvanceID string
	Remaining decimal.Decimal
	Offered   decimal.Decimal
}

func (e *AdvanceOutstandingError) Error() string {
	return fmt.Sprintf("advance %s outstanding: %s remaining, %s offered", e.AdvanceID, e.Remaining, e.Offered)
}

// DuplicateRequestError reports that a non-archived request of the same kind
// already exists for the contract.
type DuplicateRequestError struct {
	ContractID string
	Kind       string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("a %s request already exists for contract %s", e.Kind, e.ContractID)
}

// PersistenceError wraps a store failure. It is only returned after the
// per-contract lock is released and guarantees the mutation did not
// partially apply.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

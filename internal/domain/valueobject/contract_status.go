package valueobject

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// ContractStatus – immutable value object
// ---------------------------------------------------------------------------

// ContractStatus represents the lifecycle stage of a contract. Transitions
// are one-directional once a contract is ACTIVE; only the PENDING /
// UNDER_REVIEW pair may cycle.
type ContractStatus struct {
	value string
}

const (
	contractStatusPending     = "PENDING"
	contractStatusUnderReview = "UNDER_REVIEW"
	contractStatusActive      = "ACTIVE"
	contractStatusDefaulted   = "DEFAULTED"
	contractStatusCanceled    = "CANCELED"
	contractStatusFinished    = "FINISHED"
)

var (
	ContractStatusPending     = ContractStatus{value: contractStatusPending}
	ContractStatusUnderReview = ContractStatus{value: contractStatusUnderReview}
	ContractStatusActive      = ContractStatus{value: contractStatusActive}
	ContractStatusDefaulted   = ContractStatus{value: contractStatusDefaulted}
	ContractStatusCanceled    = ContractStatus{value: contractStatusCanceled}
	ContractStatusFinished    = ContractStatus{value: contractStatusFinished}
)

var validContractStatuses = map[string]ContractStatus{
	contractStatusPending:     ContractStatusPending,
	contractStatusUnderReview: ContractStatusUnderReview,
	contractStatusActive:      ContractStatusActive,
	contractStatusDefaulted:   ContractStatusDefaulted,
	contractStatusCanceled:    ContractStatusCanceled,
	contractStatusFinished:    ContractStatusFinished,
}

// NewContractStatus creates a ContractStatus from a raw string.
func NewContractStatus(s string) (ContractStatus, error) {
	v, ok := validContractStatuses[s]
	if !ok {
		return ContractStatus{}, fmt.Errorf("invalid contract status: %q", s)
	}
	return v, nil
}

// String returns the string representation of the status.
func (s ContractStatus) String() string { return s.value }

// IsZero returns true if the status has not been initialised.
func (s ContractStatus) IsZero() bool { return s.value == "" }

// Equal returns true when both statuses carry the same value.
func (s ContractStatus) Equal(other ContractStatus) bool { return s.value == other.value }

// IsTerminal reports whether no further ledger mutation is accepted.
func (s ContractStatus) IsTerminal() bool {
	return s.value == contractStatusCanceled || s.value == contractStatusFinished
}

// ---------------------------------------------------------------------------
// ContractFamily – immutable value object
// ---------------------------------------------------------------------------

// ContractFamily identifies which of the three contract families a contract
// belongs to. The family decides the planned-duration cap and how the bonus
// base amount is computed.
type ContractFamily struct {
	value string
}

const (
	familyFixed            = "FIXED"
	familyFreeSchedule     = "FREE_SCHEDULE"
	familyEmergencySavings = "EMERGENCY_SAVINGS"
)

var (
	// ContractFamilyFixed is the fixed-duration credit family.
	ContractFamilyFixed = ContractFamily{value: familyFixed}
	// ContractFamilyFreeSchedule is the free-form savings family, capped at
	// seven periods.
	ContractFamilyFreeSchedule = ContractFamily{value: familyFreeSchedule}
	// ContractFamilyEmergencySavings is the emergency savings family, capped
	// at three periods.
	ContractFamilyEmergencySavings = ContractFamily{value: familyEmergencySavings}
)

var validContractFamilies = map[string]ContractFamily{
	familyFixed:            ContractFamilyFixed,
	familyFreeSchedule:     ContractFamilyFreeSchedule,
	familyEmergencySavings: ContractFamilyEmergencySavings,
}

// NewContractFamily creates a ContractFamily from a raw string.
func NewContractFamily(s string) (ContractFamily, error) {
	v, ok := validContractFamilies[s]
	if !ok {
		return ContractFamily{}, fmt.Errorf("invalid contract family: %q", s)
	}
	return v, nil
}

// String returns the string representation of the family.
func (f ContractFamily) String() string { return f.value }

// IsZero returns true if the family has not been initialised.
func (f ContractFamily) IsZero() bool { return f.value == "" }

// Equal returns true when both families carry the same value.
func (f ContractFamily) Equal(other ContractFamily) bool { return f.value == other.value }

// DurationCap returns the maximum planned duration for the family. The
// second return value is false when the family carries no cap.
func (f ContractFamily) DurationCap() (int, bool) {
	switch f.value {
	case familyFreeSchedule:
		return 7, true
	case familyEmergencySavings:
		return 3, true
	default:
		return 0, false
	}
}

// ---------------------------------------------------------------------------
// Cadence – immutable value object
// ---------------------------------------------------------------------------

// Cadence is the due-period step of a contract's schedule.
type Cadence struct {
	value string
}

const (
	cadenceMonthly = "MONTHLY"
	cadenceDaily   = "DAILY"
)

var (
	CadenceMonthly = Cadence{value: cadenceMonthly}
	CadenceDaily   = Cadence{value: cadenceDaily}
)

var validCadences = map[string]Cadence{
	cadenceMonthly: CadenceMonthly,
	cadenceDaily:   CadenceDaily,
}

// NewCadence creates a Cadence from a raw string.
func NewCadence(s string) (Cadence, error) {
	v, ok := validCadences[s]
	if !ok {
		return Cadence{}, fmt.Errorf("invalid cadence: %q", s)
	}
	return v, nil
}

// String returns the string representation of the cadence.
func (c Cadence) String() string { return c.value }

// IsZero returns true if the cadence has not been initialised.
func (c Cadence) IsZero() bool { return c.value == "" }

// Equal returns true when both cadences carry the same value.
func (c Cadence) Equal(other Cadence) bool { return c.value == other.value }

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

package usecase

import (
	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/model"
)

// computeSchedule resolves the requested policy into a schedule for the
// contract, with installment as the declared per-period amount.
func computeSchedule(
	contract model.Contract,
	policy dto.SchedulePolicy,
	installment decimal.Decimal,
	customPayments []decimal.Decimal,
) (model.ScheduleResult, error) {
	switch policy {
	case dto.PolicyFixedInstallment:
		return model.FixedInstallmentSchedule(
			contract.Principal(), contract.MonthlyRate(), installment,
			contract.Cadence(), contract.FirstDueDate(), contract.PlannedDuration(),
		)
	case dto.PolicyReference:
		return model.ReferenceSchedule(
			contract.Principal(), contract.MonthlyRate(),
			contract.Cadence(), contract.FirstDueDate(), contract.PlannedDuration(),
		)
	case dto.PolicyCustom:
		return model.CustomSchedule(
			contract.Principal(), contract.MonthlyRate(), customPayments,
			contract.Cadence(), contract.FirstDueDate(), contract.PlannedDuration(),
		)
	default:
		return model.ScheduleResult{}, errs.NewValidation("policy", "must be FIXED_INSTALLMENT, REFERENCE, or CUSTOM")
	}
}

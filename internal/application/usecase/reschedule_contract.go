package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/port"
)

// RescheduleContractUseCase replaces the unpaid tail of an active contract's
// schedule with a new version. Paid installments are carried over; rows from
// the superseded version stay in the store for audit.
type RescheduleContractUseCase struct {
	contractRepo port.ContractRepository
	locks        *ContractLocks
	logger       *slog.Logger
}

// NewRescheduleContractUseCase wires dependencies.
func NewRescheduleContractUseCase(
	contractRepo port.ContractRepository,
	locks *ContractLocks,
	logger *slog.Logger,
) *RescheduleContractUseCase {
	return &RescheduleContractUseCase{
		contractRepo: contractRepo,
		locks:        locks,
		logger:       logger,
	}
}

// Execute computes the replacement schedule and applies it. A schedule that
// fails to converge within the planned duration leaves the contract
// untouched and reports the shortfall instead.
func (uc *RescheduleContractUseCase) Execute(
	ctx context.Context,
	req dto.RescheduleContractRequest,
) (dto.RescheduleContractResponse, error) {
	now := time.Now().UTC()

	release := uc.locks.Lock(req.ContractID)
	defer release()

	contract, err := uc.contractRepo.FindByID(ctx, req.ContractID)
	if err != nil {
		return dto.RescheduleContractResponse{}, fmt.Errorf("find contract: %w", err)
	}

	installment := contract.InstallmentAmount()
	if req.InstallmentAmount.IsPositive() {
		installment = req.InstallmentAmount
	}
	result, err := computeSchedule(contract, req.Policy, installment, req.CustomPayments)
	if err != nil {
		return dto.RescheduleContractResponse{}, fmt.Errorf("compute schedule: %w", err)
	}

	if !result.Converged {
		return dto.RescheduleContractResponse{
			Converged:            false,
			RemainingAtCap:       result.RemainingAtCap,
			SuggestedInstallment: result.SuggestedInstallment,
			Schedule:             toScheduleResponses(result.Entries),
			Contract:             toContractResponse(contract, now),
		}, nil
	}

	contract, err = contract.Reschedule(result.Entries, now)
	if err != nil {
		return dto.RescheduleContractResponse{}, fmt.Errorf("reschedule contract: %w", err)
	}

	if err := uc.contractRepo.Save(ctx, contract); err != nil {
		return dto.RescheduleContractResponse{}, fmt.Errorf("save contract: %w", err)
	}

	uc.logger.Info("contract rescheduled",
		slog.String("contract_id", contract.ID()),
		slog.Int("schedule_version", contract.ScheduleVersion()),
	)

	return dto.RescheduleContractResponse{
		Converged: true,
		Schedule:  toScheduleResponses(result.Entries),
		Contract:  toContractResponse(contract, now),
	}, nil
}

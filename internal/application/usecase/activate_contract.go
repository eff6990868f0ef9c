package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/port"
)

// ActivateContractUseCase computes a schedule under the requested policy and
// attaches it to a pending contract.
type ActivateContractUseCase struct {
	contractRepo port.ContractRepository
	publisher    port.EventPublisher
	locks        *ContractLocks
	logger       *slog.Logger
}

// NewActivateContractUseCase wires dependencies.
func NewActivateContractUseCase(
	contractRepo port.ContractRepository,
	publisher port.EventPublisher,
	locks *ContractLocks,
	logger *slog.Logger,
) *ActivateContractUseCase {
	return &ActivateContractUseCase{
		contractRepo: contractRepo,
		publisher:    publisher,
		locks:        locks,
		logger:       logger,
	}
}

// Execute computes the schedule and activates the contract. A schedule that
// fails to converge within the planned duration leaves the contract
// untouched and reports the shortfall instead.
func (uc *ActivateContractUseCase) Execute(
	ctx context.Context,
	req dto.ActivateContractRequest,
) (dto.ActivateContractResponse, error) {
	now := time.Now().UTC()

	release := uc.locks.Lock(req.ContractID)
	defer release()

	contract, err := uc.contractRepo.FindByID(ctx, req.ContractID)
	if err != nil {
		return dto.ActivateContractResponse{}, fmt.Errorf("find contract: %w", err)
	}

	result, err := computeSchedule(contract, req.Policy, contract.InstallmentAmount(), req.CustomPayments)
	if err != nil {
		return dto.ActivateContractResponse{}, fmt.Errorf("compute schedule: %w", err)
	}

	if !result.Converged {
		return dto.ActivateContractResponse{
			Converged:            false,
			RemainingAtCap:       result.RemainingAtCap,
			SuggestedInstallment: result.SuggestedInstallment,
			Schedule:             toScheduleResponses(result.Entries),
			Contract:             toContractResponse(contract, now),
		}, nil
	}

	contract, err = contract.Activate(result.Entries, now)
	if err != nil {
		return dto.ActivateContractResponse{}, fmt.Errorf("activate contract: %w", err)
	}

	if err := uc.contractRepo.Save(ctx, contract); err != nil {
		return dto.ActivateContractResponse{}, fmt.Errorf("save contract: %w", err)
	}

	publishEvents(ctx, uc.logger, uc.publisher, contract.DomainEvents())

	return dto.ActivateContractResponse{
		Converged: true,
		Schedule:  toScheduleResponses(result.Entries),
		Contract:  toContractResponse(contract, now),
	}, nil
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/model"
	"github.com/tontina/caisse-engine/internal/domain/port"
	"github.com/tontina/caisse-engine/internal/domain/valueobject"
)

// CreateContractUseCase registers a new contract in PENDING status.
type CreateContractUseCase struct {
	contractRepo port.ContractRepository
	publisher    port.EventPublisher
	logger       *slog.Logger
}

// NewCreateContractUseCase wires dependencies.
func NewCreateContractUseCase(
	contractRepo port.ContractRepository,
	publisher port.EventPublisher,
	logger *slog.Logger,
) *CreateContractUseCase {
	return &CreateContractUseCase{
		contractRepo: contractRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// Execute validates and persists a new contract.
func (uc *CreateContractUseCase) Execute(
	ctx context.Context,
	req dto.CreateContractRequest,
) (dto.ContractResponse, error) {
	now := time.Now().UTC()

	family, err := valueobject.NewContractFamily(req.Family)
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("parse family: %w", err)
	}
	cadence, err := valueobject.NewCadence(req.Cadence)
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("parse cadence: %w", err)
	}

	contract, err := model.NewContract(
		req.MemberID, family, cadence,
		req.Principal, req.MonthlyRate, req.InstallmentAmount,
		req.PlannedDuration, req.FirstDueDate,
		req.AdvanceMin, req.AdvanceMax,
		now,
	)
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("create contract: %w", err)
	}

	if err := uc.contractRepo.Save(ctx, contract); err != nil {
		return dto.ContractResponse{}, fmt.Errorf("save contract: %w", err)
	}

	publishEvents(ctx, uc.logger, uc.publisher, contract.DomainEvents())

	return toContractResponse(contract, now), nil
}

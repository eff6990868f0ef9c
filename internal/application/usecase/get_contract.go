package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/port"
)

// GetContractUseCase retrieves a contract by ID.
type GetContractUseCase struct {
	contractRepo port.ContractRepository
}

// NewGetContractUseCase wires dependencies.
func NewGetContractUseCase(contractRepo port.ContractRepository) *GetContractUseCase {
	return &GetContractUseCase{contractRepo: contractRepo}
}

// Execute returns a contract response for the given ID.
func (uc *GetContractUseCase) Execute(
	ctx context.Context,
	req dto.GetContractRequest,
) (dto.ContractResponse, error) {
	contract, err := uc.contractRepo.FindByID(ctx, req.ContractID)
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("find contract: %w", err)
	}
	return toContractResponse(contract, time.Now().UTC()), nil
}

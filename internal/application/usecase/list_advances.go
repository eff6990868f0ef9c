package usecase

import (
	"context"
	"fmt"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/port"
)

// ListAdvancesUseCase lists every advance ever granted on a contract.
type ListAdvancesUseCase struct {
	advanceRepo port.SupportAdvanceRepository
}

// NewListAdvancesUseCase wires dependencies.
func NewListAdvancesUseCase(advanceRepo port.SupportAdvanceRepository) *ListAdvancesUseCase {
	return &ListAdvancesUseCase{advanceRepo: advanceRepo}
}

// Execute returns the contract's advances, newest first.
func (uc *ListAdvancesUseCase) Execute(
	ctx context.Context,
	req dto.ListAdvancesRequest,
) ([]dto.AdvanceResponse, error) {
	advances, err := uc.advanceRepo.FindByContractID(ctx, req.ContractID)
	if err != nil {
		return nil, fmt.Errorf("find advances: %w", err)
	}

	views := make([]dto.AdvanceResponse, 0, len(advances))
	for _, a := range advances {
		views = append(views, toAdvanceResponse(a))
	}
	return views, nil
}

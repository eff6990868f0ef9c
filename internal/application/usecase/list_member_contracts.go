package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/port"
)

// ListMemberContractsUseCase lists every contract a member holds.
type ListMemberContractsUseCase struct {
	contractRepo port.ContractRepository
}

// NewListMemberContractsUseCase wires dependencies.
func NewListMemberContractsUseCase(contractRepo port.ContractRepository) *ListMemberContractsUseCase {
	return &ListMemberContractsUseCase{contractRepo: contractRepo}
}

// Execute returns the member's contracts, newest first.
func (uc *ListMemberContractsUseCase) Execute(
	ctx context.Context,
	req dto.ListMemberContractsRequest,
) ([]dto.ContractResponse, error) {
	contracts, err := uc.contractRepo.FindByMemberID(ctx, req.MemberID)
	if err != nil {
		return nil, fmt.Errorf("find member contracts: %w", err)
	}

	now := time.Now().UTC()
	views := make([]dto.ContractResponse, 0, len(contracts))
	for _, c := range contracts {
		views = append(views, toContractResponse(c, now))
	}
	return views, nil
}

package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/model"
	"github.com/tontina/caisse-engine/internal/domain/port"
)

// Review loop actions.
const (
	ReviewActionStart    = "START_REVIEW"
	ReviewActionSendBack = "SEND_BACK"
)

// ReviewContractUseCase moves a contract between PENDING and UNDER_REVIEW.
type ReviewContractUseCase struct {
	contractRepo port.ContractRepository
	locks        *ContractLocks
	logger       *slog.Logger
}

// NewReviewContractUseCase wires dependencies.
func NewReviewContractUseCase(
	contractRepo port.ContractRepository,
	locks *ContractLocks,
	logger *slog.Logger,
) *ReviewContractUseCase {
	return &ReviewContractUseCase{
		contractRepo: contractRepo,
		locks:        locks,
		logger:       logger,
	}
}

// Execute applies the requested review action.
func (uc *ReviewContractUseCase) Execute(
	ctx context.Context,
	req dto.ReviewContractRequest,
) (dto.ContractResponse, error) {
	now := time.Now().UTC()

	release := uc.locks.Lock(req.ContractID)
	defer release()

	contract, err := uc.contractRepo.FindByID(ctx, req.ContractID)
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("find contract: %w", err)
	}

	var next model.Contract
	switch req.Action {
	case ReviewActionStart:
		next, err = contract.StartReview(now)
	case ReviewActionSendBack:
		next, err = contract.SendBack(now)
	default:
		return dto.ContractResponse{}, errs.NewValidation("action", "must be START_REVIEW or SEND_BACK")
	}
	if err != nil {
		return dto.ContractResponse{}, fmt.Errorf("apply review action: %w", err)
	}

	if err := uc.contractRepo.Save(ctx, next); err != nil {
		return dto.ContractResponse{}, fmt.Errorf("save contract: %w", err)
	}

	return toContractResponse(next, now), nil
}

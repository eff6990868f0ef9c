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

// RequestAdvanceUseCase grants an emergency support advance against a
// contract's paid installments.
type RequestAdvanceUseCase struct {
	contractRepo port.ContractRepository
	advanceRepo  port.SupportAdvanceRepository
	documents    port.DocumentStorage
	publisher    port.EventPublisher
	locks        *ContractLocks
	logger       *slog.Logger
}

// NewRequestAdvanceUseCase wires dependencies.
func NewRequestAdvanceUseCase(
	contractRepo port.ContractRepository,
	advanceRepo port.SupportAdvanceRepository,
	documents port.DocumentStorage,
	publisher port.EventPublisher,
	locks *ContractLocks,
	logger *slog.Logger,
) *RequestAdvanceUseCase {
	return &RequestAdvanceUseCase{
		contractRepo: contractRepo,
		advanceRepo:  advanceRepo,
		documents:    documents,
		publisher:    publisher,
		locks:        locks,
		logger:       logger,
	}
}

// Execute checks eligibility, stores the proof document, and opens the
// advance. Only one advance may be outstanding per contract.
func (uc *RequestAdvanceUseCase) Execute(
	ctx context.Context,
	req dto.RequestAdvanceRequest,
) (dto.AdvanceResponse, error) {
	now := time.Now().UTC()

	release := uc.locks.Lock(req.ContractID)
	defer release()

	// 1. Retrieve the contract.
	contract, err := uc.contractRepo.FindByID(ctx, req.ContractID)
	if err != nil {
		return dto.AdvanceResponse{}, fmt.Errorf("find contract: %w", err)
	}

	// 2. Reject a second outstanding advance.
	_, found, err := uc.advanceRepo.FindActiveByContractID(ctx, req.ContractID)
	if err != nil {
		return dto.AdvanceResponse{}, fmt.Errorf("find active advance: %w", err)
	}
	if found {
		return dto.AdvanceResponse{}, &errs.DuplicateRequestError{
			ContractID: req.ContractID,
			Kind:       "advance",
		}
	}

	// 3. Store the proof document.
	proof, err := uc.documents.Upload(ctx, req.ProofFilename, req.ProofContent)
	if err != nil {
		return dto.AdvanceResponse{}, fmt.Errorf("upload proof: %w", err)
	}

	// 4. Open the advance.
	advance, err := model.NewSupportAdvance(contract, req.Amount, proof, now)
	if err != nil {
		return dto.AdvanceResponse{}, fmt.Errorf("open advance: %w", err)
	}

	// 5. Persist.
	if err := uc.advanceRepo.Save(ctx, advance); err != nil {
		return dto.AdvanceResponse{}, fmt.Errorf("save advance: %w", err)
	}

	// 6. Publish notifications, best effort.
	publishEvents(ctx, uc.logger, uc.publisher, advance.DomainEvents())

	return toAdvanceResponse(advance), nil
}

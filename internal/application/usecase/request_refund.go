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

// RequestRefundUseCase opens an early or final refund request and closes the
// contract accordingly: an early refund cancels it, a final refund finishes
// it.
type RequestRefundUseCase struct {
	contractRepo port.ContractRepository
	refundRepo   port.RefundRequestRepository
	uow          port.UnitOfWork
	documents    port.DocumentStorage
	publisher    port.EventPublisher
	locks        *ContractLocks
	logger       *slog.Logger
}

// NewRequestRefundUseCase wires dependencies.
func NewRequestRefundUseCase(
	contractRepo port.ContractRepository,
	refundRepo port.RefundRequestRepository,
	uow port.UnitOfWork,
	documents port.DocumentStorage,
	publisher port.EventPublisher,
	locks *ContractLocks,
	logger *slog.Logger,
) *RequestRefundUseCase {
	return &RequestRefundUseCase{
		contractRepo: contractRepo,
		refundRepo:   refundRepo,
		uow:          uow,
		documents:    documents,
		publisher:    publisher,
		locks:        locks,
		logger:       logger,
	}
}

// Execute opens the refund request.
func (uc *RequestRefundUseCase) Execute(
	ctx context.Context,
	req dto.RequestRefundRequest,
) (dto.RefundResponse, error) {
	now := time.Now().UTC()

	release := uc.locks.Lock(req.ContractID)
	defer release()

	// 1. Retrieve the contract.
	contract, err := uc.contractRepo.FindByID(ctx, req.ContractID)
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("find contract: %w", err)
	}

	// 2. An unarchived request of the same kind blocks a new one. A
	// request of the other kind is not a duplicate; it fails on its own
	// eligibility check against the closed contract.
	kind := model.RefundKind(req.Kind)
	existing, err := uc.refundRepo.FindByContractID(ctx, req.ContractID)
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("find refund requests: %w", err)
	}
	for _, r := range existing {
		if r.Kind() == kind && r.Blocks() {
			return dto.RefundResponse{}, &errs.DuplicateRequestError{
				ContractID: req.ContractID,
				Kind:       "refund",
			}
		}
	}

	// 3. Store the proof document.
	proof, err := uc.documents.Upload(ctx, req.ProofFilename, req.ProofContent)
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("upload proof: %w", err)
	}

	// 4. Open the request against the contract's current ledger.
	refund, err := model.NewRefundRequest(contract, kind, proof, now)
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("open refund request: %w", err)
	}

	// 5. Close the contract.
	switch refund.Kind() {
	case model.RefundKindEarly:
		contract, err = contract.Cancel(now)
	case model.RefundKindFinal:
		contract, err = contract.Finish(now)
	}
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("close contract: %w", err)
	}

	// 6. Persist both aggregates as one unit: a stored request on a
	// still-active contract would block the retry forever.
	err = uc.uow.Execute(ctx, func(tx port.LedgerTx) error {
		if err := tx.SaveRefundRequest(ctx, refund); err != nil {
			return fmt.Errorf("save refund request: %w", err)
		}
		if err := tx.SaveContract(ctx, contract); err != nil {
			return fmt.Errorf("save contract: %w", err)
		}
		return nil
	})
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("persist refund: %w", err)
	}

	// 7. Publish notifications, best effort.
	events := append(refund.DomainEvents(), contract.DomainEvents()...)
	publishEvents(ctx, uc.logger, uc.publisher, events)

	return toRefundResponse(refund, contract.Status().String()), nil
}

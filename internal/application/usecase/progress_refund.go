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

// Back-office settlement actions on a refund request.
const (
	RefundActionApprove = "APPROVE"
	RefundActionPay     = "PAY"
	RefundActionArchive = "ARCHIVE"
)

// ProgressRefundUseCase walks a refund request through the back-office
// settlement trail: PENDING, APPROVED, PAID, then ARCHIVED, at which point
// the request stops blocking new ones of its kind.
type ProgressRefundUseCase struct {
	contractRepo port.ContractRepository
	refundRepo   port.RefundRequestRepository
	locks        *ContractLocks
	logger       *slog.Logger
}

// NewProgressRefundUseCase wires dependencies.
func NewProgressRefundUseCase(
	contractRepo port.ContractRepository,
	refundRepo port.RefundRequestRepository,
	locks *ContractLocks,
	logger *slog.Logger,
) *ProgressRefundUseCase {
	return &ProgressRefundUseCase{
		contractRepo: contractRepo,
		refundRepo:   refundRepo,
		locks:        locks,
		logger:       logger,
	}
}

// Execute applies the requested settlement action.
func (uc *ProgressRefundUseCase) Execute(
	ctx context.Context,
	req dto.ProgressRefundRequest,
) (dto.RefundResponse, error) {
	now := time.Now().UTC()

	release := uc.locks.Lock(req.ContractID)
	defer release()

	contract, err := uc.contractRepo.FindByID(ctx, req.ContractID)
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("find contract: %w", err)
	}

	requests, err := uc.refundRepo.FindByContractID(ctx, req.ContractID)
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("find refund requests: %w", err)
	}
	var refund model.RefundRequest
	found := false
	for _, r := range requests {
		if r.ID() == req.RefundID {
			refund = r
			found = true
			break
		}
	}
	if !found {
		return dto.RefundResponse{}, errs.NewNotFound("refund request", req.RefundID)
	}

	switch req.Action {
	case RefundActionApprove:
		refund, err = refund.Approve(now)
	case RefundActionPay:
		refund, err = refund.MarkPaid(now)
	case RefundActionArchive:
		refund, err = refund.Archive(now)
	default:
		return dto.RefundResponse{}, errs.NewValidation("action", "must be APPROVE, PAY, or ARCHIVE")
	}
	if err != nil {
		return dto.RefundResponse{}, fmt.Errorf("apply refund action: %w", err)
	}

	if err := uc.refundRepo.Save(ctx, refund); err != nil {
		return dto.RefundResponse{}, fmt.Errorf("save refund request: %w", err)
	}

	uc.logger.Info("refund request progressed",
		slog.String("refund_id", refund.ID()),
		slog.String("status", string(refund.Status())),
	)

	return toRefundResponse(refund, contract.Status().String()), nil
}

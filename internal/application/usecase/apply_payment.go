package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/domain/model"
	"github.com/tontina/caisse-engine/internal/domain/port"
	"github.com/tontina/caisse-engine/internal/domain/service"
	"github.com/tontina/caisse-engine/internal/domain/valueobject"
)

// ApplyPaymentUseCase reconciles one incoming payment: settles any active
// support advance first, assesses delay penalties and month bonuses, and
// credits the remainder to the target installment.
type ApplyPaymentUseCase struct {
	contractRepo port.ContractRepository
	advanceRepo  port.SupportAdvanceRepository
	uow          port.UnitOfWork
	penaltyCalc  *service.PenaltyCalculator
	bonusCalc    *service.BonusCalculator
	publisher    port.EventPublisher
	locks        *ContractLocks
	logger       *slog.Logger
}

// NewApplyPaymentUseCase wires dependencies.
func NewApplyPaymentUseCase(
	contractRepo port.ContractRepository,
	advanceRepo port.SupportAdvanceRepository,
	uow port.UnitOfWork,
	penaltyCalc *service.PenaltyCalculator,
	bonusCalc *service.BonusCalculator,
	publisher port.EventPublisher,
	locks *ContractLocks,
	logger *slog.Logger,
) *ApplyPaymentUseCase {
	return &ApplyPaymentUseCase{
		contractRepo: contractRepo,
		advanceRepo:  advanceRepo,
		uow:          uow,
		penaltyCalc:  penaltyCalc,
		bonusCalc:    bonusCalc,
		publisher:    publisher,
		locks:        locks,
		logger:       logger,
	}
}

// Execute applies a payment to a contract installment.
func (uc *ApplyPaymentUseCase) Execute(
	ctx context.Context,
	req dto.ApplyPaymentRequest,
) (dto.PaymentResponse, error) {
	now := time.Now().UTC()

	release := uc.locks.Lock(req.ContractID)
	defer release()

	// 1. Retrieve the contract.
	contract, err := uc.contractRepo.FindByID(ctx, req.ContractID)
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("find contract: %w", err)
	}

	// 2. An active advance intercepts the payment: it must be repaid in
	// full before anything reaches the installment.
	advanceRepayment := decimal.Zero
	advanceID := ""
	var settledAdvance model.SupportAdvance
	advanceSettled := false

	advance, found, err := uc.advanceRepo.FindActiveByContractID(ctx, req.ContractID)
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("find active advance: %w", err)
	}
	if found {
		settled, repayment, _, err := advance.Settle(req.Amount, now)
		if err != nil {
			return dto.PaymentResponse{}, fmt.Errorf("settle advance: %w", err)
		}
		settledAdvance = settled
		advanceRepayment = repayment
		advanceID = advance.ID()
		advanceSettled = true
	}

	// 3. Assess the delay.
	dueDate := contract.DueDateFor(req.MonthIndex)
	assessment := uc.penaltyCalc.Assess(contract.InstallmentAmount(), dueDate, req.PaidAt, req.PenaltyRules)

	// 4. A delay beyond the penalty window defaults the contract; the
	// payment is still taken afterwards.
	if assessment.BeyondPenaltyWindow && contract.Status().Equal(valueobject.ContractStatusActive) {
		contract, err = contract.MarkDefaulted(req.MonthIndex, assessment.DaysLate, now)
		if err != nil {
			return dto.PaymentResponse{}, fmt.Errorf("mark defaulted: %w", err)
		}
	}

	// 5. Compute the month bonus on the balance including this payment.
	credited := req.Amount.Sub(advanceRepayment)
	bonus := uc.bonusCalc.Compute(
		req.MonthIndex, contract.PlannedDuration(), req.BonusTable,
		contract.Family(), contract.TotalAccumulated().Add(credited),
		contract.InstallmentAmount(),
	)

	// 6. Apply the payment to the aggregate.
	contract, err = contract.ApplyPayment(model.PaymentApplication{
		MonthIndex:       req.MonthIndex,
		PaidAt:           req.PaidAt,
		Mode:             req.Mode,
		Amount:           req.Amount,
		AdvanceRepayment: advanceRepayment,
		AdvanceID:        advanceID,
		Penalty:          assessment.Applied,
		Bonus:            bonus.Amount,
		DaysLate:         assessment.DaysLate,
		QualityScore:     assessment.QualityScore,
		Remark:           assessment.Remark,
		Tolerance:        assessment.Tolerance,
	}, now)
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("apply payment: %w", err)
	}

	// 7. Persist the contract and the settled advance as one unit: a
	// partially applied payment would let the advance intercept the next
	// payment a second time.
	err = uc.uow.Execute(ctx, func(tx port.LedgerTx) error {
		if err := tx.SaveContract(ctx, contract); err != nil {
			return fmt.Errorf("save contract: %w", err)
		}
		if advanceSettled {
			if err := tx.SaveAdvance(ctx, settledAdvance); err != nil {
				return fmt.Errorf("save advance: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return dto.PaymentResponse{}, fmt.Errorf("persist payment: %w", err)
	}

	// 8. Publish notifications, best effort.
	events := contract.DomainEvents()
	if advanceSettled {
		events = append(events, settledAdvance.DomainEvents()...)
	}
	publishEvents(ctx, uc.logger, uc.publisher, events)

	inst, _ := contract.Installment(req.MonthIndex)
	return dto.PaymentResponse{
		ContractID:        contract.ID(),
		MonthIndex:        req.MonthIndex,
		Amount:            req.Amount,
		CreditedAmount:    credited,
		AdvanceRepayment:  advanceRepayment,
		AccumulatedAmount: inst.AccumulatedAmount,
		InstallmentStatus: string(inst.Status(now)),
		ContractStatus:    contract.Status().String(),
		Penalty:           assessment.Applied,
		Bonus:             bonus.Amount,
		DaysLate:          assessment.DaysLate,
		Tolerance:         assessment.Tolerance,
		QualityScore:      assessment.QualityScore,
		Remark:            assessment.Remark,
	}, nil
}

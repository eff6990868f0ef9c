package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/application/usecase"
	"github.com/tontina/caisse-engine/internal/domain/event"
	"github.com/tontina/caisse-engine/internal/domain/model"
	"github.com/tontina/caisse-engine/internal/domain/service"
)

func newApplyPaymentUseCase(
	contractRepo *mockContractRepository,
	advanceRepo *mockAdvanceRepository,
	publisher *mockEventPublisher,
) *usecase.ApplyPaymentUseCase {
	uow := newMockUnitOfWork(contractRepo, advanceRepo, &mockRefundRepository{})
	return usecase.NewApplyPaymentUseCase(
		contractRepo, advanceRepo, uow,
		service.NewPenaltyCalculator(), service.NewBonusCalculator(),
		publisher, usecase.NewContractLocks(), testLogger(),
	)
}

func paymentRequest(contract model.Contract, monthIndex int, amount int64, paidAt time.Time) dto.ApplyPaymentRequest {
	return dto.ApplyPaymentRequest{
		ContractID:   contract.ID(),
		MonthIndex:   monthIndex,
		Amount:       decimal.NewFromInt(amount),
		PaidAt:       paidAt,
		Mode:         "CASH",
		PenaltyRules: service.PenaltyRules{PerDayRate: decimal.NewFromFloat(0.005)},
		BonusTable:   service.BonusTable{},
	}
}

func TestApplyPayment_Execute(t *testing.T) {
	t.Run("credits an on-time payment in full", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		advanceRepo := &mockAdvanceRepository{}
		publisher := &mockEventPublisher{}
		uc := newApplyPaymentUseCase(contractRepo, advanceRepo, publisher)

		req := paymentRequest(contract, 3, 100000, contract.DueDateFor(3))
		resp, err := uc.Execute(context.Background(), req)

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(100000).Equal(resp.CreditedAmount))
		assert.True(t, resp.AdvanceRepayment.IsZero())
		assert.True(t, resp.Penalty.IsZero())
		assert.Equal(t, 0, resp.DaysLate)
		assert.Equal(t, 10, resp.QualityScore)
		assert.Equal(t, "on time", resp.Remark)
		assert.Equal(t, string(model.InstallmentStatusPaid), resp.InstallmentStatus)
		assert.Equal(t, "ACTIVE", resp.ContractStatus)

		require.Len(t, contractRepo.savedContracts, 1)
		assert.Empty(t, advanceRepo.savedAdvances)
		assert.NotEmpty(t, publisher.publishedEvents)
	})

	t.Run("applies the per-day penalty inside the window", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newApplyPaymentUseCase(contractRepo, &mockAdvanceRepository{}, &mockEventPublisher{})

		paidAt := contract.DueDateFor(3).AddDate(0, 0, 5)
		resp, err := uc.Execute(context.Background(), paymentRequest(contract, 3, 100000, paidAt))

		require.NoError(t, err)
		assert.Equal(t, 5, resp.DaysLate)
		// 100000 * 0.005 * 5
		assert.True(t, decimal.NewFromInt(2500).Equal(resp.Penalty))
		assert.False(t, resp.Tolerance)
		assert.Equal(t, 8, resp.QualityScore)
		assert.Equal(t, "ACTIVE", resp.ContractStatus)
	})

	t.Run("waives the penalty inside the tolerance window", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newApplyPaymentUseCase(contractRepo, &mockAdvanceRepository{}, &mockEventPublisher{})

		paidAt := contract.DueDateFor(3).AddDate(0, 0, 2)
		resp, err := uc.Execute(context.Background(), paymentRequest(contract, 3, 100000, paidAt))

		require.NoError(t, err)
		assert.Equal(t, 2, resp.DaysLate)
		assert.True(t, resp.Penalty.IsZero())
		assert.True(t, resp.Tolerance)
	})

	t.Run("defaults the contract beyond the penalty window", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newApplyPaymentUseCase(contractRepo, &mockAdvanceRepository{}, &mockEventPublisher{})

		paidAt := contract.DueDateFor(3).AddDate(0, 0, 20)
		resp, err := uc.Execute(context.Background(), paymentRequest(contract, 3, 100000, paidAt))

		require.NoError(t, err)
		assert.Equal(t, "DEFAULTED", resp.ContractStatus)
		assert.True(t, resp.Penalty.IsZero())
		assert.Equal(t, 4, resp.QualityScore)
		// The payment itself is still credited.
		assert.True(t, decimal.NewFromInt(100000).Equal(resp.AccumulatedAmount))
	})

	t.Run("settles an active advance before crediting the installment", func(t *testing.T) {
		contract := activeContract(3)
		now := time.Now().UTC()
		advance := model.ReconstructSupportAdvance(
			"advance-001", contract.ID(),
			decimal.NewFromInt(20000), decimal.Zero, decimal.NewFromInt(20000),
			nil, model.DocumentRef{}, model.AdvanceStatusActive,
			1, now, now,
		)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		advanceRepo := &mockAdvanceRepository{
			findActiveFunc: func(_ context.Context, _ string) (model.SupportAdvance, bool, error) {
				return advance, true, nil
			},
		}
		uc := newApplyPaymentUseCase(contractRepo, advanceRepo, &mockEventPublisher{})

		resp, err := uc.Execute(context.Background(), paymentRequest(contract, 3, 120000, contract.DueDateFor(3)))

		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(20000).Equal(resp.AdvanceRepayment))
		assert.True(t, decimal.NewFromInt(100000).Equal(resp.CreditedAmount))
		assert.Equal(t, string(model.InstallmentStatusPaid), resp.InstallmentStatus)

		require.Len(t, advanceRepo.savedAdvances, 1)
		assert.Equal(t, model.AdvanceStatusRepaid, advanceRepo.savedAdvances[0].Status())
	})

	t.Run("keeps the contract unsaved when the advance save fails", func(t *testing.T) {
		contract := activeContract(3)
		now := time.Now().UTC()
		advance := model.ReconstructSupportAdvance(
			"advance-001", contract.ID(),
			decimal.NewFromInt(20000), decimal.Zero, decimal.NewFromInt(20000),
			nil, model.DocumentRef{}, model.AdvanceStatusActive,
			1, now, now,
		)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		advanceRepo := &mockAdvanceRepository{
			findActiveFunc: func(_ context.Context, _ string) (model.SupportAdvance, bool, error) {
				return advance, true, nil
			},
			saveFunc: func(_ context.Context, _ model.SupportAdvance) error {
				return fmt.Errorf("connection reset")
			},
		}
		uc := newApplyPaymentUseCase(contractRepo, advanceRepo, &mockEventPublisher{})

		_, err := uc.Execute(context.Background(), paymentRequest(contract, 3, 120000, contract.DueDateFor(3)))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "save advance")
		// The credited installment and the recorded repayment must not
		// outlive the failed advance save: a still-active stored advance
		// would intercept the retry and charge the repayment twice.
		assert.Empty(t, contractRepo.savedContracts)
		assert.Empty(t, advanceRepo.savedAdvances)
	})

	t.Run("rejects a payment below the outstanding advance", func(t *testing.T) {
		contract := activeContract(3)
		now := time.Now().UTC()
		advance := model.ReconstructSupportAdvance(
			"advance-001", contract.ID(),
			decimal.NewFromInt(20000), decimal.Zero, decimal.NewFromInt(20000),
			nil, model.DocumentRef{}, model.AdvanceStatusActive,
			1, now, now,
		)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		advanceRepo := &mockAdvanceRepository{
			findActiveFunc: func(_ context.Context, _ string) (model.SupportAdvance, bool, error) {
				return advance, true, nil
			},
		}
		uc := newApplyPaymentUseCase(contractRepo, advanceRepo, &mockEventPublisher{})

		_, err := uc.Execute(context.Background(), paymentRequest(contract, 3, 10000, contract.DueDateFor(3)))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "settle advance")
		assert.Empty(t, contractRepo.savedContracts)
	})

	t.Run("computes the month bonus from the table", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newApplyPaymentUseCase(contractRepo, &mockAdvanceRepository{}, &mockEventPublisher{})

		req := paymentRequest(contract, 3, 100000, contract.DueDateFor(3))
		req.BonusTable = service.BonusTable{"M3": decimal.NewFromInt(2)}
		resp, err := uc.Execute(context.Background(), req)

		require.NoError(t, err)
		// 2% of four months at 100000.
		assert.True(t, decimal.NewFromInt(8000).Equal(resp.Bonus))
	})

	t.Run("fails when the contract is missing", func(t *testing.T) {
		contractRepo := &mockContractRepository{}
		uc := newApplyPaymentUseCase(contractRepo, &mockAdvanceRepository{}, &mockEventPublisher{})

		req := dto.ApplyPaymentRequest{
			ContractID: "missing", MonthIndex: 0,
			Amount: decimal.NewFromInt(100), PaidAt: time.Now().UTC(),
		}
		_, err := uc.Execute(context.Background(), req)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "find contract")
	})

	t.Run("succeeds even when event publishing fails", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		publisher := &mockEventPublisher{
			publishFunc: func(_ context.Context, _ ...event.DomainEvent) error {
				return fmt.Errorf("broker unavailable")
			},
		}
		uc := newApplyPaymentUseCase(contractRepo, &mockAdvanceRepository{}, publisher)

		resp, err := uc.Execute(context.Background(), paymentRequest(contract, 3, 100000, contract.DueDateFor(3)))

		require.NoError(t, err)
		assert.Equal(t, string(model.InstallmentStatusPaid), resp.InstallmentStatus)
		require.Len(t, contractRepo.savedContracts, 1)
	})
}

package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/application/usecase"
	"github.com/tontina/caisse-engine/internal/domain/model"
)

func newActivateUseCase(contractRepo *mockContractRepository) *usecase.ActivateContractUseCase {
	return usecase.NewActivateContractUseCase(
		contractRepo, &mockEventPublisher{}, usecase.NewContractLocks(), testLogger(),
	)
}

func TestActivateContract_Execute(t *testing.T) {
	t.Run("activates with a converging fixed installment", func(t *testing.T) {
		contract := pendingContract()
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newActivateUseCase(contractRepo)

		resp, err := uc.Execute(context.Background(), dto.ActivateContractRequest{
			ContractID: contract.ID(),
			Policy:     dto.PolicyFixedInstallment,
		})

		require.NoError(t, err)
		assert.True(t, resp.Converged)
		// 500000 at 5% with a 100000 installment clears in six periods.
		assert.Len(t, resp.Schedule, 6)
		assert.True(t, resp.Schedule[len(resp.Schedule)-1].RemainingBalance.IsZero())
		assert.Equal(t, "ACTIVE", resp.Contract.Status)
		assert.Equal(t, 1, resp.Contract.ScheduleVersion)
		assert.Len(t, resp.Contract.Installments, 6)
		require.Len(t, contractRepo.savedContracts, 1)
	})

	t.Run("reports the shortfall when the installment cannot converge", func(t *testing.T) {
		now := pendingContract()
		contract := model.ReconstructContract(
			now.ID(), now.MemberID(), now.Family(), now.Cadence(),
			now.Principal(), now.MonthlyRate(), decimal.NewFromInt(80000),
			now.PlannedDuration(), now.FirstDueDate(), now.Status(),
			nil, 0, now.AdvanceMin(), now.AdvanceMax(), 1, now.CreatedAt(), now.UpdatedAt(),
		)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newActivateUseCase(contractRepo)

		resp, err := uc.Execute(context.Background(), dto.ActivateContractRequest{
			ContractID: contract.ID(),
			Policy:     dto.PolicyFixedInstallment,
		})

		require.NoError(t, err)
		assert.False(t, resp.Converged)
		assert.True(t, resp.RemainingAtCap.GreaterThan(decimal.Zero))
		assert.True(t, decimal.NewFromInt(100507).Equal(resp.SuggestedInstallment))
		assert.Equal(t, "PENDING", resp.Contract.Status)
		assert.Empty(t, contractRepo.savedContracts)
	})

	t.Run("activates with the reference schedule", func(t *testing.T) {
		contract := pendingContract()
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newActivateUseCase(contractRepo)

		resp, err := uc.Execute(context.Background(), dto.ActivateContractRequest{
			ContractID: contract.ID(),
			Policy:     dto.PolicyReference,
		})

		require.NoError(t, err)
		assert.True(t, resp.Converged)
		require.Len(t, resp.Schedule, 7)
		assert.True(t, decimal.NewFromInt(100507).Equal(resp.Schedule[0].Payment))
		assert.True(t, resp.Schedule[6].RemainingBalance.IsZero())
		assert.Equal(t, "ACTIVE", resp.Contract.Status)
	})

	t.Run("activates with custom payments", func(t *testing.T) {
		contract := pendingContract()
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newActivateUseCase(contractRepo)

		resp, err := uc.Execute(context.Background(), dto.ActivateContractRequest{
			ContractID:     contract.ID(),
			Policy:         dto.PolicyCustom,
			CustomPayments: []decimal.Decimal{decimal.NewFromInt(525000)},
		})

		require.NoError(t, err)
		assert.True(t, resp.Converged)
		assert.Len(t, resp.Schedule, 1)
		assert.Equal(t, "ACTIVE", resp.Contract.Status)
	})

	t.Run("rejects an unknown policy", func(t *testing.T) {
		contract := pendingContract()
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newActivateUseCase(contractRepo)

		_, err := uc.Execute(context.Background(), dto.ActivateContractRequest{
			ContractID: contract.ID(),
			Policy:     "BALLOON",
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "compute schedule")
	})

	t.Run("fails when the contract is missing", func(t *testing.T) {
		uc := newActivateUseCase(&mockContractRepository{})

		_, err := uc.Execute(context.Background(), dto.ActivateContractRequest{
			ContractID: "missing",
			Policy:     dto.PolicyReference,
		})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "find contract")
	})
}

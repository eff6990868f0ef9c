package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/application/usecase"
	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/model"
)

func newRequestAdvanceUseCase(
	contractRepo *mockContractRepository,
	advanceRepo *mockAdvanceRepository,
) *usecase.RequestAdvanceUseCase {
	return usecase.NewRequestAdvanceUseCase(
		contractRepo, advanceRepo, &mockDocumentStorage{},
		&mockEventPublisher{}, usecase.NewContractLocks(), testLogger(),
	)
}

func advanceRequest(contract model.Contract, amount int64) dto.RequestAdvanceRequest {
	return dto.RequestAdvanceRequest{
		ContractID:    contract.ID(),
		Amount:        decimal.NewFromInt(amount),
		ProofFilename: "attestation.pdf",
		ProofContent:  []byte("attestation"),
	}
}

func TestRequestAdvance_Execute(t *testing.T) {
	t.Run("opens an advance against three paid installments", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		advanceRepo := &mockAdvanceRepository{}
		uc := newRequestAdvanceUseCase(contractRepo, advanceRepo)

		resp, err := uc.Execute(context.Background(), advanceRequest(contract, 30000))

		require.NoError(t, err)
		assert.NotEmpty(t, resp.ID)
		assert.Equal(t, contract.ID(), resp.ContractID)
		assert.True(t, decimal.NewFromInt(30000).Equal(resp.Amount))
		assert.True(t, decimal.NewFromInt(30000).Equal(resp.AmountRemaining))
		assert.Equal(t, string(model.AdvanceStatusActive), resp.Status)
		assert.Contains(t, resp.ProofURL, "attestation.pdf")

		// The deduction walk starts from the oldest paid installment.
		require.NotEmpty(t, resp.Deductions)
		assert.Equal(t, 0, resp.Deductions[0].MonthIndex)
		require.Len(t, advanceRepo.savedAdvances, 1)
	})

	t.Run("rejects a contract with too few paid installments", func(t *testing.T) {
		contract := activeContract(2)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newRequestAdvanceUseCase(contractRepo, &mockAdvanceRepository{})

		_, err := uc.Execute(context.Background(), advanceRequest(contract, 30000))

		require.Error(t, err)
		var notEligible *errs.NotEligibleError
		assert.True(t, errors.As(err, &notEligible))
	})

	t.Run("rejects an amount outside the contract bounds", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newRequestAdvanceUseCase(contractRepo, &mockAdvanceRepository{})

		_, err := uc.Execute(context.Background(), advanceRequest(contract, 60000))

		require.Error(t, err)
		var outOfBounds *errs.OutOfBoundsError
		assert.True(t, errors.As(err, &outOfBounds))
	})

	t.Run("rejects a second outstanding advance", func(t *testing.T) {
		contract := activeContract(3)
		now := time.Now().UTC()
		existing := model.ReconstructSupportAdvance(
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
				return existing, true, nil
			},
		}
		uc := newRequestAdvanceUseCase(contractRepo, advanceRepo)

		_, err := uc.Execute(context.Background(), advanceRequest(contract, 30000))

		require.Error(t, err)
		var duplicate *errs.DuplicateRequestError
		assert.True(t, errors.As(err, &duplicate))
		assert.Empty(t, advanceRepo.savedAdvances)
	})

	t.Run("fails when the proof upload fails", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		documents := &mockDocumentStorage{
			uploadFunc: func(_ context.Context, _ string, _ []byte) (model.DocumentRef, error) {
				return model.DocumentRef{}, errors.New("storage unavailable")
			},
		}
		uc := usecase.NewRequestAdvanceUseCase(
			contractRepo, &mockAdvanceRepository{}, documents,
			&mockEventPublisher{}, usecase.NewContractLocks(), testLogger(),
		)

		_, err := uc.Execute(context.Background(), advanceRequest(contract, 30000))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "upload proof")
	})
}

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

func newRequestRefundUseCase(
	contractRepo *mockContractRepository,
	refundRepo *mockRefundRepository,
) *usecase.RequestRefundUseCase {
	uow := newMockUnitOfWork(contractRepo, &mockAdvanceRepository{}, refundRepo)
	return usecase.NewRequestRefundUseCase(
		contractRepo, refundRepo, uow, &mockDocumentStorage{},
		&mockEventPublisher{}, usecase.NewContractLocks(), testLogger(),
	)
}

func refundRequest(contract model.Contract, kind string) dto.RequestRefundRequest {
	return dto.RequestRefundRequest{
		ContractID:    contract.ID(),
		Kind:          kind,
		ProofFilename: "identity.pdf",
		ProofContent:  []byte("identity"),
	}
}

func TestRequestRefund_Execute(t *testing.T) {
	t.Run("early refund cancels the contract", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		refundRepo := &mockRefundRepository{}
		uc := newRequestRefundUseCase(contractRepo, refundRepo)

		resp, err := uc.Execute(context.Background(), refundRequest(contract, "EARLY"))

		require.NoError(t, err)
		assert.Equal(t, "EARLY", resp.Kind)
		assert.Equal(t, string(model.RefundStatusPending), resp.Status)
		assert.Equal(t, "CANCELED", resp.ContractStatus)
		// Nominal is what the member actually put in.
		assert.True(t, decimal.NewFromInt(300000).Equal(resp.AmountNominal))
		assert.True(t, resp.AmountBonus.IsZero())

		require.Len(t, refundRepo.savedRequests, 1)
		require.Len(t, contractRepo.savedContracts, 1)
	})

	t.Run("final refund finishes a fully paid contract", func(t *testing.T) {
		contract := activeContract(7)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		refundRepo := &mockRefundRepository{}
		uc := newRequestRefundUseCase(contractRepo, refundRepo)

		resp, err := uc.Execute(context.Background(), refundRequest(contract, "FINAL"))

		require.NoError(t, err)
		assert.Equal(t, "FINAL", resp.Kind)
		assert.Equal(t, "FINISHED", resp.ContractStatus)
		assert.True(t, decimal.NewFromInt(700000).Equal(resp.AmountNominal))
	})

	t.Run("rejects a final refund with unpaid installments", func(t *testing.T) {
		contract := activeContract(5)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newRequestRefundUseCase(contractRepo, &mockRefundRepository{})

		_, err := uc.Execute(context.Background(), refundRequest(contract, "FINAL"))

		require.Error(t, err)
		var notEligible *errs.NotEligibleError
		assert.True(t, errors.As(err, &notEligible))
	})

	t.Run("rejects a second unarchived refund request", func(t *testing.T) {
		contract := activeContract(3)
		now := time.Now().UTC()
		existing := model.ReconstructRefundRequest(
			"refund-001", contract.ID(), model.RefundKindEarly,
			decimal.NewFromInt(300000), decimal.Zero,
			model.DocumentRef{}, now.AddDate(0, 0, 45),
			model.RefundStatusPending, 1, now, now,
		)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		refundRepo := &mockRefundRepository{
			findByContractIDFunc: func(_ context.Context, _ string) ([]model.RefundRequest, error) {
				return []model.RefundRequest{existing}, nil
			},
		}
		uc := newRequestRefundUseCase(contractRepo, refundRepo)

		_, err := uc.Execute(context.Background(), refundRequest(contract, "EARLY"))

		require.Error(t, err)
		var duplicate *errs.DuplicateRequestError
		assert.True(t, errors.As(err, &duplicate))
	})

	t.Run("leaves no request behind when the contract save fails", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
			saveFunc: func(_ context.Context, _ model.Contract) error {
				return errors.New("connection reset")
			},
		}
		refundRepo := &mockRefundRepository{}
		uc := newRequestRefundUseCase(contractRepo, refundRepo)

		_, err := uc.Execute(context.Background(), refundRequest(contract, "EARLY"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "save contract")
		// A stored PENDING request on a still-active contract would block
		// the retry forever.
		assert.Empty(t, refundRepo.savedRequests)
	})

	t.Run("reports ineligibility, not duplication, across kinds", func(t *testing.T) {
		now := time.Now().UTC()
		canceled, err := activeContract(3).Cancel(now)
		require.NoError(t, err)
		pendingEarly := model.ReconstructRefundRequest(
			"refund-001", canceled.ID(), model.RefundKindEarly,
			decimal.NewFromInt(300000), decimal.Zero,
			model.DocumentRef{}, now.AddDate(0, 0, 45),
			model.RefundStatusPending, 1, now, now,
		)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return canceled, nil
			},
		}
		refundRepo := &mockRefundRepository{
			findByContractIDFunc: func(_ context.Context, _ string) ([]model.RefundRequest, error) {
				return []model.RefundRequest{pendingEarly}, nil
			},
		}
		uc := newRequestRefundUseCase(contractRepo, refundRepo)

		_, err = uc.Execute(context.Background(), refundRequest(canceled, "FINAL"))

		require.Error(t, err)
		var notEligible *errs.NotEligibleError
		assert.True(t, errors.As(err, &notEligible),
			"a FINAL request is not a duplicate of a pending EARLY one; it fails on the closed contract")
	})

	t.Run("allows a new request once the previous one is archived", func(t *testing.T) {
		contract := activeContract(3)
		now := time.Now().UTC()
		archived := model.ReconstructRefundRequest(
			"refund-001", contract.ID(), model.RefundKindEarly,
			decimal.NewFromInt(300000), decimal.Zero,
			model.DocumentRef{}, now.AddDate(0, 0, 45),
			model.RefundStatusArchived, 1, now, now,
		)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		refundRepo := &mockRefundRepository{
			findByContractIDFunc: func(_ context.Context, _ string) ([]model.RefundRequest, error) {
				return []model.RefundRequest{archived}, nil
			},
		}
		uc := newRequestRefundUseCase(contractRepo, refundRepo)

		resp, err := uc.Execute(context.Background(), refundRequest(contract, "EARLY"))

		require.NoError(t, err)
		assert.Equal(t, string(model.RefundStatusPending), resp.Status)
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		contract := activeContract(3)
		contractRepo := &mockContractRepository{
			findByIDFunc: func(_ context.Context, _ string) (model.Contract, error) {
				return contract, nil
			},
		}
		uc := newRequestRefundUseCase(contractRepo, &mockRefundRepository{})

		_, err := uc.Execute(context.Background(), refundRequest(contract, "PARTIAL"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "open refund request")
	})
}

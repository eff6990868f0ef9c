package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tontina/caisse-engine/internal/application/dto"
	"github.com/tontina/caisse-engine/internal/application/usecase"
	"github.com/tontina/caisse-engine/internal/domain/model"
)

func TestListMemberContracts_Execute(t *testing.T) {
	t.Run("maps every contract of the member", func(t *testing.T) {
		contractRepo := &mockContractRepository{
			findByMemberIDFunc: func(_ context.Context, memberID string) ([]model.Contract, error) {
				assert.Equal(t, "member-001", memberID)
				return []model.Contract{activeContract(3), pendingContract()}, nil
			},
		}
		uc := usecase.NewListMemberContractsUseCase(contractRepo)

		resp, err := uc.Execute(context.Background(), dto.ListMemberContractsRequest{MemberID: "member-001"})

		require.NoError(t, err)
		require.Len(t, resp, 2)
		assert.Equal(t, "ACTIVE", resp[0].Status)
		assert.Equal(t, "PENDING", resp[1].Status)
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		contractRepo := &mockContractRepository{
			findByMemberIDFunc: func(_ context.Context, _ string) ([]model.Contract, error) {
				return nil, errors.New("connection reset")
			},
		}
		uc := usecase.NewListMemberContractsUseCase(contractRepo)

		_, err := uc.Execute(context.Background(), dto.ListMemberContractsRequest{MemberID: "member-001"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "find member contracts")
	})
}

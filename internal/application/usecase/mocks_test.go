package usecase_test

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/event"
	"github.com/tontina/caisse-engine/internal/domain/model"
	"github.com/tontina/caisse-engine/internal/domain/port"
	"github.com/tontina/caisse-engine/internal/domain/valueobject"
)

// --- Mock implementations ---

type mockContractRepository struct {
	saveFunc           func(ctx context.Context, contract model.Contract) error
	findByIDFunc       func(ctx context.Context, id string) (model.Contract, error)
	findByMemberIDFunc func(ctx context.Context, memberID string) ([]model.Contract, error)
	savedContracts     []model.Contract
}

func (m *mockContractRepository) Save(ctx context.Context, contract model.Contract) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, contract)
	}
	m.savedContracts = append(m.savedContracts, contract)
	return nil
}

func (m *mockContractRepository) FindByID(ctx context.Context, id string) (model.Contract, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return model.Contract{}, fmt.Errorf("contract not found")
}

func (m *mockContractRepository) FindByMemberID(ctx context.Context, memberID string) ([]model.Contract, error) {
	if m.findByMemberIDFunc != nil {
		return m.findByMemberIDFunc(ctx, memberID)
	}
	return nil, nil
}

type mockAdvanceRepository struct {
	saveFunc             func(ctx context.Context, advance model.SupportAdvance) error
	findActiveFunc       func(ctx context.Context, contractID string) (model.SupportAdvance, bool, error)
	findByContractIDFunc func(ctx context.Context, contractID string) ([]model.SupportAdvance, error)
	savedAdvances        []model.SupportAdvance
}

func (m *mockAdvanceRepository) Save(ctx context.Context, advance model.SupportAdvance) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, advance)
	}
	m.savedAdvances = append(m.savedAdvances, advance)
	return nil
}

func (m *mockAdvanceRepository) FindActiveByContractID(ctx context.Context, contractID string) (model.SupportAdvance, bool, error) {
	if m.findActiveFunc != nil {
		return m.findActiveFunc(ctx, contractID)
	}
	return model.SupportAdvance{}, false, nil
}

func (m *mockAdvanceRepository) FindByContractID(ctx context.Context, contractID string) ([]model.SupportAdvance, error) {
	if m.findByContractIDFunc != nil {
		return m.findByContractIDFunc(ctx, contractID)
	}
	return nil, nil
}

type mockRefundRepository struct {
	saveFunc             func(ctx context.Context, request model.RefundRequest) error
	findByContractIDFunc func(ctx context.Context, contractID string) ([]model.RefundRequest, error)
	savedRequests        []model.RefundRequest
}

func (m *mockRefundRepository) Save(ctx context.Context, request model.RefundRequest) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, request)
	}
	m.savedRequests = append(m.savedRequests, request)
	return nil
}

func (m *mockRefundRepository) FindByContractID(ctx context.Context, contractID string) ([]model.RefundRequest, error) {
	if m.findByContractIDFunc != nil {
		return m.findByContractIDFunc(ctx, contractID)
	}
	return nil, nil
}

// mockUnitOfWork routes LedgerTx saves to the per-aggregate mocks and drops
// everything recorded during a failed execution, the way a rolled-back
// transaction would.
type mockUnitOfWork struct {
	contracts *mockContractRepository
	advances  *mockAdvanceRepository
	refunds   *mockRefundRepository
}

func newMockUnitOfWork(
	contracts *mockContractRepository,
	advances *mockAdvanceRepository,
	refunds *mockRefundRepository,
) *mockUnitOfWork {
	return &mockUnitOfWork{contracts: contracts, advances: advances, refunds: refunds}
}

func (m *mockUnitOfWork) Execute(_ context.Context, fn func(tx port.LedgerTx) error) error {
	nContracts := len(m.contracts.savedContracts)
	nAdvances := len(m.advances.savedAdvances)
	nRefunds := len(m.refunds.savedRequests)
	if err := fn(mockLedgerTx{uow: m}); err != nil {
		m.contracts.savedContracts = m.contracts.savedContracts[:nContracts]
		m.advances.savedAdvances = m.advances.savedAdvances[:nAdvances]
		m.refunds.savedRequests = m.refunds.savedRequests[:nRefunds]
		return err
	}
	return nil
}

type mockLedgerTx struct {
	uow *mockUnitOfWork
}

func (t mockLedgerTx) SaveContract(ctx context.Context, contract model.Contract) error {
	return t.uow.contracts.Save(ctx, contract)
}

func (t mockLedgerTx) SaveAdvance(ctx context.Context, advance model.SupportAdvance) error {
	return t.uow.advances.Save(ctx, advance)
}

func (t mockLedgerTx) SaveRefundRequest(ctx context.Context, request model.RefundRequest) error {
	return t.uow.refunds.Save(ctx, request)
}

type mockEventPublisher struct {
	publishFunc     func(ctx context.Context, events ...event.DomainEvent) error
	publishedEvents []event.DomainEvent
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

type mockDocumentStorage struct {
	uploadFunc func(ctx context.Context, filename string, content []byte) (model.DocumentRef, error)
}

func (m *mockDocumentStorage) Upload(ctx context.Context, filename string, content []byte) (model.DocumentRef, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, filename, content)
	}
	return model.DocumentRef{
		URL:  "https://docs.local/" + filename,
		Path: "proofs/" + filename,
		Size: int64(len(content)),
	}, nil
}

// --- Fixtures ---

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// activeContract builds an active 7-month fixed contract with the first
// paidMonths installments fully paid.
func activeContract(paidMonths int) model.Contract {
	now := time.Now().UTC()
	firstDue := now.AddDate(0, -paidMonths, 0)
	target := decimal.NewFromInt(100000)

	installments := make([]model.Installment, 0, 7)
	for i := 0; i < 7; i++ {
		accumulated := decimal.Zero
		if i < paidMonths {
			accumulated = target
		}
		installments = append(installments, model.Installment{
			MonthIndex:        i,
			DueDate:           firstDue.AddDate(0, i, 0),
			TargetAmount:      target,
			AccumulatedAmount: accumulated,
			ScheduleVersion:   1,
		})
	}

	return model.ReconstructContract(
		"contract-001", "member-001",
		valueobject.ContractFamilyFixed, valueobject.CadenceMonthly,
		decimal.NewFromInt(500000), decimal.NewFromFloat(0.05), target,
		7, firstDue,
		valueobject.ContractStatusActive,
		installments, 1,
		decimal.NewFromInt(5000), decimal.NewFromInt(50000),
		1, now, now,
	)
}

func pendingContract() model.Contract {
	now := time.Now().UTC()
	return model.ReconstructContract(
		"contract-001", "member-001",
		valueobject.ContractFamilyFixed, valueobject.CadenceMonthly,
		decimal.NewFromInt(500000), decimal.NewFromFloat(0.05), decimal.NewFromInt(100000),
		7, now.AddDate(0, 1, 0),
		valueobject.ContractStatusPending,
		nil, 0,
		decimal.NewFromInt(5000), decimal.NewFromInt(50000),
		1, now, now,
	)
}

package port

import (
	"context"

	"github.com/tontina/caisse-engine/internal/domain/event"
	"github.com/tontina/caisse-engine/internal/domain/model"
)

// ---------------------------------------------------------------------------
// Repository ports (driven/secondary adapters)
// ---------------------------------------------------------------------------

// ContractRepository persists and retrieves contracts with their
// installments. Save is atomic per contract: either the whole mutation
// lands or none of it does.
type ContractRepository interface {
	Save(ctx context.Context, contract model.Contract) error
	FindByID(ctx context.Context, id string) (model.Contract, error)
	FindByMemberID(ctx context.Context, memberID string) ([]model.Contract, error)
}

// SupportAdvanceRepository persists and retrieves support advances.
type SupportAdvanceRepository interface {
	Save(ctx context.Context, advance model.SupportAdvance) error
	FindActiveByContractID(ctx context.Context, contractID string) (model.SupportAdvance, bool, error)
	FindByContractID(ctx context.Context, contractID string) ([]model.SupportAdvance, error)
}

// RefundRequestRepository persists and retrieves refund requests.
type RefundRequestRepository interface {
	Save(ctx context.Context, request model.RefundRequest) error
	FindByContractID(ctx context.Context, contractID string) ([]model.RefundRequest, error)
}

// LedgerTx issues saves that land together with every other save in the
// same unit of work.
type LedgerTx interface {
	SaveContract(ctx context.Context, contract model.Contract) error
	SaveAdvance(ctx context.Context, advance model.SupportAdvance) error
	SaveRefundRequest(ctx context.Context, request model.RefundRequest) error
}

// UnitOfWork runs fn atomically. Commands that mutate more than one
// aggregate issue all their saves through the LedgerTx handed to fn; a
// non-nil error from fn discards every save already issued.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(tx LedgerTx) error) error
}

// ---------------------------------------------------------------------------
// Event publisher port
// ---------------------------------------------------------------------------

// EventPublisher hands domain events to the notification sink. Emission is
// fire-and-forget from the engine's point of view: callers log failures and
// never roll back a ledger mutation because of one.
type EventPublisher interface {
	Publish(ctx context.Context, events ...event.DomainEvent) error
}

// ---------------------------------------------------------------------------
// External service ports
// ---------------------------------------------------------------------------

// DocumentStorage uploads proof documents attached to advance and refund
// requests. The engine stores the returned reference and never interprets
// the file contents.
type DocumentStorage interface {
	Upload(ctx context.Context, filename string, content []byte) (model.DocumentRef, error)
}

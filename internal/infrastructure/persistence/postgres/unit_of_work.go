package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/model"
	"github.com/tontina/caisse-engine/internal/domain/port"
	pkgpostgres "github.com/tontina/caisse-engine/pkg/postgres"
)

// UnitOfWork implements port.UnitOfWork over a single pgx transaction. The
// saves issued through the LedgerTx it hands out reuse the same upsert code
// as the per-aggregate repositories, so a payment that settles an advance
// or a refund that closes a contract lands as one commit.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork creates a transaction-scoped save coordinator.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Execute runs fn inside one transaction. A non-nil error from fn rolls the
// whole unit back.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(tx port.LedgerTx) error) error {
	err := pkgpostgres.WithTransaction(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ledgerTx{tx: tx})
	})
	if err != nil {
		return &errs.PersistenceError{Op: "ledger transaction", Err: err}
	}
	return nil
}

type ledgerTx struct {
	tx pkgpostgres.Querier
}

func (t ledgerTx) SaveContract(ctx context.Context, contract model.Contract) error {
	return saveContract(ctx, t.tx, contract)
}

func (t ledgerTx) SaveAdvance(ctx context.Context, advance model.SupportAdvance) error {
	return saveAdvance(ctx, t.tx, advance)
}

func (t ledgerTx) SaveRefundRequest(ctx context.Context, request model.RefundRequest) error {
	return saveRefundRequest(ctx, t.tx, request)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/model"
	pkgpostgres "github.com/tontina/caisse-engine/pkg/postgres"
)

// RefundRepo implements port.RefundRequestRepository.
type RefundRepo struct {
	pool *pgxpool.Pool
}

// NewRefundRepo creates a new PostgreSQL-backed refund repository.
func NewRefundRepo(pool *pgxpool.Pool) *RefundRepo {
	return &RefundRepo{pool: pool}
}

// Save persists a refund request.
func (r *RefundRepo) Save(ctx context.Context, request model.RefundRequest) error {
	if err := saveRefundRequest(ctx, r.pool, request); err != nil {
		return &errs.PersistenceError{Op: "save refund request", Err: err}
	}
	return nil
}

func saveRefundRequest(ctx context.Context, tx pkgpostgres.Querier, request model.RefundRequest) error {
	query := `
		INSERT INTO refund_requests (
			id, contract_id, kind, amount_nominal, amount_bonus,
			proof_url, proof_path, proof_size, deadline_at, status,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			status     = EXCLUDED.status,
			version    = refund_requests.version + 1,
			updated_at = EXCLUDED.updated_at
		WHERE refund_requests.version = $11
	`
	tag, err := tx.Exec(ctx, query,
		request.ID(), request.ContractID(), string(request.Kind()), request.AmountNominal(), request.AmountBonus(),
		request.Proof().URL, request.Proof().Path, request.Proof().Size, request.DeadlineAt(), string(request.Status()),
		request.Version(), request.CreatedAt(), request.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save refund request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("optimistic locking conflict on refund request")
	}
	return nil
}

// FindByContractID returns all refund requests on a contract, newest first.
func (r *RefundRepo) FindByContractID(ctx context.Context, contractID string) ([]model.RefundRequest, error) {
	query := `
		SELECT id, contract_id, kind, amount_nominal, amount_bonus,
		       proof_url, proof_path, proof_size, deadline_at, status,
		       version, created_at, updated_at
		FROM refund_requests
		WHERE contract_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("query refund requests: %w", err)
	}
	defer rows.Close()

	var requests []model.RefundRequest
	for rows.Next() {
		request, err := scanRefundRow(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func scanRefundRow(s scannable) (model.RefundRequest, error) {
	var (
		id, contractID             string
		kindStr                    string
		amountNominal, amountBonus decimal.Decimal
		proofURL, proofPath        string
		proofSize                  int64
		deadlineAt                 time.Time
		statusStr                  string
		version                    int
		createdAt, updatedAt       time.Time
	)

	err := s.Scan(
		&id, &contractID, &kindStr, &amountNominal, &amountBonus,
		&proofURL, &proofPath, &proofSize, &deadlineAt, &statusStr,
		&version, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.RefundRequest{}, fmt.Errorf("scan refund request: %w", err)
	}

	return model.ReconstructRefundRequest(
		id, contractID,
		model.RefundKind(kindStr),
		amountNominal, amountBonus,
		model.DocumentRef{URL: proofURL, Path: proofPath, Size: proofSize},
		deadlineAt,
		model.RefundStatus(statusStr),
		version, createdAt, updatedAt,
	), nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tontina/caisse-engine/internal/domain/errs"
	"github.com/tontina/caisse-engine/internal/domain/model"
	pkgpostgres "github.com/tontina/caisse-engine/pkg/postgres"
)

// AdvanceRepo implements port.SupportAdvanceRepository.
type AdvanceRepo struct {
	pool *pgxpool.Pool
}

// NewAdvanceRepo creates a new PostgreSQL-backed advance repository.
func NewAdvanceRepo(pool *pgxpool.Pool) *AdvanceRepo {
	return &AdvanceRepo{pool: pool}
}

// Save persists an advance and its deduction lines.
func (r *AdvanceRepo) Save(ctx context.Context, advance model.SupportAdvance) error {
	err := pkgpostgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		return saveAdvance(ctx, tx, advance)
	})
	if err != nil {
		return &errs.PersistenceError{Op: "save advance", Err: err}
	}
	return nil
}

func saveAdvance(ctx context.Context, tx pkgpostgres.Querier, advance model.SupportAdvance) error {
	advanceQuery := `
		INSERT INTO support_advances (
			id, contract_id, amount, amount_repaid, amount_remaining,
			proof_url, proof_path, proof_size, status,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			amount_repaid    = EXCLUDED.amount_repaid,
			amount_remaining = EXCLUDED.amount_remaining,
			status           = EXCLUDED.status,
			version          = support_advances.version + 1,
			updated_at       = EXCLUDED.updated_at
		WHERE support_advances.version = $10
	`
	tag, err := tx.Exec(ctx, advanceQuery,
		advance.ID(), advance.ContractID(), advance.Amount(), advance.AmountRepaid(), advance.AmountRemaining(),
		advance.Proof().URL, advance.Proof().Path, advance.Proof().Size, string(advance.Status()),
		advance.Version(), advance.CreatedAt(), advance.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save advance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("optimistic locking conflict on advance")
	}

	// Deduction lines are written once, on first insert.
	if advance.Version() == 1 {
		for _, d := range advance.Deductions() {
			deductionQuery := `
				INSERT INTO advance_deductions (advance_id, month_index, amount)
				VALUES ($1, $2, $3)
				ON CONFLICT (advance_id, month_index) DO NOTHING
			`
			if _, err := tx.Exec(ctx, deductionQuery, advance.ID(), d.MonthIndex, d.Amount); err != nil {
				return fmt.Errorf("save deduction %d: %w", d.MonthIndex, err)
			}
		}
	}

	return nil
}

// FindActiveByContractID returns the outstanding advance for a contract, if
// any. At most one advance is active per contract at a time.
func (r *AdvanceRepo) FindActiveByContractID(ctx context.Context, contractID string) (model.SupportAdvance, bool, error) {
	query := advanceSelect + ` WHERE contract_id = $1 AND status = $2`
	advance, err := scanAdvanceRow(r.pool.QueryRow(ctx, query, contractID, string(model.AdvanceStatusActive)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.SupportAdvance{}, false, nil
		}
		return model.SupportAdvance{}, false, err
	}

	deductions, err := r.loadDeductions(ctx, advance.ID())
	if err != nil {
		return model.SupportAdvance{}, false, err
	}
	return withDeductions(advance, deductions), true, nil
}

// FindByContractID returns all advances ever granted on a contract, newest
// first.
func (r *AdvanceRepo) FindByContractID(ctx context.Context, contractID string) ([]model.SupportAdvance, error) {
	query := advanceSelect + ` WHERE contract_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("query advances: %w", err)
	}
	defer rows.Close()

	var advances []model.SupportAdvance
	for rows.Next() {
		advance, err := scanAdvanceRow(rows)
		if err != nil {
			return nil, err
		}
		deductions, err := r.loadDeductions(ctx, advance.ID())
		if err != nil {
			return nil, err
		}
		advances = append(advances, withDeductions(advance, deductions))
	}
	return advances, rows.Err()
}

// ---------------------------------------------------------------------------
// internal helpers
// ---------------------------------------------------------------------------

const advanceSelect = `
	SELECT id, contract_id, amount, amount_repaid, amount_remaining,
	       proof_url, proof_path, proof_size, status,
	       version, created_at, updated_at
	FROM support_advances`

func scanAdvanceRow(s scannable) (model.SupportAdvance, error) {
	var (
		id, contractID                        string
		amount, amountRepaid, amountRemaining decimal.Decimal
		proofURL, proofPath                   string
		proofSize                             int64
		statusStr                             string
		version                               int
		createdAt, updatedAt                  time.Time
	)

	err := s.Scan(
		&id, &contractID, &amount, &amountRepaid, &amountRemaining,
		&proofURL, &proofPath, &proofSize, &statusStr,
		&version, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.SupportAdvance{}, fmt.Errorf("scan advance: %w", err)
	}

	return model.ReconstructSupportAdvance(
		id, contractID,
		amount, amountRepaid, amountRemaining,
		nil,
		model.DocumentRef{URL: proofURL, Path: proofPath, Size: proofSize},
		model.AdvanceStatus(statusStr),
		version, createdAt, updatedAt,
	), nil
}

func withDeductions(a model.SupportAdvance, deductions []model.AdvanceDeduction) model.SupportAdvance {
	return model.ReconstructSupportAdvance(
		a.ID(), a.ContractID(),
		a.Amount(), a.AmountRepaid(), a.AmountRemaining(),
		deductions, a.Proof(), a.Status(),
		a.Version(), a.CreatedAt(), a.UpdatedAt(),
	)
}

func (r *AdvanceRepo) loadDeductions(ctx context.Context, advanceID string) ([]model.AdvanceDeduction, error) {
	query := `
		SELECT month_index, amount
		FROM advance_deductions
		WHERE advance_id = $1
		ORDER BY month_index
	`
	rows, err := r.pool.Query(ctx, query, advanceID)
	if err != nil {
		return nil, fmt.Errorf("query deductions: %w", err)
	}
	defer rows.Close()

	var deductions []model.AdvanceDeduction
	for rows.Next() {
		var d model.AdvanceDeduction
		if err := rows.Scan(&d.MonthIndex, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan deduction: %w", err)
		}
		deductions = append(deductions, d)
	}
	return deductions, rows.Err()
}

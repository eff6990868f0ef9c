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
	"github.com/tontina/caisse-engine/internal/domain/valueobject"
	pkgpostgres "github.com/tontina/caisse-engine/pkg/postgres"
)

// ContractRepo implements port.ContractRepository.
type ContractRepo struct {
	pool *pgxpool.Pool
}

// NewContractRepo creates a new PostgreSQL-backed contract repository.
func NewContractRepo(pool *pgxpool.Pool) *ContractRepo {
	return &ContractRepo{pool: pool}
}

// Save persists a contract with its installments and payment events in one
// transaction.
func (r *ContractRepo) Save(ctx context.Context, contract model.Contract) error {
	err := pkgpostgres.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		return saveContract(ctx, tx, contract)
	})
	if err != nil {
		return &errs.PersistenceError{Op: "save contract", Err: err}
	}
	return nil
}

func saveContract(ctx context.Context, tx pkgpostgres.Querier, contract model.Contract) error {
	contractQuery := `
		INSERT INTO contracts (
			id, member_id, family, cadence,
			principal, monthly_rate, installment_amount, planned_duration,
			first_due_date, status, schedule_version,
			advance_min, advance_max,
			version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
			status           = EXCLUDED.status,
			schedule_version = EXCLUDED.schedule_version,
			version          = contracts.version + 1,
			updated_at       = EXCLUDED.updated_at
		WHERE contracts.version = $14
	`
	tag, err := tx.Exec(ctx, contractQuery,
		contract.ID(), contract.MemberID(), contract.Family().String(), contract.Cadence().String(),
		contract.Principal(), contract.MonthlyRate(), contract.InstallmentAmount(), contract.PlannedDuration(),
		contract.FirstDueDate(), contract.Status().String(), contract.ScheduleVersion(),
		contract.AdvanceMin(), contract.AdvanceMax(),
		contract.Version(), contract.CreatedAt(), contract.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("save contract: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("optimistic locking conflict on contract")
	}

	// Rows are keyed per schedule version: a reschedule inserts a fresh
	// row set under the new version and never touches prior versions.
	for _, inst := range contract.Installments() {
		instQuery := `
			INSERT INTO installments (
				contract_id, month_index, due_date,
				target_amount, accumulated_amount, schedule_version
			) VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (contract_id, schedule_version, month_index) DO UPDATE SET
				due_date           = EXCLUDED.due_date,
				target_amount      = EXCLUDED.target_amount,
				accumulated_amount = EXCLUDED.accumulated_amount
		`
		_, err := tx.Exec(ctx, instQuery,
			contract.ID(), inst.MonthIndex, inst.DueDate,
			inst.TargetAmount, inst.AccumulatedAmount, inst.ScheduleVersion,
		)
		if err != nil {
			return fmt.Errorf("save installment %d: %w", inst.MonthIndex, err)
		}

		for _, p := range inst.Payments {
			paymentQuery := `
				INSERT INTO payment_events (
					id, contract_id, month_index, paid_at, mode,
					amount, credited_amount, advance_repayment, advance_id,
					penalty, bonus, days_late, quality_score, remark, tolerance
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
				ON CONFLICT (id) DO NOTHING
			`
			_, err := tx.Exec(ctx, paymentQuery,
				p.ID, contract.ID(), inst.MonthIndex, p.PaidAt, p.Mode,
				p.Amount, p.CreditedAmount, p.AdvanceRepayment, nullableString(p.AdvanceID),
				p.Penalty, p.Bonus, p.DaysLate, p.QualityScore, p.Remark, p.Tolerance,
			)
			if err != nil {
				return fmt.Errorf("save payment event %s: %w", p.ID, err)
			}
		}
	}

	return nil
}

// FindByID retrieves a contract with its installments and payment events.
func (r *ContractRepo) FindByID(ctx context.Context, id string) (model.Contract, error) {
	query := contractSelect + ` WHERE id = $1`
	contract, err := scanContractRow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Contract{}, errs.NewNotFound("contract", id)
		}
		return model.Contract{}, err
	}

	installments, err := r.loadInstallments(ctx, id, contract.ScheduleVersion())
	if err != nil {
		return model.Contract{}, err
	}

	return withInstallments(contract, installments), nil
}

// FindByMemberID retrieves all contracts held by a member, newest first.
func (r *ContractRepo) FindByMemberID(ctx context.Context, memberID string) ([]model.Contract, error) {
	query := contractSelect + ` WHERE member_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []model.Contract
	for rows.Next() {
		contract, err := scanContractRow(rows)
		if err != nil {
			return nil, err
		}
		installments, err := r.loadInstallments(ctx, contract.ID(), contract.ScheduleVersion())
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, withInstallments(contract, installments))
	}
	return contracts, rows.Err()
}

// ---------------------------------------------------------------------------
// internal helpers
// ---------------------------------------------------------------------------

const contractSelect = `
	SELECT id, member_id, family, cadence,
	       principal, monthly_rate, installment_amount, planned_duration,
	       first_due_date, status, schedule_version,
	       advance_min, advance_max,
	       version, created_at, updated_at
	FROM contracts`

func scanContractRow(s scannable) (model.Contract, error) {
	var (
		id, memberID           string
		familyStr, cadenceStr  string
		principal, monthlyRate decimal.Decimal
		installmentAmount      decimal.Decimal
		plannedDuration        int
		firstDueDate           time.Time
		statusStr              string
		scheduleVersion        int
		advanceMin, advanceMax decimal.Decimal
		version                int
		createdAt, updatedAt   time.Time
	)

	err := s.Scan(
		&id, &memberID, &familyStr, &cadenceStr,
		&principal, &monthlyRate, &installmentAmount, &plannedDuration,
		&firstDueDate, &statusStr, &scheduleVersion,
		&advanceMin, &advanceMax,
		&version, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Contract{}, fmt.Errorf("scan contract: %w", err)
	}

	family, err := valueobject.NewContractFamily(familyStr)
	if err != nil {
		return model.Contract{}, fmt.Errorf("parse contract family: %w", err)
	}
	cadence, err := valueobject.NewCadence(cadenceStr)
	if err != nil {
		return model.Contract{}, fmt.Errorf("parse contract cadence: %w", err)
	}
	status, err := valueobject.NewContractStatus(statusStr)
	if err != nil {
		return model.Contract{}, fmt.Errorf("parse contract status: %w", err)
	}

	return model.ReconstructContract(
		id, memberID, family, cadence,
		principal, monthlyRate, installmentAmount, plannedDuration,
		firstDueDate, status, nil, scheduleVersion,
		advanceMin, advanceMax,
		version, createdAt, updatedAt,
	), nil
}

func withInstallments(c model.Contract, installments []model.Installment) model.Contract {
	return model.ReconstructContract(
		c.ID(), c.MemberID(), c.Family(), c.Cadence(),
		c.Principal(), c.MonthlyRate(), c.InstallmentAmount(), c.PlannedDuration(),
		c.FirstDueDate(), c.Status(), installments, c.ScheduleVersion(),
		c.AdvanceMin(), c.AdvanceMax(),
		c.Version(), c.CreatedAt(), c.UpdatedAt(),
	)
}

// loadInstallments reads the live schedule only; rows from superseded
// schedule versions stay in the table as audit history.
func (r *ContractRepo) loadInstallments(ctx context.Context, contractID string, scheduleVersion int) ([]model.Installment, error) {
	query := `
		SELECT month_index, due_date, target_amount, accumulated_amount, schedule_version
		FROM installments
		WHERE contract_id = $1 AND schedule_version = $2
		ORDER BY month_index
	`
	rows, err := r.pool.Query(ctx, query, contractID, scheduleVersion)
	if err != nil {
		return nil, fmt.Errorf("query installments: %w", err)
	}
	defer rows.Close()

	var installments []model.Installment
	for rows.Next() {
		var inst model.Installment
		if err := rows.Scan(
			&inst.MonthIndex, &inst.DueDate,
			&inst.TargetAmount, &inst.AccumulatedAmount, &inst.ScheduleVersion,
		); err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payments, err := r.loadPayments(ctx, contractID)
	if err != nil {
		return nil, err
	}
	for i := range installments {
		installments[i].Payments = payments[installments[i].MonthIndex]
	}
	return installments, nil
}

func (r *ContractRepo) loadPayments(ctx context.Context, contractID string) (map[int][]model.PaymentEvent, error) {
	query := `
		SELECT id, month_index, paid_at, mode,
		       amount, credited_amount, advance_repayment, advance_id,
		       penalty, bonus, days_late, quality_score, remark, tolerance
		FROM payment_events
		WHERE contract_id = $1
		ORDER BY paid_at
	`
	rows, err := r.pool.Query(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("query payment events: %w", err)
	}
	defer rows.Close()

	payments := make(map[int][]model.PaymentEvent)
	for rows.Next() {
		var (
			p          model.PaymentEvent
			monthIndex int
			advanceID  *string
		)
		if err := rows.Scan(
			&p.ID, &monthIndex, &p.PaidAt, &p.Mode,
			&p.Amount, &p.CreditedAmount, &p.AdvanceRepayment, &advanceID,
			&p.Penalty, &p.Bonus, &p.DaysLate, &p.QualityScore, &p.Remark, &p.Tolerance,
		); err != nil {
			return nil, fmt.Errorf("scan payment event: %w", err)
		}
		if advanceID != nil {
			p.AdvanceID = *advanceID
		}
		payments[monthIndex] = append(payments[monthIndex], p)
	}
	return payments, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

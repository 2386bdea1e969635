package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/coursebill/installment-engine/internal/domain"
	customError "github.com/coursebill/installment-engine/pkg/errors"
)

type planRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *domain.InstallmentPlan) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	planQuery := `
		INSERT INTO installment_plans
			(id, payer_id, charge_id, total_amount, paid_amount, remaining_amount,
			 payment_method, installment_count, status, next_reminder_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.ExecContext(ctx, planQuery,
		plan.ID,
		plan.PayerID,
		plan.ChargeID,
		plan.TotalAmount,
		plan.PaidAmount,
		plan.RemainingAmount,
		plan.PaymentMethod,
		plan.InstallmentCount,
		plan.Status,
		plan.NextReminderDate,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		// The partial unique index on (payer_id, charge_id) for open plans
		// backstops the service-level conflict check against races.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return customError.ErrPlanConflict
		}
		return err
	}

	instQuery := `
		INSERT INTO installments
			(plan_id, installment_number, amount, due_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, inst := range plan.Installments {
		_, err = tx.ExecContext(ctx, instQuery,
			plan.ID,
			inst.InstallmentNumber,
			inst.Amount,
			inst.DueDate,
			inst.Status,
			plan.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *planRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	query := `
		SELECT id, payer_id, charge_id, total_amount, paid_amount, remaining_amount,
		       payment_method, installment_count, status, next_reminder_date,
		       last_reminder_sent, created_at, updated_at
		FROM installment_plans
		WHERE id = $1
	`

	var plan domain.InstallmentPlan
	if err := r.db.GetContext(ctx, &plan, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.ErrPlanNotFound
		}
		return nil, err
	}

	if err := r.loadChildren(ctx, &plan); err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepository) FindByPayerAndCharge(ctx context.Context, payerID, chargeID string, statuses []string) ([]*domain.InstallmentPlan, error) {
	query := `
		SELECT id, payer_id, charge_id, total_amount, paid_amount, remaining_amount,
		       payment_method, installment_count, status, next_reminder_date,
		       last_reminder_sent, created_at, updated_at
		FROM installment_plans
		WHERE payer_id = $1 AND charge_id = $2 AND status = ANY($3)
	`

	var plans []*domain.InstallmentPlan
	if err := r.db.SelectContext(ctx, &plans, query, payerID, chargeID, pq.Array(statuses)); err != nil {
		return nil, err
	}

	return plans, nil
}

func (r *planRepository) SettleInstallment(ctx context.Context, planID uuid.UUID, number int, paymentID, orderID string, paidAt time.Time) (*domain.InstallmentPlan, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Conditional single-row update: paid is terminal, so exactly one of
	// two concurrent deliveries can pass this guard.
	settleQuery := `
		UPDATE installments
		SET status = $1, paid_at = $2, payment_id = $3, order_id = $4
		WHERE plan_id = $5 AND installment_number = $6 AND status <> $1
		RETURNING amount
	`

	var amount int64
	err = tx.QueryRowxContext(ctx, settleQuery,
		domain.InstallmentStatusPaid, paidAt, paymentID, orderID, planID, number,
	).Scan(&amount)

	if errors.Is(err, sql.ErrNoRows) {
		var status string
		checkErr := tx.GetContext(ctx, &status,
			`SELECT status FROM installments WHERE plan_id = $1 AND installment_number = $2`,
			planID, number)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return nil, customError.ErrInstallmentNotFound
		}
		if checkErr != nil {
			return nil, checkErr
		}
		return nil, customError.ErrAlreadySettled
	}
	if err != nil {
		return nil, err
	}

	planQuery := `
		UPDATE installment_plans
		SET paid_amount = paid_amount + $2,
		    remaining_amount = remaining_amount - $2,
		    status = CASE WHEN remaining_amount - $2 = 0 THEN $3 ELSE status END,
		    updated_at = $4
		WHERE id = $1
		RETURNING id, payer_id, charge_id, total_amount, paid_amount, remaining_amount,
		          payment_method, installment_count, status, next_reminder_date,
		          last_reminder_sent, created_at, updated_at
	`

	var plan domain.InstallmentPlan
	err = tx.QueryRowxContext(ctx, planQuery,
		planID, amount, domain.PlanStatusCompleted, paidAt,
	).StructScan(&plan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &plan, nil
}

func (r *planRepository) ListDueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]*domain.InstallmentPlan, error) {
	query := `
		SELECT p.id, p.payer_id, p.charge_id, p.total_amount, p.paid_amount, p.remaining_amount,
		       p.payment_method, p.installment_count, p.status, p.next_reminder_date,
		       p.last_reminder_sent, p.created_at, p.updated_at
		FROM installment_plans p
		WHERE p.status = ANY($1)
		  AND EXISTS (
			SELECT 1 FROM installments i
			WHERE i.plan_id = p.id
			  AND (
				(i.status = $2 AND i.due_date >= $3 AND i.due_date <= $4)
				OR (i.status = $5 AND i.due_date < $3)
			  )
		  )
		ORDER BY p.created_at
	`

	var plans []*domain.InstallmentPlan
	err := r.db.SelectContext(ctx, &plans, query,
		pq.Array([]string{domain.PlanStatusActive, domain.PlanStatusDefaulted}),
		domain.InstallmentStatusPending,
		now,
		now.Add(window),
		domain.InstallmentStatusOverdue,
	)
	if err != nil {
		return nil, err
	}

	for _, plan := range plans {
		if err := r.loadChildren(ctx, plan); err != nil {
			return nil, err
		}
	}

	return plans, nil
}

func (r *planRepository) AppendReminderLog(ctx context.Context, entry *domain.ReminderLog, nextReminderDate time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	logQuery := `
		INSERT INTO reminder_log (plan_id, installment_number, reminder_type, sent_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err = tx.ExecContext(ctx, logQuery,
		entry.PlanID,
		entry.InstallmentNumber,
		entry.ReminderType,
		entry.SentAt,
	)
	if err != nil {
		return err
	}

	cursorQuery := `
		UPDATE installment_plans
		SET last_reminder_sent = $2, next_reminder_date = $3, updated_at = $2
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, cursorQuery, entry.PlanID, entry.SentAt, nextReminderDate)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *planRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE installments
		SET status = $1
		WHERE status = $2 AND due_date < $3
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.InstallmentStatusOverdue,
		domain.InstallmentStatusPending,
		now,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *planRepository) GetStats(ctx context.Context) (*domain.PlanStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active')                         AS active_plans,
			COUNT(*) FILTER (WHERE status = 'completed')                      AS completed_plans,
			COUNT(*) FILTER (WHERE status = 'defaulted')                      AS defaulted_plans,
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'), 0)     AS total_revenue,
			COALESCE(SUM(remaining_amount) FILTER (WHERE status = 'active'), 0)    AS pending_revenue,
			(SELECT COUNT(*) FROM installments WHERE status = 'overdue')      AS overdue_installments
		FROM installment_plans
	`

	var stats domain.PlanStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (r *planRepository) loadChildren(ctx context.Context, plan *domain.InstallmentPlan) error {
	instQuery := `
		SELECT plan_id, installment_number, amount, due_date, status,
		       paid_at, payment_id, order_id, created_at
		FROM installments
		WHERE plan_id = $1
		ORDER BY installment_number
	`

	if err := r.db.SelectContext(ctx, &plan.Installments, instQuery, plan.ID); err != nil {
		return err
	}

	logQuery := `
		SELECT id, plan_id, installment_number, reminder_type, sent_at
		FROM reminder_log
		WHERE plan_id = $1
		ORDER BY sent_at
	`

	return r.db.SelectContext(ctx, &plan.ReminderSent, logQuery, plan.ID)
}

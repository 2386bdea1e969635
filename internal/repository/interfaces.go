package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/coursebill/installment-engine/internal/domain"
)

// PlanRepository defines the interface for installment plan persistence.
// All invariants are scoped to a single plan; no cross-plan transactions.
type PlanRepository interface {
	// Create persists a plan together with its installment schedule
	// atomically. Returns errors.ErrPlanConflict when an open plan already
	// exists for the same payer and charge.
	Create(ctx context.Context, plan *domain.InstallmentPlan) error

	// GetByID retrieves a plan with its installments and reminder history
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error)

	// FindByPayerAndCharge retrieves plans for a payer+charge pair,
	// restricted to the given statuses
	FindByPayerAndCharge(ctx context.Context, payerID, chargeID string, statuses []string) ([]*domain.InstallmentPlan, error)

	// SettleInstallment marks an installment paid and recomputes the plan
	// totals in one transaction. The installment update is conditional on
	// the row not already being paid, which serializes concurrent
	// deliveries of the same callback: exactly one wins, the rest get
	// errors.ErrAlreadySettled. Returns the updated plan row.
	SettleInstallment(ctx context.Context, planID uuid.UUID, number int, paymentID, orderID string, paidAt time.Time) (*domain.InstallmentPlan, error)

	// ListDueForReminder retrieves active/defaulted plans holding at least
	// one pending installment due within the window or one overdue
	// installment, with installments and reminder history loaded
	ListDueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]*domain.InstallmentPlan, error)

	// AppendReminderLog records a sent reminder and advances the plan's
	// reminder cursors atomically
	AppendReminderLog(ctx context.Context, entry *domain.ReminderLog, nextReminderDate time.Time) error

	// MarkOverdue flips pending installments past their due date to
	// overdue; returns the number of rows updated
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)

	// GetStats computes the read-only rollup across all plans
	GetStats(ctx context.Context) (*domain.PlanStats, error)
}

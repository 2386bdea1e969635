package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	PlanStatusActive    = "active"
	PlanStatusCompleted = "completed"
	PlanStatusDefaulted = "defaulted"
)

const (
	PaymentMethodFullUpfront = "full_upfront"
	PaymentMethodInstallment = "installment"
)

// InstallmentPlan splits one total charge into multiple dated partial
// payments. payer_id, charge_id and total_amount are immutable after
// creation; paid_amount + remaining_amount == total_amount at all times.
type InstallmentPlan struct {
	ID               uuid.UUID  `json:"id" db:"id"`
	PayerID          string     `json:"payer_id" db:"payer_id"`
	ChargeID         string     `json:"charge_id" db:"charge_id"`
	TotalAmount      int64      `json:"total_amount" db:"total_amount"`
	PaidAmount       int64      `json:"paid_amount" db:"paid_amount"`
	RemainingAmount  int64      `json:"remaining_amount" db:"remaining_amount"`
	PaymentMethod    string     `json:"payment_method" db:"payment_method"`
	InstallmentCount int        `json:"installment_count" db:"installment_count"`
	Status           string     `json:"status" db:"status"`
	NextReminderDate *time.Time `json:"next_reminder_date,omitempty" db:"next_reminder_date"`
	LastReminderSent *time.Time `json:"last_reminder_sent,omitempty" db:"last_reminder_sent"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`

	Installments []*Installment `json:"installments,omitempty" db:"-"`
	ReminderSent []*ReminderLog `json:"reminder_sent,omitempty" db:"-"`
}

// InstallmentByNumber returns the installment with the given 1-based number
func (p *InstallmentPlan) InstallmentByNumber(number int) *Installment {
	for _, inst := range p.Installments {
		if inst.InstallmentNumber == number {
			return inst
		}
	}
	return nil
}

// LatestReminderFor returns the most recent reminder log entry for an
// installment, or nil when none was ever sent
func (p *InstallmentPlan) LatestReminderFor(number int) *ReminderLog {
	var latest *ReminderLog
	for _, entry := range p.ReminderSent {
		if entry.InstallmentNumber != number {
			continue
		}
		if latest == nil || entry.SentAt.After(latest.SentAt) {
			latest = entry
		}
	}
	return latest
}

// DTOs for requests and responses

type CreatePlanRequest struct {
	PayerID          string `json:"payer_id" validate:"required"`
	ChargeID         string `json:"charge_id" validate:"required"`
	TotalAmount      int64  `json:"total_amount" validate:"required,gt=0"`
	PaymentMethod    string `json:"payment_method" validate:"required,oneof=full_upfront installment"`
	InstallmentCount int    `json:"installment_count" validate:"omitempty,gte=0"`
}

type SettlementRequest struct {
	OrderID           string `json:"order_id"`
	PaymentID         string `json:"payment_id"`
	Signature         string `json:"signature"`
	PlanID            string `json:"plan_id"`
	InstallmentNumber int    `json:"installment_number"`
}

// PlanSummary is the settlement endpoint's success payload
type PlanSummary struct {
	PlanID          uuid.UUID `json:"plan_id"`
	Status          string    `json:"status"`
	TotalAmount     int64     `json:"total_amount"`
	PaidAmount      int64     `json:"paid_amount"`
	RemainingAmount int64     `json:"remaining_amount"`
	PaidDisplay     string    `json:"paid_display"`
}

type InitiatePaymentResponse struct {
	OrderID           string `json:"order_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Receipt           string `json:"receipt"`
	InstallmentNumber int    `json:"installment_number"`
}

// SweepResult reports a reminder sweep's aggregate counts
type SweepResult struct {
	PlansScanned  int  `json:"plans_scanned"`
	RemindersSent int  `json:"reminders_sent"`
	Skipped       bool `json:"skipped,omitempty"`
}

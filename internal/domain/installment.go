package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusOverdue = "overdue"
)

const (
	ReminderTypeDue     = "due"
	ReminderTypeOverdue = "overdue"
	ReminderTypeFinal   = "final"
)

// Installment is one scheduled partial payment, owned by its plan and
// addressed by (plan_id, installment_number). paid is terminal: once set,
// the row is immutable apart from the settlement audit fields set with it.
type Installment struct {
	PlanID            uuid.UUID  `json:"-" db:"plan_id"`
	InstallmentNumber int        `json:"installment_number" db:"installment_number"`
	Amount            int64      `json:"amount" db:"amount"`
	DueDate           time.Time  `json:"due_date" db:"due_date"`
	Status            string     `json:"status" db:"status"`
	PaidAt            *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	PaymentID         *string    `json:"payment_id,omitempty" db:"payment_id"`
	OrderID           *string    `json:"order_id,omitempty" db:"order_id"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// ReminderLog is one append-only audit entry for a sent reminder
type ReminderLog struct {
	ID                int64     `json:"-" db:"id"`
	PlanID            uuid.UUID `json:"-" db:"plan_id"`
	InstallmentNumber int       `json:"installment_number" db:"installment_number"`
	ReminderType      string    `json:"reminder_type" db:"reminder_type"`
	SentAt            time.Time `json:"sent_at" db:"sent_at"`
}

package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// DaysOverdue returns how many whole days have passed since dueDate.
// Returns 0 when the due date is still in the future.
func DaysOverdue(dueDate, now time.Time) int {
	if !now.After(dueDate) {
		return 0
	}
	return int(now.Sub(dueDate).Hours() / 24)
}

// IsDateOverdue checks if a due date has passed relative to now
func IsDateOverdue(dueDate, now time.Time) bool {
	return now.After(dueDate)
}

// FormatMinorUnits renders an integer minor-unit amount as a major-unit
// string, e.g. 333400 paise -> "3334.00". Ledger arithmetic stays in
// integers; this is presentation only.
func FormatMinorUnits(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// MajorUnits converts an integer minor-unit amount to a decimal in major units
func MajorUnits(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
}

package domain

import (
	"fmt"
	"time"

	customError "github.com/coursebill/installment-engine/pkg/errors"
)

// Installments fall due every 30 days from the plan start date. Fixed
// cadence, no calendar-month semantics.
const InstallmentCadenceDays = 30

// BuildSchedule produces the due-dated installment schedule for a plan.
// base = ceil(total/count); installments 1..count-1 each carry base and the
// last installment absorbs the rounding remainder, so the amounts always
// sum to exactly totalAmount.
func BuildSchedule(totalAmount int64, count int, startDate time.Time) ([]*Installment, error) {
	if totalAmount <= 0 {
		return nil, customError.WrapInvalidPlan("total amount must be greater than zero")
	}
	if count < 2 {
		return nil, customError.WrapInvalidPlan("installment count must be at least 2")
	}
	base := (totalAmount + int64(count) - 1) / int64(count)
	if totalAmount-base*int64(count-1) <= 0 {
		// Ceil rounding on the first count-1 installments would leave the
		// final one zero or negative.
		return nil, customError.WrapInvalidPlan(
			fmt.Sprintf("installment count %d is too high for total amount %d minor units", count, totalAmount))
	}

	installments := make([]*Installment, 0, count)
	for i := 1; i <= count; i++ {
		amount := base
		if i == count {
			amount = totalAmount - base*int64(count-1)
		}

		installments = append(installments, &Installment{
			InstallmentNumber: i,
			Amount:            amount,
			DueDate:           startDate.AddDate(0, 0, InstallmentCadenceDays*i),
			Status:            InstallmentStatusPending,
		})
	}

	return installments, nil
}

// BuildUpfrontSchedule produces the single-installment schedule used by
// full-upfront plans: the whole amount, due one cadence from start.
func BuildUpfrontSchedule(totalAmount int64, startDate time.Time) ([]*Installment, error) {
	if totalAmount <= 0 {
		return nil, customError.WrapInvalidPlan("total amount must be greater than zero")
	}

	return []*Installment{
		{
			InstallmentNumber: 1,
			Amount:            totalAmount,
			DueDate:           startDate.AddDate(0, 0, InstallmentCadenceDays),
			Status:            InstallmentStatusPending,
		},
	}, nil
}

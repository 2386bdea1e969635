package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customError "github.com/coursebill/installment-engine/pkg/errors"
)

func TestBuildSchedule(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		totalAmount     int64
		count           int
		expectedAmounts []int64
		expectedError   error
	}{
		{
			name:            "ceil split with remainder absorbed by last",
			totalAmount:     10000,
			count:           3,
			expectedAmounts: []int64{3334, 3334, 3332},
		},
		{
			name:            "even split",
			totalAmount:     9000,
			count:           3,
			expectedAmounts: []int64{3000, 3000, 3000},
		},
		{
			name:            "two installments",
			totalAmount:     101,
			count:           2,
			expectedAmounts: []int64{51, 50},
		},
		{
			name:            "count equals total amount",
			totalAmount:     5,
			count:           5,
			expectedAmounts: []int64{1, 1, 1, 1, 1},
		},
		{
			name:          "count below minimum",
			totalAmount:   10000,
			count:         1,
			expectedError: customError.ErrInvalidPlan,
		},
		{
			name:          "zero total amount",
			totalAmount:   0,
			count:         3,
			expectedError: customError.ErrInvalidPlan,
		},
		{
			name:          "count exceeds total amount",
			totalAmount:   3,
			count:         4,
			expectedError: customError.ErrInvalidPlan,
		},
		{
			name:          "ceil rounding would starve last installment",
			totalAmount:   7,
			count:         5,
			expectedError: customError.ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			installments, err := BuildSchedule(tt.totalAmount, tt.count, start)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedError))
				assert.Nil(t, installments)
				return
			}

			require.NoError(t, err)
			require.Len(t, installments, tt.count)

			var sum int64
			for i, inst := range installments {
				assert.Equal(t, i+1, inst.InstallmentNumber)
				assert.Equal(t, tt.expectedAmounts[i], inst.Amount)
				assert.Equal(t, InstallmentStatusPending, inst.Status)
				assert.Equal(t, start.AddDate(0, 0, InstallmentCadenceDays*(i+1)), inst.DueDate)
				sum += inst.Amount
			}
			assert.Equal(t, tt.totalAmount, sum, "schedule must sum exactly to the total")
		})
	}
}

func TestBuildSchedule_SumInvariant(t *testing.T) {
	// The sum guarantee has to hold for awkward divisions, not just the
	// documented examples.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	totals := []int64{1000000, 999999, 7, 12345, 100001}
	counts := []int{2, 3, 7, 12, 24}

	for _, total := range totals {
		for _, count := range counts {
			if int64(count) > total {
				continue
			}
			installments, err := BuildSchedule(total, count, start)
			require.NoError(t, err)

			var sum int64
			for _, inst := range installments {
				assert.Positive(t, inst.Amount)
				sum += inst.Amount
			}
			assert.Equal(t, total, sum, "total=%d count=%d", total, count)
		}
	}
}

func TestBuildUpfrontSchedule(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	installments, err := BuildUpfrontSchedule(50000, start)
	require.NoError(t, err)
	require.Len(t, installments, 1)
	assert.Equal(t, int64(50000), installments[0].Amount)
	assert.Equal(t, 1, installments[0].InstallmentNumber)
	assert.Equal(t, start.AddDate(0, 0, 30), installments[0].DueDate)

	_, err = BuildUpfrontSchedule(0, start)
	assert.Error(t, err)
}

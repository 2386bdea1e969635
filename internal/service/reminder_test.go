package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coursebill/installment-engine/internal/domain"
)

func planWithDueInstallment(lastReminder *time.Time) *domain.InstallmentPlan {
	planID := uuid.New()
	plan := &domain.InstallmentPlan{
		ID:               planID,
		PayerID:          "payer-1",
		ChargeID:         "course-101",
		TotalAmount:      10000,
		RemainingAmount:  10000,
		PaymentMethod:    domain.PaymentMethodInstallment,
		InstallmentCount: 3,
		Status:           domain.PlanStatusActive,
		Installments: []*domain.Installment{
			{
				PlanID:            planID,
				InstallmentNumber: 1,
				Amount:            3334,
				DueDate:           testNow.Add(48 * time.Hour),
				Status:            domain.InstallmentStatusPending,
			},
		},
	}
	if lastReminder != nil {
		plan.ReminderSent = []*domain.ReminderLog{
			{
				PlanID:            planID,
				InstallmentNumber: 1,
				ReminderType:      domain.ReminderTypeDue,
				SentAt:            *lastReminder,
			},
		}
	}
	return plan
}

func expectSweepSetup(deps *testDeps, plans []*domain.InstallmentPlan) {
	deps.locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	deps.locker.On("Release", mock.Anything, mock.Anything).Return(nil)
	deps.repo.On("MarkOverdue", mock.Anything, testNow).Return(int64(0), nil)
	deps.repo.On("ListDueForReminder", mock.Anything, testNow, 72*time.Hour).Return(plans, nil)
}

func TestRunReminderSweep_SendsDueReminder(t *testing.T) {
	svc, deps := newTestService()

	plan := planWithDueInstallment(nil)
	expectSweepSetup(deps, []*domain.InstallmentPlan{plan})

	deps.dispatcher.On("Send", mock.Anything, mock.Anything).Return(nil)
	deps.repo.On("AppendReminderLog", mock.Anything, mock.MatchedBy(func(entry *domain.ReminderLog) bool {
		return entry.PlanID == plan.ID &&
			entry.InstallmentNumber == 1 &&
			entry.ReminderType == domain.ReminderTypeDue &&
			entry.SentAt.Equal(testNow)
	}), testNow.Add(24*time.Hour)).Return(nil)

	result, err := svc.RunReminderSweep(context.Background())

	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, 1, result.PlansScanned)
	assert.Equal(t, 1, result.RemindersSent)
	deps.dispatcher.AssertExpectations(t)
	deps.repo.AssertExpectations(t)
}

func TestRunReminderSweep_SkipsWhenLockHeld(t *testing.T) {
	svc, deps := newTestService()

	deps.locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(false, nil)

	result, err := svc.RunReminderSweep(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, result.PlansScanned)
	deps.repo.AssertNotCalled(t, "MarkOverdue", mock.Anything, mock.Anything)
	deps.repo.AssertNotCalled(t, "ListDueForReminder", mock.Anything, mock.Anything, mock.Anything)
	deps.locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

func TestRunReminderSweep_CooldownSuppressesResend(t *testing.T) {
	tests := []struct {
		name         string
		sinceLast    time.Duration
		expectedSent int
	}{
		{name: "one hour since last reminder", sinceLast: time.Hour, expectedSent: 0},
		{name: "exactly at cooldown boundary", sinceLast: 24 * time.Hour, expectedSent: 0},
		{name: "past the cooldown", sinceLast: 25 * time.Hour, expectedSent: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, deps := newTestService()

			lastSent := testNow.Add(-tt.sinceLast)
			plan := planWithDueInstallment(&lastSent)
			expectSweepSetup(deps, []*domain.InstallmentPlan{plan})

			if tt.expectedSent > 0 {
				deps.dispatcher.On("Send", mock.Anything, mock.Anything).Return(nil)
				deps.repo.On("AppendReminderLog", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			}

			result, err := svc.RunReminderSweep(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.expectedSent, result.RemindersSent)
			if tt.expectedSent == 0 {
				deps.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRunReminderSweep_DispatchFailureDoesNotFailSweep(t *testing.T) {
	svc, deps := newTestService()

	failing := planWithDueInstallment(nil)
	healthy := planWithDueInstallment(nil)
	expectSweepSetup(deps, []*domain.InstallmentPlan{failing, healthy})

	deps.dispatcher.On("Send", mock.Anything, mock.Anything).
		Return(errors.New("smtp connection refused")).Once()
	deps.dispatcher.On("Send", mock.Anything, mock.Anything).Return(nil).Once()
	deps.repo.On("AppendReminderLog", mock.Anything, mock.MatchedBy(func(entry *domain.ReminderLog) bool {
		return entry.PlanID == healthy.ID
	}), mock.Anything).Return(nil)

	result, err := svc.RunReminderSweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.PlansScanned)
	assert.Equal(t, 1, result.RemindersSent)
	// No reminder is recorded for the failed dispatch; the next sweep will
	// pick that installment up again.
	deps.repo.AssertNumberOfCalls(t, "AppendReminderLog", 1)
}

func TestRunReminderSweep_CancelledBetweenPlans(t *testing.T) {
	svc, deps := newTestService()

	plans := []*domain.InstallmentPlan{
		planWithDueInstallment(nil),
		planWithDueInstallment(nil),
	}
	expectSweepSetup(deps, plans)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.RunReminderSweep(ctx)

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 2, result.PlansScanned)
	assert.Zero(t, result.RemindersSent)
	deps.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRunReminderSweep_MarksOverdueFirst(t *testing.T) {
	svc, deps := newTestService()

	deps.locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	deps.locker.On("Release", mock.Anything, mock.Anything).Return(nil)
	deps.repo.On("MarkOverdue", mock.Anything, testNow).Return(int64(3), nil)
	deps.repo.On("ListDueForReminder", mock.Anything, testNow, 72*time.Hour).
		Return([]*domain.InstallmentPlan{}, nil)

	result, err := svc.RunReminderSweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.RemindersSent)
	deps.repo.AssertCalled(t, "MarkOverdue", mock.Anything, testNow)
}

func TestClassifyReminder(t *testing.T) {
	window := 72 * time.Hour
	finalAfterDays := 7

	tests := []struct {
		name         string
		status       string
		dueDate      time.Time
		expectedType string
		eligible     bool
	}{
		{
			name:         "pending due within window",
			status:       domain.InstallmentStatusPending,
			dueDate:      testNow.Add(48 * time.Hour),
			expectedType: domain.ReminderTypeDue,
			eligible:     true,
		},
		{
			name:         "pending due exactly now",
			status:       domain.InstallmentStatusPending,
			dueDate:      testNow,
			expectedType: domain.ReminderTypeDue,
			eligible:     true,
		},
		{
			name:     "pending beyond window",
			status:   domain.InstallmentStatusPending,
			dueDate:  testNow.Add(96 * time.Hour),
			eligible: false,
		},
		{
			name:         "overdue three days past due",
			status:       domain.InstallmentStatusOverdue,
			dueDate:      testNow.AddDate(0, 0, -3),
			expectedType: domain.ReminderTypeOverdue,
			eligible:     true,
		},
		{
			name:         "overdue exactly seven days",
			status:       domain.InstallmentStatusOverdue,
			dueDate:      testNow.AddDate(0, 0, -7),
			expectedType: domain.ReminderTypeOverdue,
			eligible:     true,
		},
		{
			name:         "overdue past final threshold",
			status:       domain.InstallmentStatusOverdue,
			dueDate:      testNow.AddDate(0, 0, -10),
			expectedType: domain.ReminderTypeFinal,
			eligible:     true,
		},
		{
			name:     "paid never reminded",
			status:   domain.InstallmentStatusPaid,
			dueDate:  testNow.AddDate(0, 0, -3),
			eligible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := &domain.Installment{
				InstallmentNumber: 1,
				Amount:            3334,
				DueDate:           tt.dueDate,
				Status:            tt.status,
			}

			reminderType, eligible := classifyReminder(inst, testNow, window, finalAfterDays)

			assert.Equal(t, tt.eligible, eligible)
			if tt.eligible {
				assert.Equal(t, tt.expectedType, reminderType)
			}
		})
	}
}

func TestMarkOverdueInstallments(t *testing.T) {
	svc, deps := newTestService()

	deps.repo.On("MarkOverdue", mock.Anything, testNow).Return(int64(5), nil)

	marked, err := svc.MarkOverdueInstallments(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(5), marked)
}

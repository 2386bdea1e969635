package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/coursebill/installment-engine/internal/domain"
	"github.com/coursebill/installment-engine/internal/gateway"
	"github.com/coursebill/installment-engine/internal/notifier"
)

type MockPlanRepository struct {
	mock.Mock
}

func (m *MockPlanRepository) Create(ctx context.Context, plan *domain.InstallmentPlan) error {
	args := m.Called(ctx, plan)
	return args.Error(0)
}

func (m *MockPlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InstallmentPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) FindByPayerAndCharge(ctx context.Context, payerID, chargeID string, statuses []string) ([]*domain.InstallmentPlan, error) {
	args := m.Called(ctx, payerID, chargeID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) SettleInstallment(ctx context.Context, planID uuid.UUID, number int, paymentID, orderID string, paidAt time.Time) (*domain.InstallmentPlan, error) {
	args := m.Called(ctx, planID, number, paymentID, orderID, paidAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) ListDueForReminder(ctx context.Context, now time.Time, window time.Duration) ([]*domain.InstallmentPlan, error) {
	args := m.Called(ctx, now, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentPlan), args.Error(1)
}

func (m *MockPlanRepository) AppendReminderLog(ctx context.Context, entry *domain.ReminderLog, nextReminderDate time.Time) error {
	args := m.Called(ctx, entry, nextReminderDate)
	return args.Error(0)
}

func (m *MockPlanRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPlanRepository) GetStats(ctx context.Context) (*domain.PlanStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlanStats), args.Error(1)
}

type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateOrder(ctx context.Context, req *gateway.OrderRequest) (*gateway.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Send(ctx context.Context, msg *notifier.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockEnrollmentService struct {
	mock.Mock
}

func (m *MockEnrollmentService) IsEnrolled(ctx context.Context, payerID, chargeID string) (bool, error) {
	args := m.Called(ctx, payerID, chargeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentService) Enroll(ctx context.Context, payerID, chargeID string) error {
	args := m.Called(ctx, payerID, chargeID)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockLocker) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

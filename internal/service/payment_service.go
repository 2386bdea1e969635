package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coursebill/installment-engine/internal/config"
	"github.com/coursebill/installment-engine/internal/domain"
	"github.com/coursebill/installment-engine/internal/enrollment"
	"github.com/coursebill/installment-engine/internal/gateway"
	"github.com/coursebill/installment-engine/internal/notifier"
	"github.com/coursebill/installment-engine/internal/repository"
	customError "github.com/coursebill/installment-engine/pkg/errors"
)

type PaymentService struct {
	planRepo   repository.PlanRepository
	gateway    gateway.Client
	dispatcher notifier.Dispatcher
	enrollment enrollment.Service
	locker     Locker
	config     *config.Config
	log        *logrus.Logger

	// injectable clock, reminder classification depends on it
	now func() time.Time
}

func NewPaymentService(
	planRepo repository.PlanRepository,
	gatewayClient gateway.Client,
	dispatcher notifier.Dispatcher,
	enrollmentSvc enrollment.Service,
	locker Locker,
	cfg *config.Config,
	log *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		planRepo:   planRepo,
		gateway:    gatewayClient,
		dispatcher: dispatcher,
		enrollment: enrollmentSvc,
		locker:     locker,
		config:     cfg,
		log:        log,
		now:        time.Now,
	}
}

// CreatePlan creates an installment plan with its payment schedule.
// Creation fails when an active or defaulted plan already exists for the
// payer+charge pair, or when the payer is already enrolled for the charge.
func (s *PaymentService) CreatePlan(ctx context.Context, request *domain.CreatePlanRequest) (*domain.InstallmentPlan, error) {
	count := request.InstallmentCount
	if request.PaymentMethod == domain.PaymentMethodFullUpfront {
		count = 1
	} else if count < 2 {
		return nil, customError.WrapInvalidPlan("installment plans require an installment count of at least 2")
	}

	enrolled, err := s.enrollment.IsEnrolled(ctx, request.PayerID, request.ChargeID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, customError.WrapPlanConflict(request.PayerID, request.ChargeID)
	}

	existing, err := s.planRepo.FindByPayerAndCharge(ctx, request.PayerID, request.ChargeID,
		[]string{domain.PlanStatusActive, domain.PlanStatusDefaulted})
	if err != nil {
		return nil, customError.WrapPersistenceError(err)
	}
	if len(existing) > 0 {
		return nil, customError.WrapPlanConflict(request.PayerID, request.ChargeID)
	}

	startDate := s.now().Truncate(24 * time.Hour)

	var installments []*domain.Installment
	if request.PaymentMethod == domain.PaymentMethodFullUpfront {
		installments, err = domain.BuildUpfrontSchedule(request.TotalAmount, startDate)
	} else {
		installments, err = domain.BuildSchedule(request.TotalAmount, count, startDate)
	}
	if err != nil {
		return nil, err
	}

	plan := &domain.InstallmentPlan{
		ID:               uuid.New(),
		PayerID:          request.PayerID,
		ChargeID:         request.ChargeID,
		TotalAmount:      request.TotalAmount,
		PaidAmount:       0,
		RemainingAmount:  request.TotalAmount,
		PaymentMethod:    request.PaymentMethod,
		InstallmentCount: count,
		Status:           domain.PlanStatusActive,
		CreatedAt:        startDate,
		UpdatedAt:        startDate,
		Installments:     installments,
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		if errors.Is(err, customError.ErrPlanConflict) {
			return nil, customError.WrapPlanConflict(request.PayerID, request.ChargeID)
		}
		return nil, customError.WrapPersistenceError(err)
	}

	s.log.WithFields(logrus.Fields{
		"plan_id":           plan.ID,
		"payer_id":          plan.PayerID,
		"charge_id":         plan.ChargeID,
		"installment_count": count,
		"total_amount":      plan.TotalAmount,
	}).Info("installment plan created")

	return plan, nil
}

// GetPlan retrieves a plan with installments and reminder history
func (s *PaymentService) GetPlan(ctx context.Context, planID string) (*domain.InstallmentPlan, error) {
	id, err := uuid.Parse(planID)
	if err != nil {
		return nil, customError.WrapPlanNotFound(planID)
	}

	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, customError.ErrPlanNotFound) {
			return nil, customError.WrapPlanNotFound(planID)
		}
		return nil, customError.WrapPersistenceError(err)
	}

	return plan, nil
}

// InitiatePayment opens a gateway order for one unpaid installment. The
// engine keeps no local order state; order ids are only trusted once a
// signed settlement callback arrives.
func (s *PaymentService) InitiatePayment(ctx context.Context, planID string, number int) (*domain.InitiatePaymentResponse, error) {
	plan, err := s.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	inst := plan.InstallmentByNumber(number)
	if inst == nil {
		return nil, customError.WrapInstallmentNotFound(planID, number)
	}
	if inst.Status == domain.InstallmentStatusPaid {
		return nil, customError.NewBusinessError(
			customError.ErrCodeAlreadySettled,
			fmt.Sprintf("Installment %d on plan %s is already paid", number, planID),
			customError.ErrAlreadySettled,
		)
	}

	receipt := fmt.Sprintf("rcpt_%s_%d", plan.ID, number)

	order, err := s.gateway.CreateOrder(ctx, &gateway.OrderRequest{
		Amount:   inst.Amount,
		Currency: s.config.Gateway.Currency,
		Receipt:  receipt,
		Notes: map[string]string{
			"plan_id":            plan.ID.String(),
			"installment_number": strconv.Itoa(number),
			"payer_id":           plan.PayerID,
			"charge_id":          plan.ChargeID,
		},
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"plan_id":            plan.ID,
		"installment_number": number,
		"order_id":           order.ID,
		"amount":             inst.Amount,
	}).Info("gateway order created")

	return &domain.InitiatePaymentResponse{
		OrderID:           order.ID,
		Amount:            inst.Amount,
		Currency:          s.config.Gateway.Currency,
		Receipt:           receipt,
		InstallmentNumber: number,
	}, nil
}

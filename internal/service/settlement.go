package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/coursebill/installment-engine/internal/domain"
	"github.com/coursebill/installment-engine/internal/gateway"
	customError "github.com/coursebill/installment-engine/pkg/errors"
	"github.com/coursebill/installment-engine/pkg/utils"
)

// ProcessSettlement validates a gateway settlement callback and applies it
// exactly once.
//
// Idempotent-settlement contract: a callback for an installment that is
// already paid returns the same success payload as the delivery that paid
// it, with no financial state change. Gateway redelivery (its retry
// mechanism on any non-2xx from us) therefore always converges. The
// enrollment side effect fails the callback on every path until it lands,
// so redelivery keeps driving it too. Any failure
// before the settle step leaves no financial state changed; a persistence
// failure after it propagates so the gateway retries into the idempotent
// path.
func (s *PaymentService) ProcessSettlement(ctx context.Context, request *domain.SettlementRequest) (*domain.PlanSummary, error) {
	var missing []string
	if request.OrderID == "" {
		missing = append(missing, "order_id")
	}
	if request.PaymentID == "" {
		missing = append(missing, "payment_id")
	}
	if request.Signature == "" {
		missing = append(missing, "signature")
	}
	if len(missing) > 0 {
		return nil, customError.WrapMissingFields(missing...)
	}

	if !gateway.VerifySignature(request.OrderID, request.PaymentID, request.Signature, s.config.Gateway.WebhookSecret) {
		s.log.WithFields(logrus.Fields{
			"order_id": request.OrderID,
			"plan_id":  request.PlanID,
		}).Warn("settlement callback failed signature verification")
		return nil, customError.WrapSignatureMismatch(request.OrderID)
	}

	planID, err := uuid.Parse(request.PlanID)
	if err != nil {
		return nil, customError.WrapPlanNotFound(request.PlanID)
	}

	plan, err := s.planRepo.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, customError.ErrPlanNotFound) {
			return nil, customError.WrapPlanNotFound(request.PlanID)
		}
		return nil, customError.WrapPersistenceError(err)
	}

	inst := plan.InstallmentByNumber(request.InstallmentNumber)
	if inst == nil {
		return nil, customError.WrapInstallmentNotFound(request.PlanID, request.InstallmentNumber)
	}

	if inst.Status == domain.InstallmentStatusPaid {
		return s.settledIdempotently(ctx, plan, request)
	}

	updated, err := s.planRepo.SettleInstallment(ctx, planID, request.InstallmentNumber,
		request.PaymentID, request.OrderID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, customError.ErrAlreadySettled):
			// Lost a same-callback race; the winner applied the payment.
			fresh, readErr := s.planRepo.GetByID(ctx, planID)
			if readErr != nil {
				return nil, customError.WrapPersistenceError(readErr)
			}
			return s.settledIdempotently(ctx, fresh, request)
		case errors.Is(err, customError.ErrInstallmentNotFound):
			return nil, customError.WrapInstallmentNotFound(request.PlanID, request.InstallmentNumber)
		case errors.Is(err, customError.ErrPlanNotFound):
			return nil, customError.WrapPlanNotFound(request.PlanID)
		default:
			return nil, customError.WrapPersistenceError(err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"plan_id":            updated.ID,
		"installment_number": request.InstallmentNumber,
		"payment_id":         request.PaymentID,
		"remaining_amount":   updated.RemainingAmount,
	}).Info("installment settled")

	if updated.Status == domain.PlanStatusCompleted {
		// At-least-once side effect with an idempotent target. A failure
		// here propagates so gateway redelivery re-attempts it through the
		// already-paid path; the settled payment itself stays committed.
		if err := s.enrollment.Enroll(ctx, updated.PayerID, updated.ChargeID); err != nil {
			s.log.WithError(err).WithField("plan_id", updated.ID).
				Error("enrollment side effect failed after plan completion")
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"plan_id":   updated.ID,
			"payer_id":  updated.PayerID,
			"charge_id": updated.ChargeID,
		}).Info("plan completed, payer enrolled")
	}

	return planSummary(updated), nil
}

// settledIdempotently is the path for redelivered callbacks. The financial
// state is already final and is reported as-is, but a completed plan still
// re-attempts the idempotent enrollment and a failure there propagates:
// answering success with the enrollment missing would stop redelivery and
// strand a fully-paid payer unenrolled.
func (s *PaymentService) settledIdempotently(ctx context.Context, plan *domain.InstallmentPlan, request *domain.SettlementRequest) (*domain.PlanSummary, error) {
	s.log.WithFields(logrus.Fields{
		"plan_id":            plan.ID,
		"installment_number": request.InstallmentNumber,
		"payment_id":         request.PaymentID,
	}).Info("duplicate settlement callback absorbed")

	if plan.Status == domain.PlanStatusCompleted {
		if err := s.enrollment.Enroll(ctx, plan.PayerID, plan.ChargeID); err != nil {
			s.log.WithError(err).WithField("plan_id", plan.ID).
				Error("enrollment re-attempt failed on duplicate callback")
			return nil, err
		}
	}

	return planSummary(plan), nil
}

func planSummary(plan *domain.InstallmentPlan) *domain.PlanSummary {
	return &domain.PlanSummary{
		PlanID:          plan.ID,
		Status:          plan.Status,
		TotalAmount:     plan.TotalAmount,
		PaidAmount:      plan.PaidAmount,
		RemainingAmount: plan.RemainingAmount,
		PaidDisplay:     utils.FormatMinorUnits(plan.PaidAmount),
	}
}

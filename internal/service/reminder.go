package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/coursebill/installment-engine/internal/domain"
	"github.com/coursebill/installment-engine/internal/notifier"
	customError "github.com/coursebill/installment-engine/pkg/errors"
	"github.com/coursebill/installment-engine/pkg/utils"
)

const sweepLockKey = "installment-engine:reminder-sweep:lock"

// RunReminderSweep scans open plans for installments that are due soon or
// overdue and dispatches one reminder per installment, subject to a
// cooldown. The sweep self-excludes through a redis lock: a sweep that
// finds another in flight skips, it does not queue. Dispatch failures are
// logged and never fail the sweep; cancellation is honored between plans.
func (s *PaymentService) RunReminderSweep(ctx context.Context) (*domain.SweepResult, error) {
	acquired, err := s.locker.Acquire(ctx, sweepLockKey, s.config.GetSweepLockTTL())
	if err != nil {
		return nil, customError.WrapPersistenceError(err)
	}
	if !acquired {
		s.log.Warn("reminder sweep already in flight, skipping")
		return &domain.SweepResult{Skipped: true}, nil
	}
	defer s.locker.Release(context.WithoutCancel(ctx), sweepLockKey)

	now := s.now()

	marked, err := s.planRepo.MarkOverdue(ctx, now)
	if err != nil {
		return nil, customError.WrapPersistenceError(err)
	}
	if marked > 0 {
		s.log.WithField("count", marked).Info("installments marked overdue")
	}

	plans, err := s.planRepo.ListDueForReminder(ctx, now, s.config.GetReminderWindow())
	if err != nil {
		return nil, customError.WrapPersistenceError(err)
	}

	result := &domain.SweepResult{PlansScanned: len(plans)}

	for _, plan := range plans {
		if ctx.Err() != nil {
			s.log.WithFields(logrus.Fields{
				"plans_scanned":  result.PlansScanned,
				"reminders_sent": result.RemindersSent,
			}).Warn("reminder sweep cancelled between plans")
			return result, ctx.Err()
		}

		result.RemindersSent += s.remindPlan(ctx, plan, now)
	}

	s.log.WithFields(logrus.Fields{
		"plans_scanned":  result.PlansScanned,
		"reminders_sent": result.RemindersSent,
	}).Info("reminder sweep completed")

	return result, nil
}

func (s *PaymentService) remindPlan(ctx context.Context, plan *domain.InstallmentPlan, now time.Time) int {
	sent := 0

	for _, inst := range plan.Installments {
		reminderType, eligible := classifyReminder(inst, now, s.config.GetReminderWindow(), s.config.Reminder.FinalAfterDays)
		if !eligible {
			continue
		}

		if latest := plan.LatestReminderFor(inst.InstallmentNumber); latest != nil {
			if now.Sub(latest.SentAt) <= s.config.GetReminderCooldown() {
				continue
			}
		}

		msg := s.buildReminderMessage(plan, inst, reminderType)
		if err := s.dispatcher.Send(ctx, msg); err != nil {
			// A failed send never blocks the rest of the sweep and is not
			// retried here; the next sweep picks it up since no log entry
			// was written.
			s.log.WithError(err).WithFields(logrus.Fields{
				"plan_id":            plan.ID,
				"installment_number": inst.InstallmentNumber,
				"reminder_type":      reminderType,
			}).Error("reminder dispatch failed")
			continue
		}

		entry := &domain.ReminderLog{
			PlanID:            plan.ID,
			InstallmentNumber: inst.InstallmentNumber,
			ReminderType:      reminderType,
			SentAt:            now,
		}
		if err := s.planRepo.AppendReminderLog(ctx, entry, now.Add(s.config.GetReminderCooldown())); err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"plan_id":            plan.ID,
				"installment_number": inst.InstallmentNumber,
			}).Error("failed to record sent reminder")
			continue
		}

		sent++
	}

	return sent
}

// classifyReminder decides whether an installment needs a reminder now and
// which kind: "due" before the due date, "overdue" for the first
// finalAfterDays days past it, "final" beyond that.
func classifyReminder(inst *domain.Installment, now time.Time, window time.Duration, finalAfterDays int) (string, bool) {
	switch inst.Status {
	case domain.InstallmentStatusPending:
		if inst.DueDate.Before(now) || inst.DueDate.After(now.Add(window)) {
			return "", false
		}
		return domain.ReminderTypeDue, true
	case domain.InstallmentStatusOverdue:
		if !inst.DueDate.Before(now) {
			return "", false
		}
		if utils.DaysOverdue(inst.DueDate, now) <= finalAfterDays {
			return domain.ReminderTypeOverdue, true
		}
		return domain.ReminderTypeFinal, true
	default:
		return "", false
	}
}

func (s *PaymentService) buildReminderMessage(plan *domain.InstallmentPlan, inst *domain.Installment, reminderType string) *notifier.Message {
	var subject string
	switch reminderType {
	case domain.ReminderTypeDue:
		subject = fmt.Sprintf("Payment reminder: installment %d due soon", inst.InstallmentNumber)
	case domain.ReminderTypeOverdue:
		subject = fmt.Sprintf("Payment overdue: installment %d", inst.InstallmentNumber)
	default:
		subject = fmt.Sprintf("Final notice: installment %d", inst.InstallmentNumber)
	}

	body := fmt.Sprintf(
		"Installment %d of %d for %s: %s due on %s.",
		inst.InstallmentNumber,
		plan.InstallmentCount,
		plan.ChargeID,
		utils.FormatMinorUnits(inst.Amount),
		inst.DueDate.Format("02 Jan 2006"),
	)

	return &notifier.Message{
		Contact: plan.PayerID,
		Subject: subject,
		Body:    body,
	}
}

// MarkOverdueInstallments flips pending installments past their due date to
// overdue. The sweep does this on every run; the scheduler also runs it
// nightly so stats stay current between sweeps.
func (s *PaymentService) MarkOverdueInstallments(ctx context.Context) (int64, error) {
	marked, err := s.planRepo.MarkOverdue(ctx, s.now())
	if err != nil {
		return 0, customError.WrapPersistenceError(err)
	}
	return marked, nil
}

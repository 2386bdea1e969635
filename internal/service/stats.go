package service

import (
	"context"

	"github.com/coursebill/installment-engine/internal/domain"
	customError "github.com/coursebill/installment-engine/pkg/errors"
)

// GetStats computes the plan rollup per request. No caching, no side
// effects; an empty store yields zeros.
func (s *PaymentService) GetStats(ctx context.Context) (*domain.PlanStats, error) {
	stats, err := s.planRepo.GetStats(ctx)
	if err != nil {
		return nil, customError.WrapPersistenceError(err)
	}
	return stats, nil
}

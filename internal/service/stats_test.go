package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/coursebill/installment-engine/internal/domain"
	customError "github.com/coursebill/installment-engine/pkg/errors"
)

func TestGetStats_Rollup(t *testing.T) {
	svc, deps := newTestService()

	deps.repo.On("GetStats", mock.Anything).Return(&domain.PlanStats{
		ActivePlans:         4,
		CompletedPlans:      2,
		DefaultedPlans:      1,
		TotalRevenue:        250000,
		PendingRevenue:      130000,
		OverdueInstallments: 3,
	}, nil)

	stats, err := svc.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.ActivePlans)
	assert.Equal(t, int64(250000), stats.TotalRevenue)
	assert.Equal(t, int64(3), stats.OverdueInstallments)
}

func TestGetStats_EmptyStoreYieldsZeros(t *testing.T) {
	svc, deps := newTestService()

	deps.repo.On("GetStats", mock.Anything).Return(&domain.PlanStats{}, nil)

	stats, err := svc.GetStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &domain.PlanStats{}, stats)
}

func TestGetStats_PersistenceError(t *testing.T) {
	svc, deps := newTestService()

	deps.repo.On("GetStats", mock.Anything).Return(nil, errors.New("connection refused"))

	stats, err := svc.GetStats(context.Background())

	require.Error(t, err)
	var bizErr *customError.BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, customError.ErrCodePersistence, bizErr.Code)
	assert.Nil(t, stats)
}

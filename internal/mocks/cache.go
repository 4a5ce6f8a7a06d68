package mocks

import (
	"context"

	"github.com/segyhp/lending-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockScheduleCache struct {
	mock.Mock
}

func (m *MockScheduleCache) Get(ctx context.Context, loanID uuid.UUID) ([]*domain.PaymentSchedule, bool, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*domain.PaymentSchedule), args.Bool(1), args.Error(2)
}

func (m *MockScheduleCache) Set(ctx context.Context, loanID uuid.UUID, schedule []*domain.PaymentSchedule) error {
	args := m.Called(ctx, loanID, schedule)
	return args.Error(0)
}

func (m *MockScheduleCache) Invalidate(ctx context.Context, loanIDs ...uuid.UUID) error {
	args := m.Called(ctx, loanIDs)
	return args.Error(0)
}

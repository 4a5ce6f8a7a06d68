package mocks

import (
	"context"

	"github.com/segyhp/lending-engine/internal/amortization"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/siaf"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) Create(ctx context.Context, actor domain.Actor, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CreateLoanResponse), args.Error(1)
}

func (m *MockLoanService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) List(ctx context.Context, actor domain.Actor, page domain.Page) ([]*domain.Loan, int, error) {
	args := m.Called(ctx, actor, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Loan), args.Int(1), args.Error(2)
}

func (m *MockLoanService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, req *domain.UpdateLoanRequest) (*domain.Loan, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockLoanService) Schedule(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]*domain.PaymentSchedule, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentSchedule), args.Error(1)
}

func (m *MockLoanService) Preview(ctx context.Context, req *domain.PreviewScheduleRequest) ([]amortization.Row, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]amortization.Row), args.Error(1)
}

func (m *MockLoanService) Upcoming(ctx context.Context, actor domain.Actor) ([]*domain.PaymentSchedule, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentSchedule), args.Error(1)
}

func (m *MockLoanService) Overdue(ctx context.Context, actor domain.Actor) ([]*domain.PaymentSchedule, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentSchedule), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Make(ctx context.Context, actor domain.Actor, loanID uuid.UUID, req *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error) {
	args := m.Called(ctx, actor, loanID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MakePaymentResponse), args.Error(1)
}

func (m *MockPaymentService) Reverse(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, actor, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockPaymentService) Get(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, actor, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentService) ListByLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID, page domain.Page) ([]*domain.Payment, int, error) {
	args := m.Called(ctx, actor, loanID, page)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Payment), args.Int(1), args.Error(2)
}

type MockSIAFService struct {
	mock.Mock
}

func (m *MockSIAFService) Captcha(ctx context.Context, actor domain.Actor) (*siaf.CaptchaResult, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*siaf.CaptchaResult), args.Error(1)
}

func (m *MockSIAFService) Consult(ctx context.Context, actor domain.Actor, in siaf.ConsultInput) (*siaf.ConsultResult, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*siaf.ConsultResult), args.Error(1)
}

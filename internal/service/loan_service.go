package service

import (
	"context"
	"time"

	"github.com/segyhp/lending-engine/internal/amortization"
	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LoanService struct {
	loans      repository.LoanRepository
	uow        repository.UnitOfWork
	schedules  cache.Schedules
	calculator *amortization.Calculator
	now        func() time.Time
}

func NewLoanService(
	loans repository.LoanRepository,
	uow repository.UnitOfWork,
	schedules cache.Schedules,
) *LoanService {
	return &LoanService{
		loans:      loans,
		uow:        uow,
		schedules:  schedules,
		calculator: amortization.NewCalculator(),
		now:        time.Now,
	}
}

// Create stores a loan and its full schedule in one transaction.
func (s *LoanService) Create(ctx context.Context, actor domain.Actor, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	if !actor.IsSystem() && !actor.CanAccessCompany(req.CompanyID) {
		return nil, customError.NewValidationError("company_id", "is not accessible to the caller")
	}

	params, err := scheduleParams(req.AmortizationType, req.PrincipalAmount, req.InterestRate, req.TermMonths, req.StartDate)
	if err != nil {
		return nil, err
	}

	rows, err := s.calculator.Calculate(params)
	if err != nil {
		return nil, err
	}

	now := s.now()
	endDate := rows[len(rows)-1].DueDate
	loan := &domain.Loan{
		ID:               uuid.New(),
		CompanyID:        req.CompanyID,
		ClientID:         req.ClientID,
		PrincipalAmount:  params.Principal,
		InterestRate:     params.AnnualRatePercent,
		TermMonths:       params.TermMonths,
		StartDate:        params.StartDate,
		EndDate:          &endDate,
		BalanceRemaining: params.Principal,
		Status:           domain.LoanStatusActive,
		AmortizationType: params.Method,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	schedule := toSchedule(loan.ID, rows, now)

	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		if err := r.Loans.Create(ctx, loan); err != nil {
			return err
		}
		return r.Loans.CreateSchedule(ctx, schedule)
	})
	if err != nil {
		return nil, storageError(err)
	}

	if err := s.schedules.Set(ctx, loan.ID, schedule); err != nil {
		logger.CtxWarn(ctx, "failed to cache loan schedule", zap.String("loan_id", loan.ID.String()), zap.Error(err))
	}

	logger.CtxInfo(ctx, "loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("method", string(loan.AmortizationType)),
		zap.Int("installments", len(schedule)),
	)

	return &domain.CreateLoanResponse{Loan: loan, Schedule: schedule}, nil
}

func (s *LoanService) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Loan, error) {
	loan, err := s.loans.GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}
	if err := authorizeLoan(actor, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// List returns one page of the actor's loans and the total count.
func (s *LoanService) List(ctx context.Context, actor domain.Actor, page domain.Page) ([]*domain.Loan, int, error) {
	if len(actor.CompanyIDs) == 0 {
		return []*domain.Loan{}, 0, nil
	}

	loans, total, err := s.loans.ListByCompanies(ctx, actor.CompanyIDs, page.Normalize())
	if err != nil {
		return nil, 0, storageError(err)
	}
	return loans, total, nil
}

// Update changes the interest rate of an active loan. The stored schedule is
// left untouched.
func (s *LoanService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, req *domain.UpdateLoanRequest) (*domain.Loan, error) {
	var updated *domain.Loan
	err := s.uow.WithinLoanTx(ctx, id, func(r repository.Repos, loan *domain.Loan) error {
		if err := authorizeLoan(actor, loan); err != nil {
			return err
		}
		if !loan.IsActive() {
			return customError.WrapLoanNotActive(loan.ID.String())
		}

		if req.InterestRate != nil {
			if req.InterestRate.IsNegative() {
				return customError.NewValidationError("interest_rate", "must be greater than or equal to 0")
			}
			loan.InterestRate = *req.InterestRate
		}
		loan.UpdatedAt = s.now()

		if err := r.Loans.Update(ctx, loan); err != nil {
			return err
		}
		updated = loan
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return updated, nil
}

// Delete removes an active loan with its schedule and payments.
func (s *LoanService) Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	err := s.uow.WithinLoanTx(ctx, id, func(r repository.Repos, loan *domain.Loan) error {
		if err := authorizeLoan(actor, loan); err != nil {
			return err
		}
		if !loan.IsActive() {
			return customError.WrapLoanNotActive(loan.ID.String())
		}
		return r.Loans.Delete(ctx, loan.ID)
	})
	if err != nil {
		return storageError(err)
	}

	s.invalidate(ctx, id)
	logger.CtxInfo(ctx, "loan deleted", zap.String("loan_id", id.String()))
	return nil
}

// Schedule returns the stored schedule of a loan, served from cache when possible.
func (s *LoanService) Schedule(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]*domain.PaymentSchedule, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}

	cached, found, err := s.schedules.Get(ctx, id)
	if err != nil {
		logger.CtxWarn(ctx, "schedule cache read failed", zap.String("loan_id", id.String()), zap.Error(err))
	}
	if found {
		return cached, nil
	}

	schedule, err := s.loans.GetScheduleByLoanID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}

	if err := s.schedules.Set(ctx, id, schedule); err != nil {
		logger.CtxWarn(ctx, "failed to cache loan schedule", zap.String("loan_id", id.String()), zap.Error(err))
	}
	return schedule, nil
}

// Preview computes a schedule without storing anything.
func (s *LoanService) Preview(ctx context.Context, req *domain.PreviewScheduleRequest) ([]amortization.Row, error) {
	params, err := scheduleParams(req.AmortizationType, req.PrincipalAmount, req.InterestRate, req.TermMonths, req.StartDate)
	if err != nil {
		return nil, err
	}
	return s.calculator.Calculate(params)
}

// Overdue lists the pending installments of the actor's active loans that fell
// due before today. Overdue is a read-time view; stored rows stay pending so a
// later payment can still settle them.
func (s *LoanService) Overdue(ctx context.Context, actor domain.Actor) ([]*domain.PaymentSchedule, error) {
	today := utils.DateOf(s.now())
	rows, err := s.loans.GetOverdueSchedules(ctx, actor.CompanyIDs, today)
	if err != nil {
		return nil, storageError(err)
	}

	overdue := make([]*domain.PaymentSchedule, 0, len(rows))
	for _, row := range rows {
		if row.IsPending() && utils.IsDateOverdue(row.DueDate, today) {
			overdue = append(overdue, row)
		}
	}
	return overdue, nil
}

// Upcoming lists the pending installments of the actor's active loans due
// from today through the same day next month.
func (s *LoanService) Upcoming(ctx context.Context, actor domain.Actor) ([]*domain.PaymentSchedule, error) {
	today := utils.DateOf(s.now())
	rows, err := s.loans.GetUpcomingSchedules(ctx, actor.CompanyIDs, today, utils.AddMonthsClamped(today, 1))
	if err != nil {
		return nil, storageError(err)
	}
	return rows, nil
}

func (s *LoanService) invalidate(ctx context.Context, loanIDs ...uuid.UUID) {
	if len(loanIDs) == 0 {
		return
	}
	if err := s.schedules.Invalidate(ctx, loanIDs...); err != nil {
		logger.CtxWarn(ctx, "schedule cache invalidation failed", zap.Int("loans", len(loanIDs)), zap.Error(err))
	}
}

func scheduleParams(method string, principal, rate decimal.Decimal, term int, startDate string) (amortization.Params, error) {
	m, err := domain.ParseAmortizationMethod(method)
	if err != nil {
		return amortization.Params{}, err
	}
	start, err := utils.ParseDate(startDate)
	if err != nil {
		return amortization.Params{}, customError.NewValidationError("start_date", "must be a date formatted as 2006-01-02")
	}
	return amortization.Params{
		Method:            m,
		Principal:         principal,
		AnnualRatePercent: rate,
		TermMonths:        term,
		StartDate:         start,
	}, nil
}

func toSchedule(loanID uuid.UUID, rows []amortization.Row, now time.Time) []*domain.PaymentSchedule {
	schedule := make([]*domain.PaymentSchedule, 0, len(rows))
	for _, row := range rows {
		schedule = append(schedule, &domain.PaymentSchedule{
			ID:            uuid.New(),
			LoanID:        loanID,
			PaymentNumber: row.PaymentNumber,
			DueDate:       row.DueDate,
			PrincipalDue:  row.PrincipalDue,
			InterestDue:   row.InterestDue,
			TotalDue:      row.TotalDue,
			Status:        domain.ScheduleStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	return schedule
}

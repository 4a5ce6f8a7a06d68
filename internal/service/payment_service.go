package service

import (
	"context"

	"github.com/segyhp/lending-engine/internal/cache"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/ledger"
	"github.com/segyhp/lending-engine/internal/logger"
	"github.com/segyhp/lending-engine/internal/repository"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentService struct {
	loans     repository.LoanRepository
	payments  repository.PaymentRepository
	uow       repository.UnitOfWork
	schedules cache.Schedules
	ledger    *ledger.Ledger
}

func NewPaymentService(
	loans repository.LoanRepository,
	payments repository.PaymentRepository,
	uow repository.UnitOfWork,
	schedules cache.Schedules,
) *PaymentService {
	return &PaymentService{
		loans:     loans,
		payments:  payments,
		uow:       uow,
		schedules: schedules,
		ledger:    ledger.New(),
	}
}

// Make applies a payment to a loan while holding the loan's row lock, so
// concurrent payments on the same loan are serialized.
func (s *PaymentService) Make(ctx context.Context, actor domain.Actor, loanID uuid.UUID, req *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error) {
	paymentDate, err := utils.ParseDate(req.PaymentDate)
	if err != nil {
		return nil, customError.NewValidationError("payment_date", "must be a date formatted as 2006-01-02")
	}

	var resp *domain.MakePaymentResponse
	err = s.uow.WithinLoanTx(ctx, loanID, func(r repository.Repos, loan *domain.Loan) error {
		if err := authorizeLoan(actor, loan); err != nil {
			return err
		}

		schedule, err := r.Loans.GetScheduleByLoanID(ctx, loan.ID)
		if err != nil {
			return err
		}

		result, err := s.ledger.Apply(loan, schedule, ledger.PaymentInput{
			PrincipalPaid: req.PrincipalPaid,
			InterestPaid:  req.InterestPaid,
			PaymentDate:   paymentDate,
		})
		if err != nil {
			return err
		}

		if err := r.Payments.Create(ctx, result.Payment); err != nil {
			return err
		}
		if err := r.Loans.Update(ctx, loan); err != nil {
			return err
		}
		if result.Matched != nil {
			if err := r.Loans.UpdateScheduleStatus(ctx, result.Matched.ID, domain.ScheduleStatusPaid); err != nil {
				return err
			}
		}

		resp = &domain.MakePaymentResponse{
			Payment:     result.Payment,
			MatchedRow:  result.Matched,
			LoanBalance: loan.BalanceRemaining,
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	if resp.MatchedRow != nil {
		if err := s.schedules.Invalidate(ctx, loanID); err != nil {
			logger.CtxWarn(ctx, "schedule cache invalidation failed", zap.String("loan_id", loanID.String()), zap.Error(err))
		}
	}

	logger.CtxInfo(ctx, "payment applied",
		zap.String("loan_id", loanID.String()),
		zap.String("payment_id", resp.Payment.ID.String()),
		zap.String("total_paid", resp.Payment.TotalPaid.String()),
		zap.String("balance_remaining", resp.LoanBalance.String()),
	)
	return resp, nil
}

// Reverse deletes a payment and adds its principal back to the loan balance.
// Schedule rows it marked paid stay paid.
func (s *PaymentService) Reverse(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) (*domain.Loan, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, storageError(err)
	}

	var updated *domain.Loan
	err = s.uow.WithinLoanTx(ctx, payment.LoanID, func(r repository.Repos, loan *domain.Loan) error {
		if err := authorizeLoan(actor, loan); err != nil {
			return customError.WrapPaymentNotFound(paymentID.String())
		}

		// re-read under the loan lock
		locked, err := r.Payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := s.ledger.Reverse(loan, locked); err != nil {
			return err
		}
		if err := r.Loans.Update(ctx, loan); err != nil {
			return err
		}
		if err := r.Payments.Delete(ctx, locked.ID); err != nil {
			return err
		}
		updated = loan
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	logger.CtxInfo(ctx, "payment reversed",
		zap.String("loan_id", updated.ID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.String("balance_remaining", updated.BalanceRemaining.String()),
	)
	return updated, nil
}

func (s *PaymentService) Get(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, storageError(err)
	}

	loan, err := s.loans.GetByID(ctx, payment.LoanID)
	if err != nil {
		return nil, storageError(err)
	}
	if err := authorizeLoan(actor, loan); err != nil {
		return nil, customError.WrapPaymentNotFound(paymentID.String())
	}
	return payment, nil
}

// ListByLoan returns one page of a loan's payments, latest first.
func (s *PaymentService) ListByLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID, page domain.Page) ([]*domain.Payment, int, error) {
	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return nil, 0, storageError(err)
	}
	if err := authorizeLoan(actor, loan); err != nil {
		return nil, 0, err
	}

	payments, total, err := s.payments.GetByLoanID(ctx, loanID, page.Normalize())
	if err != nil {
		return nil, 0, storageError(err)
	}
	return payments, total, nil
}

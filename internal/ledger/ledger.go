// Package ledger applies payments to a loan balance and reverses them.
//
// The functions here only compute and mutate the values they are given.
// Callers load the loan and its schedule under a per-loan lock and persist
// the results in the same transaction.
package ledger

import (
	"sort"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentInput is an incoming repayment.
type PaymentInput struct {
	PrincipalPaid decimal.Decimal
	InterestPaid  decimal.Decimal
	PaymentDate   time.Time
}

// Result is the outcome of applying a payment.
type Result struct {
	Payment *domain.Payment
	// Matched is the schedule row flipped to paid, nil when none qualified.
	Matched *domain.PaymentSchedule
}

// Ledger applies and reverses payments.
type Ledger struct {
	now func() time.Time
}

func New() *Ledger {
	return &Ledger{now: time.Now}
}

// NewWithClock is used by tests that need stable timestamps.
func NewWithClock(now func() time.Time) *Ledger {
	return &Ledger{now: now}
}

// Apply records a payment against loan. The loan balance drops by the
// principal paid and never goes below zero; overpaid principal is not kept
// as credit. The first pending row (by payment number) whose total due is
// covered by the total paid is marked paid. The loan status is left as is.
func (l *Ledger) Apply(loan *domain.Loan, schedule []*domain.PaymentSchedule, in PaymentInput) (*Result, error) {
	if !loan.IsActive() {
		return nil, customError.WrapLoanNotActive(loan.ID.String())
	}
	if in.PrincipalPaid.IsNegative() {
		return nil, customError.NewValidationError("principal_paid", "must be greater than or equal to 0")
	}
	if in.InterestPaid.IsNegative() {
		return nil, customError.NewValidationError("interest_paid", "must be greater than or equal to 0")
	}
	if in.PaymentDate.IsZero() {
		return nil, customError.NewValidationError("payment_date", "is required")
	}

	principal := money.Round(in.PrincipalPaid)
	interest := money.Round(in.InterestPaid)
	total := principal.Add(interest)

	newBalance := money.Max(decimal.Zero, loan.BalanceRemaining.Sub(principal))
	now := l.now()

	payment := &domain.Payment{
		ID:               uuid.New(),
		LoanID:           loan.ID,
		PaymentDate:      in.PaymentDate,
		PrincipalPaid:    principal,
		InterestPaid:     interest,
		TotalPaid:        total,
		BalanceRemaining: newBalance,
		Status:           domain.PaymentStatusCompleted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	loan.BalanceRemaining = newBalance
	loan.UpdatedAt = now

	matched := MatchScheduleRow(schedule, total)
	if matched != nil {
		matched.Status = domain.ScheduleStatusPaid
		matched.UpdatedAt = now
	}

	return &Result{Payment: payment, Matched: matched}, nil
}

// MatchScheduleRow returns the first pending row, in payment number order,
// whose total due is covered by totalPaid. It can pick a later and cheaper
// installment over an earlier one.
func MatchScheduleRow(schedule []*domain.PaymentSchedule, totalPaid decimal.Decimal) *domain.PaymentSchedule {
	ordered := make([]*domain.PaymentSchedule, len(schedule))
	copy(ordered, schedule)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].PaymentNumber < ordered[j].PaymentNumber
	})

	for _, row := range ordered {
		if row.IsPending() && row.TotalDue.LessThanOrEqual(totalPaid) {
			return row
		}
	}
	return nil
}

// Reverse undoes the balance effect of payment on loan. Schedule rows marked
// paid at application time stay paid. The caller deletes the payment record.
func (l *Ledger) Reverse(loan *domain.Loan, payment *domain.Payment) error {
	if payment.LoanID != loan.ID {
		return customError.WrapPaymentNotFound(payment.ID.String())
	}
	if !loan.IsActive() {
		return customError.WrapLoanNotActive(loan.ID.String())
	}

	loan.BalanceRemaining = loan.BalanceRemaining.Add(payment.PrincipalPaid)
	loan.UpdatedAt = l.now()

	return nil
}

// Package amortization builds loan payment schedules.
//
// A schedule is a pure function of its Params: the calculator never reads the
// clock and never touches storage. Every row is rounded half-up to cents on
// its own; the last row takes whatever principal remains so the principal
// column always sums to the loan amount.
package amortization

import (
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
	"github.com/segyhp/lending-engine/pkg/money"
	"github.com/segyhp/lending-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// Params are the inputs of a schedule.
type Params struct {
	Method            domain.AmortizationMethod
	Principal         decimal.Decimal
	AnnualRatePercent decimal.Decimal
	TermMonths        int
	StartDate         time.Time
}

// Row is one installment of a computed schedule.
type Row struct {
	PaymentNumber    int             `json:"payment_number"`
	DueDate          time.Time       `json:"due_date"`
	PrincipalDue     decimal.Decimal `json:"principal_due"`
	InterestDue      decimal.Decimal `json:"interest_due"`
	TotalDue         decimal.Decimal `json:"total_due"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Status           string          `json:"status"`
}

// Calculator computes schedules. It has no state; the zero value is ready to use.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Calculate(p Params) ([]Row, error) {
	return Calculate(p)
}

// Calculate validates p and returns its schedule ordered by payment number.
func Calculate(p Params) ([]Row, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r := money.MonthlyRate(p.AnnualRatePercent)

	switch p.Method {
	case domain.MethodFrench:
		return french(p, r)
	case domain.MethodGerman:
		return german(p, r)
	case domain.MethodAmerican:
		return american(p, r), nil
	}

	return nil, customError.NewValidationError("amortization_type", "must be one of french, german, american")
}

// Validate checks the preconditions shared by every method.
func (p Params) Validate() error {
	if !p.Principal.IsPositive() {
		return customError.NewValidationError("principal_amount", "must be greater than 0")
	}
	if p.AnnualRatePercent.IsNegative() {
		return customError.NewValidationError("interest_rate", "must be greater than or equal to 0")
	}
	if p.TermMonths < 1 {
		return customError.NewValidationError("loan_term_months", "must be at least 1")
	}
	if p.StartDate.IsZero() {
		return customError.NewValidationError("start_date", "is required")
	}
	if !p.Method.Valid() {
		return customError.NewValidationError("amortization_type", "must be one of french, german, american")
	}
	return nil
}

// french keeps the installment constant. The annuity payment is computed once
// at full precision and rounded; interest is charged on the running balance.
func french(p Params, r decimal.Decimal) ([]Row, error) {
	n := decimal.NewFromInt(int64(p.TermMonths))

	var payment decimal.Decimal
	if r.IsZero() {
		perPeriod, err := money.Div(p.Principal, n, "loan_term_months")
		if err != nil {
			return nil, err
		}
		payment = money.Round(perPeriod)
	} else {
		// P·r / (1 − (1+r)^−n) == P·r·f / (f − 1) with f = (1+r)^n
		factor := money.Compound(money.One.Add(r), p.TermMonths)
		annuity, err := money.Div(p.Principal.Mul(r).Mul(factor), factor.Sub(money.One), "interest_rate")
		if err != nil {
			return nil, err
		}
		payment = money.Round(annuity)
	}

	return build(p, func(_ int, balance decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
		interest := money.Round(balance.Mul(r))
		return payment.Sub(interest), interest
	}), nil
}

// german amortizes a constant principal share and charges interest on the
// running balance, so the installment shrinks over time. When the rounded
// share overshoots the principal (P=0.15 over 9 months rounds to 0.02), the
// balance runs out early: the row that exhausts it takes what is left and the
// trailing rows carry zero principal.
func german(p Params, r decimal.Decimal) ([]Row, error) {
	share, err := money.Div(p.Principal, decimal.NewFromInt(int64(p.TermMonths)), "loan_term_months")
	if err != nil {
		return nil, err
	}
	share = money.Round(share)

	return build(p, func(_ int, balance decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
		return share, money.Round(balance.Mul(r))
	}), nil
}

// american charges interest on the full principal every month and repays
// the principal in the final installment.
func american(p Params, r decimal.Decimal) []Row {
	interest := money.Round(p.Principal.Mul(r))

	return build(p, func(_ int, _ decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
		return decimal.Zero, interest
	})
}

// rowFunc returns the principal and interest of installment i given the
// balance outstanding before it.
type rowFunc func(i int, balance decimal.Decimal) (principal, interest decimal.Decimal)

// build walks the installments. Principal is kept within [0, balance] and the
// last row settles the remaining balance.
func build(p Params, next rowFunc) []Row {
	rows := make([]Row, 0, p.TermMonths)
	balance := p.Principal

	for i := 1; i <= p.TermMonths; i++ {
		principal, interest := next(i, balance)

		if i == p.TermMonths {
			principal = balance
		} else {
			principal = money.Min(money.Max(principal, decimal.Zero), balance)
		}
		balance = balance.Sub(principal)

		rows = append(rows, Row{
			PaymentNumber:    i,
			DueDate:          utils.CalculateDueDate(p.StartDate, i),
			PrincipalDue:     principal,
			InterestDue:      interest,
			TotalDue:         principal.Add(interest),
			RemainingBalance: balance,
			Status:           domain.ScheduleStatusPending,
		})
	}

	return rows
}

// TotalInterest sums the interest column.
func TotalInterest(rows []Row) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.InterestDue)
	}
	return total
}

// TotalPrincipal sums the principal column.
func TotalPrincipal(rows []Row) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.PrincipalDue)
	}
	return total
}

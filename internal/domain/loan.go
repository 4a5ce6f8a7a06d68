package domain

import (
	"time"

	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusDefaulted = "defaulted"
)

// AmortizationMethod selects how a loan's installments are computed.
type AmortizationMethod string

const (
	// MethodFrench keeps the total installment constant (annuity).
	MethodFrench AmortizationMethod = "french"
	// MethodGerman keeps the principal portion constant.
	MethodGerman AmortizationMethod = "german"
	// MethodAmerican charges interest only and pays the principal in the last installment.
	MethodAmerican AmortizationMethod = "american"
)

// AmortizationMethods lists every supported method.
var AmortizationMethods = []AmortizationMethod{MethodFrench, MethodGerman, MethodAmerican}

func (m AmortizationMethod) Valid() bool {
	switch m {
	case MethodFrench, MethodGerman, MethodAmerican:
		return true
	}
	return false
}

// ParseAmortizationMethod validates a method name.
func ParseAmortizationMethod(s string) (AmortizationMethod, error) {
	m := AmortizationMethod(s)
	if !m.Valid() {
		return "", customError.NewValidationError("amortization_type", "must be one of french, german, american")
	}
	return m, nil
}

// Loan represents a loan entity
type Loan struct {
	ID               uuid.UUID          `json:"id" db:"id"`
	CompanyID        uuid.UUID          `json:"company_id" db:"company_id"`
	ClientID         uuid.UUID          `json:"client_id" db:"client_id"`
	PrincipalAmount  decimal.Decimal    `json:"principal_amount" db:"principal_amount"`
	InterestRate     decimal.Decimal    `json:"interest_rate" db:"interest_rate"`
	TermMonths       int                `json:"loan_term_months" db:"loan_term_months"`
	StartDate        time.Time          `json:"start_date" db:"start_date"`
	EndDate          *time.Time         `json:"end_date,omitempty" db:"end_date"`
	BalanceRemaining decimal.Decimal    `json:"balance_remaining" db:"balance_remaining"`
	Status           string             `json:"status" db:"status"`
	AmortizationType AmortizationMethod `json:"amortization_type" db:"amortization_type"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}

func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	CompanyID        uuid.UUID       `json:"company_id" validate:"required"`
	ClientID         uuid.UUID       `json:"client_id" validate:"required"`
	PrincipalAmount  decimal.Decimal `json:"principal_amount" validate:"decimal_gte=0.01"`
	InterestRate     decimal.Decimal `json:"interest_rate" validate:"decimal_gte=0"`
	TermMonths       int             `json:"loan_term_months" validate:"required,min=1"`
	StartDate        string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	AmortizationType string          `json:"amortization_type" validate:"required,oneof=french german american"`
}

type UpdateLoanRequest struct {
	InterestRate *decimal.Decimal `json:"interest_rate" validate:"omitempty,decimal_gte=0"`
}

type CreateLoanResponse struct {
	Loan     *Loan              `json:"loan"`
	Schedule []*PaymentSchedule `json:"schedule"`
}

type PreviewScheduleRequest struct {
	PrincipalAmount  decimal.Decimal `json:"principal_amount" validate:"decimal_gte=0.01"`
	InterestRate     decimal.Decimal `json:"interest_rate" validate:"decimal_gte=0"`
	TermMonths       int             `json:"loan_term_months" validate:"required,min=1"`
	StartDate        string          `json:"start_date" validate:"required,datetime=2006-01-02"`
	AmortizationType string          `json:"amortization_type" validate:"required,oneof=french german american"`
}

type Page struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultPerPage mirrors the page size used by the listing endpoints.
const DefaultPerPage = 15

func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 || p.PerPage > 100 {
		p.PerPage = DefaultPerPage
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

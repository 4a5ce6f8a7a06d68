package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
)

// Payment is a recorded repayment against a loan. BalanceRemaining snapshots
// the loan balance right after the payment was applied.
type Payment struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanID           uuid.UUID       `json:"loan_id" db:"loan_id"`
	PaymentDate      time.Time       `json:"payment_date" db:"payment_date"`
	PrincipalPaid    decimal.Decimal `json:"principal_paid" db:"principal_paid"`
	InterestPaid     decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	TotalPaid        decimal.Decimal `json:"total_paid" db:"total_paid"`
	BalanceRemaining decimal.Decimal `json:"balance_remaining" db:"balance_remaining"`
	Status           string          `json:"status" db:"status"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

type MakePaymentRequest struct {
	PaymentDate   string          `json:"payment_date" validate:"required,datetime=2006-01-02"`
	PrincipalPaid decimal.Decimal `json:"principal_paid" validate:"decimal_gte=0"`
	InterestPaid  decimal.Decimal `json:"interest_paid" validate:"decimal_gte=0"`
}

type MakePaymentResponse struct {
	Payment     *Payment         `json:"payment"`
	MatchedRow  *PaymentSchedule `json:"matched_schedule,omitempty"`
	LoanBalance decimal.Decimal  `json:"loan_balance"`
}

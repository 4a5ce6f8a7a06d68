package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Business logic constants
const (
	ScheduleStatusPending = "pending"
	ScheduleStatusPaid    = "paid"
)

// PaymentSchedule represents one installment of a loan
type PaymentSchedule struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LoanID        uuid.UUID       `json:"loan_id" db:"loan_id"`
	PaymentNumber int             `json:"payment_number" db:"payment_number"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	PrincipalDue  decimal.Decimal `json:"principal_due" db:"principal_due"`
	InterestDue   decimal.Decimal `json:"interest_due" db:"interest_due"`
	TotalDue      decimal.Decimal `json:"total_due" db:"total_due"`
	Status        string          `json:"status" db:"status"` // pending, paid
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

func (s *PaymentSchedule) IsPending() bool {
	return s.Status == ScheduleStatusPending
}

type ScheduleResponse struct {
	LoanID   uuid.UUID          `json:"loan_id"`
	Schedule []*PaymentSchedule `json:"schedule"`
}

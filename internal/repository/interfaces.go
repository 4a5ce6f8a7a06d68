package repository

import (
	"context"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"

	"github.com/google/uuid"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan and locks its row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// ListByCompanies returns one page of loans owned by any of the companies, newest first, and the total count
	ListByCompanies(ctx context.Context, companyIDs []uuid.UUID, page domain.Page) ([]*domain.Loan, int, error)

	// Update updates a loan
	Update(ctx context.Context, loan *domain.Loan) error

	// Delete removes a loan together with its schedule and payments
	Delete(ctx context.Context, id uuid.UUID) error

	// CreateSchedule creates loan schedule entries
	CreateSchedule(ctx context.Context, schedules []*domain.PaymentSchedule) error

	// GetScheduleByLoanID retrieves loan schedule by loan ID ordered by payment number
	GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.PaymentSchedule, error)

	// UpdateScheduleStatus updates the status of a specific schedule entry
	UpdateScheduleStatus(ctx context.Context, scheduleID uuid.UUID, status string) error

	// GetOverdueSchedules lists pending schedules of the companies' active loans due before currentDate
	GetOverdueSchedules(ctx context.Context, companyIDs []uuid.UUID, currentDate time.Time) ([]*domain.PaymentSchedule, error)

	// GetUpcomingSchedules lists pending schedules of the companies' active loans due between from and until
	GetUpcomingSchedules(ctx context.Context, companyIDs []uuid.UUID, from, until time.Time) ([]*domain.PaymentSchedule, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByLoanID retrieves one page of payments for a loan, latest first, and the total count
	GetByLoanID(ctx context.Context, loanID uuid.UUID, page domain.Page) ([]*domain.Payment, int, error)

	// Delete removes a payment record
	Delete(ctx context.Context, id uuid.UUID) error
}

// DebtRepository reads debts for the due-date reminder scan
type DebtRepository interface {
	// GetByID retrieves a debt with its client and entity contact data
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Debt, error)

	// FindDueSoon returns active debts with a pending balance due between from and until
	// that have no WhatsApp reminder delivered since the given time
	FindDueSoon(ctx context.Context, from, until, notifiedSince time.Time) ([]*domain.Debt, error)
}

// NotificationRepository stores outbound notifications and their delivery state
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)
	MarkSent(ctx context.Context, n *domain.Notification) error
	MarkFailed(ctx context.Context, n *domain.Notification) error

	// ListRecentSent returns the WhatsApp reminders delivered since the given time for the debts
	ListRecentSent(ctx context.Context, debtIDs []uuid.UUID, since time.Time) ([]*domain.Notification, error)
}

// Repos groups the repositories bound to one transaction
type Repos struct {
	Loans    LoanRepository
	Payments PaymentRepository
}

// UnitOfWork runs a function inside a database transaction
type UnitOfWork interface {
	// WithinTx runs fn in a transaction; fn's error rolls it back
	WithinTx(ctx context.Context, fn func(r Repos) error) error

	// WithinLoanTx locks the loan row first, then runs fn with it
	WithinLoanTx(ctx context.Context, loanID uuid.UUID, fn func(r Repos, loan *domain.Loan) error) error
}

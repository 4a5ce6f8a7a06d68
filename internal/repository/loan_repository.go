package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const loanColumns = `id, company_id, client_id, principal_amount, interest_rate, loan_term_months, start_date,
		end_date, balance_remaining, status, amortization_type, created_at, updated_at`

const scheduleColumns = `id, loan_id, payment_number, due_date, principal_due, interest_due, total_due,
		status, created_at, updated_at`

const joinedScheduleColumns = `ps.id, ps.loan_id, ps.payment_number, ps.due_date, ps.principal_due, ps.interest_due,
		ps.total_due, ps.status, ps.created_at, ps.updated_at`

type loanRepository struct {
	db sqlx.ExtContext
}

// NewLoanRepository accepts a *sqlx.DB or a *sqlx.Tx.
func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, company_id, client_id, principal_amount, interest_rate, loan_term_months, start_date,
			end_date, balance_remaining, status, amortization_type, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.CompanyID,
		loan.ClientID,
		loan.PrincipalAmount,
		loan.InterestRate,
		loan.TermMonths,
		loan.StartDate,
		loan.EndDate,
		loan.BalanceRemaining,
		loan.Status,
		loan.AmortizationType,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return r.get(ctx, query, id)
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, id)
}

func (r *loanRepository) get(ctx context.Context, query string, id uuid.UUID) (*domain.Loan, error) {
	var loan domain.Loan
	err := sqlx.GetContext(ctx, r.db, &loan, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapLoanNotFound(id.String())
	}
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) ListByCompanies(ctx context.Context, companyIDs []uuid.UUID, page domain.Page) ([]*domain.Loan, int, error) {
	if len(companyIDs) == 0 {
		return []*domain.Loan{}, 0, nil
	}
	page = page.Normalize()

	var total int
	countQuery := `SELECT COUNT(*) FROM loans WHERE company_id = ANY($1)`
	if err := sqlx.GetContext(ctx, r.db, &total, countQuery, pq.Array(companyIDs)); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE company_id = ANY($1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`

	loans := []*domain.Loan{}
	err := sqlx.SelectContext(ctx, r.db, &loans, query, pq.Array(companyIDs), page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}

	return loans, total, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET interest_rate = $2, end_date = $3, balance_remaining = $4, status = $5, updated_at = $6
		WHERE id = $1
	`

	if loan.UpdatedAt.IsZero() {
		loan.UpdatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.InterestRate,
		loan.EndDate,
		loan.BalanceRemaining,
		loan.Status,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return requireAffected(res, customError.WrapLoanNotFound(loan.ID.String()))
}

func (r *loanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return requireAffected(res, customError.WrapLoanNotFound(id.String()))
}

func (r *loanRepository) CreateSchedule(ctx context.Context, schedules []*domain.PaymentSchedule) error {
	query := `
		INSERT INTO payment_schedules (id, loan_id, payment_number, due_date, principal_due, interest_due, total_due,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	// Rows go in payment number order; the caller owns the transaction.
	for _, schedule := range schedules {
		_, err := r.db.ExecContext(ctx, query,
			schedule.ID,
			schedule.LoanID,
			schedule.PaymentNumber,
			schedule.DueDate,
			schedule.PrincipalDue,
			schedule.InterestDue,
			schedule.TotalDue,
			schedule.Status,
			schedule.CreatedAt,
			schedule.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.PaymentSchedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM payment_schedules
		WHERE loan_id = $1
		ORDER BY payment_number
	`

	schedules := []*domain.PaymentSchedule{}
	err := sqlx.SelectContext(ctx, r.db, &schedules, query, loanID)
	if err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *loanRepository) UpdateScheduleStatus(ctx context.Context, scheduleID uuid.UUID, status string) error {
	query := `
		UPDATE payment_schedules
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, scheduleID, status, time.Now())
	if err != nil {
		return err
	}

	return requireAffected(res, customError.WrapNotFound("Payment schedule"))
}

// GetOverdueSchedules lists pending installments of active loans due before currentDate.
// Overdue is derived at read time; stored rows keep their pending status.
func (r *loanRepository) GetOverdueSchedules(ctx context.Context, companyIDs []uuid.UUID, currentDate time.Time) ([]*domain.PaymentSchedule, error) {
	if len(companyIDs) == 0 {
		return []*domain.PaymentSchedule{}, nil
	}

	query := `
		SELECT ` + joinedScheduleColumns + `
		FROM payment_schedules ps
		JOIN loans l ON l.id = ps.loan_id
		WHERE l.company_id = ANY($1) AND l.status = 'active'
			AND ps.status = 'pending' AND ps.due_date < $2::date
		ORDER BY ps.due_date, ps.loan_id, ps.payment_number
	`

	schedules := []*domain.PaymentSchedule{}
	err := sqlx.SelectContext(ctx, r.db, &schedules, query, pq.Array(companyIDs), currentDate)
	if err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *loanRepository) GetUpcomingSchedules(ctx context.Context, companyIDs []uuid.UUID, from, until time.Time) ([]*domain.PaymentSchedule, error) {
	if len(companyIDs) == 0 {
		return []*domain.PaymentSchedule{}, nil
	}

	query := `
		SELECT ` + joinedScheduleColumns + `
		FROM payment_schedules ps
		JOIN loans l ON l.id = ps.loan_id
		WHERE l.company_id = ANY($1) AND l.status = 'active'
			AND ps.status = 'pending' AND ps.due_date BETWEEN $2::date AND $3::date
		ORDER BY ps.due_date, ps.loan_id, ps.payment_number
	`

	schedules := []*domain.PaymentSchedule{}
	err := sqlx.SelectContext(ctx, r.db, &schedules, query, pq.Array(companyIDs), from, until)
	if err != nil {
		return nil, err
	}

	return schedules, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentColumnNames = []string{
	"id", "loan_id", "payment_date", "principal_paid", "interest_paid", "total_paid", "balance_remaining",
	"status", "created_at", "updated_at",
}

func TestPaymentRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	now := time.Now().UTC()

	payment := &domain.Payment{
		ID:               uuid.New(),
		LoanID:           uuid.New(),
		PaymentDate:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		PrincipalPaid:    decimal.RequireFromString("946.19"),
		InterestPaid:     decimal.RequireFromString("120"),
		TotalPaid:        decimal.RequireFromString("1066.19"),
		BalanceRemaining: decimal.RequireFromString("11053.81"),
		Status:           domain.PaymentStatusCompleted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(payment.ID, payment.LoanID, payment.PaymentDate, payment.PrincipalPaid, payment.InterestPaid,
			payment.TotalPaid, payment.BalanceRemaining, payment.Status, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), payment))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)
		id, loanID := uuid.New(), uuid.New()
		day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("FROM payments WHERE id = ").
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows(paymentColumnNames).
				AddRow(id.String(), loanID.String(), day, "400.00", "0.00", "400.00", "600.00", "completed", day, day))

		payment, err := repo.GetByID(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, loanID, payment.LoanID)
		assert.True(t, payment.BalanceRemaining.Equal(decimal.NewFromInt(600)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)

		mock.ExpectQuery("FROM payments WHERE id = ").WillReturnRows(sqlmock.NewRows(paymentColumnNames))

		_, err := repo.GetByID(context.Background(), uuid.New())

		assert.True(t, customError.IsNotFound(err))
	})
}

func TestPaymentRepository_GetByLoanID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	loanID := uuid.New()
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(loanID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("FROM payments").
		WithArgs(loanID, 10, 0).
		WillReturnRows(sqlmock.NewRows(paymentColumnNames).
			AddRow(uuid.NewString(), loanID.String(), day.AddDate(0, 1, 0), "500", "0", "500", "100", "completed", day, day).
			AddRow(uuid.NewString(), loanID.String(), day, "400", "0", "400", "600", "completed", day, day))

	payments, total, err := repo.GetByLoanID(context.Background(), loanID, domain.Page{Page: 1, PerPage: 10})

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, payments, 2)
	assert.True(t, payments[0].PaymentDate.After(payments[1].PaymentDate))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	id := uuid.New()

	mock.ExpectExec("DELETE FROM payments").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), id)

	assert.True(t, customError.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

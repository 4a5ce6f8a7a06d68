package ledger

import (
	"testing"
	"time"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLedger() *Ledger {
	return NewWithClock(func() time.Time { return fixedNow })
}

func activeLoan(balance string) *domain.Loan {
	return &domain.Loan{
		ID:               uuid.New(),
		PrincipalAmount:  dec("12000"),
		BalanceRemaining: dec(balance),
		Status:           domain.LoanStatusActive,
	}
}

func row(number int, total, status string) *domain.PaymentSchedule {
	return &domain.PaymentSchedule{
		ID:            uuid.New(),
		PaymentNumber: number,
		TotalDue:      dec(total),
		Status:        status,
	}
}

// pastDue sets r's due date a month before paymentDate.
func pastDue(r *domain.PaymentSchedule, paymentDate time.Time) *domain.PaymentSchedule {
	r.DueDate = paymentDate.AddDate(0, -1, 0)
	return r
}

func TestApply(t *testing.T) {
	paymentDate := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		balance         string
		schedule        []*domain.PaymentSchedule
		principal       string
		interest        string
		expectedBalance string
		expectedTotal   string
		expectedMatch   int
	}{
		{
			name:            "regular installment marks first row",
			balance:         "12000",
			schedule:        []*domain.PaymentSchedule{row(1, "1066.19", "pending"), row(2, "1066.19", "pending")},
			principal:       "946.19",
			interest:        "120.00",
			expectedBalance: "11053.81",
			expectedTotal:   "1066.19",
			expectedMatch:   1,
		},
		{
			name:            "payoff drives balance to zero",
			balance:         "500",
			schedule:        nil,
			principal:       "500",
			interest:        "0",
			expectedBalance: "0",
			expectedTotal:   "500",
			expectedMatch:   0,
		},
		{
			name:            "overpayment floors at zero",
			balance:         "500",
			schedule:        nil,
			principal:       "750.50",
			interest:        "10",
			expectedBalance: "0",
			expectedTotal:   "760.50",
			expectedMatch:   0,
		},
		{
			name:            "underpayment matches no row",
			balance:         "12000",
			schedule:        []*domain.PaymentSchedule{row(1, "1066.19", "pending")},
			principal:       "500",
			interest:        "0",
			expectedBalance: "11500",
			expectedTotal:   "500",
			expectedMatch:   0,
		},
		{
			name:    "skips paid rows",
			balance: "10000",
			schedule: []*domain.PaymentSchedule{
				row(1, "1000", "paid"),
				row(2, "1000", "paid"),
				row(3, "1000", "pending"),
			},
			principal:       "1000",
			interest:        "0",
			expectedBalance: "9000",
			expectedTotal:   "1000",
			expectedMatch:   3,
		},
		{
			name:    "past due installment is the one marked paid",
			balance: "12000",
			schedule: []*domain.PaymentSchedule{
				pastDue(row(1, "1066.19", "pending"), paymentDate),
				row(2, "1066.19", "pending"),
			},
			principal:       "946.19",
			interest:        "120.00",
			expectedBalance: "11053.81",
			expectedTotal:   "1066.19",
			expectedMatch:   1,
		},
		{
			name:    "later cheaper row wins over earlier larger row",
			balance: "10000",
			schedule: []*domain.PaymentSchedule{
				row(3, "300", "pending"),
				row(1, "1200", "pending"),
				row(2, "900", "pending"),
			},
			principal:       "950",
			interest:        "0",
			expectedBalance: "9050",
			expectedTotal:   "950",
			expectedMatch:   2,
		},
		{
			name:            "interest only payment leaves balance",
			balance:         "12000",
			schedule:        []*domain.PaymentSchedule{row(1, "120", "pending")},
			principal:       "0",
			interest:        "120",
			expectedBalance: "12000",
			expectedTotal:   "120",
			expectedMatch:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := activeLoan(tt.balance)

			result, err := newTestLedger().Apply(loan, tt.schedule, PaymentInput{
				PrincipalPaid: dec(tt.principal),
				InterestPaid:  dec(tt.interest),
				PaymentDate:   paymentDate,
			})
			require.NoError(t, err)

			assert.True(t, loan.BalanceRemaining.Equal(dec(tt.expectedBalance)),
				"Expected balance %s, but got %s", tt.expectedBalance, loan.BalanceRemaining)
			assert.True(t, result.Payment.BalanceRemaining.Equal(loan.BalanceRemaining))
			assert.True(t, result.Payment.TotalPaid.Equal(dec(tt.expectedTotal)))
			assert.Equal(t, domain.PaymentStatusCompleted, result.Payment.Status)
			assert.Equal(t, loan.ID, result.Payment.LoanID)
			assert.Equal(t, paymentDate, result.Payment.PaymentDate)
			assert.Equal(t, fixedNow, result.Payment.CreatedAt)
			assert.Equal(t, domain.LoanStatusActive, loan.Status)

			if tt.expectedMatch == 0 {
				assert.Nil(t, result.Matched)
				return
			}
			require.NotNil(t, result.Matched)
			assert.Equal(t, tt.expectedMatch, result.Matched.PaymentNumber)
			assert.Equal(t, domain.ScheduleStatusPaid, result.Matched.Status)
		})
	}
}

func TestApply_Rejections(t *testing.T) {
	paymentDate := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("non-active loan", func(t *testing.T) {
		for _, status := range []string{domain.LoanStatusCompleted, domain.LoanStatusDefaulted} {
			loan := activeLoan("1000")
			loan.Status = status
			schedule := []*domain.PaymentSchedule{row(1, "100", "pending")}

			result, err := newTestLedger().Apply(loan, schedule, PaymentInput{
				PrincipalPaid: dec("100"),
				PaymentDate:   paymentDate,
			})

			assert.Nil(t, result)
			assert.True(t, customError.IsInvalidState(err))
			assert.Contains(t, err.Error(), "cannot modify non-active loan")
			assert.True(t, loan.BalanceRemaining.Equal(dec("1000")))
			assert.Equal(t, domain.ScheduleStatusPending, schedule[0].Status)
		}
	})

	t.Run("negative principal", func(t *testing.T) {
		_, err := newTestLedger().Apply(activeLoan("1000"), nil, PaymentInput{
			PrincipalPaid: dec("-1"),
			PaymentDate:   paymentDate,
		})
		assert.True(t, customError.IsValidation(err))
		assert.Equal(t, "principal_paid", customError.FieldOf(err))
	})

	t.Run("negative interest", func(t *testing.T) {
		_, err := newTestLedger().Apply(activeLoan("1000"), nil, PaymentInput{
			InterestPaid: dec("-0.01"),
			PaymentDate:  paymentDate,
		})
		assert.True(t, customError.IsValidation(err))
		assert.Equal(t, "interest_paid", customError.FieldOf(err))
	})

	t.Run("missing date", func(t *testing.T) {
		_, err := newTestLedger().Apply(activeLoan("1000"), nil, PaymentInput{PrincipalPaid: dec("1")})
		assert.Equal(t, "payment_date", customError.FieldOf(err))
	})
}

func TestReverse(t *testing.T) {
	led := newTestLedger()
	loan := activeLoan("1000")
	schedule := []*domain.PaymentSchedule{row(1, "400", "pending")}

	result, err := led.Apply(loan, schedule, PaymentInput{
		PrincipalPaid: dec("400"),
		InterestPaid:  dec("0"),
		PaymentDate:   fixedNow,
	})
	require.NoError(t, err)
	require.True(t, loan.BalanceRemaining.Equal(dec("600")))

	require.NoError(t, led.Reverse(loan, result.Payment))

	assert.True(t, loan.BalanceRemaining.Equal(dec("1000")))
	assert.Equal(t, domain.ScheduleStatusPaid, schedule[0].Status, "reversal keeps the row paid")
}

func TestReverse_ThenReapplyRestoresBalance(t *testing.T) {
	led := newTestLedger()
	loan := activeLoan("2500.75")
	in := PaymentInput{PrincipalPaid: dec("700.25"), InterestPaid: dec("25"), PaymentDate: fixedNow}

	first, err := led.Apply(loan, nil, in)
	require.NoError(t, err)
	after := loan.BalanceRemaining

	require.NoError(t, led.Reverse(loan, first.Payment))
	assert.True(t, loan.BalanceRemaining.Equal(dec("2500.75")))

	_, err = led.Apply(loan, nil, in)
	require.NoError(t, err)
	assert.True(t, loan.BalanceRemaining.Equal(after))
}

func TestReverse_FlooredPaymentRestoresFullPrincipal(t *testing.T) {
	led := newTestLedger()
	loan := activeLoan("100")

	result, err := led.Apply(loan, nil, PaymentInput{PrincipalPaid: dec("150"), PaymentDate: fixedNow})
	require.NoError(t, err)
	require.True(t, loan.BalanceRemaining.IsZero())

	require.NoError(t, led.Reverse(loan, result.Payment))
	assert.True(t, loan.BalanceRemaining.Equal(dec("150")))
}

func TestReverse_Rejections(t *testing.T) {
	led := newTestLedger()

	loan := activeLoan("100")
	loan.Status = domain.LoanStatusCompleted
	payment := &domain.Payment{ID: uuid.New(), LoanID: loan.ID, PrincipalPaid: dec("50")}

	err := led.Reverse(loan, payment)
	assert.True(t, customError.IsInvalidState(err))
	assert.True(t, loan.BalanceRemaining.Equal(dec("100")))

	other := &domain.Payment{ID: uuid.New(), LoanID: uuid.New(), PrincipalPaid: dec("50")}
	err = led.Reverse(activeLoan("100"), other)
	assert.True(t, customError.IsNotFound(err))
}

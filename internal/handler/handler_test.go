package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/segyhp/lending-engine/internal/amortization"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/mocks"
	"github.com/segyhp/lending-engine/internal/siaf"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testUserID    = uuid.MustParse("8b1f4f7e-3c1a-4a55-9a3e-1d2c3b4a5f60")
	testCompanyID = uuid.MustParse("2d7c9e1a-6b5f-4c3d-8e2a-9f0b1c2d3e4f")
	testActor     = domain.Actor{UserID: testUserID, CompanyIDs: []uuid.UUID{testCompanyID}}
)

type testServer struct {
	router   http.Handler
	loans    *mocks.MockLoanService
	payments *mocks.MockPaymentService
	siaf     *mocks.MockSIAFService
}

func newTestServer(t *testing.T, paymentRate string) *testServer {
	t.Helper()

	s := &testServer{
		loans:    new(mocks.MockLoanService),
		payments: new(mocks.MockPaymentService),
		siaf:     new(mocks.MockSIAFService),
	}

	h := Handlers{
		Loans:    NewLoanHandler(s.loans),
		Payments: NewPaymentHandler(s.payments),
		SIAF:     NewSIAFHandler(s.siaf),
		Health:   NewHealthHandler(time.Second, map[string]HealthCheck{"database": func(context.Context) error { return nil }}),
	}
	if paymentRate != "" {
		l, err := NewRateLimiter(paymentRate)
		require.NoError(t, err)
		h.PaymentLimiter = l
	}
	s.router = NewRouter(h)

	t.Cleanup(func() {
		s.loans.AssertExpectations(t)
		s.payments.AssertExpectations(t)
		s.siaf.AssertExpectations(t)
	})
	return s
}

func (s *testServer) do(method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authenticated {
		req.Header.Set(HeaderUserID, testUserID.String())
		req.Header.Set(HeaderCompanyIDs, testCompanyID.String())
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Field   string          `json:"field"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestActorFrom(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		companies string
		want      domain.Actor
		wantErr   bool
	}{
		{
			name:      "user with companies",
			userID:    testUserID.String(),
			companies: testCompanyID.String() + ", " + testUserID.String(),
			want:      domain.Actor{UserID: testUserID, CompanyIDs: []uuid.UUID{testCompanyID, testUserID}},
		},
		{
			name:   "user without companies",
			userID: testUserID.String(),
			want:   domain.Actor{UserID: testUserID, CompanyIDs: []uuid.UUID{}},
		},
		{name: "missing user", wantErr: true},
		{name: "nil user", userID: uuid.Nil.String(), wantErr: true},
		{name: "bad company", userID: testUserID.String(), companies: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderUserID, tt.userID)
			req.Header.Set(HeaderCompanyIDs, tt.companies)

			actor, err := actorFrom(req)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, http.StatusUnauthorized, customError.HTTPStatus(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, actor)
		})
	}
}

func TestCreateLoan(t *testing.T) {
	valid := `{
		"company_id": "` + testCompanyID.String() + `",
		"client_id": "` + uuid.NewString() + `",
		"principal_amount": "10000",
		"interest_rate": "12",
		"loan_term_months": 10,
		"start_date": "2024-01-15",
		"amortization_type": "french"
	}`

	t.Run("created", func(t *testing.T) {
		s := newTestServer(t, "")
		loan := &domain.Loan{ID: uuid.New(), CompanyID: testCompanyID, Status: domain.LoanStatusActive}
		s.loans.On("Create", mock.Anything, testActor, mock.MatchedBy(func(req *domain.CreateLoanRequest) bool {
			return req.PrincipalAmount.Equal(decimal.NewFromInt(10000)) && req.TermMonths == 10
		})).Return(&domain.CreateLoanResponse{Loan: loan}, nil).Once()

		rec := s.do(http.MethodPost, "/api/v1/loans", valid, true)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		env := decode(t, rec)
		assert.True(t, env.Success)
		assert.Contains(t, string(env.Data), loan.ID.String())
	})

	t.Run("unauthenticated", func(t *testing.T) {
		s := newTestServer(t, "")
		rec := s.do(http.MethodPost, "/api/v1/loans", valid, false)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, customError.ErrCodeUnauthenticated, decode(t, rec).Code)
	})

	t.Run("invalid amortization type", func(t *testing.T) {
		s := newTestServer(t, "")
		body := strings.Replace(valid, `"french"`, `"italian"`, 1)
		rec := s.do(http.MethodPost, "/api/v1/loans", body, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode(t, rec)
		assert.Equal(t, customError.ErrCodeValidation, env.Code)
		assert.Equal(t, "amortization_type", env.Field)
	})

	t.Run("zero principal", func(t *testing.T) {
		s := newTestServer(t, "")
		body := strings.Replace(valid, `"10000"`, `"0"`, 1)
		rec := s.do(http.MethodPost, "/api/v1/loans", body, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "principal_amount", decode(t, rec).Field)
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer(t, "")
		rec := s.do(http.MethodPost, "/api/v1/loans", `{"company_id":`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "body", decode(t, rec).Field)
	})
}

func TestListLoans(t *testing.T) {
	s := newTestServer(t, "")
	loans := []*domain.Loan{{ID: uuid.New()}, {ID: uuid.New()}}
	s.loans.On("List", mock.Anything, testActor, domain.Page{Page: 2, PerPage: 2}).Return(loans, 5, nil).Once()

	rec := s.do(http.MethodGet, "/api/v1/loans?page=2&per_page=2", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items    []*domain.Loan `json:"items"`
		Page     int            `json:"page"`
		Total    int            `json:"total"`
		LastPage int            `json:"last_page"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &page))
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.LastPage)
}

func TestGetLoan(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		s := newTestServer(t, "")
		id := uuid.New()
		s.loans.On("Get", mock.Anything, testActor, id).Return(nil, customError.WrapLoanNotFound(id.String())).Once()

		rec := s.do(http.MethodGet, "/api/v1/loans/"+id.String(), "", true)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, customError.ErrCodeLoanNotFound, decode(t, rec).Code)
	})

	t.Run("bad id", func(t *testing.T) {
		s := newTestServer(t, "")
		rec := s.do(http.MethodGet, "/api/v1/loans/not-a-uuid", "", true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "loanId", decode(t, rec).Field)
	})

	t.Run("storage failure is masked", func(t *testing.T) {
		s := newTestServer(t, "")
		id := uuid.New()
		s.loans.On("Get", mock.Anything, testActor, id).Return(nil, customError.WrapDatabaseError(errors.New("pq: connection refused"))).Once()

		rec := s.do(http.MethodGet, "/api/v1/loans/"+id.String(), "", true)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
	})
}

func TestUpdateLoan(t *testing.T) {
	id := uuid.New()

	t.Run("interest rate", func(t *testing.T) {
		s := newTestServer(t, "")
		s.loans.On("Update", mock.Anything, testActor, id, mock.MatchedBy(func(req *domain.UpdateLoanRequest) bool {
			return req.InterestRate != nil && req.InterestRate.Equal(decimal.NewFromFloat(9.5))
		})).Return(&domain.Loan{ID: id, InterestRate: decimal.NewFromFloat(9.5)}, nil).Once()

		rec := s.do(http.MethodPatch, "/api/v1/loans/"+id.String(), `{"interest_rate":"9.5"}`, true)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other fields rejected", func(t *testing.T) {
		s := newTestServer(t, "")
		rec := s.do(http.MethodPatch, "/api/v1/loans/"+id.String(), `{"principal_amount":"1"}`, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("inactive loan", func(t *testing.T) {
		s := newTestServer(t, "")
		s.loans.On("Update", mock.Anything, testActor, id, mock.Anything).Return(nil, customError.WrapLoanNotActive(id.String())).Once()

		rec := s.do(http.MethodPatch, "/api/v1/loans/"+id.String(), `{"interest_rate":"1"}`, true)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, customError.ErrCodeInvalidState, decode(t, rec).Code)
	})
}

func TestDeleteLoan(t *testing.T) {
	s := newTestServer(t, "")
	id := uuid.New()
	s.loans.On("Delete", mock.Anything, testActor, id).Return(nil).Once()

	rec := s.do(http.MethodDelete, "/api/v1/loans/"+id.String(), "", true)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestGetSchedule(t *testing.T) {
	s := newTestServer(t, "")
	id := uuid.New()
	rows := []*domain.PaymentSchedule{{LoanID: id, PaymentNumber: 1, Status: domain.ScheduleStatusPending}}
	s.loans.On("Schedule", mock.Anything, testActor, id).Return(rows, nil).Once()

	rec := s.do(http.MethodGet, "/api/v1/loans/"+id.String()+"/schedule", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var out domain.ScheduleResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &out))
	assert.Equal(t, id, out.LoanID)
	assert.Len(t, out.Schedule, 1)
}

func TestScheduleViews(t *testing.T) {
	t.Run("upcoming", func(t *testing.T) {
		s := newTestServer(t, "")
		rows := []*domain.PaymentSchedule{
			{LoanID: uuid.New(), PaymentNumber: 2, Status: domain.ScheduleStatusPending},
			{LoanID: uuid.New(), PaymentNumber: 1, Status: domain.ScheduleStatusPending},
		}
		s.loans.On("Upcoming", mock.Anything, testActor).Return(rows, nil).Once()

		rec := s.do(http.MethodGet, "/api/v1/payment-schedules/upcoming", "", true)

		require.Equal(t, http.StatusOK, rec.Code)
		var out []*domain.PaymentSchedule
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &out))
		assert.Len(t, out, 2)
	})

	t.Run("overdue empty list", func(t *testing.T) {
		s := newTestServer(t, "")
		s.loans.On("Overdue", mock.Anything, testActor).Return(nil, nil).Once()

		rec := s.do(http.MethodGet, "/api/v1/payment-schedules/overdue", "", true)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, string(decode(t, rec).Data))
	})

	t.Run("overdue storage failure", func(t *testing.T) {
		s := newTestServer(t, "")
		s.loans.On("Overdue", mock.Anything, testActor).Return(nil, customError.WrapDatabaseError(errors.New("pq: timeout"))).Once()

		rec := s.do(http.MethodGet, "/api/v1/payment-schedules/overdue", "", true)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("requires principal", func(t *testing.T) {
		s := newTestServer(t, "")
		rec := s.do(http.MethodGet, "/api/v1/payment-schedules/upcoming", "", false)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPreviewSchedule(t *testing.T) {
	s := newTestServer(t, "")
	rows := []amortization.Row{{PaymentNumber: 1, TotalDue: decimal.NewFromInt(1050)}}
	s.loans.On("Preview", mock.Anything, mock.AnythingOfType("*domain.PreviewScheduleRequest")).Return(rows, nil).Once()

	body := `{"principal_amount":"1000","interest_rate":"60","loan_term_months":1,"start_date":"2024-01-31","amortization_type":"american"}`
	rec := s.do(http.MethodPost, "/api/v1/amortization/preview", body, true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_due":"1050"`)
}

func TestMakePayment(t *testing.T) {
	loanID := uuid.New()

	t.Run("created", func(t *testing.T) {
		s := newTestServer(t, "")
		payment := &domain.Payment{ID: uuid.New(), LoanID: loanID}
		s.payments.On("Make", mock.Anything, testActor, loanID, mock.AnythingOfType("*domain.MakePaymentRequest")).
			Return(&domain.MakePaymentResponse{Payment: payment, LoanBalance: decimal.NewFromInt(9000)}, nil).Once()

		body := `{"payment_date":"2024-02-15","principal_paid":"1000","interest_paid":"100"}`
		rec := s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", body, true)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, rec.Body.String(), payment.ID.String())
	})

	t.Run("negative principal", func(t *testing.T) {
		s := newTestServer(t, "")
		body := `{"payment_date":"2024-02-15","principal_paid":"-1","interest_paid":"0"}`
		rec := s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", body, true)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "principal_paid", decode(t, rec).Field)
	})

	t.Run("rate limited", func(t *testing.T) {
		s := newTestServer(t, "1-M")
		s.payments.On("Make", mock.Anything, testActor, loanID, mock.Anything).
			Return(&domain.MakePaymentResponse{Payment: &domain.Payment{ID: uuid.New()}}, nil).Once()

		body := `{"payment_date":"2024-02-15","principal_paid":"10","interest_paid":"0"}`
		first := s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", body, true)
		second := s.do(http.MethodPost, "/api/v1/loans/"+loanID.String()+"/payments", body, true)

		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, http.StatusTooManyRequests, second.Code)
		assert.Equal(t, customError.ErrCodeRateLimitReached, decode(t, second).Code)
	})
}

func TestListPayments(t *testing.T) {
	s := newTestServer(t, "")
	loanID := uuid.New()
	s.payments.On("ListByLoan", mock.Anything, testActor, loanID, domain.Page{Page: 1, PerPage: domain.DefaultPerPage}).
		Return([]*domain.Payment{}, 0, nil).Once()

	rec := s.do(http.MethodGet, "/api/v1/loans/"+loanID.String()+"/payments", "", true)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_page":1`)
}

func TestGetPayment(t *testing.T) {
	s := newTestServer(t, "")
	id := uuid.New()
	s.payments.On("Get", mock.Anything, testActor, id).Return(nil, customError.WrapPaymentNotFound(id.String())).Once()

	rec := s.do(http.MethodGet, "/api/v1/payments/"+id.String(), "", true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, customError.ErrCodePaymentNotFound, decode(t, rec).Code)
}

func TestReversePayment(t *testing.T) {
	id := uuid.New()

	t.Run("reversed", func(t *testing.T) {
		s := newTestServer(t, "")
		loan := &domain.Loan{ID: uuid.New(), BalanceRemaining: decimal.NewFromInt(10000)}
		s.payments.On("Reverse", mock.Anything, testActor, id).Return(loan, nil).Once()

		rec := s.do(http.MethodDelete, "/api/v1/payments/"+id.String(), "", true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), loan.ID.String())
	})

	t.Run("inactive loan", func(t *testing.T) {
		s := newTestServer(t, "")
		s.payments.On("Reverse", mock.Anything, testActor, id).Return(nil, customError.NewInvalidStateError("loan is not active")).Once()

		rec := s.do(http.MethodDelete, "/api/v1/payments/"+id.String(), "", true)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestSIAF(t *testing.T) {
	t.Run("captcha", func(t *testing.T) {
		s := newTestServer(t, "")
		s.siaf.On("Captcha", mock.Anything, testActor).
			Return(&siaf.CaptchaResult{Success: true, Captcha: "data:image/png;base64,AAAA", Source: "siaf_proxy"}, nil).Once()

		rec := s.do(http.MethodGet, "/api/v1/siaf/captcha", "", true)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "siaf_proxy")
	})

	t.Run("consult upstream failure", func(t *testing.T) {
		s := newTestServer(t, "")
		in := siaf.ConsultInput{AnoEje: "2024", SecEjec: "301", Expediente: "12345", Captcha: "AB12"}
		s.siaf.On("Consult", mock.Anything, testActor, in).
			Return(nil, customError.WrapUpstreamError("siaf proxy", errors.New("timeout"))).Once()

		body := `{"anoEje":"2024","secEjec":"301","expediente":"12345","j_captcha":"AB12"}`
		rec := s.do(http.MethodPost, "/api/v1/siaf/consult", body, true)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, customError.ErrCodeUpstreamFailure, decode(t, rec).Code)
	})
}

func TestHealthReady(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name       string
		required   map[string]HealthCheck
		optional   []OptionalCheck
		wantStatus int
		wantCheck  map[string]string
	}{
		{
			name:       "all up",
			required:   map[string]HealthCheck{"database": ok, "redis": ok},
			wantStatus: http.StatusOK,
			wantCheck:  map[string]string{"database": "ok", "redis": "ok"},
		},
		{
			name:       "required down",
			required:   map[string]HealthCheck{"database": ok, "redis": down},
			wantStatus: http.StatusServiceUnavailable,
			wantCheck:  map[string]string{"database": "ok", "redis": "failed: connection refused"},
		},
		{
			name:       "optional down",
			required:   map[string]HealthCheck{"database": ok},
			optional:   []OptionalCheck{{Name: "siaf", Check: down}},
			wantStatus: http.StatusOK,
			wantCheck:  map[string]string{"database": "ok", "siaf": "degraded: connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(time.Second, tt.required, tt.optional...)
			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var status HealthStatus
			require.NoError(t, json.Unmarshal(decode(t, rec).Data, &status))
			assert.Equal(t, tt.wantCheck, status.Checks)
		})
	}
}

func TestHealthTimeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	h := NewHealthHandler(10*time.Millisecond, map[string]HealthCheck{"database": slow})
	rec := httptest.NewRecorder()

	h.Ready(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "deadline exceeded")
}

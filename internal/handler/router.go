package handler

import (
	"net/http"

	"github.com/segyhp/lending-engine/pkg/response"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
)

type Handlers struct {
	Loans    *LoanHandler
	Payments *PaymentHandler
	SIAF     *SIAFHandler
	Health   *HealthHandler
	// PaymentLimiter throttles payment writes; nil disables it.
	PaymentLimiter *limiter.Limiter
}

func NewRouter(h Handlers) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware, response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", h.Loans.CreateLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans", h.Loans.ListLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", h.Loans.GetLoan).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}", h.Loans.UpdateLoan).Methods(http.MethodPatch)
	api.HandleFunc("/loans/{loanId}", h.Loans.DeleteLoan).Methods(http.MethodDelete)
	api.HandleFunc("/loans/{loanId}/schedule", h.Loans.GetSchedule).Methods(http.MethodGet)
	api.HandleFunc("/loans/{loanId}/payments", h.Payments.ListPayments).Methods(http.MethodGet)
	api.HandleFunc("/payments/{paymentId}", h.Payments.GetPayment).Methods(http.MethodGet)
	api.HandleFunc("/amortization/preview", h.Loans.PreviewSchedule).Methods(http.MethodPost)
	api.HandleFunc("/payment-schedules/upcoming", h.Loans.ListUpcomingSchedules).Methods(http.MethodGet)
	api.HandleFunc("/payment-schedules/overdue", h.Loans.ListOverdueSchedules).Methods(http.MethodGet)

	writes := api.NewRoute().Subrouter()
	if h.PaymentLimiter != nil {
		writes.Use(RateLimit(h.PaymentLimiter))
	}
	writes.HandleFunc("/loans/{loanId}/payments", h.Payments.MakePayment).Methods(http.MethodPost)
	writes.HandleFunc("/payments/{paymentId}", h.Payments.ReversePayment).Methods(http.MethodDelete)

	if h.SIAF != nil {
		api.HandleFunc("/siaf/captcha", h.SIAF.Captcha).Methods(http.MethodGet)
		api.HandleFunc("/siaf/consult", h.SIAF.Consult).Methods(http.MethodPost)
	}

	return router
}

package handler

import (
	"net/http"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/response"
	"github.com/segyhp/lending-engine/pkg/validation"
)

type PaymentHandler struct {
	service   PaymentService
	validator *validation.Validator
}

func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{
		service:   service,
		validator: validation.New(),
	}
}

// MakePayment handles POST /loans/{loanId}/payments
func (h *PaymentHandler) MakePayment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var req domain.MakePaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.FromError(w, r, err)
		return
	}

	resp, err := h.service.Make(r.Context(), actor, loanID, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, resp)
}

// ListPayments handles GET /loans/{loanId}/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	loanID, err := pathID(r, "loanId")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	page := pageFrom(r)
	payments, total, err := h.service.ListByLoan(r.Context(), actor, loanID, page)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, response.NewPage(payments, page.Page, page.PerPage, total))
}

// GetPayment handles GET /payments/{paymentId}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	paymentID, err := pathID(r, "paymentId")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	payment, err := h.service.Get(r.Context(), actor, paymentID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, payment)
}

// ReversePayment handles DELETE /payments/{paymentId}
func (h *PaymentHandler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	paymentID, err := pathID(r, "paymentId")
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	loan, err := h.service.Reverse(r.Context(), actor, paymentID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, loan)
}

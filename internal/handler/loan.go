package handler

import (
	"context"
	"net/http"

	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/pkg/response"
	"github.com/segyhp/lending-engine/pkg/validation"
)

type LoanHandler struct {
	service   LoanService
	validator *validation.Validator
}

func NewLoanHandler(service LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: validation.New(),
	}
}

// CreateLoan handles POST /loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var req domain.CreateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.FromError(w, r, err)
		return
	}

	resp, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Created(w, resp)
}

// ListLoans handles GET /loans?page=&per_page=
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	page := pageFrom(r)
	loans, total, err := h.service.List(r.Context(), actor, page)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, response.NewPage(loans, page.Page, page.PerPage, total))
}

// GetLoan handles GET /loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
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

	loan, err := h.service.Get(r.Context(), actor, loanID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, loan)
}

// UpdateLoan handles PATCH /loans/{loanId}. Only interest_rate may change.
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
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

	var req domain.UpdateLoanRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.FromError(w, r, err)
		return
	}

	loan, err := h.service.Update(r.Context(), actor, loanID, &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, loan)
}

// DeleteLoan handles DELETE /loans/{loanId}
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.Delete(r.Context(), actor, loanID); err != nil {
		response.FromError(w, r, err)
		return
	}

	response.NoContent(w)
}

// GetSchedule handles GET /loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
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

	schedule, err := h.service.Schedule(r.Context(), actor, loanID)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, domain.ScheduleResponse{LoanID: loanID, Schedule: schedule})
}

// ListUpcomingSchedules handles GET /payment-schedules/upcoming
func (h *LoanHandler) ListUpcomingSchedules(w http.ResponseWriter, r *http.Request) {
	h.listSchedules(w, r, h.service.Upcoming)
}

// ListOverdueSchedules handles GET /payment-schedules/overdue
func (h *LoanHandler) ListOverdueSchedules(w http.ResponseWriter, r *http.Request) {
	h.listSchedules(w, r, h.service.Overdue)
}

func (h *LoanHandler) listSchedules(w http.ResponseWriter, r *http.Request,
	list func(ctx context.Context, actor domain.Actor) ([]*domain.PaymentSchedule, error)) {
	actor, err := actorFrom(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	rows, err := list(r.Context(), actor)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if rows == nil {
		rows = []*domain.PaymentSchedule{}
	}

	response.Success(w, rows)
}

// PreviewSchedule handles POST /amortization/preview
func (h *LoanHandler) PreviewSchedule(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFrom(r); err != nil {
		response.FromError(w, r, err)
		return
	}

	var req domain.PreviewScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		response.FromError(w, r, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.FromError(w, r, err)
		return
	}

	rows, err := h.service.Preview(r.Context(), &req)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, rows)
}

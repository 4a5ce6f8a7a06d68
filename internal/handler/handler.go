package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/segyhp/lending-engine/internal/amortization"
	"github.com/segyhp/lending-engine/internal/domain"
	"github.com/segyhp/lending-engine/internal/siaf"
	customError "github.com/segyhp/lending-engine/pkg/errors"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Gateway headers identifying the caller.
const (
	HeaderUserID     = "X-User-ID"
	HeaderCompanyIDs = "X-Company-IDs"
)

type LoanService interface {
	Create(ctx context.Context, actor domain.Actor, req *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error)
	Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Loan, error)
	List(ctx context.Context, actor domain.Actor, page domain.Page) ([]*domain.Loan, int, error)
	Update(ctx context.Context, actor domain.Actor, id uuid.UUID, req *domain.UpdateLoanRequest) (*domain.Loan, error)
	Delete(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	Schedule(ctx context.Context, actor domain.Actor, id uuid.UUID) ([]*domain.PaymentSchedule, error)
	Preview(ctx context.Context, req *domain.PreviewScheduleRequest) ([]amortization.Row, error)
	Upcoming(ctx context.Context, actor domain.Actor) ([]*domain.PaymentSchedule, error)
	Overdue(ctx context.Context, actor domain.Actor) ([]*domain.PaymentSchedule, error)
}

type PaymentService interface {
	Make(ctx context.Context, actor domain.Actor, loanID uuid.UUID, req *domain.MakePaymentRequest) (*domain.MakePaymentResponse, error)
	Reverse(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) (*domain.Loan, error)
	Get(ctx context.Context, actor domain.Actor, paymentID uuid.UUID) (*domain.Payment, error)
	ListByLoan(ctx context.Context, actor domain.Actor, loanID uuid.UUID, page domain.Page) ([]*domain.Payment, int, error)
}

type SIAFService interface {
	Captcha(ctx context.Context, actor domain.Actor) (*siaf.CaptchaResult, error)
	Consult(ctx context.Context, actor domain.Actor, in siaf.ConsultInput) (*siaf.ConsultResult, error)
}

// actorFrom builds the caller from the gateway headers. X-Company-IDs is a
// comma separated list and may be empty.
func actorFrom(r *http.Request) (domain.Actor, error) {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return domain.Actor{}, customError.NewUnauthenticatedError("missing " + HeaderUserID + " header")
	}
	userID, err := uuid.Parse(raw)
	if err != nil || userID == uuid.Nil {
		return domain.Actor{}, customError.NewUnauthenticatedError("invalid " + HeaderUserID + " header")
	}

	actor := domain.Actor{UserID: userID, CompanyIDs: []uuid.UUID{}}
	for _, part := range strings.Split(r.Header.Get(HeaderCompanyIDs), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return domain.Actor{}, customError.NewUnauthenticatedError("invalid " + HeaderCompanyIDs + " header")
		}
		actor.CompanyIDs = append(actor.CompanyIDs, id)
	}
	return actor, nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, customError.NewValidationError(name, "must be a valid UUID")
	}
	return id, nil
}

func pageFrom(r *http.Request) domain.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return domain.Page{Page: page, PerPage: perPage}.Normalize()
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return customError.NewValidationError("body", "invalid JSON payload: "+err.Error())
	}
	return nil
}

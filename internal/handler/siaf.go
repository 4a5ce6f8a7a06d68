package handler

import (
	"net/http"

	"github.com/segyhp/lending-engine/internal/siaf"
	"github.com/segyhp/lending-engine/pkg/response"
)

type SIAFHandler struct {
	service SIAFService
}

func NewSIAFHandler(service SIAFService) *SIAFHandler {
	return &SIAFHandler{service: service}
}

// Captcha handles GET /siaf/captcha
func (h *SIAFHandler) Captcha(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	result, err := h.service.Captcha(r.Context(), actor)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, result)
}

// Consult handles POST /siaf/consult
func (h *SIAFHandler) Consult(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	var in siaf.ConsultInput
	if err := decodeJSON(r, &in); err != nil {
		response.FromError(w, r, err)
		return
	}

	result, err := h.service.Consult(r.Context(), actor, in)
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	response.Success(w, result)
}

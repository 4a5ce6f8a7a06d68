package domain

import (
	"slices"

	"github.com/google/uuid"
)

// Actor is the authenticated principal on whose behalf a call runs.
// It replaces any request-global auth state.
type Actor struct {
	UserID     uuid.UUID   `json:"user_id"`
	CompanyIDs []uuid.UUID `json:"company_ids"`
}

func (a Actor) CanAccessCompany(companyID uuid.UUID) bool {
	return slices.Contains(a.CompanyIDs, companyID)
}

// SystemActor is used by background jobs that act across tenants.
var SystemActor = Actor{}

func (a Actor) IsSystem() bool {
	return a.UserID == uuid.Nil && len(a.CompanyIDs) == 0
}

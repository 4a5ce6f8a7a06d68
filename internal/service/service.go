package service

import (
	"errors"

	"github.com/segyhp/lending-engine/internal/domain"
	customError "github.com/segyhp/lending-engine/pkg/errors"
)

// storageError passes business errors through and wraps anything else as a
// database failure.
func storageError(err error) error {
	if err == nil {
		return nil
	}
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	return customError.WrapDatabaseError(err)
}

// authorizeLoan hides loans of other tenants behind a not-found error.
func authorizeLoan(actor domain.Actor, loan *domain.Loan) error {
	if actor.IsSystem() || actor.CanAccessCompany(loan.CompanyID) {
		return nil
	}
	return customError.WrapLoanNotFound(loan.ID.String())
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Domain errors
var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidState    = errors.New("invalid state")
	ErrNotFound        = errors.New("resource not found")
	ErrDeliveryFailure = errors.New("notification delivery failed")
	ErrUpstream        = errors.New("upstream service failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Field   string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInvalidState     = "INVALID_STATE"
	ErrCodeLoanNotFound     = "LOAN_NOT_FOUND"
	ErrCodePaymentNotFound  = "PAYMENT_NOT_FOUND"
	ErrCodeDebtNotFound     = "DEBT_NOT_FOUND"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeDeliveryFailure  = "DELIVERY_FAILURE"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeCacheError       = "CACHE_ERROR"
	ErrCodeUpstreamFailure  = "UPSTREAM_FAILURE"
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeRateLimitReached = "RATE_LIMIT_REACHED"
)

// NewValidationError reports a rejected input field.
func NewValidationError(field, message string) *BusinessError {
	return &BusinessError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
		Err:     ErrValidation,
	}
}

// NewInvalidStateError reports an operation attempted on an entity whose status forbids it.
func NewInvalidStateError(message string) *BusinessError {
	return NewBusinessError(ErrCodeInvalidState, message, ErrInvalidState)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrNotFound,
	)
}

func WrapPaymentNotFound(paymentID string) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentNotFound,
		fmt.Sprintf("Payment with ID %s not found", paymentID),
		ErrNotFound,
	)
}

func WrapDebtNotFound(debtID string) *BusinessError {
	return NewBusinessError(
		ErrCodeDebtNotFound,
		fmt.Sprintf("Debt with ID %s not found", debtID),
		ErrNotFound,
	)
}

func WrapNotFound(resource string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("%s not found", resource),
		ErrNotFound,
	)
}

func WrapLoanNotActive(loanID string) *BusinessError {
	return NewInvalidStateError(fmt.Sprintf("cannot modify non-active loan %s", loanID))
}

func WrapDeliveryFailure(destination string, attempts int) *BusinessError {
	return NewBusinessError(
		ErrCodeDeliveryFailure,
		fmt.Sprintf("message to %s not delivered after %d attempts", destination, attempts),
		ErrDeliveryFailure,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

func WrapUpstreamError(service string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeUpstreamFailure,
		fmt.Sprintf("%s request failed", service),
		errors.Join(ErrUpstream, err),
	)
}

// IsValidation reports whether err is a field validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState reports whether err was raised by a status guard.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsNotFound reports whether err refers to a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Field
	}
	return ""
}

func NewUnauthenticatedError(message string) *BusinessError {
	return NewBusinessError(ErrCodeUnauthenticated, message, nil)
}

func NewRateLimitError() *BusinessError {
	return NewBusinessError(ErrCodeRateLimitReached, "Too many requests, retry later", nil)
}

// HTTPStatus maps err to the status code returned by the API.
func HTTPStatus(err error) int {
	var be *BusinessError
	if !errors.As(err, &be) {
		return http.StatusInternalServerError
	}

	switch be.Code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeLoanNotFound, ErrCodePaymentNotFound, ErrCodeDebtNotFound, ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidState:
		return http.StatusUnprocessableEntity
	case ErrCodeRateLimitReached:
		return http.StatusTooManyRequests
	case ErrCodeUpstreamFailure, ErrCodeDeliveryFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

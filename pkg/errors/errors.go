package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrPlanNotFound        = errors.New("plan not found")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrPlanConflict        = errors.New("an open plan already exists for this payer and charge")
	ErrInvalidPlan         = errors.New("invalid plan parameters")
	ErrMissingFields       = errors.New("required callback fields are missing")
	ErrSignatureMismatch   = errors.New("settlement signature mismatch")
	ErrAlreadySettled      = errors.New("installment already settled")
	ErrGatewayFailure      = errors.New("payment gateway request failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
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
	ErrCodeInvalidPlan       = "INVALID_PLAN"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeMissingFields     = "MISSING_FIELDS"
	ErrCodeSignatureMismatch = "SIGNATURE_MISMATCH"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeAlreadySettled    = "ALREADY_SETTLED"
	ErrCodePersistence       = "PERSISTENCE"
	ErrCodeGatewayError      = "GATEWAY_ERROR"
	ErrCodeDispatchError     = "DISPATCH_ERROR"
	ErrCodeEnrollmentError   = "ENROLLMENT_ERROR"
)

// Wrap common errors with business context
func WrapInvalidPlan(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPlan,
		reason,
		ErrInvalidPlan,
	)
}

func WrapPlanConflict(payerID, chargeID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("Payer %s already has an open plan for charge %s", payerID, chargeID),
		ErrPlanConflict,
	)
}

func WrapMissingFields(fields ...string) *BusinessError {
	return NewBusinessError(
		ErrCodeMissingFields,
		fmt.Sprintf("Missing required fields: %v", fields),
		ErrMissingFields,
	)
}

func WrapSignatureMismatch(orderID string) *BusinessError {
	return NewBusinessError(
		ErrCodeSignatureMismatch,
		fmt.Sprintf("Signature verification failed for order %s", orderID),
		ErrSignatureMismatch,
	)
}

func WrapPlanNotFound(planID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Plan with ID %s not found", planID),
		ErrPlanNotFound,
	)
}

func WrapInstallmentNotFound(planID string, number int) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Installment %d not found on plan %s", number, planID),
		ErrInstallmentNotFound,
	)
}

func WrapPersistenceError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodePersistence,
		"plan store operation failed",
		err,
	)
}

func WrapGatewayError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeGatewayError,
		"payment gateway order creation failed",
		err,
	)
}

func WrapDispatchError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDispatchError,
		"notification dispatch failed",
		err,
	)
}

func WrapEnrollmentError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeEnrollmentError,
		"enrollment side effect failed",
		err,
	)
}

package checkout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/google/uuid"
)

// Error codes surfaced by checkout
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeStockShortage           = "STOCK_SHORTAGE"
	CodeSubstitutionUnavailable = "SUBSTITUTION_UNAVAILABLE"
	CodeUnresolvedShortage      = "UNRESOLVED_SHORTAGE"
	CodeReservationTimeout      = "RESERVATION_TIMEOUT"
	CodePersistenceFailure      = "PERSISTENCE_FAILURE"
	CodeTaxDegraded             = "TAX_COMPUTATION_DEGRADED"
	CodePaymentDeclined         = "PAYMENT_DECLINED"
	CodePaymentUnavailable      = "SERVICE_UNAVAILABLE"
)

// FieldError describes one invalid input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError means the caller must correct the input. No side effects occurred.
type ValidationError struct {
	Message string
	Details []FieldError
}

// NewValidationError creates a ValidationError
func NewValidationError(message string, details ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Details: details}
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.Field + ": " + d.Message
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// ErrorCode returns VALIDATION_ERROR
func (e *ValidationError) ErrorCode() string { return CodeValidation }

// StockShortageError is recoverable. The caller answers it with resolutions.
type StockShortageError struct {
	CheckoutID uuid.UUID
	Shortages  []inventory.StockShortage
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("checkout %s: %d line(s) short of stock", e.CheckoutID, len(e.Shortages))
}

// ErrorCode returns STOCK_SHORTAGE
func (e *StockShortageError) ErrorCode() string { return CodeStockShortage }

// SubstitutionUnavailableError means the alternate branch could not cover the shortfall
type SubstitutionUnavailableError struct {
	ProductID uuid.UUID
	BranchID  uuid.UUID
	Requested int
	Available int
}

func (e *SubstitutionUnavailableError) Error() string {
	return fmt.Sprintf("branch %s cannot supply %d of product %s (available %d)",
		e.BranchID, e.Requested, e.ProductID, e.Available)
}

// ErrorCode returns SUBSTITUTION_UNAVAILABLE
func (e *SubstitutionUnavailableError) ErrorCode() string { return CodeSubstitutionUnavailable }

// UnresolvedShortageError lists shortages that had no matching resolution
type UnresolvedShortageError struct {
	Shortages []inventory.StockShortage
}

func (e *UnresolvedShortageError) Error() string {
	return fmt.Sprintf("%d shortage(s) have no resolution", len(e.Shortages))
}

// ErrorCode returns UNRESOLVED_SHORTAGE
func (e *UnresolvedShortageError) ErrorCode() string { return CodeUnresolvedShortage }

// ReservationTimeoutError is transient; the whole checkout may be retried
type ReservationTimeoutError struct {
	Op  string
	Err error
}

func (e *ReservationTimeoutError) Error() string {
	if e.Err == nil {
		return e.Op + ": reservation timed out"
	}
	return e.Op + ": reservation timed out: " + e.Err.Error()
}

func (e *ReservationTimeoutError) Unwrap() error { return e.Err }

// ErrorCode returns RESERVATION_TIMEOUT
func (e *ReservationTimeoutError) ErrorCode() string { return CodeReservationTimeout }

// PersistenceFailureError wraps a storage failure. It is retryable.
type PersistenceFailureError struct {
	Op  string
	Err error
}

func (e *PersistenceFailureError) Error() string {
	return e.Op + ": persistence failure: " + e.Err.Error()
}

func (e *PersistenceFailureError) Unwrap() error { return e.Err }

// ErrorCode returns PERSISTENCE_FAILURE
func (e *PersistenceFailureError) ErrorCode() string { return CodePersistenceFailure }

// TaxDegradedError marks a breakdown computed without its rules. It never fails a checkout.
type TaxDegradedError struct {
	BusinessID uuid.UUID
	Err        error
}

func (e *TaxDegradedError) Error() string {
	return fmt.Sprintf("tax computation degraded for business %s: %v", e.BusinessID, e.Err)
}

func (e *TaxDegradedError) Unwrap() error { return e.Err }

// ErrorCode returns TAX_COMPUTATION_DEGRADED
func (e *TaxDegradedError) ErrorCode() string { return CodeTaxDegraded }

// PaymentDeclinedError is returned when the authorizer refuses the charge
type PaymentDeclinedError struct {
	Reason string
	Err    error
}

func (e *PaymentDeclinedError) Error() string {
	if e.Err != nil {
		return "payment declined: " + e.Err.Error()
	}
	return "payment declined: " + e.Reason
}

func (e *PaymentDeclinedError) Unwrap() error { return e.Err }

// ErrorCode returns PAYMENT_DECLINED
func (e *PaymentDeclinedError) ErrorCode() string { return CodePaymentDeclined }

// PaymentUnavailableError means the authorizer could not be reached or failed
// before deciding. The charge was not refused, so the checkout may be retried.
type PaymentUnavailableError struct {
	Err error
}

func (e *PaymentUnavailableError) Error() string {
	return "payment authorization unavailable: " + e.Err.Error()
}

func (e *PaymentUnavailableError) Unwrap() error { return e.Err }

// ErrorCode returns SERVICE_UNAVAILABLE
func (e *PaymentUnavailableError) ErrorCode() string { return CodePaymentUnavailable }

// IsRetryable reports whether err is a transient failure worth retrying
func IsRetryable(err error) bool {
	var timeout *ReservationTimeoutError
	var persist *PersistenceFailureError
	var payment *PaymentUnavailableError
	return errors.As(err, &timeout) || errors.As(err, &persist) || errors.As(err, &payment)
}

// RetryAfter is the back-off advertised for retryable failures
const RetryAfter = 2 * time.Second

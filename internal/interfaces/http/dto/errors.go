package dto

import "net/http"

// General error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeRequestTooLarge    = "REQUEST_TOO_LARGE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "INVALID_TOKEN"
	ErrCodeTokenInvalidType = "INVALID_TOKEN_TYPE"
	ErrCodeTokenNotYetValid = "TOKEN_NOT_VALID"
	ErrCodeTokenRevoked     = "TOKEN_REVOKED"
)

// Resource error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeProductNotFound     = "PRODUCT_NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeDuplicateRequest    = "DUPLICATE_REQUEST"
	ErrCodeInvalidSession      = "INVALID_SESSION"
)

// Checkout error codes
const (
	ErrCodeStockShortage           = "STOCK_SHORTAGE"
	ErrCodeSubstitutionUnavailable = "SUBSTITUTION_UNAVAILABLE"
	ErrCodeUnresolvedShortage      = "UNRESOLVED_SHORTAGE"
	ErrCodeReservationTimeout      = "RESERVATION_TIMEOUT"
	ErrCodePersistenceFailure      = "PERSISTENCE_FAILURE"
	ErrCodePaymentDeclined         = "PAYMENT_DECLINED"
	ErrCodeInvalidState            = "INVALID_STATE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidSession:  http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeTokenInvalidType: http.StatusUnauthorized,
	ErrCodeTokenNotYetValid: http.StatusUnauthorized,
	ErrCodeTokenRevoked:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeProductNotFound:     http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,

	// shortages need caller input, picking another remedy is a business rule failure
	ErrCodeStockShortage:           http.StatusConflict,
	ErrCodeSubstitutionUnavailable: http.StatusUnprocessableEntity,
	ErrCodeUnresolvedShortage:      http.StatusUnprocessableEntity,
	ErrCodeInvalidState:            http.StatusUnprocessableEntity,
	ErrCodePaymentDeclined:         http.StatusPaymentRequired,

	ErrCodeReservationTimeout: http.StatusServiceUnavailable,
	ErrCodePersistenceFailure: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unlisted codes come from domain rule checks and map to 422.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusUnprocessableEntity
}

// IsRetryableStatus reports whether clients should retry after Retry-After
func IsRetryableStatus(status int) bool {
	return status == http.StatusServiceUnavailable
}

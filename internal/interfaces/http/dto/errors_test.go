package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrCodeStockShortage, http.StatusConflict},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		{ErrCodeSubstitutionUnavailable, http.StatusUnprocessableEntity},
		{ErrCodeUnresolvedShortage, http.StatusUnprocessableEntity},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeReservationTimeout, http.StatusServiceUnavailable},
		{ErrCodePersistenceFailure, http.StatusServiceUnavailable},
		{ErrCodePaymentDeclined, http.StatusPaymentRequired},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{"INVALID_QUANTITY", http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.code))
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, IsRetryableStatus(GetHTTPStatus(ErrCodeReservationTimeout)))
	assert.False(t, IsRetryableStatus(GetHTTPStatus(ErrCodeStockShortage)))
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 41, 2, 20)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	resp = NewSuccessResponseWithMeta(nil, 0, 1, 0)
	assert.Equal(t, 0, resp.Meta.TotalPages)
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "items[0].quantity", Message: "Must be at least 1"},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "VALIDATION_ERROR",
			"message": "Request validation failed",
			"request_id": "req-1",
			"details": [{"field": "items[0].quantity", "message": "Must be at least 1"}]
		}
	}`, string(raw))
}

func TestNewErrorResponse_OmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(NewErrorResponse(ErrCodeNotFound, "Resource not found", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"NOT_FOUND","message":"Resource not found"}}`, string(raw))
}

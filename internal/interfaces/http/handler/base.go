package handler

import (
	"errors"
	"net/http"
	"strconv"

	appcheckout "github.com/erp/checkout/internal/application/checkout"
	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/infrastructure/logger"
	"github.com/erp/checkout/internal/interfaces/http/dto"
	"github.com/erp/checkout/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Request headers read by handlers
const (
	IdempotencyKeyHeader = "Idempotency-Key"
	GuestSessionHeader   = "X-Guest-Session"
)

const retryMessage = "Service temporarily unavailable, retry later"

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func requestID(c *gin.Context) string {
	return logger.RequestID(c.Request.Context())
}

// currentUser returns the authenticated user; it writes 401 and returns false when absent
func (h *BaseHandler) currentUser(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	id, err := claims.UserUUID()
	if err != nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Invalid token")
		return uuid.Nil, false
	}
	return id, true
}

// uuidParam parses a path parameter; it writes 400 and returns false when malformed
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON binds and validates the body; it writes the error response and returns false on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

// bindQuery binds and validates query parameters
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	if details, ok := middleware.ValidationDetails(err); ok {
		h.ValidationError(c, details)
		return
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request body")
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponse(code, message, requestID(c)))
}

// ValidationError sends a 400 validation error response with details
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID(c), details))
}

// HandleError converts typed errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.handleErrorWithData(c, err, nil)
}

// handleErrorWithData is HandleError that also carries data, e.g. the checkout a failure belongs to
func (h *BaseHandler) handleErrorWithData(c *gin.Context, err error, data any) {
	if err == nil {
		return
	}
	if details, ok := middleware.ValidationDetails(err); ok {
		resp := dto.NewValidationErrorResponse(validationMessage(err), requestID(c), details)
		resp.Data = data
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	var coded shared.CodedError
	if !errors.As(err, &coded) {
		logger.L(c.Request.Context()).Error("unhandled error", zap.Error(err))
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
		return
	}

	code := coded.ErrorCode()
	status := dto.GetHTTPStatus(code)
	resp := dto.NewErrorResponse(code, errorMessage(coded, status), requestID(c))
	resp.Data = data

	var shortage *checkout.StockShortageError
	var unresolved *checkout.UnresolvedShortageError
	switch {
	case errors.As(err, &shortage):
		resp.Error.Details = dto.ShortageDetails{
			CheckoutID:         shortage.CheckoutID.String(),
			RequiresResolution: true,
			Shortages:          appcheckout.ToShortageResponses(shortage.Shortages),
		}
	case errors.As(err, &unresolved):
		resp.Error.Details = appcheckout.ToShortageResponses(unresolved.Shortages)
	}

	if dto.IsRetryableStatus(status) {
		c.Header("Retry-After", strconv.Itoa(int(checkout.RetryAfter.Seconds())))
		logger.L(c.Request.Context()).Warn("retryable failure", zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, resp)
}

func validationMessage(err error) string {
	var derr *checkout.ValidationError
	if errors.As(err, &derr) && derr.Message != "" {
		return derr.Message
	}
	return "Request validation failed"
}

// errorMessage hides infrastructure detail behind retryable failures
func errorMessage(err shared.CodedError, status int) string {
	if dto.IsRetryableStatus(status) {
		return retryMessage
	}
	var derr *shared.DomainError
	if errors.As(err, &derr) {
		return derr.Message
	}
	return err.Error()
}

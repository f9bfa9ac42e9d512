package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type authorizeRequest struct {
	CheckoutID uuid.UUID       `json:"checkout_id"`
	BusinessID uuid.UUID       `json:"business_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Method     string          `json:"method"`
}

type authorizeResponse struct {
	Token    string `json:"token"`
	Method   string `json:"method"`
	Deferred bool   `json:"deferred"`
}

// HTTPPaymentAuthorizer talks to the payment service
type HTTPPaymentAuthorizer struct {
	http *httpClient
}

// NewHTTPPaymentAuthorizer creates a payment client
func NewHTTPPaymentAuthorizer(baseURL string, timeout time.Duration, opts ...ClientOption) *HTTPPaymentAuthorizer {
	return &HTTPPaymentAuthorizer{http: newHTTPClient("payment", baseURL, timeout, opts...)}
}

// Authorize asks for an authorization keyed by checkout and business, so a
// retried pass gets the same authorization back.
func (a *HTTPPaymentAuthorizer) Authorize(ctx context.Context, req checkout.PaymentRequest) (*checkout.PaymentAuthorization, error) {
	var out authorizeResponse
	key := fmt.Sprintf("payment:%s:%s", req.CheckoutID, req.BusinessID)
	err := a.http.do(ctx, http.MethodPost, "/authorizations", key, authorizeRequest{
		CheckoutID: req.CheckoutID,
		BusinessID: req.BusinessID,
		UserID:     req.UserID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Method:     req.Method,
	}, &out)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && (se.Status == http.StatusPaymentRequired || se.Status == http.StatusUnprocessableEntity) {
			reason := se.Message
			if reason == "" {
				reason = se.Code
			}
			return nil, &checkout.PaymentDeclinedError{Reason: reason}
		}
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("payment: authorization without token")
	}
	if out.Method == "" {
		out.Method = req.Method
	}
	return &checkout.PaymentAuthorization{Method: out.Method, Token: out.Token, Deferred: out.Deferred}, nil
}

// Void cancels an authorization; an unknown token is already void
func (a *HTTPPaymentAuthorizer) Void(ctx context.Context, token string) error {
	err := a.http.do(ctx, http.MethodPost, "/authorizations/"+url.PathEscape(token)+"/void", "void:"+token, nil, nil)
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return nil
	}
	return err
}

var _ checkout.PaymentAuthorizer = (*HTTPPaymentAuthorizer)(nil)

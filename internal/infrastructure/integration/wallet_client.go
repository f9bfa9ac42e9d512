package integration

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type walletCreditRequest struct {
	OrderID    uuid.UUID       `json:"order_id"`
	ClientID   uuid.UUID       `json:"client_id"`
	BusinessID uuid.UUID       `json:"business_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Reason     string          `json:"reason"`
}

// HTTPWalletLedger credits store credit through the wallet service
type HTTPWalletLedger struct {
	http *httpClient
}

// NewHTTPWalletLedger creates a wallet client
func NewHTTPWalletLedger(baseURL string, timeout time.Duration, opts ...ClientOption) *HTTPWalletLedger {
	return &HTTPWalletLedger{http: newHTTPClient("wallet", baseURL, timeout, opts...)}
}

// Credit posts the credit; a 409 means the key was already applied
func (w *HTTPWalletLedger) Credit(ctx context.Context, req checkout.WalletCreditRequest) error {
	err := w.http.do(ctx, http.MethodPost, "/credits", req.IdempotencyKey, walletCreditRequest{
		OrderID:    req.OrderID,
		ClientID:   req.ClientID,
		BusinessID: req.BusinessID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Reason:     "stock_shortage",
	}, nil)
	return ignoreConflict(err)
}

var _ checkout.WalletLedger = (*HTTPWalletLedger)(nil)

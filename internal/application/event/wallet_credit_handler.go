package event

import (
	"context"
	"fmt"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/shared"
	"go.uber.org/zap"
)

// WalletCreditHandler credits store credit for units a client accepted short
type WalletCreditHandler struct {
	wallet checkout.WalletLedger
	logger *zap.Logger
}

// NewWalletCreditHandler creates a new handler for wallet credit requests
func NewWalletCreditHandler(wallet checkout.WalletLedger, logger *zap.Logger) *WalletCreditHandler {
	return &WalletCreditHandler{
		wallet: wallet,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *WalletCreditHandler) EventTypes() []string {
	return []string{order.EventTypeWalletCreditRequested}
}

// Handle credits the client's wallet; the order id keys the credit at the ledger
func (h *WalletCreditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	req, ok := event.(*order.WalletCreditRequestedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s", order.EventTypeWalletCreditRequested, event.EventType())
	}
	if !req.Amount.IsPositive() {
		h.logger.Debug("skipping empty wallet credit", zap.String("order_id", req.OrderID.String()))
		return nil
	}

	err := h.wallet.Credit(ctx, checkout.WalletCreditRequest{
		IdempotencyKey: "wallet_credit:" + req.OrderID.String(),
		OrderID:        req.OrderID,
		ClientID:       req.ClientID,
		BusinessID:     req.BusinessID,
		Amount:         req.Amount,
		Currency:       req.Currency,
	})
	if err != nil {
		h.logger.Warn("failed to credit wallet",
			zap.String("order_id", req.OrderID.String()),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		return fmt.Errorf("credit wallet for order %s: %w", req.OrderID, err)
	}

	h.logger.Info("wallet credited",
		zap.String("order_id", req.OrderID.String()),
		zap.String("client_id", req.ClientID.String()),
		zap.String("amount", req.Amount.String()),
	)
	return nil
}

var _ shared.EventHandler = (*WalletCreditHandler)(nil)

package event

import (
	"context"
	"fmt"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/shared"
	"go.uber.org/zap"
)

// OrderPlacedShippingHandler hands every placed order to the shipping collaborator
type OrderPlacedShippingHandler struct {
	dispatcher checkout.ShippingDispatcher
	logger     *zap.Logger
}

// NewOrderPlacedShippingHandler creates a new handler for order placed events
func NewOrderPlacedShippingHandler(dispatcher checkout.ShippingDispatcher, logger *zap.Logger) *OrderPlacedShippingHandler {
	return &OrderPlacedShippingHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderPlacedShippingHandler) EventTypes() []string {
	return []string{order.EventTypeOrderPlaced}
}

// Handle dispatches the shipment of a placed order
func (h *OrderPlacedShippingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	placed, ok := event.(*order.OrderPlacedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", order.EventTypeOrderPlaced),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s", order.EventTypeOrderPlaced, event.EventType())
	}

	items := make([]checkout.ShipmentItem, len(placed.Items))
	for i, it := range placed.Items {
		items[i] = checkout.ShipmentItem{
			ProductID: it.ProductID,
			BranchID:  it.BranchID,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
		}
	}

	req := checkout.ShipmentRequest{
		IdempotencyKey: "shipment:" + placed.OrderID.String(),
		OrderID:        placed.OrderID,
		OrderNumber:    placed.OrderNumber,
		BusinessID:     placed.BusinessID,
		ClientID:       placed.ClientID,
		Address:        placed.DeliveryAddress,
		Items:          items,
	}
	if err := h.dispatcher.Dispatch(ctx, req); err != nil {
		h.logger.Warn("failed to dispatch shipment",
			zap.String("order_id", placed.OrderID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("dispatch shipment for order %s: %w", placed.OrderNumber, err)
	}

	h.logger.Info("shipment dispatched",
		zap.String("order_id", placed.OrderID.String()),
		zap.String("order_number", placed.OrderNumber),
		zap.Int("items", len(items)),
	)
	return nil
}

var _ shared.EventHandler = (*OrderPlacedShippingHandler)(nil)

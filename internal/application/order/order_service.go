package order

import (
	"context"
	"errors"
	"time"

	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService serves placed orders and drives their post-placement lifecycle
type OrderService struct {
	repo     order.OrderRepository
	eventBus shared.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(repo order.OrderRepository, logger *zap.Logger) *OrderService {
	return &OrderService{repo: repo, logger: logger, now: time.Now}
}

// SetEventBus sets the publisher for status change events
func (s *OrderService) SetEventBus(bus shared.EventPublisher) {
	s.eventBus = bus
}

// GetForClient returns an order owned by the client
func (s *OrderService) GetForClient(ctx context.Context, clientID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.ClientID != clientID {
		return nil, shared.ErrNotFound
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// GetForBusiness returns an order sold by the business
func (s *OrderService) GetForBusiness(ctx context.Context, businessID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.findForBusiness(ctx, businessID, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// ListForClient lists the client's orders
func (s *OrderService) ListForClient(ctx context.Context, clientID uuid.UUID, filter ListFilter) (shared.Paginated[OrderListItemResponse], error) {
	f := toDomainFilter(filter)
	orders, total, err := s.repo.FindByClient(ctx, clientID, f)
	if err != nil {
		return shared.Paginated[OrderListItemResponse]{}, err
	}
	return shared.NewPaginated(ToOrderListItemResponses(orders), total, f.Page, f.PageSize), nil
}

// ListForBusiness lists the orders a business has received
func (s *OrderService) ListForBusiness(ctx context.Context, businessID uuid.UUID, filter ListFilter) (shared.Paginated[OrderListItemResponse], error) {
	f := toDomainFilter(filter)
	orders, total, err := s.repo.FindByBusiness(ctx, businessID, f)
	if err != nil {
		return shared.Paginated[OrderListItemResponse]{}, err
	}
	return shared.NewPaginated(ToOrderListItemResponses(orders), total, f.Page, f.PageSize), nil
}

// UpdateStatus moves a business's order to the requested status
func (s *OrderService) UpdateStatus(ctx context.Context, businessID, orderID uuid.UUID, req UpdateStatusRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "update_status")
	defer span.End()
	telemetry.SetAttributes(span, "order.id", orderID.String(), "order.target_status", req.Status)

	o, err := s.findForBusiness(ctx, businessID, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	from := o.Status
	target := order.Status(req.Status)
	if target == order.StatusCancelled {
		err = o.Cancel(req.Reason, s.now())
	} else {
		err = o.TransitionTo(target, s.now())
	}
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", o.ID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)),
	)
	resp := ToOrderResponse(o)
	return &resp, nil
}

// CancelByClient cancels an order on behalf of its client
func (s *OrderService) CancelByClient(ctx context.Context, clientID, orderID uuid.UUID, req CancelRequest) (*OrderResponse, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.ClientID != clientID {
		return nil, shared.ErrNotFound
	}
	if err := o.CancelByClient(req.Reason, s.now()); err != nil {
		return nil, err
	}
	if err := s.persist(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled by client",
		zap.String("order_id", o.ID.String()),
		zap.String("reason", o.CancelReason),
	)
	resp := ToOrderResponse(o)
	return &resp, nil
}

func (s *OrderService) findForBusiness(ctx context.Context, businessID, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BusinessID != businessID {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (s *OrderService) persist(ctx context.Context, o *order.Order) error {
	if err := s.repo.UpdateStatus(ctx, o); err != nil {
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Error("Failed to update order status", zap.String("order_id", o.ID.String()), zap.Error(err))
		}
		return err
	}

	// Events are best effort once the status is stored
	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, o.GetDomainEvents()...); err != nil {
			s.logger.Warn("Failed to publish order events", zap.String("order_id", o.ID.String()), zap.Error(err))
		}
	}
	o.ClearDomainEvents()
	return nil
}

func toDomainFilter(filter ListFilter) shared.Filter {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}
	if id, err := uuid.Parse(filter.BusinessID); err == nil {
		f.Filters["business_id"] = id
	}
	return f
}

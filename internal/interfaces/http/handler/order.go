package handler

import (
	"context"

	apporder "github.com/erp/checkout/internal/application/order"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderService is the order query and lifecycle use case
type OrderService interface {
	GetForClient(ctx context.Context, clientID, orderID uuid.UUID) (*apporder.OrderResponse, error)
	GetForBusiness(ctx context.Context, businessID, orderID uuid.UUID) (*apporder.OrderResponse, error)
	ListForClient(ctx context.Context, clientID uuid.UUID, filter apporder.ListFilter) (shared.Paginated[apporder.OrderListItemResponse], error)
	ListForBusiness(ctx context.Context, businessID uuid.UUID, filter apporder.ListFilter) (shared.Paginated[apporder.OrderListItemResponse], error)
	UpdateStatus(ctx context.Context, businessID, orderID uuid.UUID, req apporder.UpdateStatusRequest) (*apporder.OrderResponse, error)
	CancelByClient(ctx context.Context, clientID, orderID uuid.UUID, req apporder.CancelRequest) (*apporder.OrderResponse, error)
}

// OrderHandler handles client and business order endpoints
type OrderHandler struct {
	BaseHandler
	orders OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List returns the caller's orders
// GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var filter apporder.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.orders.ListForClient(c.Request.Context(), userID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Get returns one of the caller's orders
// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.orders.GetForClient(c.Request.Context(), userID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel cancels one of the caller's orders while it is still cancellable
// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apporder.CancelRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.orders.CancelByClient(c.Request.Context(), userID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListForBusiness returns the orders of a business
// GET /business/:businessId/orders
func (h *OrderHandler) ListForBusiness(c *gin.Context) {
	businessID, ok := h.uuidParam(c, "businessId")
	if !ok {
		return
	}
	var filter apporder.ListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.orders.ListForBusiness(c.Request.Context(), businessID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetForBusiness returns one order of a business
// GET /business/:businessId/orders/:id
func (h *OrderHandler) GetForBusiness(c *gin.Context) {
	businessID, ok := h.uuidParam(c, "businessId")
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.orders.GetForBusiness(c.Request.Context(), businessID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// UpdateStatus moves a business order along its lifecycle
// PUT /business/:businessId/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	businessID, ok := h.uuidParam(c, "businessId")
	if !ok {
		return
	}
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apporder.UpdateStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.orders.UpdateStatus(c.Request.Context(), businessID, orderID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterRoutes registers the order routes. Business routes require the caller to act for the business.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.GET("", h.List)
	orders.GET("/:id", h.Get)
	orders.POST("/:id/cancel", h.Cancel)

	business := rg.Group("/business/:businessId/orders", middleware.RequireBusiness("businessId"))
	business.GET("", h.ListForBusiness)
	business.GET("/:id", h.GetForBusiness)
	business.PUT("/:id/status", h.UpdateStatus)
}

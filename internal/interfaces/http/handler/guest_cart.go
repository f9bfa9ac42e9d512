package handler

import (
	"context"

	appcart "github.com/erp/checkout/internal/application/cart"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GuestCartService is the anonymous cart use case, keyed by the guest session
type GuestCartService interface {
	Get(ctx context.Context, sessionID string) (*appcart.CartResponse, error)
	AddItem(ctx context.Context, sessionID string, req appcart.AddItemRequest) (*appcart.CartResponse, error)
	UpdateItem(ctx context.Context, sessionID string, itemID uuid.UUID, req appcart.UpdateItemRequest) (*appcart.CartResponse, error)
	RemoveItem(ctx context.Context, sessionID string, itemID uuid.UUID) (*appcart.CartResponse, error)
	Clear(ctx context.Context, sessionID string) error
	GroupByBusiness(ctx context.Context, sessionID string) ([]appcart.BusinessGroupResponse, error)
}

// GuestCartHandler serves the guest cart. The session comes from the X-Guest-Session header.
type GuestCartHandler struct {
	BaseHandler
	guests GuestCartService
}

// NewGuestCartHandler creates a new GuestCartHandler
func NewGuestCartHandler(guests GuestCartService) *GuestCartHandler {
	return &GuestCartHandler{guests: guests}
}

func session(c *gin.Context) string {
	return c.GetHeader(GuestSessionHeader)
}

// Get returns the guest cart
// GET /guest-cart
func (h *GuestCartHandler) Get(c *gin.Context) {
	resp, err := h.guests.Get(c.Request.Context(), session(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Businesses returns the guest cart grouped by store
// GET /guest-cart/businesses
func (h *GuestCartHandler) Businesses(c *gin.Context) {
	groups, err := h.guests.GroupByBusiness(c.Request.Context(), session(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, groups)
}

// AddItem adds a product line
// POST /guest-cart/items
func (h *GuestCartHandler) AddItem(c *gin.Context) {
	var req appcart.AddItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.guests.AddItem(c.Request.Context(), session(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// UpdateItem changes a line
// PUT /guest-cart/items/:id
func (h *GuestCartHandler) UpdateItem(c *gin.Context) {
	itemID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appcart.UpdateItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.guests.UpdateItem(c.Request.Context(), session(c), itemID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RemoveItem deletes a line
// DELETE /guest-cart/items/:id
func (h *GuestCartHandler) RemoveItem(c *gin.Context) {
	itemID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.guests.RemoveItem(c.Request.Context(), session(c), itemID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Clear drops the guest cart
// DELETE /guest-cart
func (h *GuestCartHandler) Clear(c *gin.Context) {
	if err := h.guests.Clear(c.Request.Context(), session(c)); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers the guest cart routes
func (h *GuestCartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/guest-cart")
	g.GET("", h.Get)
	g.DELETE("", h.Clear)
	g.GET("/businesses", h.Businesses)
	g.POST("/items", h.AddItem)
	g.PUT("/items/:id", h.UpdateItem)
	g.DELETE("/items/:id", h.RemoveItem)
}

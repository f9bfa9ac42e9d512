package handler

import (
	"context"

	appcheckout "github.com/erp/checkout/internal/application/checkout"
	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CheckoutOrchestrator runs checkouts of the caller's cart
type CheckoutOrchestrator interface {
	Start(ctx context.Context, userID uuid.UUID, req appcheckout.StartCheckoutRequest, idempotencyKey string) (*appcheckout.Result, error)
	Continue(ctx context.Context, userID, checkoutID uuid.UUID, req appcheckout.PrepareOrderRequest) (*appcheckout.Result, error)
	GetSession(ctx context.Context, userID, checkoutID uuid.UUID) (*checkout.Session, error)
}

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	BaseHandler
	orchestrator CheckoutOrchestrator
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(orchestrator CheckoutOrchestrator) *CheckoutHandler {
	return &CheckoutHandler{orchestrator: orchestrator}
}

// Start checks out the caller's cart. A repeated Idempotency-Key is rejected.
// POST /checkout
func (h *CheckoutHandler) Start(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	var req appcheckout.StartCheckoutRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.orchestrator.Start(c.Request.Context(), userID, req, c.GetHeader(IdempotencyKeyHeader))
	h.respond(c, res, err)
}

// Prepare continues a checkout waiting on shortage resolutions
// POST /checkout/:id/prepare
func (h *CheckoutHandler) Prepare(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	checkoutID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appcheckout.PrepareOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	res, err := h.orchestrator.Continue(c.Request.Context(), userID, checkoutID, req)
	h.respond(c, res, err)
}

// Get returns a checkout session of the caller
// GET /checkout/:id
func (h *CheckoutHandler) Get(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	checkoutID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	s, err := h.orchestrator.GetSession(c.Request.Context(), userID, checkoutID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appcheckout.ToCheckoutResponse(s))
}

func (h *CheckoutHandler) respond(c *gin.Context, res *appcheckout.Result, err error) {
	if err != nil {
		if res != nil && res.Session != nil {
			h.handleErrorWithData(c, err, appcheckout.ToCheckoutResponse(res.Session))
			return
		}
		h.HandleError(c, err)
		return
	}
	resp := appcheckout.ToCheckoutResponse(res.Session)
	if len(res.Orders) > 0 {
		h.Created(c, resp)
		return
	}
	h.Success(c, resp)
}

// RegisterRoutes registers the checkout routes
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/checkout")
	g.POST("", h.Start)
	g.GET("/:id", h.Get)
	g.POST("/:id/prepare", h.Prepare)
}


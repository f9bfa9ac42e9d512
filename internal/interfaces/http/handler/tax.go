package handler

import (
	"context"
	"net/http"

	apptax "github.com/erp/checkout/internal/application/tax"
	"github.com/erp/checkout/internal/interfaces/http/dto"
	"github.com/erp/checkout/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaxPermission guards the tax administration routes
const TaxPermission = "tax:manage"

// TaxService previews and administers taxes
type TaxService interface {
	Preview(ctx context.Context, req apptax.PreviewRequest) (*apptax.PreviewResponse, error)
	CreateTaxType(ctx context.Context, req apptax.CreateTaxTypeRequest) (*apptax.TaxTypeResponse, error)
	ListTaxTypes(ctx context.Context, businessID uuid.UUID) ([]apptax.TaxTypeResponse, error)
	AssignToProduct(ctx context.Context, productID uuid.UUID, req apptax.AssignProductTaxRequest) (*apptax.ProductTaxResponse, error)
	ListProductTaxes(ctx context.Context, productID uuid.UUID) ([]apptax.ProductTaxResponse, error)
}

// TaxHandler handles tax endpoints
type TaxHandler struct {
	BaseHandler
	taxes TaxService
}

// NewTaxHandler creates a new TaxHandler
func NewTaxHandler(taxes TaxService) *TaxHandler {
	return &TaxHandler{taxes: taxes}
}

// Preview computes the tax breakdown checkout would produce
// POST /tax/preview
func (h *TaxHandler) Preview(c *gin.Context) {
	var req apptax.PreviewRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.taxes.Preview(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CreateTaxType creates a tax type
// POST /tax/types
func (h *TaxHandler) CreateTaxType(c *gin.Context) {
	var req apptax.CreateTaxTypeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	if !h.actsFor(c, req.BusinessID) {
		return
	}
	resp, err := h.taxes.CreateTaxType(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListTaxTypes lists the active tax types of a business
// GET /tax/types?business_id=
func (h *TaxHandler) ListTaxTypes(c *gin.Context) {
	businessID, err := uuid.Parse(c.Query("business_id"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "business_id must be a valid UUID")
		return
	}
	if !h.actsFor(c, businessID) {
		return
	}
	resp, err := h.taxes.ListTaxTypes(c.Request.Context(), businessID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// AssignToProduct assigns a tax type to a product
// POST /tax/products/:id
func (h *TaxHandler) AssignToProduct(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apptax.AssignProductTaxRequest
	if !h.bindJSON(c, &req) {
		return
	}
	resp, err := h.taxes.AssignToProduct(c.Request.Context(), productID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListProductTaxes lists the assignments of a product
// GET /tax/products/:id
func (h *TaxHandler) ListProductTaxes(c *gin.Context) {
	productID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.taxes.ListProductTaxes(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *TaxHandler) actsFor(c *gin.Context, businessID uuid.UUID) bool {
	claims := middleware.GetJWTClaims(c)
	if claims == nil || !claims.CanActFor(businessID) {
		h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "Not allowed to manage taxes of this business")
		return false
	}
	return true
}

// RegisterRoutes registers the tax routes
func (h *TaxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/tax")
	g.POST("/preview", h.Preview)

	admin := g.Group("", middleware.RequirePermission(TaxPermission))
	admin.POST("/types", h.CreateTaxType)
	admin.GET("/types", h.ListTaxTypes)
	admin.POST("/products/:id", h.AssignToProduct)
	admin.GET("/products/:id", h.ListProductTaxes)
}

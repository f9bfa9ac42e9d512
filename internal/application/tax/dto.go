package tax

import (
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineInput is one taxable line
type LineInput struct {
	LineID    uuid.UUID
	ProductID uuid.UUID
	Subtotal  decimal.Decimal
}

// Computation is the tax result of one business sub-order
type Computation struct {
	Lines map[uuid.UUID]tax.Breakdown
	// Extras are business-level taxes on the delivery fee and tip
	Extras tax.Breakdown
	// Degraded is set when rule lookup failed, leaving every breakdown empty,
	// or when some product taxes point at unknown types
	Degraded error
}

// Total merges every line breakdown (in lines order) with the extras
func (c Computation) Total(lines []LineInput) tax.Breakdown {
	total := tax.EmptyBreakdown()
	for _, l := range lines {
		if bd, ok := c.Lines[l.LineID]; ok {
			total = total.Merge(bd)
		}
	}
	return total.Merge(c.Extras)
}

// PreviewItem is one line of a preview request
type PreviewItem struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PreviewRequest asks for the breakdown a checkout would produce
type PreviewRequest struct {
	BusinessID  uuid.UUID       `json:"business_id" binding:"required"`
	Items       []PreviewItem   `json:"items" binding:"required,min=1,dive"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	TipAmount   decimal.Decimal `json:"tip_amount"`
}

// PreviewLine is the breakdown of one previewed item
type PreviewLine struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxBreakdown tax.Breakdown   `json:"tax_breakdown"`
}

// PreviewResponse mirrors what checkout will compute for the same input
type PreviewResponse struct {
	Items        []PreviewLine   `json:"items"`
	Extras       tax.Breakdown   `json:"extras"`
	TaxBreakdown tax.Breakdown   `json:"tax_breakdown"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	Degraded     bool            `json:"degraded"`
}

// CreateTaxTypeRequest creates a tax type for a business
type CreateTaxTypeRequest struct {
	BusinessID        uuid.UUID        `json:"business_id" binding:"required"`
	Name              string           `json:"name" binding:"required,min=1,max=100"`
	Code              string           `json:"code" binding:"max=20"`
	Description       string           `json:"description" binding:"max=500"`
	RateType          string           `json:"rate_type" binding:"required,oneof=percentage fixed"`
	Rate              decimal.Decimal  `json:"rate"`
	FixedAmount       *decimal.Decimal `json:"fixed_amount"`
	AppliesToSubtotal *bool            `json:"applies_to_subtotal"`
	AppliesToDelivery bool             `json:"applies_to_delivery"`
	AppliesToTip      bool             `json:"applies_to_tip"`
	IsDefault         bool             `json:"is_default"`
}

// AssignProductTaxRequest assigns a tax type to a product
type AssignProductTaxRequest struct {
	TaxTypeID           uuid.UUID        `json:"tax_type_id" binding:"required"`
	OverrideRate        *decimal.Decimal `json:"override_rate"`
	OverrideFixedAmount *decimal.Decimal `json:"override_fixed_amount"`
	DisplayOrder        int              `json:"display_order" binding:"min=0"`
}

// TaxTypeResponse represents a tax type in API responses
type TaxTypeResponse struct {
	ID                uuid.UUID       `json:"id"`
	BusinessID        uuid.UUID       `json:"business_id"`
	Name              string          `json:"name"`
	Code              string          `json:"code"`
	Description       string          `json:"description"`
	RateType          string          `json:"rate_type"`
	Rate              decimal.Decimal `json:"rate"`
	FixedAmount       decimal.Decimal `json:"fixed_amount"`
	AppliesToSubtotal bool            `json:"applies_to_subtotal"`
	AppliesToDelivery bool            `json:"applies_to_delivery"`
	AppliesToTip      bool            `json:"applies_to_tip"`
	IsDefault         bool            `json:"is_default"`
	IsActive          bool            `json:"is_active"`
}

// ProductTaxResponse represents a product assignment in API responses
type ProductTaxResponse struct {
	ID                  uuid.UUID        `json:"id"`
	ProductID           uuid.UUID        `json:"product_id"`
	TaxTypeID           uuid.UUID        `json:"tax_type_id"`
	OverrideRate        *decimal.Decimal `json:"override_rate,omitempty"`
	OverrideFixedAmount *decimal.Decimal `json:"override_fixed_amount,omitempty"`
	DisplayOrder        int              `json:"display_order"`
}

// ToTaxTypeResponse converts a domain TaxType to a response
func ToTaxTypeResponse(t *tax.TaxType) TaxTypeResponse {
	return TaxTypeResponse{
		ID:                t.ID,
		BusinessID:        t.BusinessID,
		Name:              t.Name,
		Code:              t.Code,
		Description:       t.Description,
		RateType:          string(t.RateKind),
		Rate:              t.Rate,
		FixedAmount:       t.FixedAmount,
		AppliesToSubtotal: t.AppliesToSubtotal,
		AppliesToDelivery: t.AppliesToDelivery,
		AppliesToTip:      t.AppliesToTip,
		IsDefault:         t.IsDefault,
		IsActive:          t.IsActive,
	}
}

package tax

import (
	"strings"

	"github.com/erp/checkout/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateKind is how a tax amount is derived
type RateKind string

const (
	RateKindPercentage RateKind = "percentage"
	RateKindFixed      RateKind = "fixed"
)

// IsValid checks if the rate kind is known
func (k RateKind) IsValid() bool {
	return k == RateKindPercentage || k == RateKindFixed
}

// AppliedTo names the taxable base a detail was computed on
type AppliedTo string

const (
	AppliedToSubtotal    AppliedTo = "subtotal"
	AppliedToDeliveryFee AppliedTo = "delivery_fee"
	AppliedToTip         AppliedTo = "tip"
)

// basePriority is the order fixed taxes pick their single base in
var basePriority = []AppliedTo{AppliedToSubtotal, AppliedToDeliveryFee, AppliedToTip}

// TaxType is a business-configured tax (e.g. IVA 16%, a fixed eco fee)
type TaxType struct {
	shared.BaseEntity
	BusinessID        uuid.UUID
	Name              string
	Code              string
	Description       string
	Rate              decimal.Decimal // fraction for percentage kinds, 0.16 = 16%
	RateKind          RateKind
	FixedAmount       decimal.Decimal
	AppliesToSubtotal bool
	AppliesToDelivery bool
	AppliesToTip      bool
	IsDefault         bool
	IsActive          bool
}

// NewTaxType creates an active tax type that applies to the subtotal
func NewTaxType(businessID uuid.UUID, name, code string, kind RateKind, rate, fixedAmount decimal.Decimal) (*TaxType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Tax name cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_RATE_TYPE", "Rate type must be percentage or fixed")
	}
	if rate.IsNegative() || fixedAmount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_RATE", "Tax rate cannot be negative")
	}
	if kind == RateKindPercentage && rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_RATE", "Percentage rate is a fraction and cannot exceed 1")
	}
	return &TaxType{
		BaseEntity:        shared.NewBaseEntity(),
		BusinessID:        businessID,
		Name:              name,
		Code:              strings.ToUpper(strings.TrimSpace(code)),
		Rate:              rate,
		RateKind:          kind,
		FixedAmount:       fixedAmount,
		AppliesToSubtotal: true,
		IsActive:          true,
	}, nil
}

// SetAppliesTo sets which bases the tax is charged on
func (t *TaxType) SetAppliesTo(subtotal, delivery, tip bool) error {
	if !subtotal && !delivery && !tip {
		return shared.NewDomainError("INVALID_APPLIES_TO", "Tax must apply to at least one base")
	}
	t.AppliesToSubtotal = subtotal
	t.AppliesToDelivery = delivery
	t.AppliesToTip = tip
	return nil
}

// AppliesTo reports whether the type is charged on base
func (t *TaxType) AppliesTo(base AppliedTo) bool {
	switch base {
	case AppliedToSubtotal:
		return t.AppliesToSubtotal
	case AppliedToDeliveryFee:
		return t.AppliesToDelivery
	case AppliedToTip:
		return t.AppliesToTip
	}
	return false
}

// ProductTax assigns a tax type to a product, optionally overriding its rate
type ProductTax struct {
	ID                  uuid.UUID
	ProductID           uuid.UUID
	TaxTypeID           uuid.UUID
	OverrideRate        *decimal.Decimal
	OverrideFixedAmount *decimal.Decimal
	DisplayOrder        int
}

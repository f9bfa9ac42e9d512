package models

import (
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxTypeModel is the persistence model for a business-configured tax.
type TaxTypeModel struct {
	BaseModel
	BusinessID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name              string          `gorm:"type:varchar(100);not null"`
	Code              string          `gorm:"type:varchar(50)"`
	Description       string          `gorm:"type:text"`
	Rate              decimal.Decimal `gorm:"type:decimal(10,6);not null;default:0"`
	RateKind          string          `gorm:"column:rate_type;type:varchar(20);not null"`
	FixedAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	AppliesToSubtotal bool            `gorm:"not null;default:true"`
	AppliesToDelivery bool            `gorm:"not null;default:false"`
	AppliesToTip      bool            `gorm:"not null;default:false"`
	IsDefault         bool            `gorm:"not null;default:false"`
	IsActive          bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (TaxTypeModel) TableName() string {
	return "tax_types"
}

// ToDomain converts the persistence model to a domain TaxType.
func (m *TaxTypeModel) ToDomain() *tax.TaxType {
	return &tax.TaxType{
		BaseEntity:        m.BaseModel.ToDomain(),
		BusinessID:        m.BusinessID,
		Name:              m.Name,
		Code:              m.Code,
		Description:       m.Description,
		Rate:              m.Rate,
		RateKind:          tax.RateKind(m.RateKind),
		FixedAmount:       m.FixedAmount,
		AppliesToSubtotal: m.AppliesToSubtotal,
		AppliesToDelivery: m.AppliesToDelivery,
		AppliesToTip:      m.AppliesToTip,
		IsDefault:         m.IsDefault,
		IsActive:          m.IsActive,
	}
}

// TaxTypeModelFromDomain creates a persistence model from a domain TaxType.
func TaxTypeModelFromDomain(t *tax.TaxType) *TaxTypeModel {
	m := &TaxTypeModel{
		BusinessID:        t.BusinessID,
		Name:              t.Name,
		Code:              t.Code,
		Description:       t.Description,
		Rate:              t.Rate,
		RateKind:          string(t.RateKind),
		FixedAmount:       t.FixedAmount,
		AppliesToSubtotal: t.AppliesToSubtotal,
		AppliesToDelivery: t.AppliesToDelivery,
		AppliesToTip:      t.AppliesToTip,
		IsDefault:         t.IsDefault,
		IsActive:          t.IsActive,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	return m
}

// ProductTaxModel assigns a tax type to a product.
type ProductTaxModel struct {
	ID                  uuid.UUID        `gorm:"type:uuid;primary_key"`
	ProductID           uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_product_tax,priority:1"`
	TaxTypeID           uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_product_tax,priority:2"`
	OverrideRate        *decimal.Decimal `gorm:"type:decimal(10,6)"`
	OverrideFixedAmount *decimal.Decimal `gorm:"type:decimal(18,4)"`
	DisplayOrder        int              `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductTaxModel) TableName() string {
	return "product_taxes"
}

// ToDomain converts the persistence model to a domain ProductTax.
func (m *ProductTaxModel) ToDomain() tax.ProductTax {
	return tax.ProductTax{
		ID:                  m.ID,
		ProductID:           m.ProductID,
		TaxTypeID:           m.TaxTypeID,
		OverrideRate:        m.OverrideRate,
		OverrideFixedAmount: m.OverrideFixedAmount,
		DisplayOrder:        m.DisplayOrder,
	}
}

// ProductTaxModelFromDomain creates a persistence model from a domain ProductTax.
func ProductTaxModelFromDomain(pt *tax.ProductTax) *ProductTaxModel {
	return &ProductTaxModel{
		ID:                  pt.ID,
		ProductID:           pt.ProductID,
		TaxTypeID:           pt.TaxTypeID,
		OverrideRate:        pt.OverrideRate,
		OverrideFixedAmount: pt.OverrideFixedAmount,
		DisplayOrder:        pt.DisplayOrder,
	}
}

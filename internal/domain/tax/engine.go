package tax

import (
	"github.com/erp/checkout/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Base holds the taxable amounts of a checkout or line
type Base struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tip         decimal.Decimal
}

func (b Base) amountFor(a AppliedTo) decimal.Decimal {
	switch a {
	case AppliedToSubtotal:
		return b.Subtotal
	case AppliedToDeliveryFee:
		return b.DeliveryFee
	case AppliedToTip:
		return b.Tip
	}
	return decimal.Zero
}

// Detail is one applied tax
type Detail struct {
	TaxTypeID uuid.UUID       `json:"tax_type_id"`
	Name      string          `json:"tax_name"`
	Code      string          `json:"tax_code,omitempty"`
	Rate      decimal.Decimal `json:"rate"`
	RateKind  RateKind        `json:"rate_type"`
	Amount    decimal.Decimal `json:"amount"`
	AppliedTo AppliedTo       `json:"applied_to"`
}

// Breakdown is an ordered list of details. TotalTax always equals the sum of the amounts.
type Breakdown struct {
	Taxes    []Detail        `json:"taxes"`
	TotalTax decimal.Decimal `json:"total_tax"`
}

// EmptyBreakdown returns a breakdown with no taxes
func EmptyBreakdown() Breakdown {
	return Breakdown{Taxes: []Detail{}, TotalTax: decimal.Zero}
}

// Merge concatenates two breakdowns, keeping the total consistent
func (b Breakdown) Merge(other Breakdown) Breakdown {
	taxes := make([]Detail, 0, len(b.Taxes)+len(other.Taxes))
	taxes = append(taxes, b.Taxes...)
	taxes = append(taxes, other.Taxes...)
	return Breakdown{Taxes: taxes, TotalTax: sumDetails(taxes)}
}

// IsConsistent reports whether TotalTax equals the sum of the details
func (b Breakdown) IsConsistent() bool {
	return b.TotalTax.Equal(sumDetails(b.Taxes))
}

// Engine computes tax breakdowns. It holds no state.
type Engine struct{}

// Compute applies rules to base. Percentage amounts are rounded half-to-even at
// currency precision; fixed amounts are the rate itself. The result depends only
// on the inputs, so preview and final checkout produce the same breakdown.
func (Engine) Compute(base Base, rules []Rule) Breakdown {
	if len(rules) == 0 {
		return EmptyBreakdown()
	}
	details := make([]Detail, 0, len(rules))
	for _, r := range rules {
		var amount decimal.Decimal
		switch r.Kind {
		case RateKindPercentage:
			amount = base.amountFor(r.AppliedTo).Mul(r.Rate)
		case RateKindFixed:
			amount = r.Rate
		default:
			continue
		}
		details = append(details, Detail{
			TaxTypeID: r.TaxTypeID,
			Name:      r.Name,
			Code:      r.Code,
			Rate:      r.Rate,
			RateKind:  r.Kind,
			Amount:    valueobject.RoundMoney(amount),
			AppliedTo: r.AppliedTo,
		})
	}
	return Breakdown{Taxes: details, TotalTax: sumDetails(details)}
}

func sumDetails(details []Detail) decimal.Decimal {
	total := decimal.Zero
	for _, d := range details {
		total = total.Add(d.Amount)
	}
	return total
}

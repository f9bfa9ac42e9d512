package tax

import (
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnknownTaxType is reported when a product tax points at a missing type
var ErrUnknownTaxType = errors.New("unknown tax type")

// Rule is a resolved, ready-to-apply tax on one base.
// For fixed kinds Rate is the amount charged.
type Rule struct {
	TaxTypeID uuid.UUID
	Name      string
	Code      string
	Kind      RateKind
	Rate      decimal.Decimal
	AppliedTo AppliedTo
	Order     int
}

// ResolveProductRules builds the rules for one product line.
// Product taxes whose type is inactive are skipped; unknown type ids are
// skipped too and returned so the caller can flag the breakdown.
// Only bases in allowed are considered.
func ResolveProductRules(types map[uuid.UUID]*TaxType, assignments []ProductTax, allowed ...AppliedTo) ([]Rule, []uuid.UUID) {
	rules := make([]Rule, 0, len(assignments))
	var unknown []uuid.UUID
	for _, pt := range assignments {
		tt, ok := types[pt.TaxTypeID]
		if !ok || tt == nil {
			unknown = append(unknown, pt.TaxTypeID)
			continue
		}
		if !tt.IsActive {
			continue
		}
		rules = append(rules, rulesFor(tt, pt.OverrideRate, pt.OverrideFixedAmount, pt.DisplayOrder, allowed)...)
	}
	sortRules(rules)
	return rules, unknown
}

// ResolveBusinessRules builds rules from the business's active default types
func ResolveBusinessRules(types []TaxType, allowed ...AppliedTo) []Rule {
	rules := make([]Rule, 0, len(types))
	for i := range types {
		tt := &types[i]
		if !tt.IsActive || !tt.IsDefault {
			continue
		}
		rules = append(rules, rulesFor(tt, nil, nil, 0, allowed)...)
	}
	sortRules(rules)
	return rules
}

func rulesFor(tt *TaxType, overrideRate, overrideFixed *decimal.Decimal, order int, allowed []AppliedTo) []Rule {
	permitted := func(b AppliedTo) bool {
		if len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == b {
				return true
			}
		}
		return false
	}

	base := Rule{
		TaxTypeID: tt.ID,
		Name:      tt.Name,
		Code:      tt.Code,
		Kind:      tt.RateKind,
		Order:     order,
	}

	switch tt.RateKind {
	case RateKindPercentage:
		base.Rate = tt.Rate
		if overrideRate != nil {
			base.Rate = *overrideRate
		}
		out := make([]Rule, 0, 3)
		for _, b := range basePriority {
			if tt.AppliesTo(b) && permitted(b) {
				r := base
				r.AppliedTo = b
				out = append(out, r)
			}
		}
		return out
	case RateKindFixed:
		base.Rate = tt.FixedAmount
		if overrideFixed != nil {
			base.Rate = *overrideFixed
		}
		for _, b := range basePriority {
			if tt.AppliesTo(b) {
				if !permitted(b) {
					return nil
				}
				base.AppliedTo = b
				return []Rule{base}
			}
		}
	}
	return nil
}

func sortRules(rules []Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Order != rules[j].Order {
			return rules[i].Order < rules[j].Order
		}
		return rules[i].Name < rules[j].Name
	})
}

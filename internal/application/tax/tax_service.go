package tax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/domain/shared/valueobject"
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TaxService loads tax rules and delegates the arithmetic to the engine
type TaxService struct {
	repo    tax.TaxRepository
	engine  tax.Engine
	timeout time.Duration
	logger  *zap.Logger
}

// NewTaxService creates a new TaxService
func NewTaxService(repo tax.TaxRepository, timeout time.Duration, logger *zap.Logger) *TaxService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &TaxService{
		repo:    repo,
		timeout: timeout,
		logger:  logger,
	}
}

// ComputeForLines computes one breakdown per line on its subtotal and one for
// the business's delivery fee and tip. If rules cannot be loaded in time every
// breakdown is empty and Degraded is set; the caller keeps going. Unknown tax
// types are skipped and also set Degraded.
func (s *TaxService) ComputeForLines(ctx context.Context, businessID uuid.UUID, lines []LineInput, deliveryFee, tip decimal.Decimal) Computation {
	result := Computation{
		Lines:  make(map[uuid.UUID]tax.Breakdown, len(lines)),
		Extras: tax.EmptyBreakdown(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	assignments, types, businessTypes, err := s.loadRules(ctx, businessID, lines)
	if err != nil {
		result.Degraded = &checkout.TaxDegradedError{BusinessID: businessID, Err: err}
		for _, l := range lines {
			result.Lines[l.LineID] = tax.EmptyBreakdown()
		}
		s.logger.Warn("Tax rules unavailable, continuing with empty breakdown",
			zap.String("business_id", businessID.String()),
			zap.Int("lines", len(lines)),
			zap.Error(err),
		)
		return result
	}

	var unknown []uuid.UUID
	for _, l := range lines {
		rules, missing := tax.ResolveProductRules(types, assignments[l.ProductID], tax.AppliedToSubtotal)
		unknown = append(unknown, missing...)
		result.Lines[l.LineID] = s.engine.Compute(tax.Base{Subtotal: l.Subtotal}, rules)
	}
	extraRules := tax.ResolveBusinessRules(businessTypes, tax.AppliedToDeliveryFee, tax.AppliedToTip)
	result.Extras = s.engine.Compute(tax.Base{DeliveryFee: deliveryFee, Tip: tip}, extraRules)

	if len(unknown) > 0 {
		result.Degraded = &checkout.TaxDegradedError{
			BusinessID: businessID,
			Err:        fmt.Errorf("%w: %v", tax.ErrUnknownTaxType, unknown),
		}
		s.logger.Warn("Product taxes reference unknown tax types, skipping them",
			zap.String("business_id", businessID.String()),
			zap.Int("unknown_types", len(unknown)),
			zap.Error(result.Degraded),
		)
	}
	return result
}

func (s *TaxService) loadRules(ctx context.Context, businessID uuid.UUID, lines []LineInput) (map[uuid.UUID][]tax.ProductTax, map[uuid.UUID]*tax.TaxType, []tax.TaxType, error) {
	productIDs := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			productIDs = append(productIDs, l.ProductID)
		}
	}

	assignments, err := s.repo.FindProductTaxes(ctx, productIDs)
	if err != nil {
		return nil, nil, nil, err
	}

	var typeIDs []uuid.UUID
	seenType := make(map[uuid.UUID]bool)
	for _, list := range assignments {
		for _, pt := range list {
			if !seenType[pt.TaxTypeID] {
				seenType[pt.TaxTypeID] = true
				typeIDs = append(typeIDs, pt.TaxTypeID)
			}
		}
	}

	types := make(map[uuid.UUID]*tax.TaxType, len(typeIDs))
	if len(typeIDs) > 0 {
		found, err := s.repo.FindTaxTypesByIDs(ctx, typeIDs)
		if err != nil {
			return nil, nil, nil, err
		}
		for i := range found {
			types[found[i].ID] = &found[i]
		}
	}

	businessTypes, err := s.repo.FindTaxTypesByBusiness(ctx, businessID)
	if err != nil {
		return nil, nil, nil, err
	}
	return assignments, types, businessTypes, nil
}

// Preview computes the breakdown checkout would produce for the same items
func (s *TaxService) Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error) {
	if len(req.Items) == 0 {
		return nil, checkout.NewValidationError("preview requires items", checkout.FieldError{Field: "items", Message: "must not be empty"})
	}
	if req.DeliveryFee.IsNegative() || req.TipAmount.IsNegative() {
		return nil, checkout.NewValidationError("amounts cannot be negative")
	}

	lines := make([]LineInput, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity < 1 || it.UnitPrice.IsNegative() {
			return nil, checkout.NewValidationError("invalid preview item",
				checkout.FieldError{Field: "items.quantity", Message: "quantity must be at least 1 and price non-negative"})
		}
		lines[i] = LineInput{
			LineID:    uuid.New(),
			ProductID: it.ProductID,
			Subtotal:  valueobject.LineTotal(it.UnitPrice, it.Quantity),
		}
	}

	comp := s.ComputeForLines(ctx, req.BusinessID, lines, req.DeliveryFee, req.TipAmount)
	resp := &PreviewResponse{
		Items:    make([]PreviewLine, len(lines)),
		Extras:   comp.Extras,
		Degraded: comp.Degraded != nil,
	}
	for i, l := range lines {
		resp.Items[i] = PreviewLine{ProductID: l.ProductID, Subtotal: l.Subtotal, TaxBreakdown: comp.Lines[l.LineID]}
	}
	resp.TaxBreakdown = comp.Total(lines)
	resp.TotalTax = resp.TaxBreakdown.TotalTax
	return resp, nil
}

// CreateTaxType creates a tax type for a business
func (s *TaxService) CreateTaxType(ctx context.Context, req CreateTaxTypeRequest) (*TaxTypeResponse, error) {
	fixed := decimal.Zero
	if req.FixedAmount != nil {
		fixed = *req.FixedAmount
	}
	kind := tax.RateKind(req.RateType)
	if kind == tax.RateKindFixed && req.FixedAmount == nil {
		// fixed types may carry the amount in rate
		fixed = req.Rate
	}
	tt, err := tax.NewTaxType(req.BusinessID, req.Name, req.Code, kind, req.Rate, fixed)
	if err != nil {
		return nil, err
	}
	tt.Description = req.Description
	tt.IsDefault = req.IsDefault
	subtotal := true
	if req.AppliesToSubtotal != nil {
		subtotal = *req.AppliesToSubtotal
	}
	if err := tt.SetAppliesTo(subtotal, req.AppliesToDelivery, req.AppliesToTip); err != nil {
		return nil, err
	}
	if err := s.repo.SaveTaxType(ctx, tt); err != nil {
		return nil, err
	}
	resp := ToTaxTypeResponse(tt)
	return &resp, nil
}

// ListTaxTypes lists the tax types of a business
func (s *TaxService) ListTaxTypes(ctx context.Context, businessID uuid.UUID) ([]TaxTypeResponse, error) {
	types, err := s.repo.FindTaxTypesByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}
	out := make([]TaxTypeResponse, len(types))
	for i := range types {
		out[i] = ToTaxTypeResponse(&types[i])
	}
	return out, nil
}

// AssignToProduct assigns a tax type to a product
func (s *TaxService) AssignToProduct(ctx context.Context, productID uuid.UUID, req AssignProductTaxRequest) (*ProductTaxResponse, error) {
	tt, err := s.repo.FindTaxType(ctx, req.TaxTypeID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_TAX_TYPE", "Tax type not found")
		}
		return nil, err
	}
	if !tt.IsActive {
		return nil, shared.NewDomainError("INVALID_TAX_TYPE", "Tax type is inactive")
	}
	for _, o := range []*decimal.Decimal{req.OverrideRate, req.OverrideFixedAmount} {
		if o != nil && o.IsNegative() {
			return nil, shared.NewDomainError("INVALID_RATE", "Override cannot be negative")
		}
	}
	pt := &tax.ProductTax{
		ID:                  uuid.New(),
		ProductID:           productID,
		TaxTypeID:           tt.ID,
		OverrideRate:        req.OverrideRate,
		OverrideFixedAmount: req.OverrideFixedAmount,
		DisplayOrder:        req.DisplayOrder,
	}
	if err := s.repo.AssignToProduct(ctx, pt); err != nil {
		return nil, err
	}
	return &ProductTaxResponse{
		ID:                  pt.ID,
		ProductID:           pt.ProductID,
		TaxTypeID:           pt.TaxTypeID,
		OverrideRate:        pt.OverrideRate,
		OverrideFixedAmount: pt.OverrideFixedAmount,
		DisplayOrder:        pt.DisplayOrder,
	}, nil
}

// ListProductTaxes lists the assignments of a product
func (s *TaxService) ListProductTaxes(ctx context.Context, productID uuid.UUID) ([]ProductTaxResponse, error) {
	byProduct, err := s.repo.FindProductTaxes(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, err
	}
	list := byProduct[productID]
	out := make([]ProductTaxResponse, len(list))
	for i, pt := range list {
		out[i] = ProductTaxResponse{
			ID:                  pt.ID,
			ProductID:           pt.ProductID,
			TaxTypeID:           pt.TaxTypeID,
			OverrideRate:        pt.OverrideRate,
			OverrideFixedAmount: pt.OverrideFixedAmount,
			DisplayOrder:        pt.DisplayOrder,
		}
	}
	return out, nil
}

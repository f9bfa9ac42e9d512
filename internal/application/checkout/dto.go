package checkout

import (
	"fmt"
	"time"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemAdjustment overrides the quantity of one cart item for this checkout
type ItemAdjustment struct {
	ItemID   uuid.UUID `json:"item_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1,max=999"`
}

// ShortageOption is the caller's remedy for the shortage of one product
type ShortageOption struct {
	ProductID           uuid.UUID  `json:"product_id" binding:"required"`
	OptionType          string     `json:"option_type" binding:"required,option_type"`
	AlternativeBranchID *uuid.UUID `json:"alternative_branch_id"`
	ShortageQuantity    int        `json:"shortage_quantity" binding:"required,min=1"`
}

// BusinessFees sets the delivery fee and tip of one business sub-order
type BusinessFees struct {
	BusinessID  uuid.UUID       `json:"business_id" binding:"required"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	TipAmount   decimal.Decimal `json:"tip_amount"`
}

// StartCheckoutRequest starts a checkout of the caller's cart
type StartCheckoutRequest struct {
	Items           []ItemAdjustment `json:"items" binding:"omitempty,dive"`
	ShortageOptions []ShortageOption `json:"shortage_options" binding:"omitempty,dive"`
	Fees            []BusinessFees   `json:"fees" binding:"omitempty,dive"`
	AllOrNothing    *bool            `json:"all_or_nothing"`
	DeliveryAddress string           `json:"delivery_address" binding:"max=500"`
	DeliveryNotes   string           `json:"delivery_notes" binding:"max=500"`
	PaymentMethod   string           `json:"payment_method" binding:"omitempty,oneof=cash card wallet"`
}

// PrepareOrderRequest continues a checkout that is waiting on shortage resolutions
type PrepareOrderRequest struct {
	Items           []ItemAdjustment `json:"items" binding:"omitempty,dive"`
	ShortageOptions []ShortageOption `json:"shortage_options" binding:"omitempty,dive"`
}

// Validate checks the request explicitly and returns a ValidationError with per-field details
func (r StartCheckoutRequest) Validate() error {
	details := validateItems(r.Items)
	details = append(details, validateOptions(r.ShortageOptions)...)

	seen := make(map[uuid.UUID]bool, len(r.Fees))
	for i, f := range r.Fees {
		field := fmt.Sprintf("fees[%d]", i)
		if f.BusinessID == uuid.Nil {
			details = append(details, checkout.FieldError{Field: field + ".business_id", Message: "This field is required"})
		}
		if seen[f.BusinessID] {
			details = append(details, checkout.FieldError{Field: field + ".business_id", Message: "Duplicate business"})
		}
		seen[f.BusinessID] = true
		details = append(details, validateAmount(field+".delivery_fee", f.DeliveryFee)...)
		details = append(details, validateAmount(field+".tip_amount", f.TipAmount)...)
	}
	if len(r.DeliveryAddress) > 500 {
		details = append(details, checkout.FieldError{Field: "delivery_address", Message: "Must be at most 500 characters"})
	}
	switch r.PaymentMethod {
	case "", "cash", "card", "wallet":
	default:
		details = append(details, checkout.FieldError{Field: "payment_method", Message: "Must be one of: cash card wallet"})
	}

	if len(details) > 0 {
		return checkout.NewValidationError("Request validation failed", details...)
	}
	return nil
}

func validateAmount(field string, amount decimal.Decimal) []checkout.FieldError {
	switch {
	case amount.IsNegative():
		return []checkout.FieldError{{Field: field, Message: "Must be greater than or equal to 0"}}
	case !valueobject.HasMoneyPrecision(amount):
		return []checkout.FieldError{{Field: field, Message: fmt.Sprintf("Must have at most %d decimal places", valueobject.CurrencyPrecision)}}
	}
	return nil
}

// Validate checks the request explicitly and returns a ValidationError with per-field details
func (r PrepareOrderRequest) Validate() error {
	details := validateItems(r.Items)
	details = append(details, validateOptions(r.ShortageOptions)...)
	if len(details) > 0 {
		return checkout.NewValidationError("Request validation failed", details...)
	}
	return nil
}

// Resolutions converts the shortage options into domain resolutions
func (r PrepareOrderRequest) Resolutions() (checkout.Resolutions, error) {
	return toResolutions(r.ShortageOptions)
}

// Resolutions converts the inline shortage options into domain resolutions
func (r StartCheckoutRequest) Resolutions() (checkout.Resolutions, error) {
	return toResolutions(r.ShortageOptions)
}

func toResolutions(opts []ShortageOption) (checkout.Resolutions, error) {
	list := make([]checkout.Resolution, len(opts))
	for i, o := range opts {
		list[i] = checkout.Resolution{
			ProductID:           o.ProductID,
			Kind:                checkout.ResolutionKind(o.OptionType),
			AlternativeBranchID: o.AlternativeBranchID,
			ShortageQuantity:    o.ShortageQuantity,
		}
	}
	return checkout.NewResolutions(list)
}

func validateItems(items []ItemAdjustment) []checkout.FieldError {
	var details []checkout.FieldError
	seen := make(map[uuid.UUID]bool, len(items))
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		if it.ItemID == uuid.Nil {
			details = append(details, checkout.FieldError{Field: field + ".item_id", Message: "This field is required"})
		} else if seen[it.ItemID] {
			details = append(details, checkout.FieldError{Field: field + ".item_id", Message: "Duplicate item"})
		}
		seen[it.ItemID] = true
		if it.Quantity < 1 {
			details = append(details, checkout.FieldError{Field: field + ".quantity", Message: "Must be at least 1"})
		}
		if it.Quantity > 999 {
			details = append(details, checkout.FieldError{Field: field + ".quantity", Message: "Must be at most 999"})
		}
	}
	return details
}

func validateOptions(opts []ShortageOption) []checkout.FieldError {
	var details []checkout.FieldError
	for i, o := range opts {
		field := fmt.Sprintf("shortage_options[%d]", i)
		if o.ProductID == uuid.Nil {
			details = append(details, checkout.FieldError{Field: field + ".product_id", Message: "This field is required"})
		}
		kind := checkout.ResolutionKind(o.OptionType)
		if !kind.IsValid() {
			details = append(details, checkout.FieldError{Field: field + ".option_type", Message: "Must be one of: refund other_branch wallet"})
		}
		if kind == checkout.ResolutionOtherBranch && (o.AlternativeBranchID == nil || *o.AlternativeBranchID == uuid.Nil) {
			details = append(details, checkout.FieldError{Field: field + ".alternative_branch_id", Message: "Required for other_branch"})
		}
		if o.ShortageQuantity < 1 {
			details = append(details, checkout.FieldError{Field: field + ".shortage_quantity", Message: "Must be at least 1"})
		}
	}
	return details
}

// Result is the outcome of one orchestrator pass
type Result struct {
	Session *checkout.Session
	Orders  []*order.Order
}

// SubOrderResponse is one business sub-order in API responses
type SubOrderResponse struct {
	BusinessID     uuid.UUID                          `json:"business_id"`
	State          checkout.State                     `json:"state"`
	Subtotal       decimal.Decimal                    `json:"subtotal"`
	Shortages      []ShortageResponse                 `json:"shortages,omitempty"`
	WalletCredits  []checkout.WalletCreditInstruction `json:"wallet_credits,omitempty"`
	TaxDegraded    bool                               `json:"tax_degraded"`
	OrderID        *uuid.UUID                         `json:"order_id,omitempty"`
	FailureCode    string                             `json:"failure_code,omitempty"`
	ReservationIDs []uuid.UUID                        `json:"reservation_ids,omitempty"`
}

// ShortageResponse is a shortage with its resolution marker
type ShortageResponse struct {
	ProductID          uuid.UUID `json:"product_id"`
	BranchID           uuid.UUID `json:"branch_id"`
	BusinessID         uuid.UUID `json:"business_id"`
	QuantityRequested  int       `json:"quantity_requested"`
	QuantityAvailable  int       `json:"quantity_available"`
	Shortfall          int       `json:"shortfall"`
	RequiresResolution bool      `json:"requires_resolution"`
}

// CheckoutResponse represents a checkout session in API responses
type CheckoutResponse struct {
	ID                 uuid.UUID          `json:"id"`
	State              checkout.State     `json:"state"`
	AllOrNothing       bool               `json:"all_or_nothing"`
	RequiresResolution bool               `json:"requires_resolution"`
	SubOrders          []SubOrderResponse `json:"sub_orders"`
	Shortages          []ShortageResponse `json:"shortages,omitempty"`
	OrderIDs           []uuid.UUID        `json:"order_ids,omitempty"`
	ExpireAt           time.Time          `json:"expire_at"`
	Version            int                `json:"version"`
}

// ToShortageResponses marks every shortage as requiring a resolution
func ToShortageResponses(shortages []inventory.StockShortage) []ShortageResponse {
	out := make([]ShortageResponse, len(shortages))
	for i, s := range shortages {
		out[i] = ShortageResponse{
			ProductID:          s.ProductID,
			BranchID:           s.BranchID,
			BusinessID:         s.BusinessID,
			QuantityRequested:  s.Requested,
			QuantityAvailable:  s.Available,
			Shortfall:          s.Shortfall(),
			RequiresResolution: s.Shortfall() > 0,
		}
	}
	return out
}

// ToCheckoutResponse converts a domain Session to a response
func ToCheckoutResponse(s *checkout.Session) CheckoutResponse {
	resp := CheckoutResponse{
		ID:           s.ID,
		State:        s.State,
		AllOrNothing: s.AllOrNothing,
		SubOrders:    make([]SubOrderResponse, len(s.SubOrders)),
		Shortages:    ToShortageResponses(s.Shortages()),
		OrderIDs:     s.OrderIDs(),
		ExpireAt:     s.ExpireAt,
		Version:      s.Version,
	}
	resp.RequiresResolution = s.State == checkout.StateAwaiting
	for i := range s.SubOrders {
		g := &s.SubOrders[i]
		sub := SubOrderResponse{
			BusinessID:    g.BusinessID,
			State:         g.State,
			Subtotal:      g.Subtotal(),
			WalletCredits: g.WalletCredits,
			TaxDegraded:   g.TaxDegraded,
			OrderID:       g.OrderID,
			FailureCode:   g.FailureCode,
		}
		if g.State == checkout.StateAwaiting {
			sub.Shortages = ToShortageResponses(g.Shortages)
		}
		if g.State.HoldsStock() {
			sub.ReservationIDs = g.ReservationIDs
		}
		resp.SubOrders[i] = sub
	}
	return resp
}

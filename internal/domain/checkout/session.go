package checkout

import (
	"fmt"
	"time"

	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one checkout-able line, priced at validation time
type Line struct {
	ID                  uuid.UUID                `json:"id"`
	CartItemID          uuid.UUID                `json:"cart_item_id"`
	ProductID           uuid.UUID                `json:"product_id"`
	BusinessID          uuid.UUID                `json:"business_id"`
	BranchID            uuid.UUID                `json:"branch_id"`
	ProductName         string                   `json:"product_name"`
	UnitPrice           decimal.Decimal          `json:"unit_price"`
	Quantity            int                      `json:"quantity"`
	VariantSelection    catalog.VariantSelection `json:"variant_selection,omitempty"`
	SpecialInstructions string                   `json:"special_instructions,omitempty"`
}

// Subtotal returns unit price times quantity
func (l Line) Subtotal() decimal.Decimal {
	return valueobject.LineTotal(l.UnitPrice, l.Quantity)
}

// ReservationRequest converts the line into a gate request
func (l Line) ReservationRequest() inventory.ReservationRequest {
	return inventory.ReservationRequest{
		LineID:     l.ID,
		BusinessID: l.BusinessID,
		ProductID:  l.ProductID,
		BranchID:   l.BranchID,
		Quantity:   l.Quantity,
	}
}

// BusinessCheckout is the sub-order of one selling business
type BusinessCheckout struct {
	BusinessID     uuid.UUID                 `json:"business_id"`
	State          State                     `json:"state"`
	Lines          []Line                    `json:"lines"`
	ReservationIDs []uuid.UUID               `json:"reservation_ids"`
	Shortages      []inventory.StockShortage `json:"shortages,omitempty"`
	WalletCredits  []WalletCreditInstruction `json:"wallet_credits,omitempty"`
	DeliveryFee    decimal.Decimal           `json:"delivery_fee"`
	TipAmount      decimal.Decimal           `json:"tip_amount"`
	DiscountAmount decimal.Decimal           `json:"discount_amount"`
	TaxDegraded    bool                      `json:"tax_degraded"`
	OrderID        *uuid.UUID                `json:"order_id,omitempty"`
	FailureCode    string                    `json:"failure_code,omitempty"`
}

// Subtotal sums the line subtotals
func (b *BusinessCheckout) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range b.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// WalletCreditTotal sums the wallet credit instructions
func (b *BusinessCheckout) WalletCreditTotal() decimal.Decimal {
	total := decimal.Zero
	for _, w := range b.WalletCredits {
		total = total.Add(w.Amount)
	}
	return total
}

// ReservationRequests returns one request per line, in line order
func (b *BusinessCheckout) ReservationRequests() []inventory.ReservationRequest {
	out := make([]inventory.ReservationRequest, len(b.Lines))
	for i, l := range b.Lines {
		out[i] = l.ReservationRequest()
	}
	return out
}

// CartItemIDs returns the distinct cart items this sub-order consumes
func (b *BusinessCheckout) CartItemIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(b.Lines))
	out := make([]uuid.UUID, 0, len(b.Lines))
	for _, l := range b.Lines {
		if l.CartItemID == uuid.Nil || seen[l.CartItemID] {
			continue
		}
		seen[l.CartItemID] = true
		out = append(out, l.CartItemID)
	}
	return out
}

// Transition records a state change of one sub-order
type Transition struct {
	BusinessID uuid.UUID `json:"business_id"`
	From       State     `json:"from"`
	To         State     `json:"to"`
	Reason     string    `json:"reason,omitempty"`
	At         time.Time `json:"at"`
}

// Options are the caller-supplied parameters of a checkout attempt
type Options struct {
	AllOrNothing    bool
	DeliveryAddress string
	DeliveryNotes   string
	PaymentMethod   string
	Fees            map[uuid.UUID]Fees
}

// Fees are per-business amounts added on top of the subtotal
type Fees struct {
	DeliveryFee decimal.Decimal
	TipAmount   decimal.Decimal
}

// Session is one persisted checkout attempt. It survives the shortage round trip.
type Session struct {
	shared.BaseAggregateRoot
	UserID          uuid.UUID
	CartID          uuid.UUID
	AllOrNothing    bool
	State           State
	SubOrders       []BusinessCheckout
	ExpireAt        time.Time
	DeliveryAddress string
	DeliveryNotes   string
	PaymentMethod   string
	Currency        string
	History         []Transition
}

// NewSession creates a draft session with one sub-order per business group
func NewSession(userID, cartID uuid.UUID, groups map[uuid.UUID][]Line, order []uuid.UUID, opts Options, currency string, ttl time.Duration, now time.Time) *Session {
	s := &Session{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		CartID:            cartID,
		AllOrNothing:      opts.AllOrNothing,
		State:             StateDraft,
		ExpireAt:          now.Add(ttl),
		DeliveryAddress:   opts.DeliveryAddress,
		DeliveryNotes:     opts.DeliveryNotes,
		PaymentMethod:     opts.PaymentMethod,
		Currency:          currency,
	}
	for _, businessID := range order {
		fees := opts.Fees[businessID]
		s.SubOrders = append(s.SubOrders, BusinessCheckout{
			BusinessID:     businessID,
			State:          StateDraft,
			Lines:          groups[businessID],
			DeliveryFee:    fees.DeliveryFee,
			TipAmount:      fees.TipAmount,
			DiscountAmount: decimal.Zero,
		})
	}
	return s
}

// Group returns the sub-order of a business, or nil
func (s *Session) Group(businessID uuid.UUID) *BusinessCheckout {
	for i := range s.SubOrders {
		if s.SubOrders[i].BusinessID == businessID {
			return &s.SubOrders[i]
		}
	}
	return nil
}

// Transition moves one sub-order, records history and refreshes the session state
func (s *Session) Transition(businessID uuid.UUID, to State, reason string, now time.Time) error {
	g := s.Group(businessID)
	if g == nil {
		return shared.NewDomainError("NOT_FOUND", fmt.Sprintf("business %s is not part of checkout %s", businessID, s.ID))
	}
	if !g.State.CanTransitionTo(to) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("sub-order %s cannot move from %s to %s", businessID, g.State, to))
	}
	s.History = append(s.History, Transition{BusinessID: businessID, From: g.State, To: to, Reason: reason, At: now})
	g.State = to
	s.State = s.aggregateState()
	s.UpdatedAt = now
	return nil
}

// InState returns the sub-orders currently in state
func (s *Session) InState(state State) []*BusinessCheckout {
	var out []*BusinessCheckout
	for i := range s.SubOrders {
		if s.SubOrders[i].State == state {
			out = append(out, &s.SubOrders[i])
		}
	}
	return out
}

// Shortages returns the shortages of all awaiting sub-orders
func (s *Session) Shortages() []inventory.StockShortage {
	var out []inventory.StockShortage
	for _, g := range s.InState(StateAwaiting) {
		out = append(out, g.Shortages...)
	}
	return out
}

// OrderIDs returns the ids of placed orders
func (s *Session) OrderIDs() []uuid.UUID {
	var out []uuid.UUID
	for _, g := range s.SubOrders {
		if g.OrderID != nil {
			out = append(out, *g.OrderID)
		}
	}
	return out
}

// IsExpired reports whether the hold window has elapsed
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpireAt)
}

// IsTerminal reports whether every sub-order is placed or aborted
func (s *Session) IsTerminal() bool {
	for _, g := range s.SubOrders {
		if !g.State.IsTerminal() {
			return false
		}
	}
	return true
}

// ReservationIDs returns every reservation held by the attempt
func (s *Session) ReservationIDs() []uuid.UUID {
	var out []uuid.UUID
	for _, g := range s.SubOrders {
		out = append(out, g.ReservationIDs...)
	}
	return out
}

// aggregateState summarizes sub-order states: any awaiting wins, then any
// in-flight state, then placed if anything was placed, else aborted.
func (s *Session) aggregateState() State {
	if len(s.SubOrders) == 0 {
		return s.State
	}
	placed := false
	var inFlight State
	for _, g := range s.SubOrders {
		switch g.State {
		case StateAwaiting:
			return StateAwaiting
		case StatePlaced:
			placed = true
		case StateAborted:
		default:
			if inFlight == "" {
				inFlight = g.State
			}
		}
	}
	if inFlight != "" {
		return inFlight
	}
	if placed {
		return StatePlaced
	}
	return StateAborted
}

package checkout

import (
	"context"
	"errors"
	"sync"
	"time"

	apptax "github.com/erp/checkout/internal/application/tax"
	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type cartStore struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*cart.Cart
}

func newCartStore() *cartStore {
	return &cartStore{carts: make(map[uuid.UUID]*cart.Cart)}
}

func (s *cartStore) FindByUser(_ context.Context, userID uuid.UUID) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.carts {
		if c.UserID != nil && *c.UserID == userID {
			return c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *cartStore) FindByID(_ context.Context, id uuid.UUID) (*cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (s *cartStore) Save(_ context.Context, c *cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[c.ID] = c
	return nil
}

func (s *cartStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, id)
	return nil
}

type productStore map[uuid.UUID]*catalog.Product

func (p productStore) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if prod, ok := p[id]; ok {
		return prod, nil
	}
	return nil, shared.ErrNotFound
}

func (p productStore) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	out := make(map[uuid.UUID]*catalog.Product, len(ids))
	for _, id := range ids {
		if prod, ok := p[id]; ok {
			out[id] = prod
		}
	}
	return out, nil
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]checkout.Session
	saveErr  error
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[uuid.UUID]checkout.Session)}
}

func (s *sessionStore) Save(_ context.Context, sess *checkout.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if existing, ok := s.sessions[sess.ID]; ok {
		if existing.Version != sess.Version {
			return shared.ErrConcurrencyConflict
		}
		sess.Version++
	}
	s.sessions[sess.ID] = cloneSession(sess)
	return nil
}

func (s *sessionStore) FindByID(_ context.Context, id uuid.UUID) (*checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := cloneSession(&sess)
	return &cp, nil
}

func (s *sessionStore) FindStale(_ context.Context, now time.Time, limit int) ([]checkout.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []checkout.Session
	for _, sess := range s.sessions {
		if !sess.IsTerminal() && sess.IsExpired(now) {
			out = append(out, cloneSession(&sess))
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func cloneSession(s *checkout.Session) checkout.Session {
	cp := *s
	cp.SubOrders = make([]checkout.BusinessCheckout, len(s.SubOrders))
	for i, g := range s.SubOrders {
		g.Lines = append([]checkout.Line(nil), g.Lines...)
		g.Shortages = append([]inventory.StockShortage(nil), g.Shortages...)
		g.ReservationIDs = append([]uuid.UUID(nil), g.ReservationIDs...)
		g.WalletCredits = append([]checkout.WalletCreditInstruction(nil), g.WalletCredits...)
		cp.SubOrders[i] = g
	}
	cp.History = append([]checkout.Transition(nil), s.History...)
	return cp
}

type orderStore struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*order.Order
	createErr error
}

func newOrderStore() *orderStore {
	return &orderStore{orders: make(map[uuid.UUID]*order.Order)}
}

func (s *orderStore) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.orders[o.ID] = o
	return nil
}

func (s *orderStore) UpdateStatus(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
	return nil
}

func (s *orderStore) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return o, nil
	}
	return nil, shared.ErrNotFound
}

func (s *orderStore) FindByCheckout(_ context.Context, checkoutID uuid.UUID) ([]order.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []order.Order
	for _, o := range s.orders {
		if o.CheckoutID == checkoutID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *orderStore) FindByClient(context.Context, uuid.UUID, shared.Filter) ([]order.Order, int64, error) {
	return nil, 0, errors.New("not used")
}

func (s *orderStore) FindByBusiness(context.Context, uuid.UUID, shared.Filter) ([]order.Order, int64, error) {
	return nil, 0, errors.New("not used")
}

func (s *orderStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// vatCalculator charges 16% on every line subtotal
type vatCalculator struct {
	degrade error
}

func (v vatCalculator) ComputeForLines(_ context.Context, _ uuid.UUID, lines []apptax.LineInput, _, _ decimal.Decimal) apptax.Computation {
	comp := apptax.Computation{Lines: make(map[uuid.UUID]tax.Breakdown, len(lines)), Extras: tax.EmptyBreakdown()}
	if v.degrade != nil {
		comp.Degraded = v.degrade
		return comp
	}
	rule := tax.Rule{TaxTypeID: uuid.New(), Name: "IVA", Code: "IVA", Kind: tax.RateKindPercentage, Rate: decimal.RequireFromString("0.16"), AppliedTo: tax.AppliedToSubtotal}
	for _, l := range lines {
		comp.Lines[l.LineID] = tax.Engine{}.Compute(tax.Base{Subtotal: l.Subtotal}, []tax.Rule{rule})
	}
	return comp
}

type payments struct {
	mu      sync.Mutex
	decline bool
	failErr error
	voided  []string
}

func (p *payments) Authorize(_ context.Context, req checkout.PaymentRequest) (*checkout.PaymentAuthorization, error) {
	if p.failErr != nil {
		return nil, p.failErr
	}
	if p.decline {
		return nil, &checkout.PaymentDeclinedError{Reason: "insufficient funds"}
	}
	return &checkout.PaymentAuthorization{Method: req.Method, Token: "auth-" + req.BusinessID.String()}, nil
}

func (p *payments) Void(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voided = append(p.voided, token)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (r *recorder) Publish(_ context.Context, events ...shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

type claims struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (c *claims) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = make(map[string]bool)
	}
	if c.seen[key] {
		return false, nil
	}
	c.seen[key] = true
	return true, nil
}

func (c *claims) IsProcessed(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen[key], nil
}

func (c *claims) Forget(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, key)
	return nil
}

func (c *claims) Close() error { return nil }

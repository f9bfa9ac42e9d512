package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	appinv "github.com/erp/checkout/internal/application/inventory"
	apptax "github.com/erp/checkout/internal/application/tax"
	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/catalog"
	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/order"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/domain/shared/valueobject"
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/erp/checkout/internal/infrastructure/logger"
	"github.com/erp/checkout/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultPaymentMethod is used when the request does not name one
const DefaultPaymentMethod = "cash"

// ErrNotAwaiting is returned when continuing a checkout that is not waiting on resolutions
var ErrNotAwaiting = shared.NewDomainError("INVALID_STATE", "Checkout is not waiting for shortage resolutions")

// errEmptySubOrder aborts a sub-order whose lines were all refunded away
var errEmptySubOrder = shared.NewDomainError("EMPTY_ORDER", "Nothing is left to order after resolving shortages")

// TaxCalculator computes the taxes of one business sub-order
type TaxCalculator interface {
	ComputeForLines(ctx context.Context, businessID uuid.UUID, lines []apptax.LineInput, deliveryFee, tip decimal.Decimal) apptax.Computation
}

// Config tunes the orchestrator
type Config struct {
	AllOrNothing   bool
	Currency       string
	SessionTTL     time.Duration
	PersistTimeout time.Duration
	PaymentTimeout time.Duration
	IdempotencyTTL time.Duration
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		Currency:       valueobject.DefaultCurrency,
		SessionTTL:     15 * time.Minute,
		PersistTimeout: 5 * time.Second,
		PaymentTimeout: 10 * time.Second,
		IdempotencyTTL: 24 * time.Hour,
	}
}

// Dependencies are the collaborators of the orchestrator
type Dependencies struct {
	Carts    cart.CartRepository
	Products catalog.ProductReader
	Sessions checkout.SessionRepository
	Gate     *appinv.Gate
	Resolver *ShortageResolver
	Taxes    TaxCalculator
	Payments checkout.PaymentAuthorizer
	Scope    TransactionScope
	Events   shared.EventPublisher
}

// Orchestrator drives a checkout through its states, one sub-order per selling business.
// It is the only component that compensates: every reservation of a failed
// attempt is released here.
type Orchestrator struct {
	carts       cart.CartRepository
	products    catalog.ProductReader
	sessions    checkout.SessionRepository
	gate        *appinv.Gate
	resolver    *ShortageResolver
	taxes       TaxCalculator
	payments    checkout.PaymentAuthorizer
	scope       TransactionScope
	events      shared.EventPublisher
	idempotency shared.IdempotencyStore
	config      Config
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(deps Dependencies, config Config, logger *zap.Logger) *Orchestrator {
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultConfig().SessionTTL
	}
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = DefaultConfig().PersistTimeout
	}
	if config.PaymentTimeout <= 0 {
		config.PaymentTimeout = DefaultConfig().PaymentTimeout
	}
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = DefaultConfig().IdempotencyTTL
	}
	if config.Currency == "" {
		config.Currency = DefaultConfig().Currency
	}
	resolver := deps.Resolver
	if resolver == nil {
		resolver = NewShortageResolver(deps.Gate, logger)
	}
	return &Orchestrator{
		carts:    deps.Carts,
		products: deps.Products,
		sessions: deps.Sessions,
		gate:     deps.Gate,
		resolver: resolver,
		taxes:    deps.Taxes,
		payments: deps.Payments,
		scope:    deps.Scope,
		events:   deps.Events,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// SetIdempotencyStore enables Idempotency-Key claims on Start
func (o *Orchestrator) SetIdempotencyStore(store shared.IdempotencyStore) {
	o.idempotency = store
}

// Start checks out the caller's cart. Inline shortage options are applied when
// they cover every shortage of a sub-order; otherwise that sub-order waits.
// A waiting checkout is reported as *checkout.StockShortageError alongside the result.
func (o *Orchestrator) Start(ctx context.Context, userID uuid.UUID, req StartCheckoutRequest, idempotencyKey string) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "start")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	resolutions, err := req.Resolutions()
	if err != nil {
		return nil, err
	}
	if err := o.claim(ctx, userID, idempotencyKey); err != nil {
		return nil, err
	}
	res, err := o.start(ctx, userID, req, resolutions)
	if err != nil {
		telemetry.RecordError(span, err)
		// no attempt was recorded, or it may succeed on retry: the key stays usable
		if res == nil || checkout.IsRetryable(err) {
			o.forget(ctx, userID, idempotencyKey)
		}
	}
	return res, err
}

func (o *Orchestrator) start(ctx context.Context, userID uuid.UUID, req StartCheckoutRequest, resolutions checkout.Resolutions) (*Result, error) {
	span := telemetry.SpanFromContext(ctx)

	c, err := o.carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, checkout.NewValidationError("Cart is empty")
		}
		return nil, &checkout.PersistenceFailureError{Op: "load cart", Err: err}
	}
	if c.IsEmpty() {
		return nil, checkout.NewValidationError("Cart is empty")
	}

	groups, businesses, err := o.snapshot(ctx, c, req.Items)
	if err != nil {
		return nil, err
	}
	opts, err := o.options(req, groups)
	if err != nil {
		return nil, err
	}

	now := o.now()
	s := checkout.NewSession(userID, c.ID, groups, businesses, opts, o.config.Currency, o.config.SessionTTL, now)
	for _, businessID := range businesses {
		if err := s.Transition(businessID, checkout.StateValidating, "cart snapshot taken", now); err != nil {
			return nil, err
		}
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrCheckoutID, s.ID.String(), "businesses", len(businesses))

	o.log(ctx).Info("Checkout started",
		zap.String("checkout_id", s.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("businesses", len(businesses)),
		zap.Bool("all_or_nothing", s.AllOrNothing),
	)

	return o.run(ctx, s, resolutions, nil)
}

// Continue answers the shortages of a waiting checkout with resolutions and
// optional quantity changes of the short lines.
func (o *Orchestrator) Continue(ctx context.Context, userID, checkoutID uuid.UUID, req PrepareOrderRequest) (*Result, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "continue")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCheckoutID, checkoutID.String())

	if err := req.Validate(); err != nil {
		return nil, err
	}
	resolutions, err := req.Resolutions()
	if err != nil {
		return nil, err
	}

	s, err := o.load(ctx, userID, checkoutID)
	if err != nil {
		return nil, err
	}
	if s.State != checkout.StateAwaiting {
		return &Result{Session: s}, ErrNotAwaiting
	}

	if s.IsExpired(o.now()) {
		cause := &checkout.ReservationTimeoutError{Op: "continue", Err: errors.New("checkout hold window elapsed")}
		o.abortAll(ctx, s, cause)
		o.save(ctx, s)
		return &Result{Session: s}, cause
	}

	adjustments, err := validateContinuation(s, req.Items, resolutions)
	if err != nil {
		return nil, err
	}

	// claim the session so a concurrent continuation fails on the version check
	if err := o.sessions.Save(ctx, s); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, err
		}
		return nil, &checkout.PersistenceFailureError{Op: "claim checkout", Err: err}
	}

	o.log(ctx).Info("Checkout continued",
		zap.String("checkout_id", s.ID.String()),
		zap.Int("resolutions", len(resolutions)),
		zap.Int("adjustments", len(adjustments)),
	)

	res, err := o.run(ctx, s, resolutions, adjustments)
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return res, err
}

// GetSession returns a checkout of the caller
func (o *Orchestrator) GetSession(ctx context.Context, userID, checkoutID uuid.UUID) (*checkout.Session, error) {
	return o.load(ctx, userID, checkoutID)
}

// AbortStale rolls back waiting checkouts whose hold window elapsed.
// It returns the number of sessions aborted.
func (o *Orchestrator) AbortStale(ctx context.Context, limit int) (int, error) {
	stale, err := o.sessions.FindStale(ctx, o.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("find stale checkouts: %w", err)
	}
	aborted := 0
	for i := range stale {
		s := &stale[i]
		o.abortAll(ctx, s, &checkout.ReservationTimeoutError{Op: "expire", Err: errors.New("checkout hold window elapsed")})
		if err := o.sessions.Save(ctx, s); err != nil {
			o.log(ctx).Warn("Failed to save expired checkout",
				zap.String("checkout_id", s.ID.String()),
				zap.Error(err),
			)
			continue
		}
		aborted++
	}
	if aborted > 0 {
		o.log(ctx).Info("Stale checkouts aborted", zap.Int("count", aborted))
	}
	return aborted, nil
}

// run is one orchestrator pass over every non-terminal sub-order
func (o *Orchestrator) run(ctx context.Context, s *checkout.Session, resolutions checkout.Resolutions, adjustments map[uuid.UUID]int) (*Result, error) {
	ctx = logger.WithCheckoutID(ctx, s.ID.String())
	res := &Result{Session: s}
	var failure error

	for i := range s.SubOrders {
		g := &s.SubOrders[i]
		var err error
		switch g.State {
		case checkout.StateValidating:
			err = o.reserveGroup(ctx, s, g, resolutions)
		case checkout.StateAwaiting:
			err = o.resolveGroup(ctx, s, g, resolutions, adjustments)
		default:
			continue
		}
		if err != nil {
			o.abortGroup(ctx, s, g, err)
			if failure == nil {
				failure = err
			}
		}
	}

	if s.AllOrNothing {
		switch {
		case failure != nil:
			o.abortAll(ctx, s, failure)
		case len(s.InState(checkout.StateAwaiting)) > 0:
			for _, g := range s.InState(checkout.StateReserved) {
				o.mustTransition(s, g, checkout.StateAwaiting, "held until every business is reserved")
			}
		}
	}

	reserved := s.InState(checkout.StateReserved)
	comps := make(map[uuid.UUID]apptax.Computation, len(reserved))
	for _, g := range reserved {
		comps[g.BusinessID] = o.priceGroup(ctx, s, g)
	}

	priced := s.InState(checkout.StatePriced)
	if len(priced) > 0 {
		batches := [][]*checkout.BusinessCheckout{priced}
		if !s.AllOrNothing {
			batches = batches[:0]
			for _, g := range priced {
				batches = append(batches, []*checkout.BusinessCheckout{g})
			}
		}
		for _, batch := range batches {
			orders, err := o.place(ctx, s, batch, comps)
			if err != nil {
				for _, g := range batch {
					o.abortGroup(ctx, s, g, err)
				}
				if failure == nil {
					failure = err
				}
				continue
			}
			res.Orders = append(res.Orders, orders...)
		}
	}

	if err := o.sessions.Save(ctx, s); err != nil {
		perr := &checkout.PersistenceFailureError{Op: "save checkout", Err: err}
		if waiting := s.InState(checkout.StateAwaiting); len(waiting) > 0 {
			// a waiting checkout that cannot be read back would strand its holds
			for _, g := range waiting {
				o.abortGroup(ctx, s, g, perr)
			}
			return res, perr
		}
		o.log(ctx).Error("Failed to save checkout session",
			zap.String("checkout_id", s.ID.String()),
			zap.Error(err),
		)
	}

	if s.State == checkout.StateAwaiting {
		return res, &checkout.StockShortageError{CheckoutID: s.ID, Shortages: s.Shortages()}
	}
	if len(res.Orders) == 0 && failure != nil {
		return res, failure
	}
	return res, nil
}

// reserveGroup makes the first reservation pass of a validated sub-order
func (o *Orchestrator) reserveGroup(ctx context.Context, s *checkout.Session, g *checkout.BusinessCheckout, resolutions checkout.Resolutions) error {
	reserved, shortages, err := o.gate.Reserve(ctx, s.ID, g.ReservationRequests())
	g.ReservationIDs = append(g.ReservationIDs, reservationIDs(reserved)...)
	if err != nil {
		return err
	}
	if len(shortages) == 0 {
		return s.Transition(g.BusinessID, checkout.StateReserved, "stock reserved", o.now())
	}

	g.Shortages = shortages
	if err := s.Transition(g.BusinessID, checkout.StateAwaiting, "stock shortage", o.now()); err != nil {
		return err
	}
	o.log(ctx).Info("Checkout waiting on shortage resolution",
		zap.String("checkout_id", s.ID.String()),
		zap.String("business_id", g.BusinessID.String()),
		zap.Int("shortages", len(shortages)),
	)

	if covers(resolutions, shortages) && validateAlternates(g.Lines, shortagesByLine(shortages), resolutions) == nil {
		return o.resolveGroup(ctx, s, g, resolutions, nil)
	}
	return nil
}

// resolveGroup applies resolutions to a waiting sub-order and re-reserves the
// adjusted lines at their origin branch. New shortages keep it waiting.
func (o *Orchestrator) resolveGroup(ctx context.Context, s *checkout.Session, g *checkout.BusinessCheckout, resolutions checkout.Resolutions, adjustments map[uuid.UUID]int) error {
	var direct []checkout.Line
	var remaining []inventory.StockShortage
	for _, sh := range g.Shortages {
		idx := lineIndex(g.Lines, sh.LineID)
		if idx < 0 {
			continue
		}
		if q, ok := adjustments[g.Lines[idx].CartItemID]; ok {
			g.Lines[idx].Quantity = q
			sh.Requested = q
		}
		if sh.Shortfall() <= 0 {
			direct = append(direct, g.Lines[idx])
			continue
		}
		remaining = append(remaining, sh)
	}

	toReserve := direct
	if len(remaining) > 0 {
		outcome, err := o.resolver.Resolve(ctx, s.ID, g.Lines, remaining, resolutions)
		g.ReservationIDs = append(g.ReservationIDs, reservationIDs(outcome.Reservations)...)
		if err != nil {
			return err
		}
		g.Lines = outcome.Lines
		g.WalletCredits = append(g.WalletCredits, outcome.WalletCredits...)
		toReserve = append(toReserve, outcome.ToReserve...)
	}
	if len(g.Lines) == 0 {
		return errEmptySubOrder
	}

	if len(toReserve) > 0 {
		reqs := make([]inventory.ReservationRequest, len(toReserve))
		for i, l := range toReserve {
			reqs[i] = l.ReservationRequest()
		}
		reserved, shortages, err := o.gate.Reserve(ctx, s.ID, reqs)
		g.ReservationIDs = append(g.ReservationIDs, reservationIDs(reserved)...)
		if err != nil {
			return err
		}
		if len(shortages) > 0 {
			g.Shortages = shortages
			return s.Transition(g.BusinessID, checkout.StateAwaiting, "stock shortage after resolution", o.now())
		}
	}

	g.Shortages = nil
	return s.Transition(g.BusinessID, checkout.StateReserved, "shortages resolved", o.now())
}

// priceGroup computes taxes; a degraded computation is recorded, never fatal
func (o *Orchestrator) priceGroup(ctx context.Context, s *checkout.Session, g *checkout.BusinessCheckout) apptax.Computation {
	inputs := make([]apptax.LineInput, len(g.Lines))
	for i, l := range g.Lines {
		inputs[i] = apptax.LineInput{LineID: l.ID, ProductID: l.ProductID, Subtotal: l.Subtotal()}
	}
	comp := o.taxes.ComputeForLines(ctx, g.BusinessID, inputs, g.DeliveryFee, g.TipAmount)
	if comp.Degraded != nil {
		g.TaxDegraded = true
		o.log(ctx).Warn("Checkout priced with degraded taxes",
			zap.String("checkout_id", s.ID.String()),
			zap.String("business_id", g.BusinessID.String()),
			zap.Error(comp.Degraded),
		)
	}
	o.mustTransition(s, g, checkout.StatePriced, "taxes computed")
	return comp
}

// place authorizes payment and persists the orders of a batch in one transaction,
// then commits their reservations and consumes the cart lines.
func (o *Orchestrator) place(ctx context.Context, s *checkout.Session, batch []*checkout.BusinessCheckout, comps map[uuid.UUID]apptax.Computation) ([]*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "checkout", "place")
	defer span.End()

	orders := make([]*order.Order, 0, len(batch))
	for _, g := range batch {
		ord, err := o.buildOrder(s, g, comps[g.BusinessID])
		if err != nil {
			o.voidAll(ctx, orders)
			return nil, err
		}
		if err := o.authorize(ctx, s, g, ord); err != nil {
			o.voidAll(ctx, orders)
			return nil, err
		}
		orders = append(orders, ord)
	}

	var ids []uuid.UUID
	for _, g := range batch {
		ids = append(ids, g.ReservationIDs...)
	}

	pctx, cancel := context.WithTimeout(ctx, o.config.PersistTimeout)
	defer cancel()
	err := o.scope.Execute(pctx, func(repos TransactionalRepositories) error {
		for _, ord := range orders {
			if err := repos.Orders().Create(pctx, ord); err != nil {
				return fmt.Errorf("create order %s: %w", ord.OrderNumber, err)
			}
		}
		if err := consumeCart(pctx, repos.Carts(), s.CartID, batch); err != nil {
			return fmt.Errorf("consume cart: %w", err)
		}
		return o.gate.WithLedger(repos.Ledger()).Commit(pctx, ids)
	})
	if err != nil {
		o.voidAll(ctx, orders)
		perr := classifyPersist(pctx, err)
		o.log(ctx).Error("Failed to persist orders",
			zap.String("checkout_id", s.ID.String()),
			zap.Int("orders", len(orders)),
			zap.Error(err),
		)
		telemetry.RecordError(span, perr)
		return nil, perr
	}

	for i, g := range batch {
		ord := orders[i]
		id := ord.ID
		g.OrderID = &id
		o.mustTransition(s, g, checkout.StatePlaced, "order "+ord.OrderNumber)
		o.log(ctx).Info("Order placed",
			zap.String("checkout_id", s.ID.String()),
			zap.String("order_id", ord.ID.String()),
			zap.String("order_number", ord.OrderNumber),
			zap.String("business_id", ord.BusinessID.String()),
			zap.String("total", ord.TotalAmount.String()),
		)
		o.publish(ctx, ord.GetDomainEvents()...)
		ord.ClearDomainEvents()
	}
	return orders, nil
}

func (o *Orchestrator) buildOrder(s *checkout.Session, g *checkout.BusinessCheckout, comp apptax.Computation) (*order.Order, error) {
	items := make([]order.ItemInput, len(g.Lines))
	for i, l := range g.Lines {
		bd, ok := comp.Lines[l.ID]
		if !ok {
			bd = tax.EmptyBreakdown()
		}
		items[i] = order.ItemInput{
			ProductID:           l.ProductID,
			BranchID:            l.BranchID,
			ProductName:         l.ProductName,
			UnitPrice:           l.UnitPrice,
			Quantity:            l.Quantity,
			VariantSelection:    l.VariantSelection,
			SpecialInstructions: l.SpecialInstructions,
			TaxBreakdown:        bd,
		}
	}
	extras := comp.Extras
	if extras.Taxes == nil {
		extras = tax.EmptyBreakdown()
	}
	return order.NewOrder(order.PlaceInput{
		ClientID:        s.UserID,
		BusinessID:      g.BusinessID,
		CheckoutID:      s.ID,
		Currency:        s.Currency,
		Items:           items,
		DeliveryFee:     g.DeliveryFee,
		DiscountAmount:  g.DiscountAmount,
		TipAmount:       g.TipAmount,
		ExtraTaxes:      extras,
		TaxDegraded:     g.TaxDegraded,
		DeliveryAddress: s.DeliveryAddress,
		DeliveryNotes:   s.DeliveryNotes,
		Payment:         order.Payment{Method: s.PaymentMethod, Status: order.PaymentStatusPending},
		WalletCredit:    g.WalletCreditTotal(),
	})
}

func (o *Orchestrator) authorize(ctx context.Context, s *checkout.Session, g *checkout.BusinessCheckout, ord *order.Order) error {
	actx, cancel := context.WithTimeout(ctx, o.config.PaymentTimeout)
	defer cancel()

	auth, err := o.payments.Authorize(actx, checkout.PaymentRequest{
		CheckoutID: s.ID,
		BusinessID: g.BusinessID,
		UserID:     s.UserID,
		Amount:     ord.TotalAmount,
		Currency:   ord.Currency,
		Method:     s.PaymentMethod,
	})
	if err != nil {
		var declined *checkout.PaymentDeclinedError
		switch {
		case errors.As(err, &declined):
			return declined
		case errors.Is(err, context.DeadlineExceeded):
			return &checkout.ReservationTimeoutError{Op: "authorize payment", Err: err}
		}
		return &checkout.PaymentUnavailableError{Err: err}
	}

	ord.Payment.Method = auth.Method
	ord.Payment.Authorization = auth.Token
	if !auth.Deferred {
		ord.Payment.Status = order.PaymentStatusAuthorized
	}
	return nil
}

// voidAll cancels the authorizations of orders that will not be placed
func (o *Orchestrator) voidAll(ctx context.Context, orders []*order.Order) {
	vctx := context.WithoutCancel(ctx)
	for _, ord := range orders {
		if ord.Payment.Status != order.PaymentStatusAuthorized || ord.Payment.Authorization == "" {
			continue
		}
		if err := o.payments.Void(vctx, ord.Payment.Authorization); err != nil {
			o.log(ctx).Error("Failed to void payment authorization",
				zap.String("order_number", ord.OrderNumber),
				zap.Error(err),
			)
		}
	}
}

// abortGroup rolls a sub-order back: its reservations are released and it ends aborted
func (o *Orchestrator) abortGroup(ctx context.Context, s *checkout.Session, g *checkout.BusinessCheckout, cause error) {
	if g.State.IsTerminal() {
		return
	}
	code := errorCode(cause)
	if g.State != checkout.StateRollingBack {
		o.mustTransition(s, g, checkout.StateRollingBack, code)
	}

	released, err := o.gate.Release(ctx, g.ReservationIDs)
	if err != nil {
		// expiry reclaims whatever could not be released now
		o.log(ctx).Error("Failed to release reservations",
			zap.String("checkout_id", s.ID.String()),
			zap.String("business_id", g.BusinessID.String()),
			zap.Error(err),
		)
	}
	g.FailureCode = code
	o.mustTransition(s, g, checkout.StateAborted, code)

	o.log(ctx).Warn("Checkout sub-order rolled back",
		zap.String("checkout_id", s.ID.String()),
		zap.String("business_id", g.BusinessID.String()),
		zap.String("code", code),
		zap.Int("released", released),
		zap.Error(cause),
	)
	o.publish(ctx, checkout.NewCheckoutAbortedEvent(s.ID, g.BusinessID, code, released))
}

func (o *Orchestrator) abortAll(ctx context.Context, s *checkout.Session, cause error) {
	for i := range s.SubOrders {
		o.abortGroup(ctx, s, &s.SubOrders[i], cause)
	}
}

func (o *Orchestrator) log(ctx context.Context) *zap.Logger {
	return logger.For(ctx, o.logger)
}

func (o *Orchestrator) mustTransition(s *checkout.Session, g *checkout.BusinessCheckout, to checkout.State, reason string) {
	if err := s.Transition(g.BusinessID, to, reason, o.now()); err != nil {
		o.logger.Error("Invalid checkout transition",
			zap.String("checkout_id", s.ID.String()),
			zap.String("business_id", g.BusinessID.String()),
			zap.String("from", string(g.State)),
			zap.String("to", string(to)),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) publish(ctx context.Context, events ...shared.DomainEvent) {
	if o.events == nil || len(events) == 0 {
		return
	}
	if err := o.events.Publish(ctx, events...); err != nil {
		o.log(ctx).Error("Failed to publish checkout events", zap.Error(err))
	}
}

func (o *Orchestrator) save(ctx context.Context, s *checkout.Session) {
	if err := o.sessions.Save(ctx, s); err != nil {
		o.log(ctx).Error("Failed to save checkout session",
			zap.String("checkout_id", s.ID.String()),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) load(ctx context.Context, userID, checkoutID uuid.UUID) (*checkout.Session, error) {
	s, err := o.sessions.FindByID(ctx, checkoutID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, &checkout.PersistenceFailureError{Op: "load checkout", Err: err}
	}
	if s.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return s, nil
}

// claim records the Idempotency-Key; a repeated key is a duplicate submission
func (o *Orchestrator) claim(ctx context.Context, userID uuid.UUID, key string) error {
	if o.idempotency == nil || key == "" {
		return nil
	}
	fresh, err := o.idempotency.MarkProcessed(ctx, fmt.Sprintf("checkout:%s:%s", userID, key), o.config.IdempotencyTTL)
	if err != nil {
		o.log(ctx).Warn("Idempotency store unavailable, continuing without claim",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		return nil
	}
	if !fresh {
		return shared.ErrDuplicateRequest
	}
	return nil
}

func (o *Orchestrator) forget(ctx context.Context, userID uuid.UUID, key string) {
	if o.idempotency == nil || key == "" {
		return
	}
	if err := o.idempotency.Forget(ctx, fmt.Sprintf("checkout:%s:%s", userID, key)); err != nil {
		o.log(ctx).Warn("Failed to release idempotency claim",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

// snapshot validates the cart against the catalog and re-prices every line.
// The result is grouped by business in cart order.
func (o *Orchestrator) snapshot(ctx context.Context, c *cart.Cart, adjustments []ItemAdjustment) (map[uuid.UUID][]checkout.Line, []uuid.UUID, error) {
	qty := make(map[uuid.UUID]int, len(adjustments))
	var details []checkout.FieldError
	for i, a := range adjustments {
		if c.FindItem(a.ItemID) == nil {
			details = append(details, checkout.FieldError{Field: fmt.Sprintf("items[%d].item_id", i), Message: "Item is not in the cart"})
			continue
		}
		qty[a.ItemID] = a.Quantity
	}

	ids := make([]uuid.UUID, 0, len(c.Items))
	seen := make(map[uuid.UUID]bool, len(c.Items))
	for _, item := range c.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	products, err := o.products.FindByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, &checkout.ReservationTimeoutError{Op: "load catalog", Err: err}
		}
		return nil, nil, &checkout.PersistenceFailureError{Op: "load catalog", Err: err}
	}

	groups := make(map[uuid.UUID][]checkout.Line)
	var businesses []uuid.UUID
	for i, item := range c.Items {
		field := fmt.Sprintf("cart.items[%d]", i)
		p, ok := products[item.ProductID]
		if !ok {
			details = append(details, checkout.FieldError{Field: field, Message: "Product " + item.ProductName + " no longer exists"})
			continue
		}
		if !p.IsActive() {
			details = append(details, checkout.FieldError{Field: field, Message: "Product " + p.Name + " is not available"})
			continue
		}
		if err := p.ValidateSelection(item.VariantSelection); err != nil {
			details = append(details, checkout.FieldError{Field: field + ".variant_selection", Message: err.Error()})
			continue
		}
		quantity := item.Quantity
		if q, ok := qty[item.ID]; ok {
			quantity = q
		}
		line := checkout.Line{
			ID:                  uuid.New(),
			CartItemID:          item.ID,
			ProductID:           p.ID,
			BusinessID:          p.BusinessID,
			BranchID:            item.BranchID,
			ProductName:         p.Name,
			UnitPrice:           p.UnitPrice(item.VariantSelection),
			Quantity:            quantity,
			VariantSelection:    item.VariantSelection.Clone(),
			SpecialInstructions: item.SpecialInstructions,
		}
		if _, ok := groups[p.BusinessID]; !ok {
			businesses = append(businesses, p.BusinessID)
		}
		groups[p.BusinessID] = append(groups[p.BusinessID], line)
	}

	if len(details) > 0 {
		return nil, nil, checkout.NewValidationError("Cart cannot be checked out", details...)
	}
	return groups, businesses, nil
}

func (o *Orchestrator) options(req StartCheckoutRequest, groups map[uuid.UUID][]checkout.Line) (checkout.Options, error) {
	opts := checkout.Options{
		AllOrNothing:    o.config.AllOrNothing,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryNotes:   req.DeliveryNotes,
		PaymentMethod:   req.PaymentMethod,
		Fees:            make(map[uuid.UUID]checkout.Fees, len(req.Fees)),
	}
	if req.AllOrNothing != nil {
		opts.AllOrNothing = *req.AllOrNothing
	}
	if opts.PaymentMethod == "" {
		opts.PaymentMethod = DefaultPaymentMethod
	}
	var details []checkout.FieldError
	for i, f := range req.Fees {
		if _, ok := groups[f.BusinessID]; !ok {
			details = append(details, checkout.FieldError{Field: fmt.Sprintf("fees[%d].business_id", i), Message: "Business is not part of the cart"})
			continue
		}
		opts.Fees[f.BusinessID] = checkout.Fees{DeliveryFee: f.DeliveryFee, TipAmount: f.TipAmount}
	}
	if len(details) > 0 {
		return opts, checkout.NewValidationError("Request validation failed", details...)
	}
	return opts, nil
}

// validateContinuation checks adjustments and alternates before anything is reserved.
// Only lines that are short of stock can be adjusted.
func validateContinuation(s *checkout.Session, items []ItemAdjustment, resolutions checkout.Resolutions) (map[uuid.UUID]int, error) {
	short := make(map[uuid.UUID]bool)
	var details []checkout.FieldError
	for _, g := range s.InState(checkout.StateAwaiting) {
		byLine := shortagesByLine(g.Shortages)
		for _, l := range g.Lines {
			if _, ok := byLine[l.ID]; ok {
				short[l.CartItemID] = true
			}
		}
		if err := validateAlternates(g.Lines, byLine, resolutions); err != nil {
			var verr *checkout.ValidationError
			if errors.As(err, &verr) {
				details = append(details, verr.Details...)
			}
		}
	}

	adjustments := make(map[uuid.UUID]int, len(items))
	for i, it := range items {
		if !short[it.ItemID] {
			details = append(details, checkout.FieldError{Field: fmt.Sprintf("items[%d].item_id", i), Message: "Only lines that are short of stock can be adjusted"})
			continue
		}
		adjustments[it.ItemID] = it.Quantity
	}
	if len(details) > 0 {
		return nil, checkout.NewValidationError("Request validation failed", details...)
	}
	return adjustments, nil
}

func consumeCart(ctx context.Context, carts cart.CartRepository, cartID uuid.UUID, batch []*checkout.BusinessCheckout) error {
	c, err := carts.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	var ids []uuid.UUID
	for _, g := range batch {
		ids = append(ids, g.CartItemIDs()...)
	}
	c.ConsumeItems(ids)
	return carts.Save(ctx, c)
}

func classifyPersist(ctx context.Context, err error) error {
	var timeout *checkout.ReservationTimeoutError
	if errors.As(err, &timeout) {
		return timeout
	}
	var failure *checkout.PersistenceFailureError
	if errors.As(err, &failure) {
		return failure
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &checkout.ReservationTimeoutError{Op: "persist order", Err: err}
	}
	return &checkout.PersistenceFailureError{Op: "persist order", Err: err}
}

func errorCode(err error) string {
	var coded shared.CodedError
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return "INTERNAL_ERROR"
}

func covers(resolutions checkout.Resolutions, shortages []inventory.StockShortage) bool {
	if len(resolutions) == 0 {
		return false
	}
	for _, s := range shortages {
		if _, ok := resolutions[s.ProductID]; !ok {
			return false
		}
	}
	return true
}

func shortagesByLine(shortages []inventory.StockShortage) map[uuid.UUID]inventory.StockShortage {
	out := make(map[uuid.UUID]inventory.StockShortage, len(shortages))
	for _, s := range shortages {
		out[s.LineID] = s
	}
	return out
}

func lineIndex(lines []checkout.Line, id uuid.UUID) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

func reservationIDs(rs []inventory.Reservation) []uuid.UUID {
	ids := make([]uuid.UUID, len(rs))
	for i := range rs {
		ids[i] = rs[i].ID
	}
	return ids
}

package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GateConfig bounds the gate's calls into the ledger
type GateConfig struct {
	ReserveTimeout time.Duration
	ReservationTTL time.Duration
}

// DefaultGateConfig returns the default timeouts
func DefaultGateConfig() GateConfig {
	return GateConfig{
		ReserveTimeout: 3 * time.Second,
		ReservationTTL: 15 * time.Minute,
	}
}

// Gate is the only component that mutates stock.
// Each request is reserved whole or not at all, in request order.
type Gate struct {
	ledger inventory.StockLedger
	config GateConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewGate creates a new Gate
func NewGate(ledger inventory.StockLedger, config GateConfig, logger *zap.Logger) *Gate {
	if config.ReserveTimeout <= 0 {
		config.ReserveTimeout = DefaultGateConfig().ReserveTimeout
	}
	if config.ReservationTTL <= 0 {
		config.ReservationTTL = DefaultGateConfig().ReservationTTL
	}
	return &Gate{
		ledger: ledger,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// WithLedger returns a gate bound to another ledger, e.g. one scoped to a transaction
func (g *Gate) WithLedger(ledger inventory.StockLedger) *Gate {
	cp := *g
	cp.ledger = ledger
	return &cp
}

// Reserve tries every request and reports what was held and what was short.
// On error, the reservations made before the failure are still returned so the
// caller can release them.
func (g *Gate) Reserve(ctx context.Context, checkoutID uuid.UUID, reqs []inventory.ReservationRequest) ([]inventory.Reservation, []inventory.StockShortage, error) {
	for _, r := range reqs {
		if r.Quantity < 1 {
			return nil, nil, checkout.NewValidationError("invalid reservation request",
				checkout.FieldError{Field: "quantity", Message: fmt.Sprintf("line %s must request at least 1 unit", r.LineID)})
		}
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "inventory_gate", "reserve")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCheckoutID, checkoutID.String(), "requests", len(reqs))

	ctx, cancel := context.WithTimeout(ctx, g.config.ReserveTimeout)
	defer cancel()

	reserved := make([]inventory.Reservation, 0, len(reqs))
	var shortages []inventory.StockShortage
	expireAt := g.now().Add(g.config.ReservationTTL)

	for _, req := range reqs {
		r := inventory.NewReservation(checkoutID, req.ProductID, req.BranchID, req.Quantity, expireAt)
		ok, available, err := g.ledger.TryReserve(ctx, r)
		if err != nil {
			err = g.classify(ctx, "reserve", err)
			telemetry.RecordError(span, err)
			return reserved, shortages, err
		}
		if !ok {
			shortages = append(shortages, inventory.StockShortage{
				LineID:     req.LineID,
				BusinessID: req.BusinessID,
				ProductID:  req.ProductID,
				BranchID:   req.BranchID,
				Requested:  req.Quantity,
				Available:  available,
			})
			continue
		}
		reserved = append(reserved, *r)
	}

	telemetry.AddEvent(span, "reservation_pass",
		telemetry.SpanAttrReservations, len(reserved),
		telemetry.SpanAttrShortages, len(shortages),
	)
	g.logger.Debug("Reservation pass finished",
		zap.String("checkout_id", checkoutID.String()),
		zap.Int("reserved", len(reserved)),
		zap.Int("short", len(shortages)),
	)
	return reserved, shortages, nil
}

// Release gives held units back. Already released or committed reservations are
// skipped, so calling it twice is harmless. It runs even if ctx was cancelled.
func (g *Gate) Release(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.config.ReserveTimeout)
	defer cancel()

	released := 0
	var errs []error
	for _, id := range ids {
		ok, err := g.ledger.Release(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", id, err))
			continue
		}
		if ok {
			released++
		}
	}
	if len(errs) > 0 {
		return released, g.classify(ctx, "release", errors.Join(errs...))
	}
	return released, nil
}

// Commit turns held units into a permanent decrement.
// A released or expired reservation yields ReservationTimeoutError.
func (g *Gate) Commit(ctx context.Context, ids []uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, g.config.ReserveTimeout)
	defer cancel()

	now := g.now()
	for _, id := range ids {
		if err := g.ledger.Commit(ctx, id, now); err != nil {
			if errors.Is(err, inventory.ErrReservationNotActive) {
				return &checkout.ReservationTimeoutError{Op: "commit", Err: err}
			}
			return g.classify(ctx, "commit", err)
		}
	}
	return nil
}

func (g *Gate) classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &checkout.ReservationTimeoutError{Op: op, Err: err}
	}
	return &checkout.PersistenceFailureError{Op: op, Err: err}
}

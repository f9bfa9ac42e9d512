package checkout

import (
	"context"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reserver is the part of the inventory gate the resolver and orchestrator need
type Reserver interface {
	Reserve(ctx context.Context, checkoutID uuid.UUID, reqs []inventory.ReservationRequest) ([]inventory.Reservation, []inventory.StockShortage, error)
}

// Outcome is the result of applying resolutions to the lines of one sub-order
type Outcome struct {
	// Lines is the adjusted line list; refunded-to-zero lines are gone
	Lines []checkout.Line
	// ToReserve are the adjusted lines that still need a hold at their origin branch
	ToReserve []checkout.Line
	// Reservations were made at alternate branches, also on failure
	Reservations  []inventory.Reservation
	WalletCredits []checkout.WalletCreditInstruction
}

// ShortageResolver applies the caller's remedies to stock shortages.
// It never releases what it reserved; the orchestrator compensates.
type ShortageResolver struct {
	gate   Reserver
	logger *zap.Logger
}

// NewShortageResolver creates a new ShortageResolver
func NewShortageResolver(gate Reserver, logger *zap.Logger) *ShortageResolver {
	return &ShortageResolver{gate: gate, logger: logger}
}

// Resolve adjusts lines according to resolutions, keyed by product id.
// Every shortage needs a resolution; other_branch reserves the shortfall at the
// alternate branch in one hop.
func (r *ShortageResolver) Resolve(
	ctx context.Context,
	checkoutID uuid.UUID,
	lines []checkout.Line,
	shortages []inventory.StockShortage,
	resolutions checkout.Resolutions,
) (Outcome, error) {
	byLine := make(map[uuid.UUID]inventory.StockShortage, len(shortages))
	var unresolved []inventory.StockShortage
	for _, s := range shortages {
		if _, ok := resolutions[s.ProductID]; !ok {
			unresolved = append(unresolved, s)
			continue
		}
		byLine[s.LineID] = s
	}
	if len(unresolved) > 0 {
		return Outcome{Lines: lines}, &checkout.UnresolvedShortageError{Shortages: unresolved}
	}

	if err := validateAlternates(lines, byLine, resolutions); err != nil {
		return Outcome{Lines: lines}, err
	}

	pool := availablePool(shortages)
	out := Outcome{Lines: make([]checkout.Line, 0, len(lines))}
	var alternates []checkout.Line
	for _, l := range lines {
		s, short := byLine[l.ID]
		if !short {
			out.Lines = append(out.Lines, l)
			continue
		}
		// lines sharing a stock level draw from the same units, in line order
		key := stockKey{s.ProductID, s.BranchID}
		keep := min(s.Requested, pool[key])
		pool[key] -= keep
		shortfall := s.Requested - keep
		if shortfall <= 0 {
			out.Lines = append(out.Lines, l)
			out.ToReserve = append(out.ToReserve, l)
			continue
		}

		res := resolutions[l.ProductID]
		switch res.Kind {
		case checkout.ResolutionOtherBranch:
			alt := l
			alt.ID = uuid.New()
			alt.BranchID = *res.AlternativeBranchID
			alt.Quantity = shortfall
			alternates = append(alternates, alt)
		case checkout.ResolutionWallet:
			out.WalletCredits = append(out.WalletCredits, checkout.WalletCreditInstruction{
				BusinessID: l.BusinessID,
				ProductID:  l.ProductID,
				LineID:     l.ID,
				Quantity:   shortfall,
				UnitPrice:  l.UnitPrice,
				Amount:     valueobject.RoundMoney(valueobject.LineTotal(l.UnitPrice, shortfall)),
			})
		case checkout.ResolutionRefund:
		}

		l.Quantity = keep
		if keep > 0 {
			out.Lines = append(out.Lines, l)
			out.ToReserve = append(out.ToReserve, l)
		}
		r.logger.Debug("Shortage resolved",
			zap.String("checkout_id", checkoutID.String()),
			zap.String("product_id", l.ProductID.String()),
			zap.String("resolution", string(res.Kind)),
			zap.Int("shortfall", shortfall),
		)
	}

	if len(alternates) == 0 {
		return out, nil
	}

	reqs := make([]inventory.ReservationRequest, len(alternates))
	for i, l := range alternates {
		reqs[i] = l.ReservationRequest()
	}
	reserved, altShort, err := r.gate.Reserve(ctx, checkoutID, reqs)
	out.Reservations = reserved
	if err != nil {
		return out, err
	}
	if len(altShort) > 0 {
		s := altShort[0]
		return out, &checkout.SubstitutionUnavailableError{
			ProductID: s.ProductID,
			BranchID:  s.BranchID,
			Requested: s.Requested,
			Available: s.Available,
		}
	}
	out.Lines = append(out.Lines, alternates...)
	return out, nil
}

type stockKey struct {
	productID uuid.UUID
	branchID  uuid.UUID
}

// availablePool keeps the lowest availability observed per stock level, which
// is the latest one since the gate reserves in line order.
func availablePool(shortages []inventory.StockShortage) map[stockKey]int {
	pool := make(map[stockKey]int, len(shortages))
	for _, s := range shortages {
		key := stockKey{s.ProductID, s.BranchID}
		available := max(s.Available, 0)
		if seen, ok := pool[key]; !ok || available < seen {
			pool[key] = available
		}
	}
	return pool
}

func validateAlternates(lines []checkout.Line, byLine map[uuid.UUID]inventory.StockShortage, resolutions checkout.Resolutions) error {
	var details []checkout.FieldError
	for _, l := range lines {
		if _, short := byLine[l.ID]; !short {
			continue
		}
		res := resolutions[l.ProductID]
		if res.Kind != checkout.ResolutionOtherBranch {
			continue
		}
		switch {
		case res.AlternativeBranchID == nil || *res.AlternativeBranchID == uuid.Nil:
			details = append(details, checkout.FieldError{
				Field:   "shortage_options.alternative_branch_id",
				Message: "Required for other_branch on product " + l.ProductID.String(),
			})
		case *res.AlternativeBranchID == l.BranchID:
			details = append(details, checkout.FieldError{
				Field:   "shortage_options.alternative_branch_id",
				Message: "Must differ from the origin branch of product " + l.ProductID.String(),
			})
		}
	}
	if len(details) > 0 {
		return checkout.NewValidationError("invalid shortage options", details...)
	}
	return nil
}

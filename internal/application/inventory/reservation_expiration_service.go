package inventory

import (
	"context"
	"time"

	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/shared"
	"go.uber.org/zap"
)

// ReservationExpirationService gives back reservations whose checkout never finished
type ReservationExpirationService struct {
	ledger    inventory.StockLedger
	eventBus  shared.EventPublisher
	logger    *zap.Logger
	batchSize int
	now       func() time.Time
}

// NewReservationExpirationService creates a new ReservationExpirationService
func NewReservationExpirationService(
	ledger inventory.StockLedger,
	eventBus shared.EventPublisher,
	batchSize int,
	logger *zap.Logger,
) *ReservationExpirationService {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &ReservationExpirationService{
		ledger:    ledger,
		eventBus:  eventBus,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// SetEventBus sets the event bus for publishing events
func (s *ReservationExpirationService) SetEventBus(eventBus shared.EventPublisher) {
	s.eventBus = eventBus
}

// ExpiredReservationStats contains statistics about one sweep
type ExpiredReservationStats struct {
	TotalExpired    int       `json:"total_expired"`
	SuccessReleased int       `json:"success_released"`
	AlreadySettled  int       `json:"already_settled"`
	FailedReleases  int       `json:"failed_releases"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// ReleaseExpired releases one batch of expired reservations through the
// same idempotent path used by rollback
func (s *ReservationExpirationService) ReleaseExpired(ctx context.Context) (*ExpiredReservationStats, error) {
	stats := &ExpiredReservationStats{ProcessedAt: s.now()}

	expired, err := s.ledger.FindExpired(ctx, stats.ProcessedAt, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to find expired reservations", zap.Error(err))
		return nil, err
	}

	stats.TotalExpired = len(expired)
	if stats.TotalExpired == 0 {
		s.logger.Debug("No expired reservations found")
		return stats, nil
	}

	for i := range expired {
		r := &expired[i]
		ok, err := s.ledger.Release(ctx, r.ID)
		if err != nil {
			s.logger.Error("Failed to release expired reservation",
				zap.String("reservation_id", r.ID.String()),
				zap.String("checkout_id", r.CheckoutID.String()),
				zap.Error(err),
			)
			stats.FailedReleases++
			continue
		}
		if !ok {
			// a concurrent rollback or commit got there first
			stats.AlreadySettled++
			continue
		}
		stats.SuccessReleased++

		if s.eventBus != nil {
			if err := s.eventBus.Publish(ctx, inventory.NewReservationExpiredEvent(r)); err != nil {
				s.logger.Warn("Failed to publish ReservationExpired event",
					zap.String("reservation_id", r.ID.String()),
					zap.Error(err),
				)
			}
		}
	}

	s.logger.Info("Completed expired reservation release",
		zap.Int("total", stats.TotalExpired),
		zap.Int("released", stats.SuccessReleased),
		zap.Int("already_settled", stats.AlreadySettled),
		zap.Int("failed", stats.FailedReleases),
	)
	return stats, nil
}

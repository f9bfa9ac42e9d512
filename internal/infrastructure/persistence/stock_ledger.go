package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockLedger implements inventory.StockLedger using GORM.
// Reservation is a single guarded UPDATE; stock is never read and then written.
type GormStockLedger struct {
	db *gorm.DB
}

// NewGormStockLedger creates a new GormStockLedger
func NewGormStockLedger(db *gorm.DB) *GormStockLedger {
	return &GormStockLedger{db: db}
}

// TryReserve decrements available stock guarded by available >= quantity and
// records the reservation in the same transaction.
func (l *GormStockLedger) TryReserve(ctx context.Context, r *inventory.Reservation) (bool, int, error) {
	var (
		reserved  bool
		available int
	)
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.StockLevelModel{}).
			Where("product_id = ? AND branch_id = ? AND available >= ?", r.ProductID, r.BranchID, r.Quantity).
			Updates(map[string]any{
				"available":  gorm.Expr("available - ?", r.Quantity),
				"reserved":   gorm.Expr("reserved + ?", r.Quantity),
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}

		level, err := findLevel(tx, r.ProductID, r.BranchID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if level != nil {
			available = level.Available
		}
		if result.RowsAffected == 0 {
			return nil
		}

		if err := tx.Create(models.ReservationModelFromDomain(r)).Error; err != nil {
			return err
		}
		reserved = true
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	return reserved, available, nil
}

// Release flips an active reservation to released and gives its units back.
// The flag flip is guarded so a second release is a no-op.
func (l *GormStockLedger) Release(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	released := false
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := findReservation(tx, reservationID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil
			}
			return err
		}

		now := time.Now()
		result := tx.Model(&models.ReservationModel{}).
			Where("id = ? AND released = ? AND committed = ?", reservationID, false, false).
			Updates(map[string]any{
				"released":    true,
				"released_at": now,
				"updated_at":  now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		levelResult := tx.Model(&models.StockLevelModel{}).
			Where("product_id = ? AND branch_id = ? AND reserved >= ?", res.ProductID, res.BranchID, res.Quantity).
			Updates(map[string]any{
				"available":  gorm.Expr("available + ?", res.Quantity),
				"reserved":   gorm.Expr("reserved - ?", res.Quantity),
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if levelResult.Error != nil {
			return levelResult.Error
		}
		if levelResult.RowsAffected == 0 {
			return shared.NewDomainError("INVALID_STATE", "Stock level does not hold the reserved units")
		}
		released = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return released, nil
}

// Commit consumes an active, unexpired reservation. Committing twice is a no-op.
func (l *GormStockLedger) Commit(ctx context.Context, reservationID uuid.UUID, now time.Time) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := findReservation(tx, reservationID)
		if err != nil {
			return err
		}
		if res.Committed {
			return nil
		}
		if res.Released || res.IsExpired(now) {
			return inventory.ErrReservationNotActive
		}

		result := tx.Model(&models.ReservationModel{}).
			Where("id = ? AND released = ? AND committed = ? AND expire_at >= ?", reservationID, false, false, now).
			Updates(map[string]any{
				"committed":    true,
				"committed_at": now,
				"updated_at":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// lost a race with the sweeper or a concurrent commit
			current, err := findReservation(tx, reservationID)
			if err != nil {
				return err
			}
			if current.Committed {
				return nil
			}
			return inventory.ErrReservationNotActive
		}

		levelResult := tx.Model(&models.StockLevelModel{}).
			Where("product_id = ? AND branch_id = ? AND reserved >= ?", res.ProductID, res.BranchID, res.Quantity).
			Updates(map[string]any{
				"reserved":   gorm.Expr("reserved - ?", res.Quantity),
				"version":    gorm.Expr("version + 1"),
				"updated_at": now,
			})
		if levelResult.Error != nil {
			return levelResult.Error
		}
		if levelResult.RowsAffected == 0 {
			return shared.NewDomainError("INVALID_STATE", "Stock level does not hold the reserved units")
		}
		return nil
	})
}

// FindExpired returns active reservations past their ExpireAt, oldest first
func (l *GormStockLedger) FindExpired(ctx context.Context, now time.Time, limit int) ([]inventory.Reservation, error) {
	query := l.db.WithContext(ctx).
		Where("released = ? AND committed = ? AND expire_at < ?", false, false, now).
		Order("expire_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.ReservationModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toReservations(rows), nil
}

// FindByCheckout returns the reservations made by a checkout
func (l *GormStockLedger) FindByCheckout(ctx context.Context, checkoutID uuid.UUID) ([]inventory.Reservation, error) {
	var rows []models.ReservationModel
	if err := l.db.WithContext(ctx).
		Where("checkout_id = ?", checkoutID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toReservations(rows), nil
}

// GetLevel returns the level of a product at a branch
func (l *GormStockLedger) GetLevel(ctx context.Context, productID, branchID uuid.UUID) (*inventory.StockLevel, error) {
	return findLevel(l.db.WithContext(ctx), productID, branchID)
}

// Restock adds available units, creating the level when missing
func (l *GormStockLedger) Restock(ctx context.Context, productID, branchID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Restock quantity must be positive")
	}
	now := time.Now()
	level := &models.StockLevelModel{
		ProductID: productID,
		BranchID:  branchID,
		Available: quantity,
		Version:   1,
		UpdatedAt: now,
	}
	return l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "branch_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"available":  gorm.Expr("stock_levels.available + ?", quantity),
			"version":    gorm.Expr("stock_levels.version + 1"),
			"updated_at": now,
		}),
	}).Create(level).Error
}

func findLevel(db *gorm.DB, productID, branchID uuid.UUID) (*inventory.StockLevel, error) {
	var model models.StockLevelModel
	if err := db.Where("product_id = ? AND branch_id = ?", productID, branchID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func findReservation(db *gorm.DB, id uuid.UUID) (*inventory.Reservation, error) {
	var model models.ReservationModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func toReservations(rows []models.ReservationModel) []inventory.Reservation {
	out := make([]inventory.Reservation, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure GormStockLedger implements inventory.StockLedger
var _ inventory.StockLedger = (*GormStockLedger)(nil)

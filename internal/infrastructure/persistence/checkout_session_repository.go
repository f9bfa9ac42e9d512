package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSessionRepository implements checkout.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Save updates the session where the stored version matches, or inserts it when
// it does not exist yet. A stale version is a concurrency conflict.
func (r *GormSessionRepository) Save(ctx context.Context, s *checkout.Session) error {
	model, err := models.CheckoutSessionModelFromDomain(s)
	if err != nil {
		return err
	}
	db := r.db.WithContext(ctx)

	result := db.Model(&models.CheckoutSessionModel{}).
		Where("id = ? AND version = ?", s.ID, s.Version).
		Updates(map[string]any{
			"state":            model.State,
			"sub_orders":       model.SubOrders,
			"history":          model.History,
			"expire_at":        model.ExpireAt,
			"all_or_nothing":   model.AllOrNothing,
			"delivery_address": model.DeliveryAddress,
			"delivery_notes":   model.DeliveryNotes,
			"payment_method":   model.PaymentMethod,
			"updated_at":       model.UpdatedAt,
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		s.Version++
		return nil
	}

	var count int64
	if err := db.Model(&models.CheckoutSessionModel{}).Where("id = ?", s.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrConcurrencyConflict
	}
	return db.Create(model).Error
}

// FindByID finds a session by its ID
func (r *GormSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*checkout.Session, error) {
	var model models.CheckoutSessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindStale returns non-terminal sessions whose hold window has elapsed, oldest first
func (r *GormSessionRepository) FindStale(ctx context.Context, now time.Time, limit int) ([]checkout.Session, error) {
	query := r.db.WithContext(ctx).
		Where("state NOT IN ? AND expire_at <= ?", []string{string(checkout.StatePlaced), string(checkout.StateAborted)}, now).
		Order("expire_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.CheckoutSessionModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]checkout.Session, 0, len(rows))
	for i := range rows {
		s, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

// Ensure GormSessionRepository implements checkout.SessionRepository
var _ checkout.SessionRepository = (*GormSessionRepository)(nil)

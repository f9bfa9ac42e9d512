package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/checkout/internal/domain/cart"
	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCartRepository implements cart.CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByUser finds the cart of an authenticated user
func (r *GormCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

// FindByID finds a cart by its ID
func (r *GormCartRepository) FindByID(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormCartRepository) findOne(ctx context.Context, query string, args ...any) (*cart.Cart, error) {
	var model models.CartModel
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where(query, args...).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain()
}

// Save inserts a new cart or updates an existing one with optimistic locking.
// The lines are replaced wholesale. On success c.Version reflects the stored row.
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	model, err := models.CartModelFromDomain(c)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.CartModel{}).
			Where("id = ? AND version = ?", c.ID, c.Version).
			Updates(map[string]any{
				"user_id":    model.UserID,
				"session_id": model.SessionID,
				"expires_at": model.ExpiresAt,
				"updated_at": time.Now(),
				"version":    gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.CartModel{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return shared.ErrConcurrencyConflict
			}
			items := model.Items
			model.Items = nil
			if err := tx.Create(model).Error; err != nil {
				return err
			}
			if len(items) > 0 {
				return tx.Create(&items).Error
			}
			return nil
		}

		if err := tx.Where("cart_id = ?", c.ID).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		c.Version++
		return nil
	})
	return err
}

// Delete removes a cart and its lines
func (r *GormCartRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.CartModel{}).Error
	})
}

// Ensure GormCartRepository implements cart.CartRepository
var _ cart.CartRepository = (*GormCartRepository)(nil)

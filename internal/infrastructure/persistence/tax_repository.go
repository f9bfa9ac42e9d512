package persistence

import (
	"context"
	"errors"

	"github.com/erp/checkout/internal/domain/shared"
	"github.com/erp/checkout/internal/domain/tax"
	"github.com/erp/checkout/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaxRepository implements tax.TaxRepository using GORM
type GormTaxRepository struct {
	db *gorm.DB
}

// NewGormTaxRepository creates a new GormTaxRepository
func NewGormTaxRepository(db *gorm.DB) *GormTaxRepository {
	return &GormTaxRepository{db: db}
}

// SaveTaxType creates or updates a tax type
func (r *GormTaxRepository) SaveTaxType(ctx context.Context, t *tax.TaxType) error {
	return r.db.WithContext(ctx).Save(models.TaxTypeModelFromDomain(t)).Error
}

// FindTaxType finds a tax type by ID
func (r *GormTaxRepository) FindTaxType(ctx context.Context, id uuid.UUID) (*tax.TaxType, error) {
	var model models.TaxTypeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindTaxTypesByIDs finds the tax types that exist among ids
func (r *GormTaxRepository) FindTaxTypesByIDs(ctx context.Context, ids []uuid.UUID) ([]tax.TaxType, error) {
	if len(ids) == 0 {
		return []tax.TaxType{}, nil
	}
	var rows []models.TaxTypeModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTaxTypes(rows), nil
}

// FindTaxTypesByBusiness lists a business's tax types by name
func (r *GormTaxRepository) FindTaxTypesByBusiness(ctx context.Context, businessID uuid.UUID) ([]tax.TaxType, error) {
	var rows []models.TaxTypeModel
	if err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toTaxTypes(rows), nil
}

// AssignToProduct upserts the assignment of a tax type to a product
func (r *GormTaxRepository) AssignToProduct(ctx context.Context, pt *tax.ProductTax) error {
	if pt.ID == uuid.Nil {
		pt.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}, {Name: "tax_type_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"override_rate", "override_fixed_amount", "display_order"}),
	}).Create(models.ProductTaxModelFromDomain(pt)).Error
}

// FindProductTaxes returns assignments keyed by product id, in display order
func (r *GormTaxRepository) FindProductTaxes(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]tax.ProductTax, error) {
	out := make(map[uuid.UUID][]tax.ProductTax, len(productIDs))
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []models.ProductTaxModel
	if err := r.db.WithContext(ctx).
		Where("product_id IN ?", productIDs).
		Order("display_order ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		pt := rows[i].ToDomain()
		out[pt.ProductID] = append(out[pt.ProductID], pt)
	}
	return out, nil
}

func toTaxTypes(rows []models.TaxTypeModel) []tax.TaxType {
	out := make([]tax.TaxType, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure GormTaxRepository implements tax.TaxRepository
var _ tax.TaxRepository = (*GormTaxRepository)(nil)

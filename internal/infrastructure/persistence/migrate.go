package persistence

import (
	"github.com/erp/checkout/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AllModels lists every table owned by this service
func AllModels() []any {
	return []any{
		&models.CartModel{},
		&models.CartItemModel{},
		&models.StockLevelModel{},
		&models.ReservationModel{},
		&models.TaxTypeModel{},
		&models.ProductTaxModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
		&models.CheckoutSessionModel{},
		&models.ProductModel{},
	}
}

// AutoMigrate creates the schema with GORM. Production schemas come from
// the SQL migrations; this backs tests and local development.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

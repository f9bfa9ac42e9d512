package models

import (
	"time"

	"github.com/erp/checkout/internal/domain/inventory"
	"github.com/google/uuid"
)

// StockLevelModel is the persistence model for a product+branch stock count.
type StockLevelModel struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	BranchID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Available int       `gorm:"not null;default:0;check:available >= 0"`
	Reserved  int       `gorm:"not null;default:0;check:reserved >= 0"`
	Version   int       `gorm:"not null;default:1"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockLevelModel) TableName() string {
	return "stock_levels"
}

// ToDomain converts the persistence model to a domain StockLevel.
func (m *StockLevelModel) ToDomain() *inventory.StockLevel {
	return &inventory.StockLevel{
		ProductID: m.ProductID,
		BranchID:  m.BranchID,
		Available: m.Available,
		Reserved:  m.Reserved,
		Version:   m.Version,
		UpdatedAt: m.UpdatedAt,
	}
}

// ReservationModel is the persistence model for a stock reservation.
type ReservationModel struct {
	BaseModel
	CheckoutID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_reservation_level,priority:1"`
	BranchID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_reservation_level,priority:2"`
	Quantity    int        `gorm:"not null"`
	ExpireAt    time.Time  `gorm:"not null;index"`
	Released    bool       `gorm:"not null;default:false"`
	Committed   bool       `gorm:"not null;default:false"`
	ReleasedAt  *time.Time
	CommittedAt *time.Time
}

// TableName returns the table name for GORM
func (ReservationModel) TableName() string {
	return "reservations"
}

// ToDomain converts the persistence model to a domain Reservation.
func (m *ReservationModel) ToDomain() *inventory.Reservation {
	return &inventory.Reservation{
		BaseEntity:  m.BaseModel.ToDomain(),
		CheckoutID:  m.CheckoutID,
		ProductID:   m.ProductID,
		BranchID:    m.BranchID,
		Quantity:    m.Quantity,
		ExpireAt:    m.ExpireAt,
		Released:    m.Released,
		Committed:   m.Committed,
		ReleasedAt:  m.ReleasedAt,
		CommittedAt: m.CommittedAt,
	}
}

// ReservationModelFromDomain creates a persistence model from a domain Reservation.
func ReservationModelFromDomain(r *inventory.Reservation) *ReservationModel {
	m := &ReservationModel{
		CheckoutID:  r.CheckoutID,
		ProductID:   r.ProductID,
		BranchID:    r.BranchID,
		Quantity:    r.Quantity,
		ExpireAt:    r.ExpireAt,
		Released:    r.Released,
		Committed:   r.Committed,
		ReleasedAt:  r.ReleasedAt,
		CommittedAt: r.CommittedAt,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}

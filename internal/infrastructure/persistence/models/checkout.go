package models

import (
	"time"

	"github.com/erp/checkout/internal/domain/checkout"
	"github.com/google/uuid"
)

// CheckoutSessionModel is the persistence model for a checkout attempt.
// Sub-orders and the transition history are stored as JSON.
type CheckoutSessionModel struct {
	AggregateModel
	UserID          uuid.UUID `gorm:"type:uuid;not null;index"`
	CartID          uuid.UUID `gorm:"type:uuid;not null"`
	AllOrNothing    bool      `gorm:"not null;default:false"`
	State           string    `gorm:"type:varchar(40);not null;index"`
	SubOrders       string    `gorm:"type:jsonb;not null;default:'[]'"`
	History         string    `gorm:"type:jsonb;not null;default:'[]'"`
	ExpireAt        time.Time `gorm:"not null;index"`
	DeliveryAddress string    `gorm:"type:text"`
	DeliveryNotes   string    `gorm:"type:text"`
	PaymentMethod   string    `gorm:"type:varchar(30)"`
	Currency        string    `gorm:"type:varchar(3);not null"`
}

// TableName returns the table name for GORM
func (CheckoutSessionModel) TableName() string {
	return "checkout_sessions"
}

// ToDomain converts the persistence model to a domain Session.
func (m *CheckoutSessionModel) ToDomain() (*checkout.Session, error) {
	s := &checkout.Session{
		UserID:          m.UserID,
		CartID:          m.CartID,
		AllOrNothing:    m.AllOrNothing,
		State:           checkout.State(m.State),
		ExpireAt:        m.ExpireAt,
		DeliveryAddress: m.DeliveryAddress,
		DeliveryNotes:   m.DeliveryNotes,
		PaymentMethod:   m.PaymentMethod,
		Currency:        m.Currency,
	}
	m.PopulateAggregateRoot(&s.BaseAggregateRoot)
	if err := unmarshalJSON(m.SubOrders, &s.SubOrders); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(m.History, &s.History); err != nil {
		return nil, err
	}
	return s, nil
}

// CheckoutSessionModelFromDomain creates a persistence model from a domain Session.
func CheckoutSessionModelFromDomain(s *checkout.Session) (*CheckoutSessionModel, error) {
	subOrders, err := marshalJSON(s.SubOrders, "[]")
	if err != nil {
		return nil, err
	}
	history, err := marshalJSON(s.History, "[]")
	if err != nil {
		return nil, err
	}
	m := &CheckoutSessionModel{
		UserID:          s.UserID,
		CartID:          s.CartID,
		AllOrNothing:    s.AllOrNothing,
		State:           string(s.State),
		SubOrders:       subOrders,
		History:         history,
		ExpireAt:        s.ExpireAt,
		DeliveryAddress: s.DeliveryAddress,
		DeliveryNotes:   s.DeliveryNotes,
		PaymentMethod:   s.PaymentMethod,
		Currency:        s.Currency,
	}
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	return m, nil
}

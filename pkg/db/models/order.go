package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
)

// Order is the immutable record produced when a cart completes checkout.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CartID        uuid.UUID         `gorm:"column:cart_id;type:uuid;not null;uniqueIndex"`
	AccountID     *uuid.UUID        `gorm:"column:account_id;type:uuid;index"`
	SessionID     *string           `gorm:"column:session_id;index"`
	Status        enums.OrderStatus `gorm:"column:status;not null;default:'created'"`
	Currency      enums.Currency    `gorm:"column:currency;not null;default:'USD'"`
	SubtotalCents int               `gorm:"column:subtotal_cents;not null"`
	DiscountCents int               `gorm:"column:discount_cents;not null;default:0"`
	TaxCents      int               `gorm:"column:tax_cents;not null;default:0"`
	ShippingCents int               `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents    int               `gorm:"column:total_cents;not null"`
	PlacedAt      time.Time         `gorm:"column:placed_at;not null"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
)

// Cart is the mutable aggregate a buyer assembles before checkout. Ownership is
// either an account or a guest session, never both.
type Cart struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	AccountID     *uuid.UUID          `gorm:"column:account_id;type:uuid;index"`
	SessionID     *string             `gorm:"column:session_id;index"`
	Status        enums.CartStatus    `gorm:"column:status;not null;default:'active'"`
	Currency      enums.Currency      `gorm:"column:currency;not null;default:'USD'"`
	Jurisdiction  string              `gorm:"column:jurisdiction;not null"`
	SubtotalCents int                 `gorm:"column:subtotal_cents;not null;default:0"`
	DiscountCents int                 `gorm:"column:discount_cents;not null;default:0"`
	TaxCents      int                 `gorm:"column:tax_cents;not null;default:0"`
	ShippingCents int                 `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents    int                 `gorm:"column:total_cents;not null;default:0"`
	ExpiresAt     time.Time           `gorm:"column:expires_at;not null"`
	MergedIntoID  *uuid.UUID          `gorm:"column:merged_into_id;type:uuid"`
	CompletedAt   *time.Time          `gorm:"column:completed_at"`
	Items           []CartItem           `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	Coupons         []CartCoupon         `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	ShippingOptions []CartShippingOption `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// SelectedShipping returns the currently selected shipping option, if any.
func (c *Cart) SelectedShipping() *CartShippingOption {
	for i := range c.ShippingOptions {
		if c.ShippingOptions[i].IsSelected {
			return &c.ShippingOptions[i]
		}
	}
	return nil
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *Cart) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

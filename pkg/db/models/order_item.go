package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

// OrderItem snapshots one cart line at checkout time.
type OrderItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	ListingID      uuid.UUID         `gorm:"column:listing_id;type:uuid;not null"`
	Title          string            `gorm:"column:title;not null"`
	Options        types.ItemOptions `gorm:"column:options;type:jsonb"`
	Quantity       int               `gorm:"column:quantity;not null"`
	UnitPriceCents int               `gorm:"column:unit_price_cents;not null"`
	DiscountCents  int               `gorm:"column:discount_cents;not null;default:0"`
	LineTotalCents int               `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

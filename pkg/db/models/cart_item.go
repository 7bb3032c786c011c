package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

// CartItem is a single line in a cart. Lines are keyed by listing plus the
// canonical options fingerprint, so the same listing with different options
// yields separate lines.
type CartItem struct {
	ID                uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CartID            uuid.UUID         `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_items_line,priority:1"`
	ListingID         uuid.UUID         `gorm:"column:listing_id;type:uuid;not null;uniqueIndex:idx_cart_items_line,priority:2"`
	OptionsKey        string            `gorm:"column:options_key;not null;default:'';uniqueIndex:idx_cart_items_line,priority:3"`
	Options           types.ItemOptions `gorm:"column:options;type:jsonb"`
	Quantity          int               `gorm:"column:quantity;not null"`
	UnitPriceCents    int               `gorm:"column:unit_price_cents;not null"`
	DiscountCents     int               `gorm:"column:discount_cents;not null;default:0"`
	LineSubtotalCents int               `gorm:"column:line_subtotal_cents;not null;default:0"`
	CreatedAt         time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key and options fingerprint.
func (i *CartItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.OptionsKey == "" {
		i.OptionsKey = i.Options.Fingerprint()
	}
	return nil
}

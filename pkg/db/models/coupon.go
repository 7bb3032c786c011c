package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
)

// Coupon is a catalog-level discount definition. Percent holds the percentage
// for percentage coupons; AmountCents holds the value for fixed coupons.
type Coupon struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	Code             string                `gorm:"column:code;not null;uniqueIndex"`
	ValueType        enums.CouponValueType `gorm:"column:value_type;not null"`
	Scope            enums.CouponScope     `gorm:"column:scope;not null;default:'cart'"`
	ListingID        *uuid.UUID            `gorm:"column:listing_id;type:uuid"`
	Percent          decimal.Decimal       `gorm:"column:percent;type:numeric;not null;default:0"`
	AmountCents      int                   `gorm:"column:amount_cents;not null;default:0"`
	MinSubtotalCents int                   `gorm:"column:min_subtotal_cents;not null;default:0"`
	ApplicationOrder int                   `gorm:"column:application_order;not null;default:0"`
	Stackable        bool                  `gorm:"column:stackable;not null;default:true"`
	StartsAt         *time.Time            `gorm:"column:starts_at"`
	ExpiresAt        *time.Time            `gorm:"column:expires_at"`
	MaxUses          *int                  `gorm:"column:max_uses"`
	UseCount         int                   `gorm:"column:use_count;not null;default:0"`
	Active           bool                  `gorm:"column:active;not null;default:true"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *Coupon) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

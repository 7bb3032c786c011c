package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
)

// CartCoupon snapshots a coupon at the moment it was applied to a cart. The
// snapshot keeps pricing deterministic even if the catalog coupon changes later.
type CartCoupon struct {
	ID                 uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	CartID             uuid.UUID             `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:idx_cart_coupons_code,priority:1"`
	CouponID           uuid.UUID             `gorm:"column:coupon_id;type:uuid;not null"`
	Code               string                `gorm:"column:code;not null;uniqueIndex:idx_cart_coupons_code,priority:2"`
	ValueType          enums.CouponValueType `gorm:"column:value_type;not null"`
	Scope              enums.CouponScope     `gorm:"column:scope;not null"`
	ListingID          *uuid.UUID            `gorm:"column:listing_id;type:uuid"`
	Percent            decimal.Decimal       `gorm:"column:percent;type:numeric;not null;default:0"`
	AmountCents        int                   `gorm:"column:amount_cents;not null;default:0"`
	ApplicationOrder   int                   `gorm:"column:application_order;not null;default:0"`
	Stackable          bool                  `gorm:"column:stackable;not null;default:true"`
	AmountAppliedCents int                   `gorm:"column:amount_applied_cents;not null;default:0"`
	AppliedAt          time.Time             `gorm:"column:applied_at;autoCreateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (c *CartCoupon) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

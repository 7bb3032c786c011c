package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartShippingOption is one shipping candidate quoted for a cart. At most one
// option per cart carries IsSelected = true.
type CartShippingOption struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CartID        uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	Method        string    `gorm:"column:method;not null"`
	Label         string    `gorm:"column:label;not null"`
	AmountCents   int       `gorm:"column:amount_cents;not null"`
	EstimatedDays int       `gorm:"column:estimated_days;not null;default:0"`
	IsSelected    bool      `gorm:"column:is_selected;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (o *CartShippingOption) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

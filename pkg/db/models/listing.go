package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
)

// Listing is a sellable catalog entry. Cart items reference listings by ID and
// snapshot the unit price at add time.
type Listing struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	SellerID       uuid.UUID      `gorm:"column:seller_id;type:uuid;not null;index"`
	Title          string         `gorm:"column:title;not null"`
	UnitPriceCents int            `gorm:"column:unit_price_cents;not null"`
	Currency       enums.Currency `gorm:"column:currency;not null;default:'USD'"`
	MaxPerOrder    *int           `gorm:"column:max_per_order"`
	Active         bool           `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (l *Listing) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

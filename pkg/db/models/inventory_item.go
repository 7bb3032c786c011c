package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks available/reserved counts per listing.
type InventoryItem struct {
	ListingID    uuid.UUID `gorm:"column:listing_id;type:uuid;primaryKey"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	ReservedQty  int       `gorm:"column:reserved_qty;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

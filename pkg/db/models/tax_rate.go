package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxRate maps a jurisdiction code to its flat tax rate, e.g. "0.0875".
type TaxRate struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Jurisdiction string          `gorm:"column:jurisdiction;not null;uniqueIndex"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric;not null"`
	Active       bool            `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key when the caller did not.
func (t *TaxRate) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

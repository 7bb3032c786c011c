package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreated is emitted when a checkout commits.
type OrderCreated struct {
	OrderID       uuid.UUID `json:"orderId"`
	CartID        uuid.UUID `json:"cartId"`
	Currency      string    `json:"currency"`
	SubtotalCents int       `json:"subtotalCents"`
	DiscountCents int       `json:"discountCents"`
	TaxCents      int       `json:"taxCents"`
	ShippingCents int       `json:"shippingCents"`
	TotalCents    int       `json:"totalCents"`
	ItemCount     int       `json:"itemCount"`
	PlacedAt      time.Time `json:"placedAt"`
}

// CartAbandoned is emitted when the expiry sweep retires an inactive cart.
type CartAbandoned struct {
	CartID     uuid.UUID `json:"cartId"`
	ExpiredAt  time.Time `json:"expiredAt"`
	ItemCount  int       `json:"itemCount"`
	TotalCents int       `json:"totalCents"`
}

// CartMerged is emitted when a guest cart folds into an account cart.
type CartMerged struct {
	SourceCartID uuid.UUID `json:"sourceCartId"`
	TargetCartID uuid.UUID `json:"targetCartId"`
	MergedAt     time.Time `json:"mergedAt"`
}

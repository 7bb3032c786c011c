package cartdto

import (
	"time"

	"github.com/google/uuid"
)

// CartView is the wire representation of a cart with its priced lines,
// applied coupons, and shipping candidates.
type CartView struct {
	ID              uuid.UUID          `json:"id"`
	AccountID       *uuid.UUID         `json:"accountId,omitempty"`
	SessionID       *string            `json:"sessionId,omitempty"`
	Status          string             `json:"status"`
	Currency        string             `json:"currency"`
	Jurisdiction    string             `json:"jurisdiction"`
	SubtotalCents   int                `json:"subtotalCents"`
	DiscountCents   int                `json:"discountCents"`
	TaxCents        int                `json:"taxCents"`
	ShippingCents   int                `json:"shippingCents"`
	TotalCents      int                `json:"totalCents"`
	ExpiresAt       time.Time          `json:"expiresAt"`
	Items           []CartItemView     `json:"items"`
	Coupons         []CartCouponView   `json:"coupons"`
	ShippingOptions []ShippingView     `json:"shippingOptions"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type CartItemView struct {
	ID                uuid.UUID         `json:"id"`
	ListingID         uuid.UUID         `json:"listingId"`
	Options           map[string]string `json:"options,omitempty"`
	Quantity          int               `json:"quantity"`
	UnitPriceCents    int               `json:"unitPriceCents"`
	DiscountCents     int               `json:"discountCents"`
	LineSubtotalCents int               `json:"lineSubtotalCents"`
}

type CartCouponView struct {
	ID                 uuid.UUID `json:"id"`
	Code               string    `json:"code"`
	ValueType          string    `json:"valueType"`
	Scope              string    `json:"scope"`
	Stackable          bool      `json:"stackable"`
	AmountAppliedCents int       `json:"amountAppliedCents"`
	AppliedAt          time.Time `json:"appliedAt"`
}

type ShippingView struct {
	ID            uuid.UUID `json:"id"`
	Method        string    `json:"method"`
	Label         string    `json:"label"`
	AmountCents   int       `json:"amountCents"`
	EstimatedDays int       `json:"estimatedDays"`
	IsSelected    bool      `json:"isSelected"`
}

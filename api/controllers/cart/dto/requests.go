package cartdto

import "github.com/google/uuid"

// AddItemRequest adds a listing to the cart, folding into an existing line
// when the options match.
type AddItemRequest struct {
	ListingID uuid.UUID         `json:"listingId" validate:"required"`
	Quantity  int               `json:"quantity" validate:"required,min=1"`
	Options   map[string]string `json:"options,omitempty"`
}

// UpdateQuantityRequest sets a line's quantity. Zero removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

// ApplyCouponRequest applies a coupon code to the cart.
type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

// SelectShippingRequest picks one of the quoted shipping options.
type SelectShippingRequest struct {
	OptionID uuid.UUID `json:"optionId" validate:"required"`
}

// MergeRequest folds the named guest cart into the caller's account cart.
type MergeRequest struct {
	GuestSessionID string `json:"guestSessionId" validate:"required,min=1,max=128"`
}

package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

// OrderResponse is the JSON shape returned by the orders API.
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	CartID        uuid.UUID           `json:"cartId"`
	Status        string              `json:"status"`
	Currency      string              `json:"currency"`
	SubtotalCents int                 `json:"subtotalCents"`
	DiscountCents int                 `json:"discountCents"`
	TaxCents      int                 `json:"taxCents"`
	ShippingCents int                 `json:"shippingCents"`
	TotalCents    int                 `json:"totalCents"`
	PlacedAt      time.Time           `json:"placedAt"`
	Items         []OrderItemResponse `json:"items"`
}

// OrderItemResponse is one line of an order.
type OrderItemResponse struct {
	ID             uuid.UUID         `json:"id"`
	ListingID      uuid.UUID         `json:"listingId"`
	Title          string            `json:"title"`
	Options        types.ItemOptions `json:"options,omitempty"`
	Quantity       int               `json:"quantity"`
	UnitPriceCents int               `json:"unitPriceCents"`
	DiscountCents  int               `json:"discountCents"`
	LineTotalCents int               `json:"lineTotalCents"`
}

// OrderListResponse pages orders newest first.
type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	NextCursor string          `json:"nextCursor,omitempty"`
}

func toOrderResponse(order *models.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ID:             item.ID,
			ListingID:      item.ListingID,
			Title:          item.Title,
			Options:        item.Options,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			DiscountCents:  item.DiscountCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return &OrderResponse{
		ID:            order.ID,
		CartID:        order.CartID,
		Status:        order.Status.String(),
		Currency:      order.Currency.String(),
		SubtotalCents: order.SubtotalCents,
		DiscountCents: order.DiscountCents,
		TaxCents:      order.TaxCents,
		ShippingCents: order.ShippingCents,
		TotalCents:    order.TotalCents,
		PlacedAt:      order.PlacedAt,
		Items:         items,
	}
}

package cart

import (
	cartdto "github.com/mvaldezdev/marketcart-backend/api/controllers/cart/dto"
	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
)

func newCartView(record *models.Cart) cartdto.CartView {
	items := make([]cartdto.CartItemView, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, cartdto.CartItemView{
			ID:                item.ID,
			ListingID:         item.ListingID,
			Options:           item.Options,
			Quantity:          item.Quantity,
			UnitPriceCents:    item.UnitPriceCents,
			DiscountCents:     item.DiscountCents,
			LineSubtotalCents: item.LineSubtotalCents,
		})
	}

	coupons := make([]cartdto.CartCouponView, 0, len(record.Coupons))
	for _, coupon := range record.Coupons {
		coupons = append(coupons, cartdto.CartCouponView{
			ID:                 coupon.ID,
			Code:               coupon.Code,
			ValueType:          string(coupon.ValueType),
			Scope:              string(coupon.Scope),
			Stackable:          coupon.Stackable,
			AmountAppliedCents: coupon.AmountAppliedCents,
			AppliedAt:          coupon.AppliedAt,
		})
	}

	options := make([]cartdto.ShippingView, 0, len(record.ShippingOptions))
	for _, option := range record.ShippingOptions {
		options = append(options, cartdto.ShippingView{
			ID:            option.ID,
			Method:        option.Method,
			Label:         option.Label,
			AmountCents:   option.AmountCents,
			EstimatedDays: option.EstimatedDays,
			IsSelected:    option.IsSelected,
		})
	}

	return cartdto.CartView{
		ID:              record.ID,
		AccountID:       record.AccountID,
		SessionID:       record.SessionID,
		Status:          string(record.Status),
		Currency:        string(record.Currency),
		Jurisdiction:    record.Jurisdiction,
		SubtotalCents:   record.SubtotalCents,
		DiscountCents:   record.DiscountCents,
		TaxCents:        record.TaxCents,
		ShippingCents:   record.ShippingCents,
		TotalCents:      record.TotalCents,
		ExpiresAt:       record.ExpiresAt,
		Items:           items,
		Coupons:         coupons,
		ShippingOptions: options,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

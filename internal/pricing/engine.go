package pricing

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
)

// Item is one cart line fed into the engine. Prices are snapshots taken when
// the line was added, expressed in cents.
type Item struct {
	ID             uuid.UUID
	ListingID      uuid.UUID
	Quantity       int
	UnitPriceCents int
}

// Coupon is an applied discount snapshot. Percent carries the percentage for
// percentage coupons (e.g. 10 means 10%); AmountCents the value for fixed ones.
type Coupon struct {
	ID               uuid.UUID
	Code             string
	ValueType        enums.CouponValueType
	Scope            enums.CouponScope
	ListingID        *uuid.UUID
	Percent          decimal.Decimal
	AmountCents      int
	ApplicationOrder int
	AppliedAt        time.Time
}

// ShippingSelection is the selected shipping option's estimated cost.
type ShippingSelection struct {
	AmountCents int
}

// Input bundles everything the engine needs. The engine performs no I/O:
// callers resolve tax rates and shipping estimates first and pass plain data.
type Input struct {
	Items    []Item
	Coupons  []Coupon
	Shipping *ShippingSelection
	TaxRate  decimal.Decimal
}

// ItemTotal reports the per-line outcome.
type ItemTotal struct {
	ItemID        uuid.UUID
	SubtotalCents int
	DiscountCents int
}

// CouponApplication reports how much a single coupon took off.
type CouponApplication struct {
	CouponID           uuid.UUID
	Code               string
	AmountAppliedCents int
	FreeShipping       bool
}

// Totals is the engine output. SubtotalCents is post item-level discounts;
// DiscountCents covers cart-level coupons only, so the two never double count.
type Totals struct {
	SubtotalCents int
	DiscountCents int
	ShippingCents int
	TaxCents      int
	TotalCents    int
	Items         []ItemTotal
	Coupons       []CouponApplication
}

// ComputeTotals derives cart totals from lines, applied coupons, and the
// shipping selection. It is deterministic: identical inputs yield identical
// outputs regardless of input slice order. Coupons apply in ascending
// application order; percentage discounts compute against the running subtotal
// at the moment they apply, rounded half-up to whole cents.
func ComputeTotals(in Input) Totals {
	coupons := sortedCoupons(in.Coupons)

	lineSubtotals := make(map[uuid.UUID]int, len(in.Items))
	lineDiscounts := make(map[uuid.UUID]int, len(in.Items))
	for _, item := range in.Items {
		lineSubtotals[item.ID] = item.UnitPriceCents * item.Quantity
	}

	applications := make([]CouponApplication, 0, len(coupons))
	freeShipping := false

	// Item-scoped coupons run first so the cart subtotal reflects them.
	for _, c := range coupons {
		if c.Scope != enums.CouponScopeItem {
			continue
		}
		applied := 0
		for _, item := range in.Items {
			if c.ListingID == nil || item.ListingID != *c.ListingID {
				continue
			}
			remaining := lineSubtotals[item.ID]
			amount := couponAmount(c, remaining)
			lineSubtotals[item.ID] = remaining - amount
			lineDiscounts[item.ID] += amount
			applied += amount
		}
		applications = append(applications, CouponApplication{
			CouponID:           c.ID,
			Code:               c.Code,
			AmountAppliedCents: applied,
		})
	}

	subtotal := 0
	itemTotals := make([]ItemTotal, 0, len(in.Items))
	for _, item := range in.Items {
		itemTotals = append(itemTotals, ItemTotal{
			ItemID:        item.ID,
			SubtotalCents: lineSubtotals[item.ID],
			DiscountCents: lineDiscounts[item.ID],
		})
		subtotal += lineSubtotals[item.ID]
	}
	sort.Slice(itemTotals, func(a, b int) bool {
		return itemTotals[a].ItemID.String() < itemTotals[b].ItemID.String()
	})

	// Cart-scoped coupons apply sequentially against the running subtotal.
	running := subtotal
	for _, c := range coupons {
		if c.Scope != enums.CouponScopeCart {
			continue
		}
		if c.ValueType == enums.CouponValueFreeShipping {
			freeShipping = true
			applications = append(applications, CouponApplication{
				CouponID:     c.ID,
				Code:         c.Code,
				FreeShipping: true,
			})
			continue
		}
		amount := couponAmount(c, running)
		running -= amount
		applications = append(applications, CouponApplication{
			CouponID:           c.ID,
			Code:               c.Code,
			AmountAppliedCents: amount,
		})
	}
	discount := subtotal - running

	shipping := 0
	if in.Shipping != nil && !freeShipping {
		shipping = in.Shipping.AmountCents
	}

	tax := 0
	if in.TaxRate.IsPositive() && running > 0 {
		tax = int(decimal.NewFromInt(int64(running)).Mul(in.TaxRate).Round(0).IntPart())
	}

	total := running + shipping + tax
	if total < 0 {
		total = 0
	}

	return Totals{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		ShippingCents: shipping,
		TaxCents:      tax,
		TotalCents:    total,
		Items:         itemTotals,
		Coupons:       applications,
	}
}

// couponAmount computes the cents a coupon removes from the given base,
// clamped so the base never goes negative.
func couponAmount(c Coupon, baseCents int) int {
	var amount int
	switch c.ValueType {
	case enums.CouponValuePercentage:
		amount = int(decimal.NewFromInt(int64(baseCents)).
			Mul(c.Percent).
			Div(decimal.NewFromInt(100)).
			Round(0).
			IntPart())
	case enums.CouponValueFixed:
		amount = c.AmountCents
	default:
		return 0
	}
	if amount > baseCents {
		amount = baseCents
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// sortedCoupons orders coupons by ascending application order, breaking ties
// by applied-at time and finally by ID so application is reproducible.
func sortedCoupons(coupons []Coupon) []Coupon {
	out := make([]Coupon, len(coupons))
	copy(out, coupons)
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].ApplicationOrder != out[b].ApplicationOrder {
			return out[a].ApplicationOrder < out[b].ApplicationOrder
		}
		if !out[a].AppliedAt.Equal(out[b].AppliedAt) {
			return out[a].AppliedAt.Before(out[b].AppliedAt)
		}
		return out[a].ID.String() < out[b].ID.String()
	})
	return out
}

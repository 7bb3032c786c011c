package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
)

func TestComputeTotalsStackedCoupons(t *testing.T) {
	t.Parallel()

	// Item A 10.00 x2, item B 5.00 x1; 10% off then flat $2, applied in order.
	items := []Item{
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 2, UnitPriceCents: 1000},
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 1, UnitPriceCents: 500},
	}
	coupons := []Coupon{
		{
			ID:               uuid.New(),
			Code:             "TENOFF",
			ValueType:        enums.CouponValuePercentage,
			Scope:            enums.CouponScopeCart,
			Percent:          decimal.NewFromInt(10),
			ApplicationOrder: 1,
		},
		{
			ID:               uuid.New(),
			Code:             "FLAT2",
			ValueType:        enums.CouponValueFixed,
			Scope:            enums.CouponScopeCart,
			AmountCents:      200,
			ApplicationOrder: 2,
		},
	}

	totals := ComputeTotals(Input{Items: items, Coupons: coupons})

	require.Equal(t, 2500, totals.SubtotalCents)
	require.Equal(t, 450, totals.DiscountCents)
	require.Equal(t, 0, totals.ShippingCents)
	require.Equal(t, 0, totals.TaxCents)
	require.Equal(t, 2050, totals.TotalCents)

	require.Len(t, totals.Coupons, 2)
	require.Equal(t, "TENOFF", totals.Coupons[0].Code)
	require.Equal(t, 250, totals.Coupons[0].AmountAppliedCents)
	require.Equal(t, "FLAT2", totals.Coupons[1].Code)
	require.Equal(t, 200, totals.Coupons[1].AmountAppliedCents)
}

func TestComputeTotalsCouponRoundTrip(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 3, UnitPriceCents: 799},
	}
	coupon := Coupon{
		ID:               uuid.New(),
		Code:             "TENOFF",
		ValueType:        enums.CouponValuePercentage,
		Scope:            enums.CouponScopeCart,
		Percent:          decimal.NewFromInt(10),
		ApplicationOrder: 1,
	}

	before := ComputeTotals(Input{Items: items, TaxRate: decimal.RequireFromString("0.08")})
	withCoupon := ComputeTotals(Input{Items: items, Coupons: []Coupon{coupon}, TaxRate: decimal.RequireFromString("0.08")})
	after := ComputeTotals(Input{Items: items, TaxRate: decimal.RequireFromString("0.08")})

	require.NotEqual(t, before.TotalCents, withCoupon.TotalCents)
	require.Equal(t, before, after)
}

func TestComputeTotalsApplicationOrderIndependentOfSliceOrder(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 1, UnitPriceCents: 10000},
	}
	pct := Coupon{
		ID:               uuid.New(),
		Code:             "PCT",
		ValueType:        enums.CouponValuePercentage,
		Scope:            enums.CouponScopeCart,
		Percent:          decimal.NewFromInt(50),
		ApplicationOrder: 2,
	}
	fixed := Coupon{
		ID:               uuid.New(),
		Code:             "FIXED",
		ValueType:        enums.CouponValueFixed,
		Scope:            enums.CouponScopeCart,
		AmountCents:      2000,
		ApplicationOrder: 1,
	}

	forward := ComputeTotals(Input{Items: items, Coupons: []Coupon{fixed, pct}})
	reversed := ComputeTotals(Input{Items: items, Coupons: []Coupon{pct, fixed}})

	// Fixed applies first (order 1): 100.00 - 20.00 = 80.00, then 50% = 40.00.
	require.Equal(t, 6000, forward.DiscountCents)
	require.Equal(t, 4000, forward.TotalCents)
	require.Equal(t, forward, reversed)
}

func TestComputeTotalsFixedCouponClampsAtZero(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 1, UnitPriceCents: 300},
	}
	coupon := Coupon{
		ID:          uuid.New(),
		Code:        "BIGFLAT",
		ValueType:   enums.CouponValueFixed,
		Scope:       enums.CouponScopeCart,
		AmountCents: 1000,
	}

	totals := ComputeTotals(Input{Items: items, Coupons: []Coupon{coupon}})

	require.Equal(t, 300, totals.SubtotalCents)
	require.Equal(t, 300, totals.DiscountCents)
	require.Equal(t, 0, totals.TotalCents)
	require.Equal(t, 300, totals.Coupons[0].AmountAppliedCents)
}

func TestComputeTotalsItemScopedCoupon(t *testing.T) {
	t.Parallel()

	listingA := uuid.New()
	itemA := uuid.New()
	itemB := uuid.New()
	items := []Item{
		{ID: itemA, ListingID: listingA, Quantity: 2, UnitPriceCents: 1000},
		{ID: itemB, ListingID: uuid.New(), Quantity: 1, UnitPriceCents: 500},
	}
	coupon := Coupon{
		ID:        uuid.New(),
		Code:      "HALFA",
		ValueType: enums.CouponValuePercentage,
		Scope:     enums.CouponScopeItem,
		ListingID: &listingA,
		Percent:   decimal.NewFromInt(50),
	}

	totals := ComputeTotals(Input{Items: items, Coupons: []Coupon{coupon}})

	// Line A drops from 20.00 to 10.00; line B untouched.
	require.Equal(t, 1500, totals.SubtotalCents)
	require.Equal(t, 0, totals.DiscountCents)
	require.Equal(t, 1500, totals.TotalCents)
	for _, line := range totals.Items {
		switch line.ItemID {
		case itemA:
			require.Equal(t, 1000, line.SubtotalCents)
			require.Equal(t, 1000, line.DiscountCents)
		case itemB:
			require.Equal(t, 500, line.SubtotalCents)
			require.Equal(t, 0, line.DiscountCents)
		}
	}
}

func TestComputeTotalsFreeShippingZeroesShipping(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 1, UnitPriceCents: 2000},
	}
	coupon := Coupon{
		ID:        uuid.New(),
		Code:      "SHIPFREE",
		ValueType: enums.CouponValueFreeShipping,
		Scope:     enums.CouponScopeCart,
	}
	shipping := &ShippingSelection{AmountCents: 599}

	withCoupon := ComputeTotals(Input{Items: items, Coupons: []Coupon{coupon}, Shipping: shipping})
	withoutCoupon := ComputeTotals(Input{Items: items, Shipping: shipping})

	require.Equal(t, 599, withoutCoupon.ShippingCents)
	require.Equal(t, 0, withCoupon.ShippingCents)
	require.Equal(t, 0, withCoupon.DiscountCents)
	require.Equal(t, 2000, withCoupon.TotalCents)
	require.True(t, withCoupon.Coupons[0].FreeShipping)
	require.Equal(t, 0, withCoupon.Coupons[0].AmountAppliedCents)
}

func TestComputeTotalsTaxOnDiscountedSubtotal(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 1, UnitPriceCents: 10000},
	}
	coupon := Coupon{
		ID:          uuid.New(),
		Code:        "FLAT20",
		ValueType:   enums.CouponValueFixed,
		Scope:       enums.CouponScopeCart,
		AmountCents: 2000,
	}

	totals := ComputeTotals(Input{
		Items:   items,
		Coupons: []Coupon{coupon},
		TaxRate: decimal.RequireFromString("0.0875"),
	})

	// Tax base is 80.00, so tax = 7.00 exactly.
	require.Equal(t, 700, totals.TaxCents)
	require.Equal(t, 8700, totals.TotalCents)
}

func TestComputeTotalsTaxRoundsHalfUp(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 1, UnitPriceCents: 999},
	}

	totals := ComputeTotals(Input{Items: items, TaxRate: decimal.RequireFromString("0.075")})

	// 9.99 * 0.075 = 0.74925 -> 75 cents.
	require.Equal(t, 75, totals.TaxCents)
	require.Equal(t, 1074, totals.TotalCents)
}

func TestComputeTotalsDeterministic(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	items := []Item{
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 4, UnitPriceCents: 333},
		{ID: uuid.New(), ListingID: uuid.New(), Quantity: 7, UnitPriceCents: 1299},
	}
	coupons := []Coupon{
		{ID: uuid.New(), Code: "A", ValueType: enums.CouponValuePercentage, Scope: enums.CouponScopeCart, Percent: decimal.RequireFromString("7.5"), ApplicationOrder: 1, AppliedAt: now},
		{ID: uuid.New(), Code: "B", ValueType: enums.CouponValueFixed, Scope: enums.CouponScopeCart, AmountCents: 150, ApplicationOrder: 1, AppliedAt: now.Add(time.Second)},
	}
	in := Input{Items: items, Coupons: coupons, Shipping: &ShippingSelection{AmountCents: 450}, TaxRate: decimal.RequireFromString("0.0625")}

	first := ComputeTotals(in)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, ComputeTotals(in))
	}
}

func TestComputeTotalsEmptyCart(t *testing.T) {
	t.Parallel()

	totals := ComputeTotals(Input{TaxRate: decimal.RequireFromString("0.08")})

	require.Equal(t, 0, totals.SubtotalCents)
	require.Equal(t, 0, totals.TotalCents)
	require.Empty(t, totals.Items)
	require.Empty(t, totals.Coupons)
}

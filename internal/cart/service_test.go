package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/internal/catalog"
	"github.com/mvaldezdev/marketcart-backend/internal/coupons"
	"github.com/mvaldezdev/marketcart-backend/internal/shipping"
	"github.com/mvaldezdev/marketcart-backend/internal/tax"
	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	dbpkg "github.com/mvaldezdev/marketcart-backend/pkg/db"
	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox"
	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Cart{},
		&models.CartItem{},
		&models.CartCoupon{},
		&models.CartShippingOption{},
		&models.Listing{},
		&models.InventoryItem{},
		&models.Coupon{},
		&models.OutboxEvent{},
	))
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()

	couponSvc, err := coupons.NewService(coupons.ServiceParams{Repo: coupons.NewRepository(db)})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Client:  dbpkg.NewWithConn(db),
		Repo:    NewRepository(db),
		Catalog: catalog.NewRepository(db),
		Coupons: couponSvc,
		Tax:     tax.StaticResolver{Rate: decimal.Zero},
		Shipping: shipping.NewEstimator(config.ShippingConfig{
			StandardBaseCents:  599,
			StandardPerItem:    100,
			ExpeditedBaseCents: 1499,
			ExpeditedPerItem:   250,
		}),
		Outbox: outbox.NewService(outbox.NewRepository(db), nil),
		Config: config.CartConfig{
			TTL:                 720 * time.Hour,
			DefaultCurrency:     "USD",
			DefaultJurisdiction: "US-DEFAULT",
		},
	})
	require.NoError(t, err)
	return svc
}

func seedListing(t *testing.T, db *gorm.DB, priceCents, available int) models.Listing {
	t.Helper()
	listing := models.Listing{
		SellerID:       uuid.New(),
		Title:          "Listing",
		UnitPriceCents: priceCents,
		Active:         true,
	}
	require.NoError(t, db.Create(&listing).Error)
	require.NoError(t, db.Create(&models.InventoryItem{ListingID: listing.ID, AvailableQty: available}).Error)
	return listing
}

func seedCouponDef(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) models.Coupon {
	t.Helper()
	coupon := models.Coupon{
		Code:      "TENOFF",
		ValueType: enums.CouponValuePercentage,
		Scope:     enums.CouponScopeCart,
		Percent:   decimal.NewFromInt(10),
		Active:    true,
		Stackable: true,
	}
	if mutate != nil {
		mutate(&coupon)
	}
	require.NoError(t, db.Create(&coupon).Error)
	return coupon
}

func TestGetOrCreateActiveCart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-session-1")

	created, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	require.Equal(t, enums.CartStatusActive, created.Status)
	require.Equal(t, enums.CurrencyUSD, created.Currency)

	again, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	require.Equal(t, created.ID, again.ID)
}

func TestGetOrCreateActiveCartOwnerConflict(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := "guest-session-2"
	_, err := svc.GetOrCreateActiveCart(ctx, types.GuestOwner(session), nil)
	require.NoError(t, err)

	accountID := uuid.New()
	_, err = svc.GetOrCreateActiveCart(ctx, types.AccountOwner(accountID), &session)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeOwnerConflict, typed.Code())
}

func TestAddItemSnapshotsPriceAndRecomputes(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-add")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	listing := seedListing(t, db, 1000, 10)

	updated, err := svc.AddItem(ctx, owner, cart.ID, listing.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	require.Equal(t, 1000, updated.Items[0].UnitPriceCents)
	require.Equal(t, 2000, updated.SubtotalCents)
	require.Equal(t, 2000, updated.TotalCents)

	// Catalog price changes do not touch the snapshot.
	require.NoError(t, db.Model(&models.Listing{}).Where("id = ?", listing.ID).Update("unit_price_cents", 9999).Error)

	updated, err = svc.AddItem(ctx, owner, cart.ID, listing.ID, 1, nil)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	require.Equal(t, 3, updated.Items[0].Quantity)
	require.Equal(t, 1000, updated.Items[0].UnitPriceCents)
	require.Equal(t, 3000, updated.SubtotalCents)
}

func TestAddItemSeparateLinesPerOptions(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-options")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	listing := seedListing(t, db, 500, 10)

	_, err = svc.AddItem(ctx, owner, cart.ID, listing.ID, 1, types.ItemOptions{"size": "M"})
	require.NoError(t, err)
	updated, err := svc.AddItem(ctx, owner, cart.ID, listing.ID, 1, types.ItemOptions{"size": "L"})
	require.NoError(t, err)
	require.Len(t, updated.Items, 2)
}

func TestAddItemStockExceeded(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-stock")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	listing := seedListing(t, db, 1000, 2)

	_, err = svc.AddItem(ctx, owner, cart.ID, listing.ID, 3, nil)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStockChanged, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	require.Equal(t, 3, details["requested"])
	require.Equal(t, 2, details["available"])

	// Failed mutation leaves the cart untouched.
	reloaded, err := svc.GetCart(ctx, owner, cart.ID)
	require.NoError(t, err)
	require.Empty(t, reloaded.Items)
	require.Equal(t, 0, reloaded.TotalCents)
}

func TestAddItemUnknownListing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-unknown-listing")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, owner, cart.ID, uuid.New(), 1, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-updateqty")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	listing := seedListing(t, db, 1000, 10)

	updated, err := svc.AddItem(ctx, owner, cart.ID, listing.ID, 2, nil)
	require.NoError(t, err)
	itemID := updated.Items[0].ID

	updated, err = svc.UpdateQuantity(ctx, owner, cart.ID, itemID, 5)
	require.NoError(t, err)
	require.Equal(t, 5, updated.Items[0].Quantity)
	require.Equal(t, 5000, updated.SubtotalCents)

	updated, err = svc.UpdateQuantity(ctx, owner, cart.ID, itemID, 0)
	require.NoError(t, err)
	require.Empty(t, updated.Items)
	require.Equal(t, 0, updated.TotalCents)
}

func TestRemoveItemIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-remove")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)

	updated, err := svc.RemoveItem(ctx, owner, cart.ID, uuid.New())
	require.NoError(t, err)
	require.Empty(t, updated.Items)
}

func TestApplyCouponStackedScenario(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-coupons")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	listingA := seedListing(t, db, 1000, 10)
	listingB := seedListing(t, db, 500, 10)

	_, err = svc.AddItem(ctx, owner, cart.ID, listingA.ID, 2, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, cart.ID, listingB.ID, 1, nil)
	require.NoError(t, err)

	seedCouponDef(t, db, func(c *models.Coupon) { c.ApplicationOrder = 1 })
	seedCouponDef(t, db, func(c *models.Coupon) {
		c.Code = "FLAT2"
		c.ValueType = enums.CouponValueFixed
		c.AmountCents = 200
		c.ApplicationOrder = 2
	})

	_, err = svc.ApplyCoupon(ctx, owner, cart.ID, "TENOFF")
	require.NoError(t, err)
	updated, err := svc.ApplyCoupon(ctx, owner, cart.ID, "FLAT2")
	require.NoError(t, err)

	require.Equal(t, 2500, updated.SubtotalCents)
	require.Equal(t, 450, updated.DiscountCents)
	require.Equal(t, 2050, updated.TotalCents)
	require.Len(t, updated.Coupons, 2)
}

func TestApplyCouponRoundTrip(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-roundtrip")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	listing := seedListing(t, db, 799, 10)
	before, err := svc.AddItem(ctx, owner, cart.ID, listing.ID, 3, nil)
	require.NoError(t, err)

	seedCouponDef(t, db, nil)
	applied, err := svc.ApplyCoupon(ctx, owner, cart.ID, "TENOFF")
	require.NoError(t, err)
	require.NotEqual(t, before.TotalCents, applied.TotalCents)

	after, err := svc.RemoveCoupon(ctx, owner, cart.ID, applied.Coupons[0].ID)
	require.NoError(t, err)
	require.Equal(t, before.SubtotalCents, after.SubtotalCents)
	require.Equal(t, before.DiscountCents, after.DiscountCents)
	require.Equal(t, before.TotalCents, after.TotalCents)
	require.Empty(t, after.Coupons)
}

func TestApplyCouponNonStackableConflict(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-conflict")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	listing := seedListing(t, db, 1000, 10)
	_, err = svc.AddItem(ctx, owner, cart.ID, listing.ID, 1, nil)
	require.NoError(t, err)

	seedCouponDef(t, db, func(c *models.Coupon) {
		c.Code = "SOLO"
		c.Stackable = false
	})
	seedCouponDef(t, db, nil)

	applied, err := svc.ApplyCoupon(ctx, owner, cart.ID, "SOLO")
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, owner, cart.ID, "TENOFF")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeCouponConflict, typed.Code())

	// Totals unchanged by the rejected application.
	reloaded, err := svc.GetCart(ctx, owner, cart.ID)
	require.NoError(t, err)
	require.Equal(t, applied.TotalCents, reloaded.TotalCents)
	require.Len(t, reloaded.Coupons, 1)
}

func TestRemoveCouponIdempotent(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-remove-coupon")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)

	updated, err := svc.RemoveCoupon(ctx, owner, cart.ID, uuid.New())
	require.NoError(t, err)
	require.Empty(t, updated.Coupons)
}

func TestSelectShipping(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-shipping")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	listing := seedListing(t, db, 1000, 10)

	updated, err := svc.AddItem(ctx, owner, cart.ID, listing.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, updated.ShippingOptions, 2)
	require.Nil(t, updated.SelectedShipping())
	require.Equal(t, 0, updated.ShippingCents)

	var standard models.CartShippingOption
	for _, opt := range updated.ShippingOptions {
		if opt.Method == shipping.MethodStandard {
			standard = opt
		}
	}

	updated, err = svc.SelectShipping(ctx, owner, cart.ID, standard.ID)
	require.NoError(t, err)
	selected := updated.SelectedShipping()
	require.NotNil(t, selected)
	require.Equal(t, shipping.MethodStandard, selected.Method)
	require.Equal(t, selected.AmountCents, updated.ShippingCents)
	require.Equal(t, updated.SubtotalCents+updated.ShippingCents, updated.TotalCents)

	// Re-quoting after an item change keeps the selected method.
	updated, err = svc.AddItem(ctx, owner, cart.ID, listing.ID, 1, nil)
	require.NoError(t, err)
	selected = updated.SelectedShipping()
	require.NotNil(t, selected)
	require.Equal(t, shipping.MethodStandard, selected.Method)
}

func TestSelectShippingUnknownOption(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-shipping-unknown")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)

	_, err = svc.SelectShipping(ctx, owner, cart.ID, uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMutateNonActiveCart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	owner := types.GuestOwner("guest-frozen")

	cart, err := svc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	listing := seedListing(t, db, 1000, 10)

	require.NoError(t, db.Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		Update("status", enums.CartStatusCompleted).Error)

	_, err = svc.AddItem(ctx, owner, cart.ID, listing.ID, 1, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestMutateSomeoneElsesCart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	cart, err := svc.GetOrCreateActiveCart(ctx, types.GuestOwner("guest-victim"), nil)
	require.NoError(t, err)
	listing := seedListing(t, db, 1000, 10)

	_, err = svc.AddItem(ctx, types.GuestOwner("guest-intruder"), cart.ID, listing.ID, 1, nil)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestMergeGuestIntoAccountCart(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := "guest-merge"
	accountID := uuid.New()
	guestOwner := types.GuestOwner(session)
	accountOwner := types.AccountOwner(accountID)
	listing := seedListing(t, db, 1000, 10)

	guestCart, err := svc.GetOrCreateActiveCart(ctx, guestOwner, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, guestOwner, guestCart.ID, listing.ID, 1, nil)
	require.NoError(t, err)

	accountCart, err := svc.GetOrCreateActiveCart(ctx, accountOwner, nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, accountOwner, accountCart.ID, listing.ID, 2, nil)
	require.NoError(t, err)

	merged, err := svc.Merge(ctx, accountID, session)
	require.NoError(t, err)
	require.Equal(t, accountCart.ID, merged.ID)
	require.Len(t, merged.Items, 1)
	require.Equal(t, 3, merged.Items[0].Quantity)
	require.Equal(t, 3000, merged.SubtotalCents)

	var retired models.Cart
	require.NoError(t, db.First(&retired, "id = ?", guestCart.ID).Error)
	require.Equal(t, enums.CartStatusMerged, retired.Status)
	require.NotNil(t, retired.MergedIntoID)
	require.Equal(t, merged.ID, *retired.MergedIntoID)

	var events int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventCartMerged).
		Count(&events).Error)
	require.Equal(t, int64(1), events)
}

func TestMergeCreatesAccountCartWhenMissing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	session := "guest-merge-fresh"
	accountID := uuid.New()
	listing := seedListing(t, db, 750, 10)

	guestCart, err := svc.GetOrCreateActiveCart(ctx, types.GuestOwner(session), nil)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, types.GuestOwner(session), guestCart.ID, listing.ID, 2, nil)
	require.NoError(t, err)

	merged, err := svc.Merge(ctx, accountID, session)
	require.NoError(t, err)
	require.NotNil(t, merged.AccountID)
	require.Equal(t, accountID, *merged.AccountID)
	require.Len(t, merged.Items, 1)
	require.Equal(t, 2, merged.Items[0].Quantity)
	require.Equal(t, 1500, merged.SubtotalCents)
}

package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/internal/cart"
	"github.com/mvaldezdev/marketcart-backend/internal/catalog"
	"github.com/mvaldezdev/marketcart-backend/internal/coupons"
	"github.com/mvaldezdev/marketcart-backend/internal/orders"
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

type testEnv struct {
	db       *gorm.DB
	cartSvc  *cart.Service
	checkout *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:checkout_" + uuid.NewString() + "?mode=memory&cache=shared"
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
		&models.Order{},
		&models.OrderItem{},
		&models.OutboxEvent{},
	))

	client := dbpkg.NewWithConn(db)
	cartRepo := cart.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	couponsRepo := coupons.NewRepository(db)
	resolver := tax.StaticResolver{Rate: decimal.Zero}
	outboxSvc := outbox.NewService(outbox.NewRepository(db), nil)

	couponSvc, err := coupons.NewService(coupons.ServiceParams{Repo: couponsRepo})
	require.NoError(t, err)

	cartSvc, err := cart.NewService(cart.ServiceParams{
		Client:   client,
		Repo:     cartRepo,
		Catalog:  catalogRepo,
		Coupons:  couponSvc,
		Tax:      resolver,
		Shipping: shipping.NewEstimator(config.ShippingConfig{
			StandardBaseCents:  500,
			StandardPerItem:    100,
			ExpeditedBaseCents: 1499,
			ExpeditedPerItem:   250,
		}),
		Outbox:   outboxSvc,
		Config: config.CartConfig{
			TTL:                 720 * time.Hour,
			DefaultCurrency:     "USD",
			DefaultJurisdiction: "US-DEFAULT",
		},
	})
	require.NoError(t, err)

	checkoutSvc, err := NewService(ServiceParams{
		Client:   client,
		CartRepo: cartRepo,
		Catalog:  catalogRepo,
		Coupons:  couponsRepo,
		Orders:   orders.NewRepository(db),
		Tax:      resolver,
		Outbox:   outboxSvc,
	})
	require.NoError(t, err)

	return &testEnv{db: db, cartSvc: cartSvc, checkout: checkoutSvc}
}

func (e *testEnv) seedListing(t *testing.T, priceCents, available int) models.Listing {
	t.Helper()
	listing := models.Listing{
		SellerID:       uuid.New(),
		Title:          "Ceramic mug",
		UnitPriceCents: priceCents,
		Active:         true,
	}
	require.NoError(t, e.db.Create(&listing).Error)
	require.NoError(t, e.db.Create(&models.InventoryItem{ListingID: listing.ID, AvailableQty: available}).Error)
	return listing
}

func (e *testEnv) cartWithItem(t *testing.T, owner types.CartOwner, listing models.Listing, qty int) *models.Cart {
	t.Helper()
	ctx := context.Background()
	cartRow, err := e.cartSvc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	cartRow, err = e.cartSvc.AddItem(ctx, owner, cartRow.ID, listing.ID, qty, nil)
	require.NoError(t, err)
	return cartRow
}

func TestCheckoutHappyPath(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.GuestOwner("checkout-happy")
	listing := env.seedListing(t, 1000, 5)
	cartRow := env.cartWithItem(t, owner, listing, 2)

	order, err := env.checkout.Checkout(ctx, owner, cartRow.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCreated, order.Status)
	require.Equal(t, 2000, order.SubtotalCents)
	require.Equal(t, 2000, order.TotalCents)
	require.Len(t, order.Items, 1)
	require.Equal(t, "Ceramic mug", order.Items[0].Title)
	require.Equal(t, 2, order.Items[0].Quantity)

	var inv models.InventoryItem
	require.NoError(t, env.db.First(&inv, "listing_id = ?", listing.ID).Error)
	require.Equal(t, 3, inv.AvailableQty)
	require.Equal(t, 2, inv.ReservedQty)

	var completed models.Cart
	require.NoError(t, env.db.First(&completed, "id = ?", cartRow.ID).Error)
	require.Equal(t, enums.CartStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	var events int64
	require.NoError(t, env.db.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventOrderCreated).
		Count(&events).Error)
	require.Equal(t, int64(1), events)
}

func TestCheckoutCompletedCartRejected(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.GuestOwner("checkout-twice")
	listing := env.seedListing(t, 1000, 5)
	cartRow := env.cartWithItem(t, owner, listing, 1)

	_, err := env.checkout.Checkout(ctx, owner, cartRow.ID)
	require.NoError(t, err)

	_, err = env.checkout.Checkout(ctx, owner, cartRow.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestCheckoutStockChanged(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	listing := env.seedListing(t, 1000, 1)

	winner := types.GuestOwner("checkout-winner")
	loser := types.GuestOwner("checkout-loser")
	winnerCart := env.cartWithItem(t, winner, listing, 1)
	loserCart := env.cartWithItem(t, loser, listing, 1)

	_, err := env.checkout.Checkout(ctx, winner, winnerCart.ID)
	require.NoError(t, err)

	_, err = env.checkout.Checkout(ctx, loser, loserCart.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeStockChanged, typed.Code())

	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	conflicts, ok := details["items"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, conflicts, 1)
	require.Equal(t, listing.ID, conflicts[0]["listing_id"])
	require.Equal(t, 1, conflicts[0]["requested"])
	require.Equal(t, 0, conflicts[0]["available"])

	// The failed checkout left no order and touched no inventory.
	var orderCount int64
	require.NoError(t, env.db.Model(&models.Order{}).
		Where("cart_id = ?", loserCart.ID).
		Count(&orderCount).Error)
	require.Equal(t, int64(0), orderCount)

	var inv models.InventoryItem
	require.NoError(t, env.db.First(&inv, "listing_id = ?", listing.ID).Error)
	require.Equal(t, 0, inv.AvailableQty)
	require.Equal(t, 1, inv.ReservedQty)

	var loserRow models.Cart
	require.NoError(t, env.db.First(&loserRow, "id = ?", loserCart.ID).Error)
	require.Equal(t, enums.CartStatusActive, loserRow.Status)
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.GuestOwner("checkout-empty")

	cartRow, err := env.cartSvc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)

	_, err = env.checkout.Checkout(ctx, owner, cartRow.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCheckoutCouponLimitExhaustedAtCommit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.GuestOwner("checkout-coupon-race")
	listing := env.seedListing(t, 1000, 5)
	cartRow := env.cartWithItem(t, owner, listing, 1)

	one := 1
	coupon := models.Coupon{
		Code:      "LASTUSE",
		ValueType: enums.CouponValuePercentage,
		Scope:     enums.CouponScopeCart,
		Percent:   decimal.NewFromInt(10),
		Active:    true,
		Stackable: true,
		MaxUses:   &one,
	}
	require.NoError(t, env.db.Create(&coupon).Error)

	_, err := env.cartSvc.ApplyCoupon(ctx, owner, cartRow.ID, "LASTUSE")
	require.NoError(t, err)

	// Someone else burns the final use before this cart commits.
	require.NoError(t, env.db.Model(&models.Coupon{}).
		Where("id = ?", coupon.ID).
		Update("use_count", 1).Error)

	_, err = env.checkout.Checkout(ctx, owner, cartRow.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeCouponInvalid, typed.Code())

	// Rolled back: no order, inventory untouched, cart still active.
	var orderCount int64
	require.NoError(t, env.db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Equal(t, int64(0), orderCount)

	var inv models.InventoryItem
	require.NoError(t, env.db.First(&inv, "listing_id = ?", listing.ID).Error)
	require.Equal(t, 5, inv.AvailableQty)
	require.Equal(t, 0, inv.ReservedQty)
}

func TestCheckoutWithCouponAndShipping(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	owner := types.GuestOwner("checkout-full")
	listingA := env.seedListing(t, 1000, 5)
	listingB := env.seedListing(t, 500, 5)

	cartRow, err := env.cartSvc.GetOrCreateActiveCart(ctx, owner, nil)
	require.NoError(t, err)
	_, err = env.cartSvc.AddItem(ctx, owner, cartRow.ID, listingA.ID, 2, nil)
	require.NoError(t, err)
	cartRow, err = env.cartSvc.AddItem(ctx, owner, cartRow.ID, listingB.ID, 1, nil)
	require.NoError(t, err)

	require.NoError(t, env.db.Create(&models.Coupon{
		Code:             "TENOFF",
		ValueType:        enums.CouponValuePercentage,
		Scope:            enums.CouponScopeCart,
		Percent:          decimal.NewFromInt(10),
		Active:           true,
		Stackable:        true,
		ApplicationOrder: 1,
	}).Error)
	_, err = env.cartSvc.ApplyCoupon(ctx, owner, cartRow.ID, "TENOFF")
	require.NoError(t, err)

	cartRow, err = env.cartSvc.GetCart(ctx, owner, cartRow.ID)
	require.NoError(t, err)
	require.NotEmpty(t, cartRow.ShippingOptions)
	var standardID uuid.UUID
	for _, opt := range cartRow.ShippingOptions {
		if opt.Method == shipping.MethodStandard {
			standardID = opt.ID
		}
	}
	cartRow, err = env.cartSvc.SelectShipping(ctx, owner, cartRow.ID, standardID)
	require.NoError(t, err)

	order, err := env.checkout.Checkout(ctx, owner, cartRow.ID)
	require.NoError(t, err)
	require.Equal(t, cartRow.SubtotalCents, order.SubtotalCents)
	require.Equal(t, cartRow.DiscountCents, order.DiscountCents)
	require.Equal(t, cartRow.ShippingCents, order.ShippingCents)
	require.Equal(t, cartRow.TotalCents, order.TotalCents)

	// 25.00 minus 10% plus shipping (5.00 base + 1.00 x3 items).
	require.Equal(t, 2500, order.SubtotalCents)
	require.Equal(t, 250, order.DiscountCents)
	require.Equal(t, 800, order.ShippingCents)
	require.Equal(t, 3050, order.TotalCents)
}

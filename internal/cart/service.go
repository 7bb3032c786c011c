package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/internal/catalog"
	"github.com/mvaldezdev/marketcart-backend/internal/coupons"
	"github.com/mvaldezdev/marketcart-backend/internal/pricing"
	"github.com/mvaldezdev/marketcart-backend/internal/shipping"
	"github.com/mvaldezdev/marketcart-backend/internal/tax"
	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	dbpkg "github.com/mvaldezdev/marketcart-backend/pkg/db"
	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox"
	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

// Service is the cart mutator. Every mutation runs in one transaction that
// locks the cart row, applies the change, and recomputes totals before commit,
// so stored totals are never stale relative to the cart's contents.
type Service struct {
	client   *dbpkg.Client
	repo     Repository
	catalog  catalog.Repository
	coupons  *coupons.Service
	tax      tax.Resolver
	shipping shipping.Estimator
	outbox   *outbox.Service
	logg     *logger.Logger
	cfg      config.CartConfig
}

// ServiceParams wires Service dependencies.
type ServiceParams struct {
	Client   *dbpkg.Client
	Repo     Repository
	Catalog  catalog.Repository
	Coupons  *coupons.Service
	Tax      tax.Resolver
	Shipping shipping.Estimator
	Outbox   *outbox.Service
	Logger   *logger.Logger
	Config   config.CartConfig
}

// NewService builds a cart service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("cart service requires a db client")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("cart service requires a repository")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("cart service requires a catalog repository")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("cart service requires a coupons service")
	}
	if params.Tax == nil {
		return nil, fmt.Errorf("cart service requires a tax resolver")
	}
	if params.Shipping == nil {
		return nil, fmt.Errorf("cart service requires a shipping estimator")
	}
	return &Service{
		client:   params.Client,
		repo:     params.Repo,
		catalog:  params.Catalog,
		coupons:  params.Coupons,
		tax:      params.Tax,
		shipping: params.Shipping,
		outbox:   params.Outbox,
		logg:     params.Logger,
		cfg:      params.Config,
	}, nil
}

// GetOrCreateActiveCart returns the owner's active cart, creating one when
// none exists. An authenticated caller who also presents a guest session with
// its own active cart gets an owner-conflict until it requests a merge.
func (s *Service) GetOrCreateActiveCart(ctx context.Context, owner types.CartOwner, guestSessionID *string) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}

	if owner.AccountID != nil && guestSessionID != nil {
		guestCart, err := s.repo.FindActiveByOwner(ctx, types.GuestOwner(*guestSessionID))
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up guest cart")
		}
		if guestCart != nil {
			return nil, pkgerrors.New(pkgerrors.CodeOwnerConflict, "guest session has its own active cart").
				WithDetails(map[string]any{"guest_cart_id": guestCart.ID})
		}
	}

	existing, err := s.repo.FindActiveByOwner(ctx, owner)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up active cart")
	}

	cart := &models.Cart{
		AccountID:    owner.AccountID,
		SessionID:    owner.SessionID,
		Status:       enums.CartStatusActive,
		Currency:     enums.Currency(s.cfg.DefaultCurrency),
		Jurisdiction: s.cfg.DefaultJurisdiction,
		ExpiresAt:    time.Now().Add(s.cfg.TTL),
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		// A concurrent request may have created the active cart first; the
		// partial unique index makes that a duplicate, so re-read and use it.
		if dbpkg.IsUniqueViolation(err, "") {
			existing, findErr := s.repo.FindActiveByOwner(ctx, owner)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithCartID(ctx, cart.ID.String()), "cart created")
	}
	return cart, nil
}

// GetCart loads a cart the owner may see. Carts belonging to someone else
// surface as not-found rather than forbidden.
func (s *Service) GetCart(ctx context.Context, owner types.CartOwner, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if !ownerMatches(cart, owner) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return cart, nil
}

// AddItem appends quantity of a listing to the cart, folding into an existing
// line when the listing and options match. The listing price is snapshotted
// on first add and frozen afterwards.
func (s *Service) AddItem(ctx context.Context, owner types.CartOwner, cartID, listingID uuid.UUID, quantity int, options types.ItemOptions) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": quantity})
	}

	var updated *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockMutableCart(ctx, repo, owner, cartID)
		if err != nil {
			return err
		}

		listing, err := s.catalog.WithTx(tx).FindListingByID(ctx, listingID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "listing not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading listing")
		}
		if !listing.Active {
			return pkgerrors.New(pkgerrors.CodeValidation, "listing is not purchasable").
				WithDetails(map[string]any{"listing_id": listingID})
		}

		optionsKey := options.Fingerprint()
		var existing *models.CartItem
		for i := range cart.Items {
			if cart.Items[i].ListingID == listingID && cart.Items[i].OptionsKey == optionsKey {
				existing = &cart.Items[i]
				break
			}
		}

		newQuantity := quantity
		if existing != nil {
			newQuantity += existing.Quantity
		}
		if listing.MaxPerOrder != nil && newQuantity > *listing.MaxPerOrder {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-order limit").
				WithDetails(map[string]any{"listing_id": listingID, "max_per_order": *listing.MaxPerOrder})
		}
		if err := s.checkAvailability(ctx, tx, listingID, newQuantity); err != nil {
			return err
		}

		if existing != nil {
			if err := repo.UpdateItem(ctx, existing, map[string]any{"quantity": newQuantity}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
			}
		} else {
			item := &models.CartItem{
				CartID:         cart.ID,
				ListingID:      listingID,
				Options:        options,
				OptionsKey:     optionsKey,
				Quantity:       quantity,
				UnitPriceCents: listing.UnitPriceCents,
			}
			if err := repo.CreateItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart item")
			}
		}

		updated, err = s.finishMutation(ctx, tx, repo, cart.ID, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateQuantity changes a line's quantity. A quantity of zero or less is
// equivalent to removing the line.
func (s *Service) UpdateQuantity(ctx context.Context, owner types.CartOwner, cartID, itemID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, owner, cartID, itemID)
	}

	var updated *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockMutableCart(ctx, repo, owner, cartID)
		if err != nil {
			return err
		}

		var item *models.CartItem
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				item = &cart.Items[i]
				break
			}
		}
		if item == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}

		if err := s.checkAvailability(ctx, tx, item.ListingID, quantity); err != nil {
			return err
		}
		if err := repo.UpdateItem(ctx, item, map[string]any{"quantity": quantity}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating cart item")
		}

		updated, err = s.finishMutation(ctx, tx, repo, cart.ID, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveItem deletes a line. Removing an absent line is a no-op success.
func (s *Service) RemoveItem(ctx context.Context, owner types.CartOwner, cartID, itemID uuid.UUID) (*models.Cart, error) {
	var updated *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockMutableCart(ctx, repo, owner, cartID)
		if err != nil {
			return err
		}
		if _, err := repo.DeleteItem(ctx, cart.ID, itemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting cart item")
		}
		updated, err = s.finishMutation(ctx, tx, repo, cart.ID, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ApplyCoupon resolves the code and snapshots it onto the cart. Stacking rules
// reject any second coupon once a non-stackable one is present, and vice versa.
func (s *Service) ApplyCoupon(ctx context.Context, owner types.CartOwner, cartID uuid.UUID, code string) (*models.Cart, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	var updated *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockMutableCart(ctx, repo, owner, cartID)
		if err != nil {
			return err
		}

		for _, applied := range cart.Coupons {
			if applied.Code == code {
				return pkgerrors.New(pkgerrors.CodeCouponConflict, "coupon is already applied").
					WithDetails(map[string]any{"code": code})
			}
			if !applied.Stackable {
				return pkgerrors.New(pkgerrors.CodeCouponConflict, "a non-stackable coupon is already applied").
					WithDetails(map[string]any{"code": code, "conflicting_code": applied.Code})
			}
		}

		coupon, err := s.coupons.WithTx(tx).Resolve(ctx, code, cart.SubtotalCents, time.Now())
		if err != nil {
			return err
		}
		if !coupon.Stackable && len(cart.Coupons) > 0 {
			return pkgerrors.New(pkgerrors.CodeCouponConflict, "coupon does not stack with applied coupons").
				WithDetails(map[string]any{"code": code})
		}

		snapshot := &models.CartCoupon{
			CartID:           cart.ID,
			CouponID:         coupon.ID,
			Code:             coupon.Code,
			ValueType:        coupon.ValueType,
			Scope:            coupon.Scope,
			ListingID:        coupon.ListingID,
			Percent:          coupon.Percent,
			AmountCents:      coupon.AmountCents,
			ApplicationOrder: coupon.ApplicationOrder,
			Stackable:        coupon.Stackable,
		}
		if err := repo.CreateCoupon(ctx, snapshot); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "applying coupon")
		}

		updated, err = s.finishMutation(ctx, tx, repo, cart.ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveCoupon detaches an applied coupon. Removing an absent coupon is a
// no-op success.
func (s *Service) RemoveCoupon(ctx context.Context, owner types.CartOwner, cartID, cartCouponID uuid.UUID) (*models.Cart, error) {
	var updated *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockMutableCart(ctx, repo, owner, cartID)
		if err != nil {
			return err
		}
		if _, err := repo.DeleteCoupon(ctx, cart.ID, cartCouponID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing coupon")
		}
		updated, err = s.finishMutation(ctx, tx, repo, cart.ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SelectShipping marks one quoted option selected; any previous selection is
// cleared in the same transaction.
func (s *Service) SelectShipping(ctx context.Context, owner types.CartOwner, cartID, optionID uuid.UUID) (*models.Cart, error) {
	var updated *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockMutableCart(ctx, repo, owner, cartID)
		if err != nil {
			return err
		}
		selected, err := repo.SelectShippingOption(ctx, cart.ID, optionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "selecting shipping option")
		}
		if !selected {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shipping option not found")
		}
		updated, err = s.finishMutation(ctx, tx, repo, cart.ID, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RefreshShippingOptions re-quotes shipping candidates for the cart.
func (s *Service) RefreshShippingOptions(ctx context.Context, owner types.CartOwner, cartID uuid.UUID) (*models.Cart, error) {
	var updated *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := s.lockMutableCart(ctx, repo, owner, cartID)
		if err != nil {
			return err
		}
		updated, err = s.finishMutation(ctx, tx, repo, cart.ID, true)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// lockMutableCart loads the cart under a row lock and verifies it may be
// mutated by this owner.
func (s *Service) lockMutableCart(ctx context.Context, repo Repository, owner types.CartOwner, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindByIDForUpdate(ctx, cartID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if !ownerMatches(cart, owner) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	if cart.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is not active").
			WithDetails(map[string]any{"status": cart.Status})
	}
	return cart, nil
}

// checkAvailability verifies the requested quantity is purchasable right now.
// Stock can still change before checkout; the checkout transition re-validates
// with a conditional reservation.
func (s *Service) checkAvailability(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, quantity int) error {
	available, err := s.catalog.WithTx(tx).AvailableQuantity(ctx, listingID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking availability")
	}
	if quantity > available {
		return pkgerrors.New(pkgerrors.CodeStockChanged, "requested quantity exceeds available stock").
			WithDetails(map[string]any{
				"listing_id": listingID,
				"requested":  quantity,
				"available":  available,
			})
	}
	return nil
}

// finishMutation reloads the cart graph, optionally re-quotes shipping, and
// recomputes totals. It runs inside the mutation's transaction so the commit
// carries consistent totals.
func (s *Service) finishMutation(ctx context.Context, tx *gorm.DB, repo Repository, cartID uuid.UUID, requote bool) (*models.Cart, error) {
	cart, err := repo.FindByID(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
	}

	if requote {
		options, err := s.shipping.GetEstimates(ctx, cart)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "quoting shipping")
		}
		if err := repo.ReplaceShippingOptions(ctx, cart.ID, options); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing shipping options")
		}
		cart, err = repo.FindByID(ctx, cartID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
		}
	}

	return s.recompute(ctx, repo, cart)
}

// recompute derives totals from the cart graph and persists them along with a
// refreshed activity deadline.
func (s *Service) recompute(ctx context.Context, repo Repository, cart *models.Cart) (*models.Cart, error) {
	rate, err := s.tax.GetRate(ctx, cart.Jurisdiction)
	if err != nil {
		return nil, err
	}

	totals := pricing.ComputeTotals(pricing.Input{
		Items:    pricingItems(cart.Items),
		Coupons:  pricingCoupons(cart.Coupons),
		Shipping: pricingShipping(cart.SelectedShipping()),
		TaxRate:  rate,
	})

	expiresAt := time.Now().Add(s.cfg.TTL)
	fields := map[string]any{
		"subtotal_cents": totals.SubtotalCents,
		"discount_cents": totals.DiscountCents,
		"shipping_cents": totals.ShippingCents,
		"tax_cents":      totals.TaxCents,
		"total_cents":    totals.TotalCents,
		"expires_at":     expiresAt,
	}
	if err := repo.UpdateCart(ctx, cart, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting totals")
	}

	lineTotals := make(map[uuid.UUID]pricing.ItemTotal, len(totals.Items))
	for _, line := range totals.Items {
		lineTotals[line.ItemID] = line
	}
	for i := range cart.Items {
		item := &cart.Items[i]
		line, ok := lineTotals[item.ID]
		if !ok {
			continue
		}
		if item.LineSubtotalCents != line.SubtotalCents || item.DiscountCents != line.DiscountCents {
			err := repo.UpdateItem(ctx, item, map[string]any{
				"line_subtotal_cents": line.SubtotalCents,
				"discount_cents":      line.DiscountCents,
			})
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting line totals")
			}
		}
		item.LineSubtotalCents = line.SubtotalCents
		item.DiscountCents = line.DiscountCents
	}

	appliedByID := make(map[uuid.UUID]pricing.CouponApplication, len(totals.Coupons))
	for _, app := range totals.Coupons {
		appliedByID[app.CouponID] = app
	}
	for i := range cart.Coupons {
		coupon := &cart.Coupons[i]
		app, ok := appliedByID[coupon.ID]
		if !ok {
			continue
		}
		if coupon.AmountAppliedCents != app.AmountAppliedCents {
			if err := repo.UpdateCouponApplied(ctx, coupon.ID, app.AmountAppliedCents); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting coupon amounts")
			}
		}
		coupon.AmountAppliedCents = app.AmountAppliedCents
	}

	cart.SubtotalCents = totals.SubtotalCents
	cart.DiscountCents = totals.DiscountCents
	cart.ShippingCents = totals.ShippingCents
	cart.TaxCents = totals.TaxCents
	cart.TotalCents = totals.TotalCents
	cart.ExpiresAt = expiresAt
	return cart, nil
}

func ownerMatches(cart *models.Cart, owner types.CartOwner) bool {
	if owner.AccountID != nil {
		return cart.AccountID != nil && *cart.AccountID == *owner.AccountID
	}
	if owner.SessionID != nil {
		return cart.SessionID != nil && *cart.SessionID == *owner.SessionID
	}
	return false
}

func pricingItems(items []models.CartItem) []pricing.Item {
	out := make([]pricing.Item, 0, len(items))
	for _, item := range items {
		out = append(out, pricing.Item{
			ID:             item.ID,
			ListingID:      item.ListingID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return out
}

func pricingCoupons(coupons []models.CartCoupon) []pricing.Coupon {
	out := make([]pricing.Coupon, 0, len(coupons))
	for _, coupon := range coupons {
		out = append(out, pricing.Coupon{
			ID:               coupon.ID,
			Code:             coupon.Code,
			ValueType:        coupon.ValueType,
			Scope:            coupon.Scope,
			ListingID:        coupon.ListingID,
			Percent:          coupon.Percent,
			AmountCents:      coupon.AmountCents,
			ApplicationOrder: coupon.ApplicationOrder,
			AppliedAt:        coupon.AppliedAt,
		})
	}
	return out
}

func pricingShipping(selected *models.CartShippingOption) *pricing.ShippingSelection {
	if selected == nil {
		return nil
	}
	return &pricing.ShippingSelection{AmountCents: selected.AmountCents}
}

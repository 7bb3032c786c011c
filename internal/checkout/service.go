package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/internal/cart"
	"github.com/mvaldezdev/marketcart-backend/internal/catalog"
	"github.com/mvaldezdev/marketcart-backend/internal/checkout/reservation"
	"github.com/mvaldezdev/marketcart-backend/internal/coupons"
	"github.com/mvaldezdev/marketcart-backend/internal/orders"
	"github.com/mvaldezdev/marketcart-backend/internal/pricing"
	"github.com/mvaldezdev/marketcart-backend/internal/tax"
	dbpkg "github.com/mvaldezdev/marketcart-backend/pkg/db"
	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox/payloads"
	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

// Service converts an active cart into an immutable order. The whole
// transition (stock re-validation, inventory reservation, order snapshot,
// cart completion, event emission) commits as one transaction; any failure
// leaves no partial order and no partial reservation.
type Service struct {
	client   *dbpkg.Client
	cartRepo cart.Repository
	catalog  catalog.Repository
	coupons  coupons.Repository
	orders   orders.Repository
	tax      tax.Resolver
	outbox   *outbox.Service
	logg     *logger.Logger
}

// ServiceParams wires Service dependencies.
type ServiceParams struct {
	Client   *dbpkg.Client
	CartRepo cart.Repository
	Catalog  catalog.Repository
	Coupons  coupons.Repository
	Orders   orders.Repository
	Tax      tax.Resolver
	Outbox   *outbox.Service
	Logger   *logger.Logger
}

// NewService builds a checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("checkout service requires a db client")
	}
	if params.CartRepo == nil {
		return nil, fmt.Errorf("checkout service requires a cart repository")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("checkout service requires a catalog repository")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("checkout service requires a coupons repository")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("checkout service requires an orders repository")
	}
	if params.Tax == nil {
		return nil, fmt.Errorf("checkout service requires a tax resolver")
	}
	return &Service{
		client:   params.Client,
		cartRepo: params.CartRepo,
		catalog:  params.Catalog,
		coupons:  params.Coupons,
		orders:   params.Orders,
		tax:      params.Tax,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

// Checkout finalizes the cart. When stock has drifted since the last
// mutation, it fails with the full set of conflicting lines and current
// availability so the client can offer an adjustment instead of a dead end.
func (s *Service) Checkout(ctx context.Context, owner types.CartOwner, cartID uuid.UUID) (*models.Order, error) {
	var order *models.Order
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)

		cartRow, err := cartRepo.FindByIDForUpdate(ctx, cartID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if !cartOwnedBy(cartRow, owner) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		if cartRow.Status != enums.CartStatusActive && cartRow.Status != enums.CartStatusCheckout {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cart cannot be checked out").
				WithDetails(map[string]any{"status": cartRow.Status})
		}
		if len(cartRow.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		if err := s.reserveAll(ctx, tx, cartRow); err != nil {
			return err
		}
		if err := s.consumeCoupons(ctx, tx, cartRow); err != nil {
			return err
		}

		totals, err := s.finalTotals(ctx, cartRow)
		if err != nil {
			return err
		}

		now := time.Now()
		order = &models.Order{
			CartID:        cartRow.ID,
			AccountID:     cartRow.AccountID,
			SessionID:     cartRow.SessionID,
			Status:        enums.OrderStatusCreated,
			Currency:      cartRow.Currency,
			SubtotalCents: totals.SubtotalCents,
			DiscountCents: totals.DiscountCents,
			TaxCents:      totals.TaxCents,
			ShippingCents: totals.ShippingCents,
			TotalCents:    totals.TotalCents,
			PlacedAt:      now,
		}
		ordersRepo := s.orders.WithTx(tx)
		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		items, err := s.snapshotItems(ctx, tx, cartRow, order.ID, totals)
		if err != nil {
			return err
		}
		if err := ordersRepo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order items")
		}
		order.Items = items

		err = cartRepo.UpdateCart(ctx, cartRow, map[string]any{
			"status":         enums.CartStatusCompleted,
			"completed_at":   now,
			"subtotal_cents": totals.SubtotalCents,
			"discount_cents": totals.DiscountCents,
			"shipping_cents": totals.ShippingCents,
			"tax_cents":      totals.TaxCents,
			"total_cents":    totals.TotalCents,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing cart")
		}

		if s.outbox != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{AccountID: cartRow.AccountID, SessionID: cartRow.SessionID},
				Data: payloads.OrderCreated{
					OrderID:       order.ID,
					CartID:        cartRow.ID,
					Currency:      order.Currency.String(),
					SubtotalCents: order.SubtotalCents,
					DiscountCents: order.DiscountCents,
					TaxCents:      order.TaxCents,
					ShippingCents: order.ShippingCents,
					TotalCents:    order.TotalCents,
					ItemCount:     len(items),
					PlacedAt:      now,
				},
				Version:    1,
				OccurredAt: now,
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emitting order event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"cart_id":  cartID.String(),
		})
		s.logg.Info(logCtx, "checkout completed")
	}
	return order, nil
}

// reserveAll re-validates and reserves every line's stock. Any refusal rolls
// the transaction back with the conflicting lines in the error details.
func (s *Service) reserveAll(ctx context.Context, tx *gorm.DB, cartRow *models.Cart) error {
	requests := make([]reservation.InventoryReservationRequest, 0, len(cartRow.Items))
	for _, item := range cartRow.Items {
		requests = append(requests, reservation.InventoryReservationRequest{
			CartItemID: item.ID,
			ListingID:  item.ListingID,
			Qty:        item.Quantity,
		})
	}

	results, err := reservation.ReserveInventory(ctx, tx, requests)
	if err != nil {
		return err
	}

	var conflicts []map[string]any
	for _, res := range results {
		if res.Reserved {
			continue
		}
		conflicts = append(conflicts, map[string]any{
			"item_id":    res.CartItemID,
			"listing_id": res.ListingID,
			"requested":  res.Qty,
			"available":  res.AvailableQty,
		})
	}
	if len(conflicts) > 0 {
		return pkgerrors.New(pkgerrors.CodeStockChanged, "stock changed since the cart was last validated").
			WithDetails(map[string]any{"items": conflicts})
	}
	return nil
}

// consumeCoupons burns one use per applied coupon. A coupon whose limit was
// exhausted between application and checkout aborts the transition.
func (s *Service) consumeCoupons(ctx context.Context, tx *gorm.DB, cartRow *models.Cart) error {
	repo := s.coupons.WithTx(tx)
	for _, applied := range cartRow.Coupons {
		ok, err := repo.IncrementUsage(ctx, applied.CouponID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consuming coupon use")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon use limit exhausted").
				WithDetails(map[string]any{"code": applied.Code, "reason": "use_limit_exhausted"})
		}
	}
	return nil
}

// finalTotals re-derives totals from the cart graph at commit time.
func (s *Service) finalTotals(ctx context.Context, cartRow *models.Cart) (pricing.Totals, error) {
	rate, err := s.tax.GetRate(ctx, cartRow.Jurisdiction)
	if err != nil {
		return pricing.Totals{}, err
	}

	items := make([]pricing.Item, 0, len(cartRow.Items))
	for _, item := range cartRow.Items {
		items = append(items, pricing.Item{
			ID:             item.ID,
			ListingID:      item.ListingID,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	appliedCoupons := make([]pricing.Coupon, 0, len(cartRow.Coupons))
	for _, applied := range cartRow.Coupons {
		appliedCoupons = append(appliedCoupons, pricing.Coupon{
			ID:               applied.ID,
			Code:             applied.Code,
			ValueType:        applied.ValueType,
			Scope:            applied.Scope,
			ListingID:        applied.ListingID,
			Percent:          applied.Percent,
			AmountCents:      applied.AmountCents,
			ApplicationOrder: applied.ApplicationOrder,
			AppliedAt:        applied.AppliedAt,
		})
	}
	var selection *pricing.ShippingSelection
	if selected := cartRow.SelectedShipping(); selected != nil {
		selection = &pricing.ShippingSelection{AmountCents: selected.AmountCents}
	}

	return pricing.ComputeTotals(pricing.Input{
		Items:    items,
		Coupons:  appliedCoupons,
		Shipping: selection,
		TaxRate:  rate,
	}), nil
}

// snapshotItems freezes the cart's lines into order items, resolving listing
// titles for display.
func (s *Service) snapshotItems(ctx context.Context, tx *gorm.DB, cartRow *models.Cart, orderID uuid.UUID, totals pricing.Totals) ([]models.OrderItem, error) {
	listingIDs := make([]uuid.UUID, 0, len(cartRow.Items))
	for _, item := range cartRow.Items {
		listingIDs = append(listingIDs, item.ListingID)
	}
	listings, err := s.catalog.WithTx(tx).FindListingsByIDs(ctx, listingIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading listings")
	}
	titles := make(map[uuid.UUID]string, len(listings))
	for _, listing := range listings {
		titles[listing.ID] = listing.Title
	}

	lineTotals := make(map[uuid.UUID]pricing.ItemTotal, len(totals.Items))
	for _, line := range totals.Items {
		lineTotals[line.ItemID] = line
	}

	items := make([]models.OrderItem, 0, len(cartRow.Items))
	for _, item := range cartRow.Items {
		line := lineTotals[item.ID]
		items = append(items, models.OrderItem{
			OrderID:        orderID,
			ListingID:      item.ListingID,
			Title:          titles[item.ListingID],
			Options:        item.Options,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			DiscountCents:  line.DiscountCents,
			LineTotalCents: line.SubtotalCents,
		})
	}
	return items, nil
}

func cartOwnedBy(cartRow *models.Cart, owner types.CartOwner) bool {
	if owner.AccountID != nil {
		return cartRow.AccountID != nil && *cartRow.AccountID == *owner.AccountID
	}
	if owner.SessionID != nil {
		return cartRow.SessionID != nil && *cartRow.SessionID == *owner.SessionID
	}
	return false
}

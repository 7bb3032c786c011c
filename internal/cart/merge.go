package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox"
	"github.com/mvaldezdev/marketcart-backend/pkg/outbox/payloads"
	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

// Merge folds a guest session's active cart into the account's active cart.
// Quantities for the same listing and options sum; the account cart's coupons
// and shipping selection win. The guest cart freezes in merged status pointing
// at the target. Creating the account cart on the fly is allowed.
func (s *Service) Merge(ctx context.Context, accountID uuid.UUID, guestSessionID string) (*models.Cart, error) {
	if guestSessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "guest session id is required")
	}

	var merged *models.Cart
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		guestCart, err := repo.FindActiveByOwner(ctx, types.GuestOwner(guestSessionID))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "guest cart not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading guest cart")
		}

		accountCart, err := repo.FindActiveByOwner(ctx, types.AccountOwner(accountID))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			accountCart = &models.Cart{
				AccountID:    &accountID,
				Status:       enums.CartStatusActive,
				Currency:     guestCart.Currency,
				Jurisdiction: guestCart.Jurisdiction,
				ExpiresAt:    time.Now().Add(s.cfg.TTL),
			}
			if err := repo.Create(ctx, accountCart); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating account cart")
			}
		} else if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading account cart")
		}

		// Lock both carts in ID order so two concurrent merges cannot deadlock.
		first, second := guestCart.ID, accountCart.ID
		if second.String() < first.String() {
			first, second = second, first
		}
		if _, err := repo.FindByIDForUpdate(ctx, first); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking cart")
		}
		if _, err := repo.FindByIDForUpdate(ctx, second); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "locking cart")
		}

		// Reload under the locks.
		guestCart, err = repo.FindByID(ctx, guestCart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading guest cart")
		}
		accountCart, err = repo.FindByID(ctx, accountCart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading account cart")
		}
		if guestCart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "guest cart is not active").
				WithDetails(map[string]any{"status": guestCart.Status})
		}
		if accountCart.Status != enums.CartStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "account cart is not active").
				WithDetails(map[string]any{"status": accountCart.Status})
		}

		targetLines := make(map[string]*models.CartItem, len(accountCart.Items))
		for i := range accountCart.Items {
			item := &accountCart.Items[i]
			targetLines[lineKey(item.ListingID, item.OptionsKey)] = item
		}

		for _, item := range guestCart.Items {
			if target, ok := targetLines[lineKey(item.ListingID, item.OptionsKey)]; ok {
				err := repo.UpdateItem(ctx, target, map[string]any{
					"quantity": target.Quantity + item.Quantity,
				})
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merging cart item")
				}
				continue
			}
			moved := &models.CartItem{
				CartID:         accountCart.ID,
				ListingID:      item.ListingID,
				Options:        item.Options,
				OptionsKey:     item.OptionsKey,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
			}
			if err := repo.CreateItem(ctx, moved); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "moving cart item")
			}
		}

		now := time.Now()
		err = repo.UpdateCart(ctx, guestCart, map[string]any{
			"status":         enums.CartStatusMerged,
			"merged_into_id": accountCart.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "retiring guest cart")
		}

		if s.outbox != nil {
			event := outbox.DomainEvent{
				EventType:     enums.EventCartMerged,
				AggregateType: enums.AggregateCart,
				AggregateID:   guestCart.ID,
				Actor:         &outbox.ActorRef{AccountID: &accountID},
				Data: payloads.CartMerged{
					SourceCartID: guestCart.ID,
					TargetCartID: accountCart.ID,
					MergedAt:     now,
				},
				Version:    1,
				OccurredAt: now,
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emitting merge event")
			}
		}

		merged, err = s.finishMutation(ctx, tx, repo, accountCart.ID, true)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithCartID(ctx, merged.ID.String()), "guest cart merged")
	}
	return merged, nil
}

func lineKey(listingID uuid.UUID, optionsKey string) string {
	return listingID.String() + "|" + optionsKey
}

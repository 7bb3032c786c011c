package cart

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	cartdto "github.com/mvaldezdev/marketcart-backend/api/controllers/cart/dto"
	"github.com/mvaldezdev/marketcart-backend/api/middleware"
	"github.com/mvaldezdev/marketcart-backend/api/responses"
	"github.com/mvaldezdev/marketcart-backend/api/validators"
	cartsvc "github.com/mvaldezdev/marketcart-backend/internal/cart"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
)

// Fetch resolves the caller's active cart, creating one when none exists.
func Fetch(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner := middleware.OwnerFromContext(ctx)

		var guestSessionID *string
		if sessionID := middleware.SessionIDFromContext(ctx); sessionID != "" {
			guestSessionID = &sessionID
		}

		record, err := svc.GetOrCreateActiveCart(ctx, owner, guestSessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

// FetchByID returns a cart the caller owns, in any status.
func FetchByID(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.GetCart(ctx, middleware.OwnerFromContext(ctx), cartID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

// AddItem appends or folds a line into the cart and returns the re-priced cart.
func AddItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload cartdto.AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.AddItem(ctx, middleware.OwnerFromContext(ctx), cartID, payload.ListingID, payload.Quantity, payload.Options)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

// UpdateItem sets a line quantity; zero removes the line.
func UpdateItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload cartdto.UpdateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.UpdateQuantity(ctx, middleware.OwnerFromContext(ctx), cartID, itemID, *payload.Quantity)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

// RemoveItem deletes a line. Removing an absent line is a no-op.
func RemoveItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		itemID, err := pathUUID(r, "itemID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.RemoveItem(ctx, middleware.OwnerFromContext(ctx), cartID, itemID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

// ApplyCoupon validates and snapshots a coupon onto the cart.
func ApplyCoupon(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload cartdto.ApplyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.ApplyCoupon(ctx, middleware.OwnerFromContext(ctx), cartID, payload.Code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

// RemoveCoupon detaches an applied coupon. Removing an absent coupon is a no-op.
func RemoveCoupon(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		couponID, err := pathUUID(r, "couponID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.RemoveCoupon(ctx, middleware.OwnerFromContext(ctx), cartID, couponID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

// SelectShipping marks one quoted option as the cart's shipping choice.
func SelectShipping(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload cartdto.SelectShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.SelectShipping(ctx, middleware.OwnerFromContext(ctx), cartID, payload.OptionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

// RefreshShipping re-quotes the cart's shipping candidates.
func RefreshShipping(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		cartID, err := pathUUID(r, "cartID")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.RefreshShippingOptions(ctx, middleware.OwnerFromContext(ctx), cartID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

// Merge folds a guest cart into the authenticated caller's account cart.
func Merge(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		accountID := middleware.AccountIDFromContext(ctx)
		if accountID == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "merge requires an authenticated account"))
			return
		}

		var payload cartdto.MergeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Merge(ctx, *accountID, payload.GuestSessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartView(record))
	}
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

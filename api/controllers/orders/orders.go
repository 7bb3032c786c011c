package orders

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mvaldezdev/marketcart-backend/api/middleware"
	"github.com/mvaldezdev/marketcart-backend/api/responses"
	ordersvc "github.com/mvaldezdev/marketcart-backend/internal/orders"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
	"github.com/mvaldezdev/marketcart-backend/pkg/pagination"
)

// List returns the caller's orders, newest first, with cursor pagination.
func List(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		params := pagination.Params{Cursor: r.URL.Query().Get("cursor")}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid limit"))
				return
			}
			params.Limit = limit
		}

		page, err := svc.ListOrders(ctx, middleware.OwnerFromContext(ctx), params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// Fetch returns a single order the caller owns.
func Fetch(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := uuid.Parse(chi.URLParam(r, "orderID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid orderID"))
			return
		}

		view, err := svc.GetOrder(ctx, middleware.OwnerFromContext(ctx), orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mvaldezdev/marketcart-backend/api/middleware"
	"github.com/mvaldezdev/marketcart-backend/api/responses"
	checkoutsvc "github.com/mvaldezdev/marketcart-backend/internal/checkout"
	ordersvc "github.com/mvaldezdev/marketcart-backend/internal/orders"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
)

// Checkout converts the named cart into an order in one transaction.
func Checkout(svc *checkoutsvc.Service, orders *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		cartID, err := uuid.Parse(chi.URLParam(r, "cartID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cartID"))
			return
		}

		owner := middleware.OwnerFromContext(ctx)
		order, err := svc.Checkout(ctx, owner, cartID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view, err := orders.GetOrder(ctx, owner, order.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

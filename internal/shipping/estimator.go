package shipping

import (
	"context"

	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
)

// Method names for the built-in rate table.
const (
	MethodStandard  = "standard"
	MethodExpedited = "expedited"
)

// Estimator quotes shipping candidates for a cart. The carrier integration is
// external; this estimator prices from a configured rate table.
type Estimator interface {
	GetEstimates(ctx context.Context, cart *models.Cart) ([]models.CartShippingOption, error)
}

type tableEstimator struct {
	cfg config.ShippingConfig
}

// NewEstimator builds a rate-table estimator from configuration.
func NewEstimator(cfg config.ShippingConfig) Estimator {
	return &tableEstimator{cfg: cfg}
}

func (e *tableEstimator) GetEstimates(_ context.Context, cart *models.Cart) ([]models.CartShippingOption, error) {
	units := 0
	for _, item := range cart.Items {
		units += item.Quantity
	}
	if units == 0 {
		return nil, nil
	}

	return []models.CartShippingOption{
		{
			CartID:        cart.ID,
			Method:        MethodStandard,
			Label:         "Standard (5-8 business days)",
			AmountCents:   e.cfg.StandardBaseCents + e.cfg.StandardPerItem*units,
			EstimatedDays: 8,
		},
		{
			CartID:        cart.ID,
			Method:        MethodExpedited,
			Label:         "Expedited (1-3 business days)",
			AmountCents:   e.cfg.ExpeditedBaseCents + e.cfg.ExpeditedPerItem*units,
			EstimatedDays: 3,
		},
	}, nil
}

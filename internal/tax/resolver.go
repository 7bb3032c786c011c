package tax

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
)

// Resolver maps a jurisdiction code to a flat tax rate.
type Resolver interface {
	GetRate(ctx context.Context, jurisdiction string) (decimal.Decimal, error)
}

type dbResolver struct {
	db          *gorm.DB
	defaultRate decimal.Decimal
}

// NewResolver builds a DB-backed resolver. Jurisdictions without an active
// rate row fall back to the configured default.
func NewResolver(db *gorm.DB, cfg config.TaxConfig) (Resolver, error) {
	if db == nil {
		return nil, fmt.Errorf("tax resolver requires a database")
	}
	rate, err := decimal.NewFromString(cfg.DefaultRate)
	if err != nil {
		return nil, fmt.Errorf("parsing default tax rate %q: %w", cfg.DefaultRate, err)
	}
	return &dbResolver{db: db, defaultRate: rate}, nil
}

func (r *dbResolver) GetRate(ctx context.Context, jurisdiction string) (decimal.Decimal, error) {
	var row models.TaxRate
	err := r.db.WithContext(ctx).
		Where("jurisdiction = ? AND active = ?", jurisdiction, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.defaultRate, nil
	}
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolving tax rate")
	}
	return row.Rate, nil
}

// StaticResolver returns the same rate for every jurisdiction. Used in tests
// and as a degraded-mode fallback.
type StaticResolver struct {
	Rate decimal.Decimal
}

func (s StaticResolver) GetRate(context.Context, string) (decimal.Decimal, error) {
	return s.Rate, nil
}

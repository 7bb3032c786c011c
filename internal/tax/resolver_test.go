package tax

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:tax_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.TaxRate{}))
	return db
}

func TestGetRate(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	resolver, err := NewResolver(db, config.TaxConfig{DefaultRate: "0.05"})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.TaxRate{
		Jurisdiction: "US-CA",
		Rate:         decimal.RequireFromString("0.0875"),
		Active:       true,
	}).Error)
	require.NoError(t, db.Create(&models.TaxRate{
		Jurisdiction: "US-OR",
		Rate:         decimal.RequireFromString("0.10"),
		Active:       false,
	}).Error)

	rate, err := resolver.GetRate(ctx, "US-CA")
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("0.0875")))

	// Inactive rows fall through to the default.
	rate, err = resolver.GetRate(ctx, "US-OR")
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("0.05")))

	rate, err = resolver.GetRate(ctx, "US-UNKNOWN")
	require.NoError(t, err)
	require.True(t, rate.Equal(decimal.RequireFromString("0.05")))
}

func TestNewResolverBadDefault(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, err := NewResolver(db, config.TaxConfig{DefaultRate: "not-a-number"})
	require.Error(t, err)
}

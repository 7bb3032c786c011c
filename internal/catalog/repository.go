package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
)

// Repository reads listings and inventory counts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error)
	FindListingsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error)
	AvailableQuantity(ctx context.Context, listingID uuid.UUID) (int, error)
	AvailableQuantities(ctx context.Context, listingIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindListingByID(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (r *repository) FindListingsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var listings []models.Listing
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

// AvailableQuantity returns the purchasable count for a listing. A listing
// without an inventory row counts as zero stock.
func (r *repository) AvailableQuantity(ctx context.Context, listingID uuid.UUID) (int, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return item.AvailableQty, nil
}

func (r *repository) AvailableQuantities(ctx context.Context, listingIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("listing_id IN ?", listingIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		out[item.ListingID] = item.AvailableQty
	}
	return out, nil
}

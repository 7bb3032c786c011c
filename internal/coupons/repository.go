package coupons

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
)

// Repository reads and updates coupon definitions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error)
	IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupons repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// IncrementUsage bumps use_count if the coupon still has uses left. The
// conditional update keeps two concurrent checkouts from both consuming the
// final use. Returns false when the limit is already exhausted.
func (r *repository) IncrementUsage(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE coupons
		 SET use_count = use_count + 1
		 WHERE id = ? AND (max_uses IS NULL OR use_count < max_uses)`,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

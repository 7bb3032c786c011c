package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
	"github.com/mvaldezdev/marketcart-backend/pkg/enums"
	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

// Repository persists the cart aggregate: the cart row plus its items,
// coupon snapshots, and shipping candidates.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, cart *models.Cart) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindActiveByOwner(ctx context.Context, owner types.CartOwner) (*models.Cart, error)
	FindExpiredActiveCarts(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error)
	UpdateCart(ctx context.Context, cart *models.Cart, fields map[string]any) error

	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItem(ctx context.Context, item *models.CartItem, fields map[string]any) error
	DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error)

	CreateCoupon(ctx context.Context, coupon *models.CartCoupon) error
	UpdateCouponApplied(ctx context.Context, id uuid.UUID, amountCents int) error
	DeleteCoupon(ctx context.Context, cartID, couponID uuid.UUID) (bool, error)

	ReplaceShippingOptions(ctx context.Context, cartID uuid.UUID, options []models.CartShippingOption) error
	SelectShippingOption(ctx context.Context, cartID, optionID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Create(cart).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	return r.findOne(ctx, r.db, "id = ?", id)
}

// FindByIDForUpdate loads the cart graph with a row lock so concurrent
// mutations on the same cart serialize. SQLite has no FOR UPDATE; its single
// writer provides the same guarantee in tests.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	query := r.db
	if r.db.Dialector.Name() == "postgres" {
		query = r.db.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "carts"}})
	}
	return r.findOne(ctx, query, "id = ?", id)
}

func (r *repository) FindActiveByOwner(ctx context.Context, owner types.CartOwner) (*models.Cart, error) {
	if owner.AccountID != nil {
		return r.findOne(ctx, r.db, "account_id = ? AND status = ?", *owner.AccountID, enums.CartStatusActive)
	}
	return r.findOne(ctx, r.db, "session_id = ? AND status = ?", *owner.SessionID, enums.CartStatusActive)
}

// FindExpiredActiveCarts returns active carts whose expiry deadline passed,
// oldest first, for the abandonment sweep.
func (r *repository) FindExpiredActiveCarts(ctx context.Context, cutoff time.Time, limit int) ([]models.Cart, error) {
	var carts []models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND expires_at < ?", enums.CartStatusActive, cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&carts).Error
	if err != nil {
		return nil, err
	}
	return carts, nil
}

func (r *repository) findOne(ctx context.Context, query *gorm.DB, cond string, args ...any) (*models.Cart, error) {
	var cart models.Cart
	err := query.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.created_at ASC")
		}).
		Preload("Coupons", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_coupons.application_order ASC, cart_coupons.applied_at ASC")
		}).
		Preload("ShippingOptions", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_shipping_options.amount_cents ASC")
		}).
		Where(cond, args...).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *repository) UpdateCart(ctx context.Context, cart *models.Cart, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cart.ID).
		Updates(fields).Error
}

func (r *repository) CreateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) UpdateItem(ctx context.Context, item *models.CartItem, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Updates(fields).Error
}

func (r *repository) DeleteItem(ctx context.Context, cartID, itemID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateCoupon(ctx context.Context, coupon *models.CartCoupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *repository) UpdateCouponApplied(ctx context.Context, id uuid.UUID, amountCents int) error {
	return r.db.WithContext(ctx).
		Model(&models.CartCoupon{}).
		Where("id = ?", id).
		Update("amount_applied_cents", amountCents).Error
}

func (r *repository) DeleteCoupon(ctx context.Context, cartID, couponID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("cart_id = ? AND id = ?", cartID, couponID).
		Delete(&models.CartCoupon{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ReplaceShippingOptions swaps the cart's quote set, preserving the selected
// method when the new set still offers it.
func (r *repository) ReplaceShippingOptions(ctx context.Context, cartID uuid.UUID, options []models.CartShippingOption) error {
	var selectedMethod string
	var previous []models.CartShippingOption
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Find(&previous).Error; err != nil {
		return err
	}
	for _, opt := range previous {
		if opt.IsSelected {
			selectedMethod = opt.Method
		}
	}

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartShippingOption{}).Error; err != nil {
		return err
	}
	if len(options) == 0 {
		return nil
	}
	for i := range options {
		options[i].CartID = cartID
		options[i].IsSelected = options[i].Method == selectedMethod && selectedMethod != ""
	}
	return r.db.WithContext(ctx).Create(&options).Error
}

// SelectShippingOption marks one option selected and deselects the rest in a
// single statement pair, so readers never observe two selected rows.
func (r *repository) SelectShippingOption(ctx context.Context, cartID, optionID uuid.UUID) (bool, error) {
	if err := r.db.WithContext(ctx).
		Model(&models.CartShippingOption{}).
		Where("cart_id = ? AND id <> ?", cartID, optionID).
		Update("is_selected", false).Error; err != nil {
		return false, err
	}
	result := r.db.WithContext(ctx).
		Model(&models.CartShippingOption{}).
		Where("cart_id = ? AND id = ?", cartID, optionID).
		Update("is_selected", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

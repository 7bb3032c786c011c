package reservation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
)

// InventoryReservationRequest asks for qty units of a listing on behalf of a
// cart item.
type InventoryReservationRequest struct {
	CartItemID uuid.UUID
	ListingID  uuid.UUID
	Qty        int
}

// InventoryReservationResult reports the per-request outcome. AvailableQty is
// populated on failure so callers can tell the client what is still possible.
type InventoryReservationResult struct {
	CartItemID   uuid.UUID
	ListingID    uuid.UUID
	Qty          int
	Reserved     bool
	Reason       string
	AvailableQty int
}

// ReserveInventory attempts to reserve stock for each request inside the
// caller's transaction. The decrement is conditional on availability at the
// row level, so two transactions racing for the last unit cannot both win.
// A failed request does not stop the remaining ones; callers inspect the
// results and roll back the transaction if any reservation was refused.
func ReserveInventory(ctx context.Context, tx *gorm.DB, requests []InventoryReservationRequest) ([]InventoryReservationResult, error) {
	results := make([]InventoryReservationResult, 0, len(requests))
	for _, req := range requests {
		if req.Qty <= 0 {
			return nil, pkgerrors.New(
				pkgerrors.CodeValidation,
				fmt.Sprintf("reservation quantity must be positive, got %d", req.Qty),
			)
		}

		res := InventoryReservationResult{
			CartItemID: req.CartItemID,
			ListingID:  req.ListingID,
			Qty:        req.Qty,
		}

		update := tx.WithContext(ctx).Exec(
			`UPDATE inventory_items
			 SET available_qty = available_qty - ?,
			     reserved_qty = reserved_qty + ?
			 WHERE listing_id = ? AND available_qty >= ?`,
			req.Qty, req.Qty, req.ListingID, req.Qty,
		)
		if update.Error != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, update.Error, "reserving inventory")
		}

		if update.RowsAffected == 0 {
			available, err := currentAvailability(ctx, tx, req.ListingID)
			if err != nil {
				return nil, err
			}
			res.Reserved = false
			res.Reason = fmt.Sprintf("insufficient stock: requested %d, available %d", req.Qty, available)
			res.AvailableQty = available
		} else {
			res.Reserved = true
		}
		results = append(results, res)
	}
	return results, nil
}

// ReleaseInventory returns previously reserved units to the available pool.
func ReleaseInventory(ctx context.Context, tx *gorm.DB, listingID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("release quantity must be positive, got %d", qty),
		)
	}
	err := tx.WithContext(ctx).Exec(
		`UPDATE inventory_items
		 SET available_qty = available_qty + ?,
		     reserved_qty = reserved_qty - ?
		 WHERE listing_id = ? AND reserved_qty >= ?`,
		qty, qty, listingID, qty,
	).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "releasing inventory")
	}
	return nil
}

func currentAvailability(ctx context.Context, tx *gorm.DB, listingID uuid.UUID) (int, error) {
	var available int
	err := tx.WithContext(ctx).
		Raw(`SELECT available_qty FROM inventory_items WHERE listing_id = ?`, listingID).
		Scan(&available).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading inventory availability")
	}
	return available, nil
}

package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/pagination"
	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

// Service is the read surface over completed orders.
type Service struct {
	repo Repository
}

// ServiceParams wires Service dependencies.
type ServiceParams struct {
	Repo Repository
}

// NewService builds an orders service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders service requires a repository")
	}
	return &Service{repo: params.Repo}, nil
}

// GetOrder loads one order visible to the owner. Orders belonging to someone
// else surface as not-found.
func (s *Service) GetOrder(ctx context.Context, owner types.CartOwner, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if !ownedBy(order.AccountID, order.SessionID, owner) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return toOrderResponse(order), nil
}

// ListOrders pages through the owner's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, owner types.CartOwner, params pagination.Params) (*OrderListResponse, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order owner is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor").
			WithDetails(map[string]any{"cursor": params.Cursor})
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListByOwner(ctx, owner, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	var nextCursor string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	out := make([]OrderResponse, 0, len(rows))
	for i := range rows {
		out = append(out, *toOrderResponse(&rows[i]))
	}
	return &OrderListResponse{Orders: out, NextCursor: nextCursor}, nil
}

func ownedBy(accountID *uuid.UUID, sessionID *string, owner types.CartOwner) bool {
	if owner.AccountID != nil {
		return accountID != nil && *accountID == *owner.AccountID
	}
	if owner.SessionID != nil {
		return sessionID != nil && *sessionID == *owner.SessionID
	}
	return false
}

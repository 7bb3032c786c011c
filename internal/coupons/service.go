package coupons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mvaldezdev/marketcart-backend/pkg/db/models"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
)

// Service resolves coupon codes against business rules.
type Service struct {
	repo Repository
}

// ServiceParams wires Service dependencies.
type ServiceParams struct {
	Repo Repository
}

// NewService builds a coupon service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("coupons service requires a repository")
	}
	return &Service{repo: params.Repo}, nil
}

// WithTx rebinds the service's repository to the given transaction.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{repo: s.repo.WithTx(tx)}
}

// Resolve looks up a code and validates it against the cart subtotal and the
// current time. Rule violations surface as coupon-invalid errors with a
// human-readable reason in the details.
func (s *Service) Resolve(ctx context.Context, code string, subtotalCents int, now time.Time) (*models.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeCouponInvalid, "unknown coupon code").
			WithDetails(map[string]any{"code": code, "reason": "unknown"})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up coupon")
	}

	if reason := rejectionReason(coupon, subtotalCents, now); reason != "" {
		return nil, pkgerrors.New(pkgerrors.CodeCouponInvalid, "coupon cannot be applied").
			WithDetails(map[string]any{"code": code, "reason": reason})
	}
	return coupon, nil
}

func rejectionReason(coupon *models.Coupon, subtotalCents int, now time.Time) string {
	switch {
	case !coupon.Active:
		return "inactive"
	case coupon.StartsAt != nil && now.Before(*coupon.StartsAt):
		return "not_started"
	case coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt):
		return "expired"
	case coupon.MaxUses != nil && coupon.UseCount >= *coupon.MaxUses:
		return "use_limit_exhausted"
	case subtotalCents < coupon.MinSubtotalCents:
		return "below_minimum_purchase"
	}
	return ""
}

package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/mvaldezdev/marketcart-backend/pkg/types"
)

type contextKey string

const (
	ctxAccountID contextKey = "account_id"
	ctxSessionID contextKey = "session_id"
)

// AccountIDFromContext returns the authenticated account, if any.
func AccountIDFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxAccountID).(uuid.UUID); ok {
		return &v
	}
	return nil
}

// SessionIDFromContext returns the guest session identifier, if any.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// OwnerFromContext derives the effective cart owner. An authenticated account
// always wins over a guest session header.
func OwnerFromContext(ctx context.Context) types.CartOwner {
	if accountID := AccountIDFromContext(ctx); accountID != nil {
		return types.AccountOwner(*accountID)
	}
	if sessionID := SessionIDFromContext(ctx); sessionID != "" {
		return types.GuestOwner(sessionID)
	}
	return types.CartOwner{}
}

// WithAccountID injects the account identifier into the context.
func WithAccountID(ctx context.Context, accountID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAccountID, accountID)
}

// WithSessionID injects the guest session identifier into the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, sessionID)
}

package types

import "github.com/google/uuid"

// OwnerKind distinguishes authenticated accounts from guest sessions.
type OwnerKind string

const (
	OwnerKindAccount OwnerKind = "account"
	OwnerKindGuest   OwnerKind = "guest"
)

// CartOwner identifies who a cart belongs to. Exactly one of AccountID or
// SessionID is set.
type CartOwner struct {
	AccountID *uuid.UUID
	SessionID *string
}

// Kind reports whether the owner is an account or a guest session.
func (o CartOwner) Kind() OwnerKind {
	if o.AccountID != nil {
		return OwnerKindAccount
	}
	return OwnerKindGuest
}

// IsZero reports whether no identity is attached.
func (o CartOwner) IsZero() bool {
	return o.AccountID == nil && o.SessionID == nil
}

// Equal reports whether two owners identify the same party.
func (o CartOwner) Equal(other CartOwner) bool {
	if o.AccountID != nil && other.AccountID != nil {
		return *o.AccountID == *other.AccountID
	}
	if o.SessionID != nil && other.SessionID != nil {
		return *o.SessionID == *other.SessionID
	}
	return false
}

// AccountOwner builds an account-backed owner.
func AccountOwner(accountID uuid.UUID) CartOwner {
	return CartOwner{AccountID: &accountID}
}

// GuestOwner builds a guest-session owner.
func GuestOwner(sessionID string) CartOwner {
	return CartOwner{SessionID: &sessionID}
}

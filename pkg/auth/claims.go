package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the shape of the JWT the edge issues for signed-in
// buyers. The cart service only verifies these tokens; it never mints them for
// real traffic.
type AccessTokenClaims struct {
	AccountID uuid.UUID `json:"account_id"`
	jwt.RegisteredClaims
}

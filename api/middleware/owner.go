package middleware

import (
	"net/http"
	"strings"

	"github.com/mvaldezdev/marketcart-backend/api/responses"
	pkgauth "github.com/mvaldezdev/marketcart-backend/pkg/auth"
	"github.com/mvaldezdev/marketcart-backend/pkg/config"
	pkgerrors "github.com/mvaldezdev/marketcart-backend/pkg/errors"
	"github.com/mvaldezdev/marketcart-backend/pkg/logger"
)

const guestSessionHeader = "X-Guest-Session"

// Owner resolves the caller identity for cart routes. A bearer token marks the
// caller as a signed-in account; a guest session header marks an anonymous
// buyer. Both may be present at once, which the merge flow relies on. A bad
// token always fails, even when a guest header could have served.
func Owner(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw != "" {
				token := raw
				if strings.HasPrefix(strings.ToLower(token), "bearer ") {
					token = strings.TrimSpace(token[7:])
				}
				if token == "" {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				claims, err := pkgauth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				ctx = WithAccountID(ctx, claims.AccountID)
				if logg != nil {
					ctx = logg.WithAccountID(ctx, claims.AccountID.String())
				}
			}

			if sessionID := strings.TrimSpace(r.Header.Get(guestSessionHeader)); sessionID != "" {
				ctx = WithSessionID(ctx, sessionID)
				if logg != nil {
					ctx = logg.WithSessionID(ctx, sessionID)
				}
			}

			if OwnerFromContext(ctx).IsZero() {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account token or guest session required"))
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

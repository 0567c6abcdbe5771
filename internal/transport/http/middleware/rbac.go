package middleware

import (
	"context"
	"net/http"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Gate is satisfied by *account.Authorizer.
type Gate interface {
	Check(ctx context.Context, id account.Identity) (domain.User, error)
}

// Authorize resolves the identity placed by Authenticate against the store
// and lets the request through only if gate permits the user's role.
func Authorize(gate Gate, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				// Authenticate not mounted in front of this route
				writeErr(w, r, domain.ErrUnauthorized())
				return
			}

			u, err := gate.Check(r.Context(), id)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

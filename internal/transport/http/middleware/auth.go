package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type TokenVerifier interface {
	Verify(token string) (account.Identity, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Authenticate verifies Authorization: Bearer <access_token> and puts the
// token identity into the request context.
func Authenticate(verifier TokenVerifier, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				writeErr(w, r, domain.ErrTokenMissing())
				return
			}

			scheme, raw, ok := strings.Cut(h, " ")
			raw = strings.TrimSpace(raw)
			if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
				writeErr(w, r, domain.ErrTokenInvalid(errors.New("malformed authorization header")))
				return
			}

			id, err := verifier.Verify(raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

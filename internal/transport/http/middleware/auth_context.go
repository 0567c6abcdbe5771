package middleware

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type ctxKey string

const (
	ctxIdentity ctxKey = "identity"
	ctxUser     ctxKey = "user"
)

func WithIdentity(ctx context.Context, id account.Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFromContext(ctx context.Context) (account.Identity, bool) {
	v, ok := ctx.Value(ctxIdentity).(account.Identity)
	return v, ok && v.Email != ""
}

// WithUser stores the user resolved by Authorize.
func WithUser(ctx context.Context, u domain.User) context.Context {
	return context.WithValue(ctx, ctxUser, u)
}

func UserFromContext(ctx context.Context) (domain.User, bool) {
	v, ok := ctx.Value(ctxUser).(domain.User)
	return v, ok && v.ID != 0
}

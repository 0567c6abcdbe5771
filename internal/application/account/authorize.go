package account

import (
	"context"
	"slices"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Authorizer is a reusable role check bound to one required set.
type Authorizer struct {
	lookup  UserLookup
	allowed []domain.Role
}

// Require binds a role set. domain.RoleAny in the set admits every
// resolved user regardless of role.
func Require(lookup UserLookup, allowed ...domain.Role) *Authorizer {
	return &Authorizer{
		lookup:  lookup,
		allowed: slices.Clone(allowed),
	}
}

func (a *Authorizer) Allowed() []domain.Role { return slices.Clone(a.allowed) }

// Check resolves a verified identity to its account and tests the role.
func (a *Authorizer) Check(ctx context.Context, id Identity) (domain.User, error) {
	u, err := Resolve(ctx, a.lookup, id)
	if err != nil {
		return domain.User{}, err
	}
	if !Permits(a.allowed, u.RoleID) {
		return domain.User{}, domain.ErrForbidden(domain.JoinRoles(a.allowed))
	}
	return u, nil
}

// Resolve maps token claims to the stored account. A missing account, or
// one whose id no longer matches the token, is unauthorized.
func Resolve(ctx context.Context, lookup UserLookup, id Identity) (domain.User, error) {
	if id.Email == "" {
		return domain.User{}, domain.ErrMissingIdentity()
	}
	u, err := lookup.GetByEmail(ctx, domain.NormalizeEmail(id.Email))
	if err != nil {
		if domain.Is(err, domain.CodeUserNotFound) {
			return domain.User{}, domain.ErrUnauthorized()
		}
		return domain.User{}, err
	}
	if id.UserID != 0 && u.ID != id.UserID {
		return domain.User{}, domain.ErrUnauthorized()
	}
	return u, nil
}

// Permits reports whether role satisfies the allowed set.
func Permits(allowed []domain.Role, role domain.Role) bool {
	if slices.Contains(allowed, domain.RoleAny) {
		return true
	}
	return role.Valid() && slices.Contains(allowed, role)
}

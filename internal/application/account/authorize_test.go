package account

import (
	"context"
	"errors"
	"testing"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func TestPermits(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		allowed []domain.Role
		role    domain.Role
		ok      bool
	}{
		{"admin in admin set", []domain.Role{domain.RoleAdmin}, domain.RoleAdmin, true},
		{"viewer in admin set", []domain.Role{domain.RoleAdmin}, domain.RoleViewer, false},
		{"any admits viewer", []domain.Role{domain.RoleAny}, domain.RoleViewer, true},
		{"any admits developer", []domain.Role{domain.RoleAny}, domain.RoleDeveloper, true},
		{"multi set", []domain.Role{domain.RoleEditor, domain.RoleSupport}, domain.RoleSupport, true},
		{"empty set", nil, domain.RoleAdmin, false},
		{"unknown role", []domain.Role{domain.RoleAdmin}, domain.Role(99), false},
	}
	for _, c := range cases {
		if got := Permits(c.allowed, c.role); got != c.ok {
			t.Fatalf("%s: Permits=%v want %v", c.name, got, c.ok)
		}
	}
}

func TestAuthorizer_Check(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	admin := repo.put(domain.User{Email: "admin@x.com", RoleID: domain.RoleAdmin, IsActive: true})
	viewer := repo.put(domain.User{Email: "viewer@x.com", RoleID: domain.RoleViewer, IsActive: true})

	adminOnly := Require(repo, domain.RoleAdmin)
	anyone := Require(repo, domain.RoleAny)
	ctx := context.Background()

	u, err := adminOnly.Check(ctx, Identity{UserID: admin.ID, Email: admin.Email})
	if err != nil || u.ID != admin.ID {
		t.Fatalf("admin should pass: %+v %v", u, err)
	}

	_, err = adminOnly.Check(ctx, Identity{UserID: viewer.ID, Email: viewer.Email})
	requireDomainCode(t, err, domain.CodeForbidden)
	var de *domain.Error
	if !errors.As(err, &de) || de.Meta["required"] != "ADMIN" {
		t.Fatalf("expected required meta, got %v", err)
	}

	u, err = anyone.Check(ctx, Identity{UserID: viewer.ID, Email: viewer.Email})
	if err != nil || u.ID != viewer.ID {
		t.Fatalf("ANY should pass viewer: %+v %v", u, err)
	}
}

func TestAuthorizer_Check_UnresolvedIdentity(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	u := repo.put(domain.User{Email: "a@x.com", RoleID: domain.RoleAdmin})
	gate := Require(repo, domain.RoleAny)
	ctx := context.Background()

	_, err := gate.Check(ctx, Identity{UserID: 7, Email: "ghost@x.com"})
	requireDomainCode(t, err, domain.CodeUnauthorized)

	// email now belongs to a different id than the token claims
	_, err = gate.Check(ctx, Identity{UserID: u.ID + 1, Email: u.Email})
	requireDomainCode(t, err, domain.CodeUnauthorized)

	_, err = gate.Check(ctx, Identity{UserID: u.ID})
	requireDomainCode(t, err, domain.CodeMissingIdentity)
}

func TestAuthorizer_Check_LookupFailure_NotMaskedAsUnauthorized(t *testing.T) {
	t.Parallel()

	repo := newFakeUserRepo()
	repo.getByEmailErr = domain.ErrDBUnavailable(errors.New("down"))

	_, err := Require(repo, domain.RoleAny).Check(context.Background(), Identity{Email: "a@x.com"})
	requireDomainCode(t, err, domain.CodeDBUnavailable)
}

func TestRequire_CopiesAllowedSet(t *testing.T) {
	t.Parallel()

	set := []domain.Role{domain.RoleAdmin}
	gate := Require(newFakeUserRepo(), set...)
	set[0] = domain.RoleViewer

	if got := gate.Allowed(); len(got) != 1 || got[0] != domain.RoleAdmin {
		t.Fatalf("gate must not alias caller slice: %v", got)
	}
}

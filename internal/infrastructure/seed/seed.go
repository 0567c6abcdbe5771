package seed

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

type SeedUser struct {
	Email    string
	Username string
	Password string
	Role     domain.Role
}

// DevSeeds are active accounts, one per role, for local development only.
var DevSeeds = []SeedUser{
	{Email: "admin@example.com", Username: "admin", Password: "AdminPassword123", Role: domain.RoleAdmin},
	{Email: "editor@example.com", Username: "editor", Password: "EditorPassword123", Role: domain.RoleEditor},
	{Email: "support@example.com", Username: "support", Password: "SupportPassword123", Role: domain.RoleSupport},
	{Email: "viewer@example.com", Username: "viewer", Password: "ViewerPassword123", Role: domain.RoleViewer},
	{Email: "developer@example.com", Username: "developer", Password: "DeveloperPassword123", Role: domain.RoleDeveloper},
}

// SeedUsers creates the given accounts and returns how many were new.
// Existing emails are skipped so restarts are safe.
func SeedUsers(ctx context.Context, repo SeederRepo, hasher SeederHasher, seeds []SeedUser, log zerolog.Logger) int {
	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Password)
		if err != nil {
			log.Warn().Err(err).Str("email", s.Email).Msg("seed: hash failed")
			continue
		}

		_, err = repo.Create(ctx, domain.User{
			Email:        s.Email,
			Username:     s.Username,
			PasswordHash: hash,
			IsActive:     true,
			RoleID:       s.Role,
		})
		if err != nil {
			if !domain.Is(err, domain.CodeEmailAlreadyExists) {
				log.Warn().Err(err).Str("email", s.Email).Msg("seed: create failed")
			}
			continue
		}
		created++
	}

	log.Info().Int("created", created).Msg("seed: users seeded")
	return created
}

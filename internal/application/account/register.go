package account

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Register creates an inactive VIEWER account. Duplicate emails are
// detected by the store's unique constraint, not by a lookup beforehand.
func (s *Service) Register(ctx context.Context, email, username, password string) (domain.User, error) {
	const action = "account.register"

	email = domain.NormalizeEmail(email)
	username = strings.TrimSpace(username)

	if email == "" {
		return domain.User{}, domain.ErrMissingField("email")
	}
	if username == "" {
		return domain.User{}, domain.ErrMissingField("username")
	}
	if password == "" {
		return domain.User{}, domain.ErrMissingField("password")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, hashError(err)
	}

	var created domain.User
	err = s.tx.WithTx(ctx, func(tx UserRepo) error {
		u, err := tx.Create(ctx, domain.User{
			Email:        email,
			Username:     username,
			PasswordHash: hash,
			IsActive:     false,
			RoleID:       domain.DefaultRole,
		})
		if err != nil {
			return err
		}
		created = u
		return nil
	})
	if err != nil {
		s.audit(action, map[string]string{
			"result":     "error",
			"error_code": domainCode(err),
		})
		return domain.User{}, err
	}

	s.audit(action, map[string]string{
		"result":  "success",
		"user_id": idString(created.ID),
	})
	s.publish(ctx, EventRegistered, created)
	return created, nil
}

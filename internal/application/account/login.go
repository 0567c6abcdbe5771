package account

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Authenticate checks, in order: the account exists, it is active, the
// password matches. An inactive account is rejected before the password is
// looked at.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.User{}, domain.ErrUserNotFound()
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if !u.IsActive {
		return domain.User{}, domain.ErrInactiveAccount()
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return domain.User{}, domain.ErrInvalidCredentials()
	}
	return u, nil
}

// Login authenticates and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const action = "account.login"

	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		s.audit(action, map[string]string{
			"result":     "error",
			"email":      domain.NormalizeEmail(email),
			"error_code": domainCode(err),
		})
		return LoginResult{}, err
	}

	tok, err := s.tokens.Issue(u)
	if err != nil {
		return LoginResult{}, err
	}

	s.audit(action, map[string]string{
		"result":  "success",
		"user_id": idString(u.ID),
		"email":   u.Email,
	})
	return LoginResult{
		User: u,
		Token: AccessToken{
			Token:     tok,
			TokenType: "bearer",
			ExpiresIn: int64(s.tokens.TTL().Seconds()),
		},
	}, nil
}

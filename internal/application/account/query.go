package account

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

func (s *Service) GetUser(ctx context.Context, userID int64) (domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListUsers returns every account ordered by id.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

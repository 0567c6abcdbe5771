package account

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Activate marks the account active. Activating an active account is a
// successful no-op.
func (s *Service) Activate(ctx context.Context, userID int64) (domain.User, error) {
	return s.setActive(ctx, userID, true)
}

// Deactivate is the inverse of Activate and equally idempotent.
func (s *Service) Deactivate(ctx context.Context, userID int64) (domain.User, error) {
	return s.setActive(ctx, userID, false)
}

func (s *Service) setActive(ctx context.Context, userID int64, active bool) (domain.User, error) {
	action, evt := "account.deactivate", EventDeactivated
	if active {
		action, evt = "account.activate", EventActivated
	}

	changed := false
	var out domain.User
	err := s.tx.WithTx(ctx, func(tx UserRepo) error {
		u, err := tx.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.IsActive == active {
			out = u
			return nil
		}

		u.IsActive = active
		out, err = tx.Save(ctx, u)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		s.audit(action, map[string]string{
			"target_id":  idString(userID),
			"result":     "error",
			"error_code": domainCode(err),
		})
		return domain.User{}, err
	}

	result := "noop"
	if changed {
		result = "success"
	}
	s.audit(action, map[string]string{
		"target_id": idString(userID),
		"result":    result,
	})
	if changed {
		s.publish(ctx, evt, out)
	}
	return out, nil
}

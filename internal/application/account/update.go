package account

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// Update replaces username and password together in one write.
func (s *Service) Update(ctx context.Context, userID int64, newUsername, newPassword string) (domain.User, error) {
	const action = "account.update"

	newUsername = strings.TrimSpace(newUsername)
	if newUsername == "" {
		return domain.User{}, domain.ErrMissingField("username")
	}
	if newPassword == "" {
		return domain.User{}, domain.ErrMissingField("password")
	}

	audit := func(result string, err error) {
		fields := map[string]string{
			"target_id": idString(userID),
			"result":    result,
		}
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		s.audit(action, fields)
	}

	// bcrypt runs before the transaction opens
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		err = hashError(err)
		audit("error", err)
		return domain.User{}, err
	}

	var updated domain.User
	err = s.tx.WithTx(ctx, func(tx UserRepo) error {
		u, err := tx.GetByID(ctx, userID)
		if err != nil {
			return err
		}

		u.Username = newUsername
		u.PasswordHash = hash
		updated, err = tx.Save(ctx, u)
		return err
	})
	if err != nil {
		audit("error", err)
		return domain.User{}, err
	}

	audit("success", nil)
	s.publish(ctx, EventUpdated, updated)
	return updated, nil
}

// CanManage allows admins to act on any account and everyone else only on
// their own.
func CanManage(actor domain.User, targetID int64) error {
	if actor.RoleID == domain.RoleAdmin || actor.ID == targetID {
		return nil
	}
	return domain.ErrForbidden(domain.RoleAdmin.String())
}

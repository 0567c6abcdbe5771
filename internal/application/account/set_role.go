package account

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// SetRole assigns a catalog role. Only admins may call it, and an admin
// cannot change their own role.
func (s *Service) SetRole(ctx context.Context, actor domain.User, targetID int64, role domain.Role) (domain.User, error) {
	const action = "admin.set_user_role"

	audit := func(result string, err error, extra map[string]string) {
		fields := map[string]string{
			"actor_id":   idString(actor.ID),
			"actor_role": actor.RoleID.String(),
			"target_id":  idString(targetID),
			"result":     result,
		}
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		for k, v := range extra {
			fields[k] = v
		}
		s.audit(action, fields)
	}

	if !role.Valid() {
		err := domain.ErrInvalidRole(role.String())
		audit("error", err, nil)
		return domain.User{}, err
	}

	// checked again here so the rule holds for callers other than HTTP
	if actor.RoleID != domain.RoleAdmin {
		err := domain.ErrForbidden(domain.RoleAdmin.String())
		audit("error", err, nil)
		return domain.User{}, err
	}
	if actor.ID == targetID {
		err := domain.WithMeta(domain.ErrForbidden(domain.RoleAdmin.String()), map[string]string{
			"reason": "cannot change own role",
		})
		audit("error", err, nil)
		return domain.User{}, err
	}

	var (
		oldRole domain.Role
		updated domain.User
	)
	err := s.tx.WithTx(ctx, func(tx UserRepo) error {
		u, err := tx.GetByID(ctx, targetID)
		if err != nil {
			return err
		}
		oldRole = u.RoleID
		if u.RoleID == role {
			updated = u
			return nil
		}
		u.RoleID = role
		updated, err = tx.Save(ctx, u)
		return err
	})
	if err != nil {
		audit("error", err, nil)
		return domain.User{}, err
	}

	audit("success", nil, map[string]string{
		"old_role": oldRole.String(),
		"new_role": role.String(),
	})
	if oldRole != role {
		s.publish(ctx, EventRoleChanged, updated)
	}
	return updated, nil
}

package postgres

import (
	"time"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

type userRow struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
	RoleID       int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const userColumns = `id, email, username, password_hash, is_active, role_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row rowScanner) (userRow, error) {
	var ur userRow
	err := row.Scan(
		&ur.ID,
		&ur.Email,
		&ur.Username,
		&ur.PasswordHash,
		&ur.IsActive,
		&ur.RoleID,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	)
	return ur, err
}

func toDomainUser(ur userRow) domain.User {
	return domain.User{
		ID:           ur.ID,
		Email:        ur.Email,
		Username:     ur.Username,
		PasswordHash: ur.PasswordHash,
		IsActive:     ur.IsActive,
		RoleID:       domain.Role(ur.RoleID),
		CreatedAt:    ur.CreatedAt,
		UpdatedAt:    ur.UpdatedAt,
	}
}

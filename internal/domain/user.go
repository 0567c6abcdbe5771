package domain

import (
	"strings"
	"time"
)

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	IsActive     bool
	RoleID       Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NormalizeEmail is the canonical form used for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

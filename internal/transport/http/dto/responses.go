package dto

import (
	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
)

// UserView is the public shape of a user. It never carries the password hash.
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
	Role     string `json:"role"`
}

func NewUserView(u domain.User) UserView {
	return UserView{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		IsActive: u.IsActive,
		Role:     u.RoleID.String(),
	}
}

func NewUserViews(users []domain.User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserView(u))
	}
	return out
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func NewTokenResponse(t account.AccessToken) TokenResponse {
	return TokenResponse{
		AccessToken: t.Token,
		TokenType:   t.TokenType,
		ExpiresIn:   t.ExpiresIn,
	}
}

// RoleView lists one entry of the role catalog.
type RoleView struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func NewRoleViews(roles []domain.RoleInfo) []RoleView {
	out := make([]RoleView, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleView{ID: int(r.ID), Name: r.Name, Description: r.Description})
	}
	return out
}

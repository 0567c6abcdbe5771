package dto

import "strings"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72,max_bytes=72,password_strength"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
	return Validate(r)
}

// LoginRequest only checks presence. Anything else is answered with
// invalid_credentials by the handler.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return Validate(r)
}

type UpdateUserRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72,max_bytes=72,password_strength"`
}

func (r *UpdateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	return Validate(r)
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,role_name"`
}

func (r *SetRoleRequest) Validate() error {
	r.Role = strings.TrimSpace(r.Role)
	return Validate(r)
}

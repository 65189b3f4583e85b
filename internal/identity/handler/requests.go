package handler

import (
	"strings"

	"revenuehub/internal/identity/models"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = models.NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "current_password is required")
	}
	if r.NewPassword == "" {
		return dErrors.New(dErrors.CodeValidation, "new_password is required")
	}
	return nil
}

type CreateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	District string `json:"district"`
	Region   string `json:"region"`
	Phone    string `json:"phone"`
	Password string `json:"password"`

	role id.Role
}

func (r *CreateUserRequest) Normalize() {
	r.Email = models.NormalizeEmail(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.District = strings.TrimSpace(r.District)
	r.Region = strings.TrimSpace(r.Region)
	r.Phone = strings.TrimSpace(r.Phone)
}

func (r *CreateUserRequest) Validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.role = role
	return nil
}

type ChangeStatusRequest struct {
	Status string `json:"status"`

	status models.UserStatus
}

func (r *ChangeStatusRequest) Validate() error {
	status, err := models.ParseUserStatus(r.Status)
	if err != nil {
		return err
	}
	r.status = status
	return nil
}

type ChangeRoleRequest struct {
	Role string `json:"role"`

	role id.Role
}

func (r *ChangeRoleRequest) Validate() error {
	role, err := id.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.role = role
	return nil
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int            `json:"total"`
}

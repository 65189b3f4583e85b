package models

import (
	"strings"
	"time"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

// User is a staff member or business owner who signs in to the system.
//
// Invariants:
//   - Email is non-empty, lower-case and unique
//   - Role is one of the supported roles
//   - Restricted roles carry a district (regional_admin a region instead)
type User struct {
	ID           id.UserID  `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         id.Role    `json:"role"`
	District     string     `json:"district,omitempty"`
	Region       string     `json:"region,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Status       UserStatus `json:"status"`
	PasswordHash string     `json:"-"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

// ParseUserStatus constructs a UserStatus from external input.
func ParseUserStatus(s string) (UserStatus, error) {
	st := UserStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "status must be active, inactive or suspended")
	}
	return st, nil
}

// JurisdictionDistrict makes users filterable by the jurisdiction filter.
func (u *User) JurisdictionDistrict() string {
	return u.District
}

func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// CanChangeStatus rejects no-op transitions.
func (u *User) CanChangeStatus(target UserStatus) error {
	if !target.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid user status")
	}
	if u.Status == target {
		return dErrors.New(dErrors.CodeInvariantViolation, "user already has status "+string(target))
	}
	return nil
}

func (u *User) ApplyStatus(target UserStatus, now time.Time) {
	u.Status = target
	u.UpdatedAt = now
}

// CanChangeRole rejects unknown and unchanged roles.
func (u *User) CanChangeRole(role id.Role) error {
	if !role.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	if u.Role == role {
		return dErrors.New(dErrors.CodeInvariantViolation, "user already has role "+string(role))
	}
	return nil
}

func (u *User) ApplyRole(role id.Role, now time.Time) {
	u.Role = role
	u.UpdatedAt = now
}

func (u *User) ApplyPassword(hash string, now time.Time) {
	u.PasswordHash = hash
	u.UpdatedAt = now
}

func (u *User) RecordLogin(now time.Time) {
	u.LastLoginAt = &now
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewUser validates and constructs an active user.
func NewUser(userID id.UserID, email, name string, role id.Role, district, region, passwordHash string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a valid email is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name cannot be empty")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	return &User{
		ID:           userID,
		Email:        email,
		Name:         name,
		Role:         role,
		District:     strings.TrimSpace(district),
		Region:       strings.TrimSpace(region),
		Status:       UserStatusActive,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

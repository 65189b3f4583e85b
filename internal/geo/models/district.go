package models

import (
	"strings"
	"time"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

// District is a Metropolitan, Municipal or District Assembly (MMDA).
//
// Invariants:
//   - Name and Region are non-empty
//   - Code is non-empty, upper-case and unique across districts
//   - Status transitions: active <-> inactive only
type District struct {
	ID           id.DistrictID  `json:"id"`
	Name         string         `json:"name"`
	Code         string         `json:"code"`
	Region       string         `json:"region"`
	ContactEmail string         `json:"contact_email,omitempty"`
	ContactPhone string         `json:"contact_phone,omitempty"`
	Address      string         `json:"address,omitempty"`
	Status       DistrictStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type DistrictStatus string

const (
	DistrictStatusActive   DistrictStatus = "active"
	DistrictStatusInactive DistrictStatus = "inactive"
)

func (s DistrictStatus) IsValid() bool {
	return s == DistrictStatusActive || s == DistrictStatusInactive
}

// CanTransitionTo reports whether moving from s to target is a real change.
func (s DistrictStatus) CanTransitionTo(target DistrictStatus) bool {
	return s.IsValid() && target.IsValid() && s != target
}

// JurisdictionDistrict makes districts filterable like every other record.
func (d *District) JurisdictionDistrict() string {
	return d.Name
}

func (d *District) IsActive() bool {
	return d.Status == DistrictStatusActive
}

// CanDeactivate checks if the district can transition to inactive status.
func (d *District) CanDeactivate() error {
	if !d.Status.CanTransitionTo(DistrictStatusInactive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "district is already inactive")
	}
	return nil
}

func (d *District) ApplyDeactivation(now time.Time) {
	d.Status = DistrictStatusInactive
	d.UpdatedAt = now
}

// CanReactivate checks if the district can transition to active status.
func (d *District) CanReactivate() error {
	if !d.Status.CanTransitionTo(DistrictStatusActive) {
		return dErrors.New(dErrors.CodeInvariantViolation, "district is already active")
	}
	return nil
}

func (d *District) ApplyReactivation(now time.Time) {
	d.Status = DistrictStatusActive
	d.UpdatedAt = now
}

// DistrictUpdate carries the editable fields. Nil pointers are left unchanged.
// Name and region are fixed once created since every record keys on the name.
type DistrictUpdate struct {
	Code         *string
	ContactEmail *string
	ContactPhone *string
	Address      *string
}

// Validate checks the update before it is applied.
func (u DistrictUpdate) Validate() error {
	if u.Code != nil && NormalizeCode(*u.Code) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "district code cannot be empty")
	}
	return nil
}

// ApplyUpdate applies u. Call Validate first.
func (d *District) ApplyUpdate(u DistrictUpdate, now time.Time) {
	if u.Code != nil {
		d.Code = NormalizeCode(*u.Code)
	}
	if u.ContactEmail != nil {
		d.ContactEmail = strings.TrimSpace(*u.ContactEmail)
	}
	if u.ContactPhone != nil {
		d.ContactPhone = strings.TrimSpace(*u.ContactPhone)
	}
	if u.Address != nil {
		d.Address = strings.TrimSpace(*u.Address)
	}
	d.UpdatedAt = now
}

// NormalizeCode upper-cases and trims a district code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NewDistrict(districtID id.DistrictID, name, code, region string, now time.Time) (*District, error) {
	name = strings.TrimSpace(name)
	region = strings.TrimSpace(region)
	code = NormalizeCode(code)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "district name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "district name must be 128 characters or less")
	}
	if code == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "district code cannot be empty")
	}
	if region == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "district region cannot be empty")
	}
	return &District{
		ID:        districtID,
		Name:      name,
		Code:      code,
		Region:    region,
		Status:    DistrictStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

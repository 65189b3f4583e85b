package models

import (
	"strings"
	"time"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

// Business is a revenue-paying entity registered with a district assembly.
//
// Invariants:
//   - Code is unique and never changes after registration
//   - District is fixed at registration
//   - Name, OwnerName, Category and Phone are non-empty
type Business struct {
	ID               id.BusinessID  `json:"id"`
	Code             string         `json:"business_code"`
	Name             string         `json:"name"`
	OwnerName        string         `json:"owner_name"`
	OwnerUserID      *id.UserID     `json:"owner_user_id,omitempty"`
	Category         string         `json:"category"`
	Phone            string         `json:"phone"`
	Email            string         `json:"email,omitempty"`
	GPSLocation      string         `json:"gps_location,omitempty"`
	PhysicalAddress  string         `json:"physical_address,omitempty"`
	Status           BusinessStatus `json:"status"`
	RegistrationDate time.Time      `json:"registration_date"`
	LastPaymentAt    *time.Time     `json:"last_payment,omitempty"`
	License          string         `json:"business_license,omitempty"`
	TIN              string         `json:"tin_number,omitempty"`
	District         string         `json:"district"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type BusinessStatus string

const (
	BusinessStatusActive    BusinessStatus = "active"
	BusinessStatusInactive  BusinessStatus = "inactive"
	BusinessStatusSuspended BusinessStatus = "suspended"
	BusinessStatusPending   BusinessStatus = "pending"
)

func (s BusinessStatus) IsValid() bool {
	switch s {
	case BusinessStatusActive, BusinessStatusInactive, BusinessStatusSuspended, BusinessStatusPending:
		return true
	}
	return false
}

func ParseBusinessStatus(s string) (BusinessStatus, error) {
	st := BusinessStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "status must be active, inactive, suspended or pending")
	}
	return st, nil
}

func (b *Business) JurisdictionDistrict() string {
	return b.District
}

// OwnedBy reports whether userID is the linked owner account.
func (b *Business) OwnedBy(userID id.UserID) bool {
	return b.OwnerUserID != nil && *b.OwnerUserID == userID
}

// CanAcceptPayments is false for suspended and inactive businesses.
func (b *Business) CanAcceptPayments() bool {
	return b.Status == BusinessStatusActive || b.Status == BusinessStatusPending
}

// RecordPayment moves the last payment date forward; older dates are ignored.
func (b *Business) RecordPayment(at time.Time) {
	if b.LastPaymentAt == nil || at.After(*b.LastPaymentAt) {
		b.LastPaymentAt = &at
	}
}

// BusinessUpdate carries the editable fields. Nil fields are left unchanged.
type BusinessUpdate struct {
	Name            *string
	OwnerName       *string
	OwnerUserID     *id.UserID
	Category        *string
	Phone           *string
	Email           *string
	GPSLocation     *string
	PhysicalAddress *string
	License         *string
	TIN             *string
	Status          *BusinessStatus
}

func (u BusinessUpdate) IsEmpty() bool {
	return u.Name == nil && u.OwnerName == nil && u.OwnerUserID == nil && u.Category == nil &&
		u.Phone == nil && u.Email == nil && u.GPSLocation == nil && u.PhysicalAddress == nil &&
		u.License == nil && u.TIN == nil && u.Status == nil
}

// Validate rejects updates that would blank a required field.
func (u BusinessUpdate) Validate() error {
	for field, v := range map[string]*string{"name": u.Name, "owner_name": u.OwnerName, "category": u.Category, "phone": u.Phone} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return dErrors.New(dErrors.CodeInvariantViolation, field+" cannot be empty")
		}
	}
	if u.Status != nil && !u.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid business status")
	}
	return nil
}

func (b *Business) ApplyUpdate(u BusinessUpdate, now time.Time) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&b.Name, u.Name)
	set(&b.OwnerName, u.OwnerName)
	set(&b.Category, u.Category)
	set(&b.Phone, u.Phone)
	set(&b.Email, u.Email)
	set(&b.GPSLocation, u.GPSLocation)
	set(&b.PhysicalAddress, u.PhysicalAddress)
	set(&b.License, u.License)
	set(&b.TIN, u.TIN)
	if u.OwnerUserID != nil {
		owner := *u.OwnerUserID
		b.OwnerUserID = &owner
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	b.UpdatedAt = now
}

// NewBusiness validates and constructs a business. An empty status defaults
// to active.
func NewBusiness(businessID id.BusinessID, code, name, ownerName, category, phone, district string, status BusinessStatus, now time.Time) (*Business, error) {
	name = strings.TrimSpace(name)
	ownerName = strings.TrimSpace(ownerName)
	category = strings.TrimSpace(category)
	phone = strings.TrimSpace(phone)
	switch {
	case name == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name cannot be empty")
	case ownerName == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "owner name cannot be empty")
	case category == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "category cannot be empty")
	case phone == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "phone cannot be empty")
	case district == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "district cannot be empty")
	}
	if status == "" {
		status = BusinessStatusActive
	}
	if !status.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid business status")
	}
	return &Business{
		ID:               businessID,
		Code:             code,
		Name:             name,
		OwnerName:        ownerName,
		Category:         category,
		Phone:            phone,
		Status:           status,
		RegistrationDate: now,
		District:         district,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

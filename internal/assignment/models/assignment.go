package models

import (
	"strings"
	"time"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

// Assignment puts a collector on a business or a zone for a period.
//
// Invariants:
//   - at least one of BusinessID and Zone is set
//   - EndDate, when set, is not before StartDate
type Assignment struct {
	ID          id.AssignmentID `json:"id"`
	Code        string          `json:"assignment_code"`
	CollectorID id.UserID       `json:"collector_id"`
	BusinessID  *id.BusinessID  `json:"business_id,omitempty"`
	Zone        string          `json:"zone,omitempty"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     *time.Time      `json:"end_date,omitempty"`
	IsActive    bool            `json:"is_active"`
	AssignedBy  id.UserID       `json:"assigned_by"`
	District    string          `json:"district"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (a *Assignment) JurisdictionDistrict() string {
	return a.District
}

// CoversAt reports whether the assignment is in force at t.
func (a *Assignment) CoversAt(t time.Time) bool {
	if !a.IsActive || t.Before(a.StartDate) {
		return false
	}
	return a.EndDate == nil || !t.After(*a.EndDate)
}

// Check enforces the assignment invariants.
func (a *Assignment) Check() error {
	if a.BusinessID == nil && strings.TrimSpace(a.Zone) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "a business or a zone is required")
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		return dErrors.New(dErrors.CodeInvariantViolation, "end date cannot be before start date")
	}
	return nil
}

// AssignmentUpdate carries the editable fields. Nil fields are left unchanged;
// ClearEndDate makes the assignment open-ended.
type AssignmentUpdate struct {
	BusinessID   *id.BusinessID
	Zone         *string
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
	IsActive     *bool
}

func (u AssignmentUpdate) IsEmpty() bool {
	return u.BusinessID == nil && u.Zone == nil && u.StartDate == nil && u.EndDate == nil &&
		!u.ClearEndDate && u.IsActive == nil
}

func (a *Assignment) ApplyUpdate(u AssignmentUpdate, now time.Time) {
	if u.BusinessID != nil {
		businessID := *u.BusinessID
		a.BusinessID = &businessID
	}
	if u.Zone != nil {
		a.Zone = strings.TrimSpace(*u.Zone)
	}
	if u.StartDate != nil {
		a.StartDate = *u.StartDate
	}
	if u.ClearEndDate {
		a.EndDate = nil
	} else if u.EndDate != nil {
		end := *u.EndDate
		a.EndDate = &end
	}
	if u.IsActive != nil {
		a.IsActive = *u.IsActive
	}
	a.UpdatedAt = now
}

// NewAssignment validates and constructs an active assignment.
func NewAssignment(assignmentID id.AssignmentID, code string, collectorID id.UserID, businessID *id.BusinessID, zone string,
	start time.Time, end *time.Time, assignedBy id.UserID, district string, now time.Time) (*Assignment, error) {
	if collectorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "collector is required")
	}
	if district == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "district cannot be empty")
	}
	a := &Assignment{
		ID:          assignmentID,
		Code:        code,
		CollectorID: collectorID,
		BusinessID:  businessID,
		Zone:        strings.TrimSpace(zone),
		StartDate:   start,
		EndDate:     end,
		IsActive:    true,
		AssignedBy:  assignedBy,
		District:    district,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.Check(); err != nil {
		return nil, err
	}
	return a, nil
}

package handler

import (
	"strings"
	"time"

	"revenuehub/internal/assignment/models"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp.
func parseDate(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, field+" must be a date (YYYY-MM-DD)")
	}
	return t, nil
}

type AssignCollectorRequest struct {
	CollectorID string `json:"collector_id"`
	BusinessID  string `json:"business_id"`
	Zone        string `json:"zone"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`

	collectorID id.UserID
	businessID  *id.BusinessID
	start       time.Time
	end         *time.Time
}

func (r *AssignCollectorRequest) Normalize() {
	r.Zone = strings.TrimSpace(r.Zone)
}

func (r *AssignCollectorRequest) Validate() error {
	if r.CollectorID == "" {
		return dErrors.New(dErrors.CodeValidation, "collector_id is required")
	}
	collectorID, err := id.ParseUserID(r.CollectorID)
	if err != nil {
		return err
	}
	r.collectorID = collectorID
	if r.BusinessID != "" {
		businessID, err := id.ParseBusinessID(r.BusinessID)
		if err != nil {
			return err
		}
		r.businessID = &businessID
	}
	if r.businessID == nil && r.Zone == "" {
		return dErrors.New(dErrors.CodeValidation, "business_id or zone is required")
	}
	if r.StartDate != "" {
		if r.start, err = parseDate("start_date", r.StartDate); err != nil {
			return err
		}
	}
	if r.EndDate != "" {
		end, err := parseDate("end_date", r.EndDate)
		if err != nil {
			return err
		}
		if !r.start.IsZero() && end.Before(r.start) {
			return dErrors.New(dErrors.CodeValidation, "end_date cannot be before start_date")
		}
		r.end = &end
	}
	return nil
}

// UpdateAssignmentRequest edits an assignment. An empty end_date string
// clears the end date.
type UpdateAssignmentRequest struct {
	BusinessID *string `json:"business_id"`
	Zone       *string `json:"zone"`
	StartDate  *string `json:"start_date"`
	EndDate    *string `json:"end_date"`
	IsActive   *bool   `json:"is_active"`

	update models.AssignmentUpdate
}

func (r *UpdateAssignmentRequest) Validate() error {
	u := models.AssignmentUpdate{Zone: r.Zone, IsActive: r.IsActive}
	if r.BusinessID != nil {
		businessID, err := id.ParseBusinessID(*r.BusinessID)
		if err != nil {
			return err
		}
		u.BusinessID = &businessID
	}
	if r.StartDate != nil {
		start, err := parseDate("start_date", *r.StartDate)
		if err != nil {
			return err
		}
		u.StartDate = &start
	}
	if r.EndDate != nil {
		if strings.TrimSpace(*r.EndDate) == "" {
			u.ClearEndDate = true
		} else {
			end, err := parseDate("end_date", *r.EndDate)
			if err != nil {
				return err
			}
			u.EndDate = &end
		}
	}
	if u.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	r.update = u
	return nil
}

type AssignmentListResponse struct {
	Assignments []*models.Assignment `json:"assignments"`
	Total       int                  `json:"total"`
}

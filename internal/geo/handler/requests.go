package handler

import (
	"strings"

	"revenuehub/internal/geo/models"
	dErrors "revenuehub/pkg/domain-errors"
)

type CreateDistrictRequest struct {
	Name         string `json:"name"`
	Code         string `json:"code"`
	Region       string `json:"region"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
	Address      string `json:"address"`
}

func (r *CreateDistrictRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Code = models.NormalizeCode(r.Code)
	r.Region = strings.TrimSpace(r.Region)
	r.ContactEmail = strings.ToLower(strings.TrimSpace(r.ContactEmail))
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	r.Address = strings.TrimSpace(r.Address)
}

func (r *CreateDistrictRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	if r.Region == "" {
		return dErrors.New(dErrors.CodeValidation, "region is required")
	}
	if r.ContactEmail != "" && !strings.Contains(r.ContactEmail, "@") {
		return dErrors.New(dErrors.CodeValidation, "contact_email is invalid")
	}
	return nil
}

type UpdateDistrictRequest struct {
	Code         *string `json:"code"`
	ContactEmail *string `json:"contact_email"`
	ContactPhone *string `json:"contact_phone"`
	Address      *string `json:"address"`
}

func (r *UpdateDistrictRequest) Validate() error {
	if r.Code == nil && r.ContactEmail == nil && r.ContactPhone == nil && r.Address == nil {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	if r.ContactEmail != nil && *r.ContactEmail != "" && !strings.Contains(*r.ContactEmail, "@") {
		return dErrors.New(dErrors.CodeValidation, "contact_email is invalid")
	}
	return nil
}

func (r *UpdateDistrictRequest) toUpdate() models.DistrictUpdate {
	return models.DistrictUpdate{
		Code:         r.Code,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		Address:      r.Address,
	}
}

type DistrictListResponse struct {
	Districts []*models.District `json:"districts"`
	Total     int                `json:"total"`
}

package handler

import (
	"strings"

	"revenuehub/internal/business/models"
	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

type RegisterBusinessRequest struct {
	Name            string `json:"name"`
	OwnerName       string `json:"owner_name"`
	OwnerUserID     string `json:"owner_user_id"`
	Category        string `json:"category"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	GPSLocation     string `json:"gps_location"`
	PhysicalAddress string `json:"physical_address"`
	License         string `json:"business_license"`
	TIN             string `json:"tin_number"`
	District        string `json:"district"`
	Status          string `json:"status"`

	ownerID *id.UserID
	status  models.BusinessStatus
}

func (r *RegisterBusinessRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.OwnerName = strings.TrimSpace(r.OwnerName)
	r.Category = strings.TrimSpace(r.Category)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.District = strings.TrimSpace(r.District)
}

func (r *RegisterBusinessRequest) Validate() error {
	switch {
	case r.Name == "":
		return dErrors.New(dErrors.CodeValidation, "name is required")
	case r.OwnerName == "":
		return dErrors.New(dErrors.CodeValidation, "owner_name is required")
	case r.Category == "":
		return dErrors.New(dErrors.CodeValidation, "category is required")
	case r.Phone == "":
		return dErrors.New(dErrors.CodeValidation, "phone is required")
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if r.OwnerUserID != "" {
		ownerID, err := id.ParseUserID(r.OwnerUserID)
		if err != nil {
			return err
		}
		r.ownerID = &ownerID
	}
	if r.Status != "" {
		status, err := models.ParseBusinessStatus(r.Status)
		if err != nil {
			return err
		}
		r.status = status
	}
	return nil
}

type UpdateBusinessRequest struct {
	Name            *string `json:"name"`
	OwnerName       *string `json:"owner_name"`
	OwnerUserID     *string `json:"owner_user_id"`
	Category        *string `json:"category"`
	Phone           *string `json:"phone"`
	Email           *string `json:"email"`
	GPSLocation     *string `json:"gps_location"`
	PhysicalAddress *string `json:"physical_address"`
	License         *string `json:"business_license"`
	TIN             *string `json:"tin_number"`
	Status          *string `json:"status"`

	update models.BusinessUpdate
}

func (r *UpdateBusinessRequest) Validate() error {
	r.update = models.BusinessUpdate{
		Name:            r.Name,
		OwnerName:       r.OwnerName,
		Category:        r.Category,
		Phone:           r.Phone,
		Email:           r.Email,
		GPSLocation:     r.GPSLocation,
		PhysicalAddress: r.PhysicalAddress,
		License:         r.License,
		TIN:             r.TIN,
	}
	if r.OwnerUserID != nil {
		ownerID, err := id.ParseUserID(*r.OwnerUserID)
		if err != nil {
			return err
		}
		r.update.OwnerUserID = &ownerID
	}
	if r.Status != nil {
		status, err := models.ParseBusinessStatus(*r.Status)
		if err != nil {
			return err
		}
		r.update.Status = &status
	}
	if r.update.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	return nil
}

type BusinessListResponse struct {
	Businesses []*models.Business `json:"businesses"`
	Total      int                `json:"total"`
}

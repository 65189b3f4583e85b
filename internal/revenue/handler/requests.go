package handler

import (
	"strings"

	"github.com/shopspring/decimal"

	"revenuehub/internal/revenue/models"
	dErrors "revenuehub/pkg/domain-errors"
)

// CreateRevenueTypeRequest accepts default_amount as a JSON number or string.
type CreateRevenueTypeRequest struct {
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	DefaultAmount *decimal.Decimal `json:"default_amount"`
	Frequency     string           `json:"frequency"`
	Description   string           `json:"description"`
	Category      string           `json:"category"`
	District      string           `json:"district"`
}

func (r *CreateRevenueTypeRequest) Normalize() {
	r.Code = models.NormalizeCode(r.Code)
	r.Name = strings.TrimSpace(r.Name)
	r.Frequency = strings.ToLower(strings.TrimSpace(r.Frequency))
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.District = strings.TrimSpace(r.District)
}

func (r *CreateRevenueTypeRequest) Validate() error {
	switch {
	case r.Code == "":
		return dErrors.New(dErrors.CodeValidation, "code is required")
	case r.Name == "":
		return dErrors.New(dErrors.CodeValidation, "name is required")
	case r.DefaultAmount == nil:
		return dErrors.New(dErrors.CodeValidation, "default_amount is required")
	case r.DefaultAmount.IsNegative():
		return dErrors.New(dErrors.CodeValidation, "default_amount cannot be negative")
	case !models.Frequency(r.Frequency).IsValid():
		return dErrors.New(dErrors.CodeValidation, "frequency must be daily, weekly, monthly, quarterly, yearly or one-time")
	case !models.Category(r.Category).IsValid():
		return dErrors.New(dErrors.CodeValidation, "category must be permit, license, toll, fee or tax")
	}
	return nil
}

type UpdateRevenueTypeRequest struct {
	Code          *string          `json:"code"`
	Name          *string          `json:"name"`
	DefaultAmount *decimal.Decimal `json:"default_amount"`
	Frequency     *string          `json:"frequency"`
	Description   *string          `json:"description"`
	IsActive      *bool            `json:"is_active"`
	Category      *string          `json:"category"`

	update models.RevenueTypeUpdate
}

func (r *UpdateRevenueTypeRequest) Validate() error {
	u := models.RevenueTypeUpdate{
		Code:          r.Code,
		Name:          r.Name,
		DefaultAmount: r.DefaultAmount,
		Description:   r.Description,
		IsActive:      r.IsActive,
	}
	if r.Frequency != nil {
		f := models.Frequency(strings.ToLower(strings.TrimSpace(*r.Frequency)))
		u.Frequency = &f
	}
	if r.Category != nil {
		c := models.Category(strings.ToLower(strings.TrimSpace(*r.Category)))
		u.Category = &c
	}
	if u.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	if err := u.Validate(); err != nil {
		return dErrors.InvariantToValidation(err)
	}
	r.update = u
	return nil
}

type RevenueTypeListResponse struct {
	RevenueTypes []*models.RevenueType `json:"revenue_types"`
	Total        int                   `json:"total"`
}

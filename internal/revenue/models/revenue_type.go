package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

// RevenueType is a levy a district charges: a permit, licence, toll, fee or
// tax with a default amount and billing frequency.
//
// Invariants:
//   - Code is upper-case and unique within the district
//   - DefaultAmount is not negative
type RevenueType struct {
	ID            id.RevenueTypeID `json:"id"`
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	DefaultAmount decimal.Decimal  `json:"default_amount"`
	Frequency     Frequency        `json:"frequency"`
	Description   string           `json:"description,omitempty"`
	IsActive      bool             `json:"is_active"`
	Category      Category         `json:"category,omitempty"`
	District      string           `json:"district"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyOneTime   Frequency = "one-time"
)

func (f Frequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly, FrequencyOneTime:
		return true
	}
	return false
}

type Category string

const (
	CategoryPermit  Category = "permit"
	CategoryLicense Category = "license"
	CategoryToll    Category = "toll"
	CategoryFee     Category = "fee"
	CategoryTax     Category = "tax"
)

// IsValid accepts the known categories. The category is optional.
func (c Category) IsValid() bool {
	switch c {
	case "", CategoryPermit, CategoryLicense, CategoryToll, CategoryFee, CategoryTax:
		return true
	}
	return false
}

func (rt *RevenueType) JurisdictionDistrict() string {
	return rt.District
}

// NormalizeCode upper-cases and trims a revenue type code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RevenueTypeUpdate carries the editable fields. Nil fields are left unchanged.
type RevenueTypeUpdate struct {
	Code          *string
	Name          *string
	DefaultAmount *decimal.Decimal
	Frequency     *Frequency
	Description   *string
	IsActive      *bool
	Category      *Category
}

func (u RevenueTypeUpdate) IsEmpty() bool {
	return u.Code == nil && u.Name == nil && u.DefaultAmount == nil && u.Frequency == nil &&
		u.Description == nil && u.IsActive == nil && u.Category == nil
}

func (u RevenueTypeUpdate) Validate() error {
	if u.Code != nil && NormalizeCode(*u.Code) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "code cannot be empty")
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "name cannot be empty")
	}
	if u.DefaultAmount != nil && u.DefaultAmount.IsNegative() {
		return dErrors.New(dErrors.CodeInvariantViolation, "default amount cannot be negative")
	}
	if u.Frequency != nil && !u.Frequency.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid frequency")
	}
	if u.Category != nil && !u.Category.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid category")
	}
	return nil
}

func (rt *RevenueType) ApplyUpdate(u RevenueTypeUpdate, now time.Time) {
	if u.Code != nil {
		rt.Code = NormalizeCode(*u.Code)
	}
	if u.Name != nil {
		rt.Name = strings.TrimSpace(*u.Name)
	}
	if u.DefaultAmount != nil {
		rt.DefaultAmount = u.DefaultAmount.Round(2)
	}
	if u.Frequency != nil {
		rt.Frequency = *u.Frequency
	}
	if u.Description != nil {
		rt.Description = strings.TrimSpace(*u.Description)
	}
	if u.IsActive != nil {
		rt.IsActive = *u.IsActive
	}
	if u.Category != nil {
		rt.Category = *u.Category
	}
	rt.UpdatedAt = now
}

// NewRevenueType validates and constructs an active revenue type. Amounts are
// rounded to pesewas.
func NewRevenueType(revenueTypeID id.RevenueTypeID, code, name string, amount decimal.Decimal, frequency Frequency, category Category, district string, now time.Time) (*RevenueType, error) {
	code = NormalizeCode(code)
	name = strings.TrimSpace(name)
	switch {
	case code == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "code cannot be empty")
	case name == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name cannot be empty")
	case amount.IsNegative():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "default amount cannot be negative")
	case !frequency.IsValid():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid frequency")
	case !category.IsValid():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid category")
	case district == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "district cannot be empty")
	}
	return &RevenueType{
		ID:            revenueTypeID,
		Code:          code,
		Name:          name,
		DefaultAmount: amount.Round(2),
		Frequency:     frequency,
		IsActive:      true,
		Category:      category,
		District:      district,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

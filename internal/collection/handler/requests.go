package handler

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"revenuehub/internal/collection/models"
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

// PaymentRequest is shared by collector-recorded and owner-made payments.
// Amount may be omitted to charge the revenue type's default.
type PaymentRequest struct {
	BusinessID    string           `json:"business_id"`
	RevenueTypeID string           `json:"revenue_type_id"`
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod string           `json:"payment_method"`
	Date          string           `json:"date"`
	Notes         string           `json:"notes"`

	businessID    id.BusinessID
	revenueTypeID id.RevenueTypeID
	method        models.PaymentMethod
	collectedAt   time.Time
}

func (r *PaymentRequest) Normalize() {
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))
	r.Notes = strings.TrimSpace(r.Notes)
}

func (r *PaymentRequest) Validate() error {
	if r.BusinessID == "" {
		return dErrors.New(dErrors.CodeValidation, "business_id is required")
	}
	if r.RevenueTypeID == "" {
		return dErrors.New(dErrors.CodeValidation, "revenue_type_id is required")
	}
	var err error
	if r.businessID, err = id.ParseBusinessID(r.BusinessID); err != nil {
		return err
	}
	if r.revenueTypeID, err = id.ParseRevenueTypeID(r.RevenueTypeID); err != nil {
		return err
	}
	if r.Amount != nil && !r.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	if r.method, err = models.ParsePaymentMethod(r.PaymentMethod); err != nil {
		return err
	}
	if r.Date != "" {
		if r.collectedAt, err = parseDate("date", r.Date); err != nil {
			return err
		}
	}
	return nil
}

func (r *PaymentRequest) amount() decimal.Decimal {
	if r.Amount == nil {
		return decimal.Zero
	}
	return *r.Amount
}

type UpdateCollectionRequest struct {
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod *string          `json:"payment_method"`
	Notes         *string          `json:"notes"`

	update models.CollectionUpdate
}

func (r *UpdateCollectionRequest) Validate() error {
	u := models.CollectionUpdate{Amount: r.Amount, Notes: r.Notes}
	if u.Amount != nil && !u.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeValidation, "amount must be greater than zero")
	}
	if r.PaymentMethod != nil {
		method, err := models.ParsePaymentMethod(*r.PaymentMethod)
		if err != nil {
			return err
		}
		u.PaymentMethod = &method
	}
	if u.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	r.update = u
	return nil
}

type CancelCollectionRequest struct {
	Reason string `json:"reason"`
}

func (r *CancelCollectionRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *CancelCollectionRequest) Validate() error {
	return nil
}

type FlagCollectionRequest struct {
	Reason    string `json:"reason"`
	RiskLevel string `json:"risk_level"`

	risk models.RiskLevel
}

func (r *FlagCollectionRequest) Normalize() {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.RiskLevel == "" {
		r.RiskLevel = string(models.RiskMedium)
	}
}

func (r *FlagCollectionRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	risk, err := models.ParseRiskLevel(r.RiskLevel)
	if err != nil {
		return err
	}
	r.risk = risk
	return nil
}

type CollectionListResponse struct {
	Collections []*models.Collection `json:"collections"`
	Total       int                  `json:"total"`
}

package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

// Collection is one payment against a revenue type for a business, recorded
// by a collector in the field or paid by the business owner directly.
//
// Invariants:
//   - Amount is strictly positive
//   - exactly one of CollectorID and PaidBy is set
//   - a validated collection is paid and no longer editable
type Collection struct {
	ID            id.CollectionID  `json:"id"`
	ReceiptCode   string           `json:"receipt_code"`
	BusinessID    id.BusinessID    `json:"business_id"`
	RevenueTypeID id.RevenueTypeID `json:"revenue_type_id"`
	CollectorID   *id.UserID       `json:"collector_id,omitempty"`
	PaidBy        *id.UserID       `json:"paid_by,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	PaymentMethod PaymentMethod    `json:"payment_method"`
	CollectedAt   time.Time        `json:"date"`
	Status        Status           `json:"status"`
	ValidatedBy   *id.UserID       `json:"validated_by,omitempty"`
	ValidatedAt   *time.Time       `json:"validated_at,omitempty"`
	Flagged       bool             `json:"flagged"`
	FlagReason    string           `json:"flag_reason,omitempty"`
	RiskLevel     RiskLevel        `json:"risk_level,omitempty"`
	FlaggedBy     *id.UserID       `json:"flagged_by,omitempty"`
	FlaggedAt     *time.Time       `json:"flagged_at,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	ClientIP      string           `json:"client_ip,omitempty"`
	DeviceInfo    string           `json:"device_info,omitempty"`
	District      string           `json:"district"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodMomo   PaymentMethod = "momo"
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodCheque PaymentMethod = "cheque"
	PaymentMethodPOS    PaymentMethod = "pos"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMomo, PaymentMethodBank, PaymentMethodCheque, PaymentMethodPOS:
		return true
	}
	return false
}

// ParsePaymentMethod constructs a PaymentMethod from external input.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "payment_method must be cash, momo, bank, cheque or pos")
	}
	return m, nil
}

type Status string

const (
	StatusPaid      Status = "paid"
	StatusPending   Status = "pending"
	StatusOverdue   Status = "overdue"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "status must be paid, pending, overdue or cancelled")
	}
	return st, nil
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (r RiskLevel) IsValid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "risk_level must be low, medium or high")
	}
	return r, nil
}

func (c *Collection) JurisdictionDistrict() string {
	return c.District
}

// RecordedBy reports whether userID is the collector who recorded c.
func (c *Collection) RecordedBy(userID id.UserID) bool {
	return c.CollectorID != nil && *c.CollectorID == userID
}

func (c *Collection) IsValidated() bool {
	return c.ValidatedAt != nil
}

// awaitingValidation covers pending and overdue collections.
func (c *Collection) awaitingValidation() bool {
	return (c.Status == StatusPending || c.Status == StatusOverdue) && !c.IsValidated()
}

// CollectionUpdate carries the fields editable before validation.
type CollectionUpdate struct {
	Amount        *decimal.Decimal
	PaymentMethod *PaymentMethod
	Notes         *string
}

func (u CollectionUpdate) IsEmpty() bool {
	return u.Amount == nil && u.PaymentMethod == nil && u.Notes == nil
}

func (u CollectionUpdate) Validate() error {
	if u.Amount != nil && !u.Amount.IsPositive() {
		return dErrors.New(dErrors.CodeInvariantViolation, "amount must be greater than zero")
	}
	if u.PaymentMethod != nil && !u.PaymentMethod.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid payment method")
	}
	return nil
}

func (c *Collection) CanEdit() error {
	if !c.awaitingValidation() {
		return dErrors.New(dErrors.CodeInvariantViolation, "only unvalidated collections can be edited")
	}
	return nil
}

func (c *Collection) ApplyUpdate(u CollectionUpdate, now time.Time) {
	if u.Amount != nil {
		c.Amount = u.Amount.Round(2)
	}
	if u.PaymentMethod != nil {
		c.PaymentMethod = *u.PaymentMethod
	}
	if u.Notes != nil {
		c.Notes = strings.TrimSpace(*u.Notes)
	}
	c.UpdatedAt = now
}

func (c *Collection) CanValidate() error {
	if !c.awaitingValidation() {
		return dErrors.New(dErrors.CodeInvariantViolation, "collection is "+string(c.Status)+" and cannot be validated")
	}
	return nil
}

// ApplyValidation marks the collection paid.
func (c *Collection) ApplyValidation(by id.UserID, now time.Time) {
	c.Status = StatusPaid
	c.ValidatedBy = &by
	c.ValidatedAt = &now
	c.UpdatedAt = now
}

// CanCancel allows cancelling anything that has not been validated.
func (c *Collection) CanCancel() error {
	if c.Status == StatusCancelled {
		return dErrors.New(dErrors.CodeInvariantViolation, "collection is already cancelled")
	}
	if c.IsValidated() {
		return dErrors.New(dErrors.CodeInvariantViolation, "validated collections cannot be cancelled")
	}
	return nil
}

func (c *Collection) ApplyCancellation(reason string, now time.Time) {
	c.Status = StatusCancelled
	if reason = strings.TrimSpace(reason); reason != "" {
		if c.Notes != "" {
			c.Notes += "\n"
		}
		c.Notes += "cancelled: " + reason
	}
	c.UpdatedAt = now
}

func (c *Collection) CanFlag() error {
	if c.Flagged {
		return dErrors.New(dErrors.CodeInvariantViolation, "collection is already flagged")
	}
	return nil
}

func (c *Collection) ApplyFlag(reason string, risk RiskLevel, by id.UserID, now time.Time) {
	c.Flagged = true
	c.FlagReason = strings.TrimSpace(reason)
	c.RiskLevel = risk
	c.FlaggedBy = &by
	c.FlaggedAt = &now
	c.UpdatedAt = now
}

func (c *Collection) CanUnflag() error {
	if !c.Flagged {
		return dErrors.New(dErrors.CodeInvariantViolation, "collection is not flagged")
	}
	return nil
}

// ApplyUnflag resolves a flag. The reason and risk level are kept as history.
func (c *Collection) ApplyUnflag(now time.Time) {
	c.Flagged = false
	c.UpdatedAt = now
}

// NewCollection validates and constructs a pending collection.
func NewCollection(collectionID id.CollectionID, receiptCode string, businessID id.BusinessID, revenueTypeID id.RevenueTypeID,
	amount decimal.Decimal, method PaymentMethod, collectedAt time.Time, district string, now time.Time) (*Collection, error) {
	switch {
	case !amount.IsPositive():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "amount must be greater than zero")
	case !method.IsValid():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid payment method")
	case district == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "district cannot be empty")
	case collectedAt.After(now):
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "collection date cannot be in the future")
	}
	return &Collection{
		ID:            collectionID,
		ReceiptCode:   receiptCode,
		BusinessID:    businessID,
		RevenueTypeID: revenueTypeID,
		Amount:        amount.Round(2),
		PaymentMethod: method,
		CollectedAt:   collectedAt,
		Status:        StatusPending,
		District:      district,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

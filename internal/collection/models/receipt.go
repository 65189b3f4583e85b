package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the ISO code printed on receipts.
const Currency = "GHS"

// Receipt is the printable proof of a paid collection.
type Receipt struct {
	ReceiptCode     string          `json:"receipt_code"`
	IssuedAt        time.Time       `json:"issued_at"`
	BusinessCode    string          `json:"business_code"`
	BusinessName    string          `json:"business_name"`
	OwnerName       string          `json:"owner_name"`
	RevenueTypeCode string          `json:"revenue_type_code"`
	RevenueTypeName string          `json:"revenue_type_name"`
	Amount          decimal.Decimal `json:"amount"`
	AmountDisplay   string          `json:"amount_display"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	CollectedAt     time.Time       `json:"date"`
	CollectorName   string          `json:"collector_name,omitempty"`
	ValidatedAt     *time.Time      `json:"validated_at,omitempty"`
	District        string          `json:"district"`
}

// FormatAmount renders an amount the way receipts print it, e.g. "GHS 1250.00".
func FormatAmount(amount decimal.Decimal) string {
	return Currency + " " + amount.StringFixed(2)
}

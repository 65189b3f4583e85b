// Package models holds the read-only report shapes served by the report
// module. Every amount is in cedis.
package models

import (
	"time"

	"github.com/shopspring/decimal"

	id "revenuehub/pkg/domain"
)

// Dashboard summarises the caller's jurisdiction.
type Dashboard struct {
	TotalRevenue         decimal.Decimal `json:"total_revenue"`
	TotalBusinesses      int             `json:"total_businesses"`
	ActiveBusinesses     int             `json:"active_businesses"`
	TotalCollectors      int             `json:"total_collectors"`
	PendingPayments      int             `json:"pending_payments"`
	PendingAmount        decimal.Decimal `json:"pending_amount"`
	FlaggedCollections   int             `json:"flagged_collections"`
	MonthRevenue         decimal.Decimal `json:"month_revenue"`
	PreviousMonthRevenue decimal.Decimal `json:"previous_month_revenue"`
	// MonthlyGrowth is the percentage change of MonthRevenue over
	// PreviousMonthRevenue, rounded to one decimal place.
	MonthlyGrowth   float64   `json:"monthly_growth"`
	ActiveDistricts int       `json:"active_districts"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Period bounds a report on the collection date. Zero values are open.
type Period struct {
	From time.Time `json:"from,omitempty"`
	To   time.Time `json:"to,omitempty"`
}

type TypeRevenue struct {
	RevenueTypeID id.RevenueTypeID `json:"revenue_type_id"`
	Code          string           `json:"code"`
	Name          string           `json:"name"`
	Collections   int              `json:"collections"`
	Amount        decimal.Decimal  `json:"amount"`
}

type DistrictRevenue struct {
	District    string          `json:"district"`
	Collections int             `json:"collections"`
	Amount      decimal.Decimal `json:"amount"`
}

// RevenueReport breaks paid revenue down by revenue type and by district.
type RevenueReport struct {
	Period     Period            `json:"period"`
	Total      decimal.Decimal   `json:"total"`
	ByType     []TypeRevenue     `json:"by_type"`
	ByDistrict []DistrictRevenue `json:"by_district"`
}

// CollectorPerformance aggregates the collections one collector recorded.
// Cancelled collections are not counted.
type CollectorPerformance struct {
	CollectorID    id.UserID       `json:"collector_id"`
	Name           string          `json:"name"`
	District       string          `json:"district"`
	Collections    int             `json:"collections"`
	Paid           int             `json:"paid"`
	Pending        int             `json:"pending"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalRecorded  decimal.Decimal `json:"total_recorded"`
}

// Growth returns the percentage change from previous to current, rounded to
// one decimal place. Growth from nothing is 100% and no change is 0%.
func Growth(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsZero() {
			return 0
		}
		return 100
	}
	return current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(1).InexactFloat64()
}

package audit

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose so that
// retention and routing can differ per category.
type EventCategory string

const (
	// CategoryFinancial covers money movement: payments recorded, validated,
	// edited or cancelled. These are the events auditors reconcile against.
	CategoryFinancial EventCategory = "financial"

	// CategorySecurity covers authentication, role changes and irregularity flags.
	CategorySecurity EventCategory = "security"

	// CategoryAdministrative covers registry maintenance: businesses, districts,
	// revenue types, assignments and users.
	CategoryAdministrative EventCategory = "administrative"
)

// Action names a mutating operation.
type Action string

const (
	// Identity
	ActionLoginSucceeded    Action = "login_succeeded"
	ActionLoginFailed       Action = "login_failed"
	ActionLogout            Action = "logout"
	ActionPasswordChanged   Action = "password_changed"
	ActionUserCreated       Action = "user_created"
	ActionUserStatusChanged Action = "user_status_changed"
	ActionUserRoleChanged   Action = "user_role_changed"

	// Districts
	ActionDistrictCreated     Action = "district_created"
	ActionDistrictUpdated     Action = "district_updated"
	ActionDistrictDeactivated Action = "district_deactivated"
	ActionDistrictReactivated Action = "district_reactivated"

	// Businesses
	ActionBusinessRegistered Action = "business_registered"
	ActionBusinessUpdated    Action = "business_updated"
	ActionBusinessDeleted    Action = "business_deleted"

	// Revenue types
	ActionRevenueTypeCreated Action = "revenue_type_created"
	ActionRevenueTypeUpdated Action = "revenue_type_updated"
	ActionRevenueTypeDeleted Action = "revenue_type_deleted"

	// Assignments
	ActionCollectorAssigned Action = "collector_assigned"
	ActionAssignmentUpdated Action = "assignment_updated"
	ActionAssignmentDeleted Action = "assignment_deleted"

	// Collections
	ActionPaymentRecorded     Action = "payment_recorded"
	ActionPaymentMade         Action = "payment_made"
	ActionPaymentUpdated      Action = "payment_updated"
	ActionPaymentValidated    Action = "payment_validated"
	ActionPaymentCancelled    Action = "payment_cancelled"
	ActionReceiptGenerated    Action = "receipt_generated"
	ActionCollectionFlagged   Action = "collection_flagged"
	ActionCollectionUnflagged Action = "collection_unflagged"

	// Reports
	ActionReportExported Action = "report_exported"
)

var actionCategories = map[Action]EventCategory{
	ActionLoginSucceeded:      CategorySecurity,
	ActionLoginFailed:         CategorySecurity,
	ActionLogout:              CategorySecurity,
	ActionPasswordChanged:     CategorySecurity,
	ActionUserRoleChanged:     CategorySecurity,
	ActionUserStatusChanged:   CategorySecurity,
	ActionCollectionFlagged:   CategorySecurity,
	ActionCollectionUnflagged: CategorySecurity,

	ActionPaymentRecorded:  CategoryFinancial,
	ActionPaymentMade:      CategoryFinancial,
	ActionPaymentUpdated:   CategoryFinancial,
	ActionPaymentValidated: CategoryFinancial,
	ActionPaymentCancelled: CategoryFinancial,
	ActionReceiptGenerated: CategoryFinancial,
	ActionReportExported:   CategoryFinancial,
}

// Category returns the category for this action. Anything not listed is
// administrative.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryAdministrative
}

// Event is one audit trail entry. It is transport-agnostic so the same value
// goes to the store and to the Kafka topic.
type Event struct {
	ID         uuid.UUID     `json:"id"`
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	ActorID    string        `json:"actor_id,omitempty"`
	ActorRole  string        `json:"actor_role,omitempty"`
	Action     Action        `json:"action"`
	EntityType string        `json:"entity_type,omitempty"`
	EntityID   string        `json:"entity_id,omitempty"`
	Details    string        `json:"details,omitempty"`
	District   string        `json:"district,omitempty"`
	IPAddress  string        `json:"ip_address,omitempty"`
	UserAgent  string        `json:"user_agent,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
}

// Query narrows a search over the audit trail. A nil Districts slice means
// every district; an empty non-nil slice matches nothing.
type Query struct {
	Districts  []string
	Action     Action
	ActorID    string
	EntityType string
	Search     string
	From       time.Time
	To         time.Time
	Limit      int
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// EffectiveLimit clamps Limit into [1, MaxLimit].
func (q Query) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	default:
		return q.Limit
	}
}

// Matches reports whether e satisfies every filter in q.
func (q Query) Matches(e Event) bool {
	if q.Districts != nil && !contains(q.Districts, e.District) {
		return false
	}
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	if q.ActorID != "" && e.ActorID != q.ActorID {
		return false
	}
	if q.EntityType != "" && e.EntityType != q.EntityType {
		return false
	}
	if !q.From.IsZero() && e.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && e.Timestamp.After(q.To) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		hay := strings.ToLower(strings.Join([]string{string(e.Action), e.EntityID, e.Details, e.ActorID, e.District}, " "))
		if !strings.Contains(hay, needle) {
			return false
		}
	}
	return true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

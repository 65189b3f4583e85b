// Package domain holds the primitives shared by every module: typed
// identifiers and the role enumeration.
package domain

import (
	"github.com/google/uuid"

	dErrors "revenuehub/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so values from different aggregates
// cannot be swapped at compile time.
type (
	UserID        uuid.UUID
	DistrictID    uuid.UUID
	BusinessID    uuid.UUID
	RevenueTypeID uuid.UUID
	AssignmentID  uuid.UUID
	CollectionID  uuid.UUID
)

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" cannot be nil")
	}
	return parsed, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func ParseDistrictID(s string) (DistrictID, error) {
	u, err := parseUUID(s, "district_id")
	return DistrictID(u), err
}

func ParseBusinessID(s string) (BusinessID, error) {
	u, err := parseUUID(s, "business_id")
	return BusinessID(u), err
}

func ParseRevenueTypeID(s string) (RevenueTypeID, error) {
	u, err := parseUUID(s, "revenue_type_id")
	return RevenueTypeID(u), err
}

func ParseAssignmentID(s string) (AssignmentID, error) {
	u, err := parseUUID(s, "assignment_id")
	return AssignmentID(u), err
}

func ParseCollectionID(s string) (CollectionID, error) {
	u, err := parseUUID(s, "collection_id")
	return CollectionID(u), err
}

func (i UserID) String() string { return uuid.UUID(i).String() }
func (i UserID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i UserID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }
func (i *UserID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func (i DistrictID) String() string { return uuid.UUID(i).String() }
func (i DistrictID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i DistrictID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }
func (i *DistrictID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func (i BusinessID) String() string { return uuid.UUID(i).String() }
func (i BusinessID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i BusinessID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }
func (i *BusinessID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func (i RevenueTypeID) String() string { return uuid.UUID(i).String() }
func (i RevenueTypeID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i RevenueTypeID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }
func (i *RevenueTypeID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func (i AssignmentID) String() string { return uuid.UUID(i).String() }
func (i AssignmentID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i AssignmentID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }
func (i *AssignmentID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

func (i CollectionID) String() string { return uuid.UUID(i).String() }
func (i CollectionID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i CollectionID) MarshalText() ([]byte, error) { return uuid.UUID(i).MarshalText() }
func (i *CollectionID) UnmarshalText(b []byte) error { return (*uuid.UUID)(i).UnmarshalText(b) }

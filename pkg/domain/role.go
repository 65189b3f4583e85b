package domain

import dErrors "revenuehub/pkg/domain-errors"

// Role is the job function of a user. It decides both the permission set and
// the jurisdiction scope.
// Invariant: the value must be one of the nine supported roles.
//
// Usage: construct via ParseRole at trust boundaries; direct casting bypasses
// validation.
type Role string

const (
	RoleSuperAdmin                  Role = "super_admin"
	RoleMMDAAdmin                   Role = "mmda_admin"
	RoleFinance                     Role = "finance"
	RoleCollector                   Role = "collector"
	RoleAuditor                     Role = "auditor"
	RoleBusinessOwner               Role = "business_owner"
	RoleMonitoringBody              Role = "monitoring_body"
	RoleBusinessRegistrationOfficer Role = "business_registration_officer"
	RoleRegionalAdmin               Role = "regional_admin"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleSuperAdmin:                  true,
	RoleMMDAAdmin:                   true,
	RoleFinance:                     true,
	RoleCollector:                   true,
	RoleAuditor:                     true,
	RoleBusinessOwner:               true,
	RoleMonitoringBody:              true,
	RoleBusinessRegistrationOfficer: true,
	RoleRegionalAdmin:               true,
}

// AllRoles lists the supported roles in a stable order.
func AllRoles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleMMDAAdmin,
		RoleFinance,
		RoleCollector,
		RoleAuditor,
		RoleBusinessOwner,
		RoleMonitoringBody,
		RoleBusinessRegistrationOfficer,
		RoleRegionalAdmin,
	}
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}

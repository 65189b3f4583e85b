package access

import (
	"strings"

	id "revenuehub/pkg/domain"
	dErrors "revenuehub/pkg/domain-errors"
)

// RegionResolver maps districts to their region. The geo catalog implements it.
type RegionResolver interface {
	RegionOf(district string) (string, bool)
	DistrictsIn(region string) []string
}

// ScopeKind is the breadth of a principal's jurisdiction.
type ScopeKind int

const (
	// ScopeNone sees nothing: no principal, or a restricted role without a jurisdiction.
	ScopeNone ScopeKind = iota
	// ScopeDistrict sees records of a single district.
	ScopeDistrict
	// ScopeRegion sees records of every district in a region.
	ScopeRegion
	// ScopeAll sees everything.
	ScopeAll
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeDistrict:
		return "district"
	case ScopeRegion:
		return "region"
	case ScopeAll:
		return "all"
	default:
		return "none"
	}
}

// unrestrictedRoles see every jurisdiction.
var unrestrictedRoles = map[id.Role]bool{
	id.RoleSuperAdmin:     true,
	id.RoleMonitoringBody: true,
	id.RoleAuditor:        true,
}

// IsUnrestricted reports whether role sees every jurisdiction.
func IsUnrestricted(role id.Role) bool {
	return unrestrictedRoles[role]
}

// Scope is the resolved jurisdiction of one principal.
type Scope struct {
	Kind     ScopeKind
	District string
	Region   string

	regions RegionResolver
}

// ScopeFor resolves p's jurisdiction. Unrestricted roles get ScopeAll even
// with an empty home district. regional_admin gets ScopeRegion; when the
// principal carries no region, it is derived from the home district (which
// may itself name a region). Every other role gets ScopeDistrict.
func ScopeFor(p *Principal, regions RegionResolver) Scope {
	if p == nil || !p.Role.IsValid() {
		return Scope{Kind: ScopeNone}
	}
	if IsUnrestricted(p.Role) {
		return Scope{Kind: ScopeAll, regions: regions}
	}
	if p.Role == id.RoleRegionalAdmin {
		region := regionOf(p, regions)
		if region == "" {
			return Scope{Kind: ScopeNone}
		}
		return Scope{Kind: ScopeRegion, Region: region, regions: regions}
	}
	if p.District == "" {
		return Scope{Kind: ScopeNone}
	}
	return Scope{Kind: ScopeDistrict, District: p.District, regions: regions}
}

func regionOf(p *Principal, regions RegionResolver) string {
	if p.Region != "" {
		return p.Region
	}
	if p.District == "" || regions == nil {
		return ""
	}
	if r, ok := regions.RegionOf(p.District); ok {
		return r
	}
	if len(regions.DistrictsIn(p.District)) > 0 {
		return p.District
	}
	return ""
}

// Unrestricted reports whether the scope sees everything.
func (s Scope) Unrestricted() bool { return s.Kind == ScopeAll }

// Allows reports whether a record in district is visible.
func (s Scope) Allows(district string) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeDistrict:
		return district != "" && district == s.District
	case ScopeRegion:
		if s.regions == nil || district == "" {
			return false
		}
		r, ok := s.regions.RegionOf(district)
		return ok && r == s.Region
	default:
		return false
	}
}

// Districts lists the districts a store query should be restricted to. A nil
// result means no restriction; an empty non-nil result means nothing is visible.
func (s Scope) Districts() []string {
	switch s.Kind {
	case ScopeAll:
		return nil
	case ScopeDistrict:
		return []string{s.District}
	case ScopeRegion:
		if s.regions == nil {
			return []string{}
		}
		ds := s.regions.DistrictsIn(s.Region)
		if ds == nil {
			return []string{}
		}
		return ds
	default:
		return []string{}
	}
}

// AssignDistrict decides the district a new record is written to. District
// scoped principals always write to their own district; region scoped ones
// must name a district inside their region; unrestricted ones must name one.
// Region and unrestricted results are returned as requested; callers resolve
// them to the stored spelling before writing.
func (s Scope) AssignDistrict(requested string) (string, error) {
	switch s.Kind {
	case ScopeDistrict:
		if requested != "" && !strings.EqualFold(requested, s.District) {
			return "", dErrors.New(dErrors.CodeForbidden, "district is outside your jurisdiction")
		}
		return s.District, nil
	case ScopeRegion, ScopeAll:
		if requested == "" {
			return "", dErrors.New(dErrors.CodeValidation, "district is required")
		}
		if !s.Allows(requested) {
			return "", dErrors.New(dErrors.CodeForbidden, "district is outside your jurisdiction")
		}
		return requested, nil
	default:
		return "", dErrors.New(dErrors.CodeForbidden, "no jurisdiction assigned")
	}
}

// Ensure returns a forbidden error when district is outside the scope.
func (s Scope) Ensure(district string) error {
	if s.Allows(district) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "record is outside your jurisdiction")
}

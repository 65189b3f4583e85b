package access

import id "revenuehub/pkg/domain"

// Manager answers permission questions for one role.
// super_admin is always authorized; unknown roles hold no permissions.
type Manager struct {
	role id.Role
	set  map[Permission]struct{}
}

// NewManager loads the permission table entry for role.
func NewManager(role id.Role) Manager {
	perms := rolePermissions[role]
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return Manager{role: role, set: set}
}

func (m Manager) Role() id.Role { return m.role }

func (m Manager) HasPermission(p Permission) bool {
	if m.role == id.RoleSuperAdmin {
		return true
	}
	_, ok := m.set[p]
	return ok
}

// HasAny reports whether the role holds at least one of perms. An empty list
// is never satisfied, except for super_admin.
func (m Manager) HasAny(perms ...Permission) bool {
	if m.role == id.RoleSuperAdmin {
		return true
	}
	for _, p := range perms {
		if m.HasPermission(p) {
			return true
		}
	}
	return false
}

// HasAll reports whether the role holds every one of perms.
func (m Manager) HasAll(perms ...Permission) bool {
	if m.role == id.RoleSuperAdmin {
		return true
	}
	for _, p := range perms {
		if !m.HasPermission(p) {
			return false
		}
	}
	return true
}

// Permissions returns a copy of the role's permission list in table order.
func (m Manager) Permissions() []Permission {
	return append([]Permission{}, rolePermissions[m.role]...)
}

func (m Manager) CanManageUsers() bool {
	return m.HasPermission(PermManageUsers)
}

func (m Manager) CanManageBusinesses() bool {
	return m.HasAny(PermRegisterBusiness, PermEditBusiness, PermDeleteBusiness)
}

func (m Manager) CanManageRevenue() bool {
	return m.HasAny(PermCreateRevenueType, PermEditRevenueType, PermDeleteRevenueType)
}

func (m Manager) CanManageCollections() bool {
	return m.HasAny(PermRecordPayment, PermEditPayment, PermValidatePayment)
}

func (m Manager) CanViewReports() bool {
	return m.HasPermission(PermViewReports)
}

func (m Manager) CanExportData() bool {
	return m.HasPermission(PermExportReports)
}

func (m Manager) CanViewAuditLogs() bool {
	return m.HasPermission(PermViewAuditLogs)
}

func (m Manager) CanManageAssignments() bool {
	return m.HasAny(PermAssignCollector, PermEditAssignment, PermDeleteAssignment)
}

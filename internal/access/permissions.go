package access

import id "revenuehub/pkg/domain"

// Permission is a single capability checked by the route guard and services.
type Permission string

const (
	// Dashboard and users
	PermViewDashboard Permission = "view_dashboard"
	PermManageUsers   Permission = "manage_users"
	PermViewUsers     Permission = "view_users"
	PermAssignRoles   Permission = "assign_roles"

	// Districts (MMDAs)
	PermCreateMMDA     Permission = "create_mmda"
	PermEditMMDA       Permission = "edit_mmda"
	PermDeactivateMMDA Permission = "deactivate_mmda"
	PermViewAllMMDAs   Permission = "view_all_mmdas"

	// Businesses
	PermRegisterBusiness Permission = "register_business"
	PermEditBusiness     Permission = "edit_business"
	PermDeleteBusiness   Permission = "delete_business"
	PermViewBusiness     Permission = "view_business"
	PermViewMyBusiness   Permission = "view_my_business"

	// Revenue types
	PermCreateRevenueType Permission = "create_revenue_type"
	PermEditRevenueType   Permission = "edit_revenue_type"
	PermDeleteRevenueType Permission = "delete_revenue_type"
	PermViewRevenueTypes  Permission = "view_revenue_types"

	// Assignments
	PermAssignCollector   Permission = "assign_collector"
	PermEditAssignment    Permission = "edit_assignment"
	PermDeleteAssignment  Permission = "delete_assignment"
	PermViewAssignments   Permission = "view_assignments"
	PermViewMyAssignments Permission = "view_my_assignments"

	// Collections and payments
	PermRecordPayment     Permission = "record_payment"
	PermEditPayment       Permission = "edit_payment"
	PermDeletePayment     Permission = "delete_payment"
	PermValidatePayment   Permission = "validate_payment"
	PermViewCollections   Permission = "view_collections"
	PermViewMyCollections Permission = "view_my_collections"
	PermMakePayment       Permission = "make_payment"
	PermViewMyPayments    Permission = "view_my_payments"
	PermGenerateReceipt   Permission = "generate_receipt"

	// Reports and audit
	PermViewReports              Permission = "view_reports"
	PermExportReports            Permission = "export_reports"
	PermViewCollectorPerformance Permission = "view_collector_performance"
	PermViewAuditLogs            Permission = "view_audit_logs"
	PermSearchLogs               Permission = "search_logs"
	PermFlagIrregularities       Permission = "flag_irregularities"

	// Profile and notifications
	PermViewOwnProfile    Permission = "view_own_profile"
	PermChangePassword    Permission = "change_password"
	PermSetNotifications  Permission = "set_notifications"
	PermViewNotifications Permission = "view_notifications"
	PermSendNotifications Permission = "send_notifications"
)

var allPermissions = []Permission{
	PermViewDashboard,
	PermManageUsers,
	PermViewUsers,
	PermAssignRoles,
	PermCreateMMDA,
	PermEditMMDA,
	PermDeactivateMMDA,
	PermViewAllMMDAs,
	PermRegisterBusiness,
	PermEditBusiness,
	PermDeleteBusiness,
	PermViewBusiness,
	PermViewMyBusiness,
	PermCreateRevenueType,
	PermEditRevenueType,
	PermDeleteRevenueType,
	PermViewRevenueTypes,
	PermAssignCollector,
	PermEditAssignment,
	PermDeleteAssignment,
	PermViewAssignments,
	PermViewMyAssignments,
	PermRecordPayment,
	PermEditPayment,
	PermDeletePayment,
	PermValidatePayment,
	PermViewCollections,
	PermViewMyCollections,
	PermMakePayment,
	PermViewMyPayments,
	PermGenerateReceipt,
	PermViewReports,
	PermExportReports,
	PermViewCollectorPerformance,
	PermViewAuditLogs,
	PermSearchLogs,
	PermFlagIrregularities,
	PermViewOwnProfile,
	PermChangePassword,
	PermSetNotifications,
	PermViewNotifications,
	PermSendNotifications,
}

// rolePermissions is the role -> permission table. super_admin holds every
// permission and is additionally short-circuited in HasPermission.
var rolePermissions = map[id.Role][]Permission{
	id.RoleSuperAdmin: allPermissions,
	id.RoleMMDAAdmin: {
		PermViewDashboard,
		PermManageUsers,
		PermViewUsers,
		PermAssignRoles,
		PermEditMMDA,
		PermRegisterBusiness,
		PermEditBusiness,
		PermDeleteBusiness,
		PermViewBusiness,
		PermCreateRevenueType,
		PermEditRevenueType,
		PermDeleteRevenueType,
		PermViewRevenueTypes,
		PermAssignCollector,
		PermEditAssignment,
		PermDeleteAssignment,
		PermViewAssignments,
		PermValidatePayment,
		PermViewCollections,
		PermViewReports,
		PermExportReports,
		PermViewCollectorPerformance,
		PermViewAuditLogs,
		PermSearchLogs,
		PermViewOwnProfile,
		PermChangePassword,
		PermSetNotifications,
		PermViewNotifications,
		PermSendNotifications,
	},
	id.RoleBusinessRegistrationOfficer: {
		PermViewDashboard,
		PermRegisterBusiness,
		PermEditBusiness,
		PermViewBusiness,
		PermViewRevenueTypes,
		PermViewReports,
		PermViewOwnProfile,
		PermChangePassword,
		PermSetNotifications,
		PermViewNotifications,
	},
	id.RoleFinance: {
		PermViewDashboard,
		PermViewUsers,
		PermViewBusiness,
		PermCreateRevenueType,
		PermEditRevenueType,
		PermViewRevenueTypes,
		PermValidatePayment,
		PermViewCollections,
		PermViewReports,
		PermExportReports,
		PermViewCollectorPerformance,
		PermViewAuditLogs,
		PermSearchLogs,
		PermViewOwnProfile,
		PermChangePassword,
		PermSetNotifications,
		PermViewNotifications,
	},
	id.RoleCollector: {
		PermViewDashboard,
		PermViewBusiness,
		PermViewMyBusiness,
		PermViewMyAssignments,
		PermRecordPayment,
		PermEditPayment,
		PermViewMyCollections,
		PermGenerateReceipt,
		PermViewOwnProfile,
		PermChangePassword,
		PermSetNotifications,
		PermViewNotifications,
	},
	id.RoleAuditor: {
		PermViewDashboard,
		PermViewBusiness,
		PermViewRevenueTypes,
		PermViewAssignments,
		PermViewCollections,
		PermViewReports,
		PermExportReports,
		PermViewCollectorPerformance,
		PermViewAuditLogs,
		PermSearchLogs,
		PermFlagIrregularities,
		PermViewOwnProfile,
		PermChangePassword,
		PermSetNotifications,
		PermViewNotifications,
	},
	id.RoleBusinessOwner: {
		PermViewDashboard,
		PermViewMyBusiness,
		PermViewMyPayments,
		PermMakePayment,
		PermGenerateReceipt,
		PermViewOwnProfile,
		PermChangePassword,
		PermSetNotifications,
		PermViewNotifications,
	},
	id.RoleMonitoringBody: {
		PermViewDashboard,
		PermViewAllMMDAs,
		PermViewBusiness,
		PermViewRevenueTypes,
		PermViewAssignments,
		PermViewCollections,
		PermViewReports,
		PermExportReports,
		PermViewCollectorPerformance,
		PermViewAuditLogs,
		PermSearchLogs,
		PermViewOwnProfile,
		PermChangePassword,
		PermSetNotifications,
		PermViewNotifications,
	},
	id.RoleRegionalAdmin: {
		PermViewDashboard,
		PermManageUsers,
		PermViewUsers,
		PermAssignRoles,
		PermEditMMDA,
		PermDeactivateMMDA,
		PermViewAllMMDAs,
		PermRegisterBusiness,
		PermEditBusiness,
		PermDeleteBusiness,
		PermViewBusiness,
		PermCreateRevenueType,
		PermEditRevenueType,
		PermDeleteRevenueType,
		PermViewRevenueTypes,
		PermAssignCollector,
		PermEditAssignment,
		PermDeleteAssignment,
		PermViewAssignments,
		PermValidatePayment,
		PermViewCollections,
		PermViewReports,
		PermExportReports,
		PermViewCollectorPerformance,
		PermViewAuditLogs,
		PermSearchLogs,
		PermViewOwnProfile,
		PermChangePassword,
		PermSetNotifications,
		PermViewNotifications,
		PermSendNotifications,
	},
}

// AllPermissions lists every known permission.
func AllPermissions() []Permission {
	return append([]Permission(nil), allPermissions...)
}

func (p Permission) String() string { return string(p) }

// IsValid reports whether p is a known permission.
func (p Permission) IsValid() bool {
	for _, known := range allPermissions {
		if known == p {
			return true
		}
	}
	return false
}

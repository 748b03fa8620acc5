package models

// Role represents operator roles on the dashboard
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Dashboard actions guarded by HasPermission
const (
	ActionViewFleet           = "view_fleet"
	ActionExportReports       = "export_reports"
	ActionCheckoutVehicle     = "checkout_vehicle"
	ActionReturnVehicle       = "return_vehicle"
	ActionScheduleMaintenance = "schedule_maintenance"
	ActionCompleteMaintenance = "complete_maintenance"
)

// Claims represents JWT claims
type Claims struct {
	Subject string `json:"sub"`
	Role    Role   `json:"role"`
	Exp     int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleOperator, RoleViewer:
		return true
	default:
		return false
	}
}

// HasPermission checks if a role may perform a dashboard action
func (r Role) HasPermission(action string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleManager:
		return action != ""
	case RoleOperator:
		return action == ActionViewFleet || action == ActionExportReports ||
			action == ActionCheckoutVehicle || action == ActionReturnVehicle ||
			action == ActionScheduleMaintenance
	case RoleViewer:
		return action == ActionViewFleet || action == ActionExportReports
	default:
		return false
	}
}

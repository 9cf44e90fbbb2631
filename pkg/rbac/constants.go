package rbac

// Four-role definitions for the clinic backend
const (
	RolePatient       = "patient"
	RoleDoctor        = "doctor"
	RoleLabTechnician = "lab_technician"
	RoleAdmin         = "admin"
)

// Role hierarchy levels (higher number = higher privilege)
var RoleLevels = map[string]int{
	RolePatient:       1,
	RoleLabTechnician: 2,
	RoleDoctor:        3,
	RoleAdmin:         4,
}

// Resource types in the system
const (
	ResourceUser         = "users"
	ResourceDoctor       = "doctors"
	ResourceAppointment  = "appointments"
	ResourcePrescription = "prescriptions"
	ResourceReport       = "reports"
	ResourceNotification = "notifications"
	ResourceAdmin        = "admin"
)

// Action types
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Permission scopes
const (
	ScopeOwn      = "own"      // User's own data only
	ScopeAssigned = "assigned" // Assigned resources (lab work queue)
	ScopeAll      = "all"      // System-wide access
)

// Denial reasons surfaced to the middleware
const (
	ReasonInvalidUserType = "Invalid user type"
	ReasonNotPermitted    = "Action not permitted for role"
	ReasonUnknownResource = "Unknown resource"
)

// Time formats
const (
	TimeFormatHourMinute = "15:04"
	TimeFormatDate       = "2006-01-02"
	TimeFormatDateTime   = "2006-01-02T15:04:05Z07:00"
)

// Error codes for RBAC operations
const (
	ErrorCodeInsufficientPrivileges = "RBAC_001"
	ErrorCodeInvalidRole            = "RBAC_002"
	ErrorCodeUnknownResource        = "RBAC_003"
)

package rbac

import (
	"net/http"
	"time"
)

// DefaultMatrix builds the capability table for the four clinic roles.
// The table is the single source of truth for which role may perform
// which action on which resource, and at what scope. Row-level checks
// (ownership, assignment, field restrictions) are enforced by the
// owning service using the scope returned here.
func DefaultMatrix() *PermissionMatrix {
	return &PermissionMatrix{
		LastUpdated: time.Now(),
		Roles: map[string]*RolePermissions{
			RolePatient: {
				Role:  RolePatient,
				Level: RoleLevels[RolePatient],
				Permissions: map[string]*Permission{
					ResourceUser: {
						Resource: ResourceUser,
						Actions:  []string{ActionRead, ActionUpdate},
						Scope:    ScopeOwn,
					},
					ResourceDoctor: {
						Resource: ResourceDoctor,
						Actions:  []string{ActionRead},
						Scope:    ScopeAll,
					},
					ResourceAppointment: {
						Resource: ResourceAppointment,
						Actions:  []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete},
						Scope:    ScopeOwn,
					},
					ResourcePrescription: {
						Resource: ResourcePrescription,
						Actions:  []string{ActionRead},
						Scope:    ScopeOwn,
					},
					ResourceReport: {
						Resource: ResourceReport,
						Actions:  []string{ActionRead},
						Scope:    ScopeOwn,
					},
					ResourceNotification: {
						Resource: ResourceNotification,
						Actions:  []string{ActionRead, ActionUpdate},
						Scope:    ScopeOwn,
					},
				},
			},
			RoleDoctor: {
				Role:  RoleDoctor,
				Level: RoleLevels[RoleDoctor],
				Permissions: map[string]*Permission{
					ResourceUser: {
						Resource: ResourceUser,
						Actions:  []string{ActionRead, ActionUpdate},
						Scope:    ScopeOwn,
					},
					ResourceDoctor: {
						Resource: ResourceDoctor,
						Actions:  []string{ActionRead},
						Scope:    ScopeAll,
					},
					ResourceAppointment: {
						Resource: ResourceAppointment,
						Actions:  []string{ActionRead, ActionUpdate},
						Scope:    ScopeOwn,
					},
					ResourcePrescription: {
						Resource: ResourcePrescription,
						Actions:  []string{ActionCreate, ActionRead, ActionUpdate},
						Scope:    ScopeOwn,
					},
					ResourceReport: {
						Resource: ResourceReport,
						Actions:  []string{ActionRead},
						Scope:    ScopeOwn,
					},
					ResourceNotification: {
						Resource: ResourceNotification,
						Actions:  []string{ActionRead, ActionUpdate},
						Scope:    ScopeOwn,
					},
				},
			},
			RoleLabTechnician: {
				Role:  RoleLabTechnician,
				Level: RoleLevels[RoleLabTechnician],
				Permissions: map[string]*Permission{
					ResourceUser: {
						Resource: ResourceUser,
						Actions:  []string{ActionRead, ActionUpdate},
						Scope:    ScopeOwn,
					},
					ResourceDoctor: {
						Resource: ResourceDoctor,
						Actions:  []string{ActionRead},
						Scope:    ScopeAll,
					},
					ResourceAppointment: {
						Resource: ResourceAppointment,
						Actions:  []string{ActionRead},
						Scope:    ScopeAssigned,
					},
					ResourcePrescription: {
						Resource: ResourcePrescription,
						Actions:  []string{ActionRead, ActionUpdate},
						Scope:    ScopeAssigned,
					},
					ResourceReport: {
						Resource: ResourceReport,
						Actions:  []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete},
						Scope:    ScopeOwn,
					},
					ResourceNotification: {
						Resource: ResourceNotification,
						Actions:  []string{ActionRead, ActionUpdate},
						Scope:    ScopeOwn,
					},
				},
			},
			RoleAdmin: {
				Role:  RoleAdmin,
				Level: RoleLevels[RoleAdmin],
				Permissions: map[string]*Permission{
					ResourceUser: {
						Resource: ResourceUser,
						Actions:  []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete},
						Scope:    ScopeAll,
					},
					ResourceDoctor: {
						Resource: ResourceDoctor,
						Actions:  []string{ActionRead},
						Scope:    ScopeAll,
					},
					ResourceAppointment: {
						Resource: ResourceAppointment,
						Actions:  []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete},
						Scope:    ScopeAll,
					},
					ResourcePrescription: {
						Resource: ResourcePrescription,
						Actions:  []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete},
						Scope:    ScopeAll,
					},
					ResourceReport: {
						Resource: ResourceReport,
						Actions:  []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete},
						Scope:    ScopeAll,
					},
					ResourceNotification: {
						Resource: ResourceNotification,
						Actions:  []string{ActionRead, ActionUpdate},
						Scope:    ScopeOwn,
					},
					ResourceAdmin: {
						Resource: ResourceAdmin,
						Actions:  []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete},
						Scope:    ScopeAll,
					},
				},
			},
		},
	}
}

// Authorize evaluates an access request against the matrix. Roles
// outside the closed set are always denied.
func (m *PermissionMatrix) Authorize(role, resource, action string) *AccessDecision {
	rolePerms, ok := m.Roles[role]
	if !ok {
		return &AccessDecision{Allowed: false, Reason: ReasonInvalidUserType}
	}

	perm, ok := rolePerms.Permissions[resource]
	if !ok {
		return &AccessDecision{Allowed: false, Reason: ReasonNotPermitted}
	}

	for _, a := range perm.Actions {
		if a == action {
			return &AccessDecision{Allowed: true, Scope: perm.Scope}
		}
	}

	return &AccessDecision{Allowed: false, Reason: ReasonNotPermitted}
}

// MapHTTPMethodToAction translates an HTTP method into a matrix action
func MapHTTPMethodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return ActionRead
	case http.MethodPost:
		return ActionCreate
	case http.MethodPut, http.MethodPatch:
		return ActionUpdate
	case http.MethodDelete:
		return ActionDelete
	default:
		return ""
	}
}

// StatusCodeForReason maps a denial reason to an HTTP status code
func StatusCodeForReason(reason string) int {
	switch reason {
	case ReasonInvalidUserType, ReasonNotPermitted:
		return http.StatusForbidden
	case ReasonUnknownResource:
		return http.StatusNotFound
	default:
		return http.StatusForbidden
	}
}

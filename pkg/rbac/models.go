package rbac

import (
	"time"
)

// AccessRequest represents a request for resource access
type AccessRequest struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Resource  string    `json:"resource"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// AccessDecision represents the result of an access control decision
type AccessDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Scope   string `json:"scope,omitempty"`
}

// Permission represents a specific permission in the system
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []string `json:"actions"`
	Scope    string   `json:"scope"` // "own", "assigned", "all"
}

// RolePermissions defines permissions for a specific role
type RolePermissions struct {
	Role        string                 `json:"role"`
	Level       int                    `json:"level"`
	Permissions map[string]*Permission `json:"permissions"`
}

// PermissionMatrix represents the complete permission matrix for the system
type PermissionMatrix struct {
	Roles       map[string]*RolePermissions `json:"roles"`
	LastUpdated time.Time                   `json:"last_updated"`
}

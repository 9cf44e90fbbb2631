package rbac

import (
	"fmt"
)

// RBACErrorType represents the type of RBAC error
type RBACErrorType string

const (
	ErrorTypeInsufficientPrivileges RBACErrorType = "insufficient_privileges"
	ErrorTypeInvalidRole            RBACErrorType = "invalid_role"
	ErrorTypeUnknownResource        RBACErrorType = "unknown_resource"
)

// RBACError represents an RBAC-specific error with detailed context
type RBACError struct {
	Type     RBACErrorType `json:"type"`
	Code     string        `json:"code"`
	Message  string        `json:"message"`
	UserID   string        `json:"user_id,omitempty"`
	Resource string        `json:"resource,omitempty"`
	Action   string        `json:"action,omitempty"`
	Cause    error         `json:"-"`
}

// Error implements the error interface
func (e *RBACError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (caused by: %v)", e.Code, e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Type, e.Message)
}

// Unwrap returns the underlying cause of the error
func (e *RBACError) Unwrap() error {
	return e.Cause
}

// NewRBACError creates a new RBAC error
func NewRBACError(errorType RBACErrorType, code, message string) *RBACError {
	return &RBACError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// WithContext adds context information to an RBAC error
func (e *RBACError) WithContext(userID, resource, action string) *RBACError {
	e.UserID = userID
	e.Resource = resource
	e.Action = action
	return e
}

// Predefined RBAC errors
var (
	ErrInsufficientPrivileges = NewRBACError(
		ErrorTypeInsufficientPrivileges,
		ErrorCodeInsufficientPrivileges,
		"User does not have sufficient privileges to perform this action",
	)

	ErrInvalidRole = NewRBACError(
		ErrorTypeInvalidRole,
		ErrorCodeInvalidRole,
		ReasonInvalidUserType,
	)
)

// IsRBACError checks if an error is an RBAC error
func IsRBACError(err error) bool {
	_, ok := err.(*RBACError)
	return ok
}

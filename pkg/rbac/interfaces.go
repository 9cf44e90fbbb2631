package rbac

// Authorizer decides whether a role may perform an action on a resource
type Authorizer interface {
	Authorize(role, resource, action string) *AccessDecision
}

package server

import (
	"net/http"
	"strings"

	"github.com/medrex/clinic-backend/pkg/rbac"
	"github.com/medrex/clinic-backend/pkg/types"
)

// rbacMiddleware evaluates the capability matrix before a request
// reaches its handler. Row-level scoping is left to the owning service.
func (s *Server) rbacMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := types.ClaimsFromContext(r.Context())
		if !ok {
			s.writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}

		resource := resourceForPath(r.URL.Path)
		if resource == "" {
			// Unknown paths fall through to the router's 404
			next.ServeHTTP(w, r)
			return
		}

		action := actionForRequest(r)
		if action == "" {
			s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		decision := s.matrix.Authorize(string(claims.Role), resource, action)
		if !decision.Allowed {
			s.logger.Security("access_denied", claims.UserID, map[string]interface{}{
				"resource": resource,
				"action":   action,
				"role":     string(claims.Role),
				"path":     r.URL.Path,
			})
			denial := rbac.ErrInsufficientPrivileges
			if decision.Reason == rbac.ReasonInvalidUserType {
				denial = rbac.ErrInvalidRole
			}
			s.writeError(w, rbac.StatusCodeForReason(decision.Reason), denial.Message)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resourceForPath maps an API path to a capability matrix resource
func resourceForPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/api/v1/")
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}

	switch parts[0] {
	case "users":
		return rbac.ResourceUser
	case "doctors":
		return rbac.ResourceDoctor
	case "appointments":
		return rbac.ResourceAppointment
	case "prescriptions":
		return rbac.ResourcePrescription
	case "reports":
		return rbac.ResourceReport
	case "notifications":
		return rbac.ResourceNotification
	case "admin":
		return rbac.ResourceAdmin
	default:
		return ""
	}
}

// actionForRequest maps the HTTP method to a matrix action. A handful
// of POST endpoints mutate existing rows and count as updates.
func actionForRequest(r *http.Request) string {
	if r.Method == http.MethodPost {
		switch {
		case strings.HasSuffix(r.URL.Path, "/complete-profile"),
			strings.HasSuffix(r.URL.Path, "/mark-as-read"),
			strings.HasSuffix(r.URL.Path, "/mark-all-as-read"),
			strings.HasSuffix(r.URL.Path, "/finalize"):
			return rbac.ActionUpdate
		}
	}

	return rbac.MapHTTPMethodToAction(r.Method)
}

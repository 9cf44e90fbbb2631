package server

import (
	"net"
	"net/http"
	"strings"

	"github.com/medrex/clinic-backend/pkg/database"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

// AuditRecorder persists an audit trail row for every mutating request
type AuditRecorder struct {
	db     *database.DB
	logger *logger.Logger
}

// NewAuditRecorder creates a new audit recorder
func NewAuditRecorder(db *database.DB, log *logger.Logger) *AuditRecorder {
	return &AuditRecorder{
		db:     db,
		logger: log,
	}
}

// Record writes a single audit log row. Failures are logged and
// swallowed so auditing never fails the request itself.
func (ar *AuditRecorder) Record(userID, action, resourceType, ipAddress, userAgent string, success bool, errorMessage string) {
	query := `
		INSERT INTO audit_logs (user_id, action, resource_type, ip_address, user_agent, success, error_message)
		VALUES (NULLIF($1, ''), $2, $3, NULLIF($4, '')::inet, $5, $6, NULLIF($7, ''))`

	if _, err := ar.db.Exec(query, userID, action, resourceType, ipAddress, userAgent, success, errorMessage); err != nil {
		ar.logger.WithError(err).Error("Failed to persist audit log entry")
	}
}

// auditMiddleware records mutating API requests to the audit trail
func (s *Server) auditMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.audit == nil || !isMutatingMethod(r.Method) || !strings.HasPrefix(r.URL.Path, "/api/v1/") {
			next.ServeHTTP(w, r)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(recorder, r)

		userID := ""
		if claims, ok := types.ClaimsFromContext(r.Context()); ok {
			userID = claims.UserID
		}

		resource := resourceForPath(r.URL.Path)
		if resource == "" {
			resource = "unknown"
		}

		success := recorder.statusCode < 400
		errorMessage := ""
		if !success {
			errorMessage = http.StatusText(recorder.statusCode)
		}

		go s.audit.Record(userID, strings.ToLower(r.Method)+" "+r.URL.Path, resource,
			clientIP(r), r.UserAgent(), success, errorMessage)
	})
}

func isMutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package notifications

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-backend/pkg/types"
)

// RegisterRoutes configures HTTP routes for the notification service
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/notifications", s.listNotificationsHandler).Methods("GET")
	api.HandleFunc("/notifications/unread-count", s.unreadCountHandler).Methods("GET")
	api.HandleFunc("/notifications/mark-all-as-read", s.markAllAsReadHandler).Methods("POST")
	api.HandleFunc("/notifications/{id}/mark-as-read", s.markAsReadHandler).Methods("POST")

	s.logger.Info("Notification service routes configured")
}

// listNotificationsHandler returns a page of the caller's notifications
func (s *Service) listNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}

	result, err := s.ListNotifications(claims, page)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, result)
}

// unreadCountHandler returns the caller's unread notification count
func (s *Service) unreadCountHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	count, err := s.UnreadCount(claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]int{"unread_count": count})
}

// markAsReadHandler marks one notification as read
func (s *Service) markAsReadHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	if err := s.MarkAsRead(vars["id"], claims); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// markAllAsReadHandler marks all of the caller's notifications as read
func (s *Service) markAllAsReadHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	updated, err := s.MarkAllAsRead(claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "All notifications marked as read",
		"updated": updated,
	})
}

// writeJSONResponse writes a JSON response
func (s *Service) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Service) writeErrorResponse(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		s.logger.WithError(err).Error(message)
	}

	response := map[string]interface{}{
		"error":  message,
		"status": statusCode,
	}

	if err != nil {
		response["details"] = err.Error()
	}

	s.writeJSONResponse(w, statusCode, response)
}

// writeServiceError maps service errors to HTTP responses
func (s *Service) writeServiceError(w http.ResponseWriter, err error) {
	var clinicErr *types.ClinicError
	if errors.As(err, &clinicErr) {
		status := http.StatusInternalServerError
		switch clinicErr.Type {
		case types.ErrorTypeValidation:
			status = http.StatusBadRequest
		case types.ErrorTypeAuthentication:
			status = http.StatusUnauthorized
		case types.ErrorTypeAuthorization:
			status = http.StatusForbidden
		case types.ErrorTypeNotFound:
			status = http.StatusNotFound
		case types.ErrorTypeConflict:
			status = http.StatusConflict
		}

		s.writeJSONResponse(w, status, map[string]interface{}{
			"error":   clinicErr.Message,
			"code":    clinicErr.Code,
			"details": clinicErr.Details,
		})
		return
	}

	s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", err)
}

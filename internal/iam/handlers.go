package iam

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-backend/pkg/types"
)

// RegisterRoutes configures HTTP routes for the IAM service
func (s *Service) RegisterRoutes(api *mux.Router) {
	// Authentication routes
	api.HandleFunc("/auth/register", s.registerHandler).Methods("POST")
	api.HandleFunc("/auth/login", s.loginHandler).Methods("POST")
	api.HandleFunc("/auth/refresh", s.refreshHandler).Methods("POST")

	// Profile routes
	api.HandleFunc("/users/me", s.getProfileHandler).Methods("GET")
	api.HandleFunc("/users/me", s.updateProfileHandler).Methods("PUT")
	api.HandleFunc("/users/me/complete-profile", s.completeProfileHandler).Methods("POST")
	api.HandleFunc("/users/me/password", s.changePasswordHandler).Methods("PUT")

	// Public doctor directory
	api.HandleFunc("/doctors", s.listDoctorsHandler).Methods("GET")

	// Administration routes
	api.HandleFunc("/admin/doctors", s.createDoctorHandler).Methods("POST")
	api.HandleFunc("/admin/doctors", s.listUsersHandler(types.RoleDoctor)).Methods("GET")
	api.HandleFunc("/admin/lab-technicians", s.createLabTechnicianHandler).Methods("POST")
	api.HandleFunc("/admin/lab-technicians", s.listUsersHandler(types.RoleLabTechnician)).Methods("GET")
	api.HandleFunc("/admin/patients", s.listUsersHandler(types.RolePatient)).Methods("GET")
	api.HandleFunc("/admin/users/{id}", s.getUserHandler).Methods("GET")
	api.HandleFunc("/admin/users/{id}", s.adminUpdateUserHandler).Methods("PUT")
	api.HandleFunc("/admin/users/{id}", s.deleteUserHandler).Methods("DELETE")

	s.logger.Info("IAM service routes configured")
}

// registerHandler handles patient self-registration
func (s *Service) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req types.UserRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := s.RegisterUser(&req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, user)
}

// loginHandler handles credential authentication
func (s *Service) loginHandler(w http.ResponseWriter, r *http.Request) {
	var credentials types.Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, err := s.AuthenticateUser(&credentials)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, token)
}

// refreshHandler exchanges a refresh token for new tokens
func (s *Service) refreshHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, err := s.RefreshToken(req.RefreshToken)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, token)
}

// getProfileHandler returns the authenticated user's profile
func (s *Service) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	user, err := s.GetUser(claims.UserID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, user)
}

// updateProfileHandler applies profile updates for the authenticated user
func (s *Service) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var updates types.ProfileUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.UpdateProfile(claims.UserID, &updates, claims); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Profile updated successfully"})
}

// completeProfileHandler finalizes the authenticated user's profile
func (s *Service) completeProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var updates types.ProfileUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.CompleteProfile(claims.UserID, &updates, claims); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Profile completed successfully"})
}

// changePasswordHandler changes the authenticated user's password
func (s *Service) changePasswordHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req types.PasswordChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.ChangePassword(claims.UserID, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

// listDoctorsHandler returns the public doctor directory
func (s *Service) listDoctorsHandler(w http.ResponseWriter, r *http.Request) {
	profession := types.Profession(r.URL.Query().Get("profession"))
	if profession != "" && !types.ValidProfessions[profession] {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid profession", nil)
		return
	}

	doctors, err := s.ListDoctors(profession)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"doctors": doctors,
		"count":   len(doctors),
	})
}

// createDoctorHandler creates a doctor account
func (s *Service) createDoctorHandler(w http.ResponseWriter, r *http.Request) {
	s.createStaffHandler(w, r, types.RoleDoctor)
}

// createLabTechnicianHandler creates a lab technician account
func (s *Service) createLabTechnicianHandler(w http.ResponseWriter, r *http.Request) {
	s.createStaffHandler(w, r, types.RoleLabTechnician)
}

func (s *Service) createStaffHandler(w http.ResponseWriter, r *http.Request, role types.UserRole) {
	var req types.StaffUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := s.CreateStaffUser(&req, role)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, user)
}

// listUsersHandler lists accounts of a fixed role for administration
func (s *Service) listUsersHandler(role types.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		criteria := s.parseSearchCriteria(r)

		users, err := s.ListUsers(role, criteria)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}

		s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"users": users,
			"count": len(users),
		})
	}
}

// getUserHandler retrieves a single user for administration
func (s *Service) getUserHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	user, err := s.GetUser(vars["id"])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, user)
}

// adminUpdateUserHandler applies profile updates to any account
func (s *Service) adminUpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	var updates types.ProfileUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := s.UpdateProfile(vars["id"], &updates, claims); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "User updated successfully"})
}

// deleteUserHandler removes a non-admin account
func (s *Service) deleteUserHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := s.DeleteUser(vars["id"]); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
}

// parseSearchCriteria parses query parameters into user search criteria
func (s *Service) parseSearchCriteria(r *http.Request) *types.UserSearchCriteria {
	criteria := &types.UserSearchCriteria{}

	if email := r.URL.Query().Get("email"); email != "" {
		criteria.Email = email
	}

	if name := r.URL.Query().Get("name"); name != "" {
		criteria.Name = name
	}

	if profession := r.URL.Query().Get("profession"); profession != "" {
		criteria.Profession = types.Profession(profession)
	}

	if isActive := r.URL.Query().Get("is_active"); isActive != "" {
		if parsed, err := strconv.ParseBool(isActive); err == nil {
			criteria.IsActive = &parsed
		}
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			criteria.Limit = parsed
		}
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		if parsed, err := strconv.Atoi(offset); err == nil {
			criteria.Offset = parsed
		}
	}

	return criteria
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
		s.writeJSONResponse(w, statusForErrorType(clinicErr.Type), map[string]interface{}{
			"error":   clinicErr.Message,
			"code":    clinicErr.Code,
			"details": clinicErr.Details,
		})
		return
	}

	s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", err)
}

func statusForErrorType(errType types.ErrorType) int {
	switch errType {
	case types.ErrorTypeValidation:
		return http.StatusBadRequest
	case types.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case types.ErrorTypeAuthorization:
		return http.StatusForbidden
	case types.ErrorTypeNotFound:
		return http.StatusNotFound
	case types.ErrorTypeConflict:
		return http.StatusConflict
	case types.ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

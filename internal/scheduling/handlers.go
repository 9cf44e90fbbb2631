package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-backend/pkg/types"
)

// RegisterRoutes configures HTTP routes for the scheduling service
func (s *Service) RegisterRoutes(api *mux.Router) {
	api.HandleFunc("/appointments", s.bookAppointmentHandler).Methods("POST")
	api.HandleFunc("/appointments", s.listAppointmentsHandler).Methods("GET")
	api.HandleFunc("/appointments/pending", s.pendingAppointmentsHandler).Methods("GET")
	api.HandleFunc("/appointments/{id}", s.getAppointmentHandler).Methods("GET")
	api.HandleFunc("/appointments/{id}", s.updateAppointmentHandler).Methods("PUT")
	api.HandleFunc("/appointments/{id}", s.cancelAppointmentHandler).Methods("DELETE")

	s.logger.Info("Scheduling service routes configured")
}

// appointmentPayload accepts both the canonical field names and the
// legacy aliases still sent by older clients
type appointmentPayload struct {
	types.AppointmentRequest

	DoctorIDAlias    string `json:"doctorId,omitempty"`
	DateAlias        string `json:"date,omitempty"`
	TimeAlias        string `json:"time,omitempty"`
	DescriptionAlias string `json:"description,omitempty"`
}

// normalize resolves legacy aliases, canonical names win when both
// are present
func (p *appointmentPayload) normalize() *types.AppointmentRequest {
	req := p.AppointmentRequest

	if req.DoctorID == "" {
		req.DoctorID = p.DoctorIDAlias
	}
	if req.AppointmentDate == "" {
		req.AppointmentDate = p.DateAlias
	}
	if req.AppointmentTime == "" {
		req.AppointmentTime = p.TimeAlias
	}
	if req.Symptoms == "" {
		req.Symptoms = p.DescriptionAlias
	}

	return &req
}

// bookAppointmentHandler handles appointment booking
func (s *Service) bookAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var payload appointmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := s.BookAppointment(payload.normalize(), claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, view)
}

// listAppointmentsHandler lists appointments within the caller's scope
func (s *Service) listAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	filters := s.parseAppointmentFilters(r)

	views, err := s.ListAppointments(filters, claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"appointments": views,
		"count":        len(views),
	})
}

// pendingAppointmentsHandler lists a doctor's upcoming queue
func (s *Service) pendingAppointmentsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	views, err := s.PendingAppointments(claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"appointments": views,
		"count":        len(views),
	})
}

// getAppointmentHandler retrieves a single appointment
func (s *Service) getAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	view, err := s.GetAppointment(vars["id"], claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, view)
}

// updateAppointmentHandler applies role-scoped appointment updates
func (s *Service) updateAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	var updates types.AppointmentUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := s.UpdateAppointment(vars["id"], &updates, claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, view)
}

// cancelAppointmentHandler cancels an appointment
func (s *Service) cancelAppointmentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	if err := s.CancelAppointment(vars["id"], claims); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Appointment cancelled successfully"})
}

// parseAppointmentFilters parses query parameters into appointment filters
func (s *Service) parseAppointmentFilters(r *http.Request) *types.AppointmentFilters {
	filters := &types.AppointmentFilters{}

	if doctorID := r.URL.Query().Get("doctor_id"); doctorID != "" {
		filters.DoctorID = doctorID
	}

	if patientID := r.URL.Query().Get("patient_id"); patientID != "" {
		filters.PatientID = patientID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filters.Status = types.AppointmentStatus(status)
	}

	if fromDate := r.URL.Query().Get("from_date"); fromDate != "" {
		filters.FromDate = fromDate
	}

	if toDate := r.URL.Query().Get("to_date"); toDate != "" {
		filters.ToDate = toDate
	}

	if search := r.URL.Query().Get("search"); search != "" {
		filters.Search = search
	}

	if ordering := r.URL.Query().Get("ordering"); ordering != "" {
		filters.Ordering = ordering
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if parsed, err := strconv.Atoi(limit); err == nil {
			filters.Limit = parsed
		}
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		if parsed, err := strconv.Atoi(offset); err == nil {
			filters.Offset = parsed
		}
	}

	return filters
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

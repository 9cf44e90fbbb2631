package clinical

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/medrex/clinic-backend/pkg/types"
)

// RegisterRoutes configures HTTP routes for the clinical service
func (s *Service) RegisterRoutes(api *mux.Router) {
	// Prescription routes
	api.HandleFunc("/prescriptions", s.createPrescriptionHandler).Methods("POST")
	api.HandleFunc("/prescriptions", s.listPrescriptionsHandler).Methods("GET")
	api.HandleFunc("/prescriptions/lab-queue", s.labQueueHandler).Methods("GET")
	api.HandleFunc("/prescriptions/{id}", s.getPrescriptionHandler).Methods("GET")
	api.HandleFunc("/prescriptions/{id}", s.updatePrescriptionHandler).Methods("PUT")
	api.HandleFunc("/prescriptions/{id}/finalize", s.finalizeDraftHandler).Methods("POST")
	api.HandleFunc("/prescriptions/{id}/lab", s.updateLabAssignmentHandler).Methods("PUT")

	// Medical report routes
	api.HandleFunc("/reports", s.createReportHandler).Methods("POST")
	api.HandleFunc("/reports", s.listReportsHandler).Methods("GET")
	api.HandleFunc("/reports/{id}", s.getReportHandler).Methods("GET")
	api.HandleFunc("/reports/{id}", s.updateReportHandler).Methods("PUT")
	api.HandleFunc("/reports/{id}", s.deleteReportHandler).Methods("DELETE")
	api.HandleFunc("/reports/{id}/download", s.downloadReportHandler).Methods("GET")

	s.logger.Info("Clinical service routes configured")
}

// prescriptionPayload accepts the canonical field names alongside the
// renamed variants used by newer clients, and identifiers sent as
// numbers or strings
type prescriptionPayload struct {
	types.PrescriptionRequest

	AppointmentIDRaw   json.RawMessage `json:"appointment_id,omitempty"`
	AppointmentIDAlias json.RawMessage `json:"appointmentId,omitempty"`
	SymptomsAlias      string          `json:"symptoms,omitempty"`
	PrescriptionText   string          `json:"prescription_text,omitempty"`
}

// normalize resolves renamed fields, canonical names win when both are
// present
func (p *prescriptionPayload) normalize() *types.PrescriptionRequest {
	req := p.PrescriptionRequest

	req.AppointmentID = decodeID(p.AppointmentIDRaw)
	if req.AppointmentID == "" {
		req.AppointmentID = decodeID(p.AppointmentIDAlias)
	}
	if req.Diagnosis == "" {
		req.Diagnosis = p.SymptomsAlias
	}
	if req.Medication == "" {
		req.Medication = p.PrescriptionText
	}
	// The renamed schema reuses lab_instructions for the general
	// instructions field; without lab work requested it fills that role
	if req.Instructions == "" && !req.LabTestsRequired && req.LabInstructions != "" {
		req.Instructions = req.LabInstructions
		req.LabInstructions = ""
	}

	return &req
}

// decodeID accepts identifiers sent as JSON strings or numbers
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}

	return ""
}

// createPrescriptionHandler handles prescription creation
func (s *Service) createPrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var payload prescriptionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := s.CreatePrescription(payload.normalize(), claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, view)
}

// listPrescriptionsHandler lists prescriptions within the caller's scope
func (s *Service) listPrescriptionsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	views, err := s.ListPrescriptions(claims, listOptionsFromQuery(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"prescriptions": views,
		"count":         len(views),
	})
}

// labQueueHandler lists unassigned prescriptions requesting lab work
func (s *Service) labQueueHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	views, err := s.LabQueue(claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"prescriptions": views,
		"count":         len(views),
	})
}

// getPrescriptionHandler retrieves a single prescription
func (s *Service) getPrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	view, err := s.GetPrescription(vars["id"], claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, view)
}

// updatePrescriptionHandler applies clinical prescription updates
func (s *Service) updatePrescriptionHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	var updates types.PrescriptionUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := s.UpdatePrescription(vars["id"], &updates, claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, view)
}

// finalizeDraftHandler promotes a draft prescription to active
func (s *Service) finalizeDraftHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	view, err := s.FinalizeDraft(vars["id"], claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, view)
}

// updateLabAssignmentHandler applies the restricted lab technician update
func (s *Service) updateLabAssignmentHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	var upd types.PrescriptionLabUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := s.UpdateLabAssignment(vars["id"], &upd, claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, view)
}

// createReportHandler handles medical report uploads. Accepts
// multipart form data with an optional report_file part, or a plain
// JSON body for metadata-only reports.
func (s *Service) createReportHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req types.MedicalReportRequest
	var file multipart.File
	var header *multipart.FileHeader

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		maxMemory := s.config.Uploads.MaxSizeBytes
		if maxMemory <= 0 {
			maxMemory = 10 << 20
		}
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid multipart form", err)
			return
		}

		req.AppointmentID = r.FormValue("appointment_id")
		req.ReportType = types.ReportType(r.FormValue("report_type"))
		req.Description = r.FormValue("description")
		req.Notes = r.FormValue("notes")

		if f, h, err := r.FormFile("report_file"); err == nil {
			file = f
			header = h
			defer f.Close()
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	view, err := s.CreateReport(&req, file, header, claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusCreated, view)
}

// listReportsHandler lists medical reports within the caller's scope
func (s *Service) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	views, err := s.ListReports(claims, listOptionsFromQuery(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"reports": views,
		"count":   len(views),
	})
}

// getReportHandler retrieves a single medical report
func (s *Service) getReportHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	view, err := s.GetReport(vars["id"], claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, view)
}

// updateReportHandler applies report metadata updates
func (s *Service) updateReportHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	var updates types.MedicalReportUpdates
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := s.UpdateReport(vars["id"], &updates, claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, view)
}

// deleteReportHandler removes a medical report
func (s *Service) deleteReportHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	if err := s.DeleteReport(vars["id"], claims); err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Report deleted successfully"})
}

// downloadReportHandler streams the stored report file
func (s *Service) downloadReportHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := types.ClaimsFromContext(r.Context())
	if !ok {
		s.writeErrorResponse(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	vars := mux.Vars(r)

	f, view, err := s.OpenReportFile(vars["id"], claims)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer f.Close()

	filename := filepath.Base(view.ReportFile)
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if _, err := io.Copy(w, f); err != nil {
		s.logger.WithError(err).Error("Failed to stream report file")
	}
}

// listOptionsFromQuery parses client search and ordering parameters
func listOptionsFromQuery(r *http.Request) *ListOptions {
	return &ListOptions{
		Search:   r.URL.Query().Get("search"),
		Ordering: r.URL.Query().Get("ordering"),
	}
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

package clinical

import (
	"mime/multipart"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/database"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

// PrescriptionStore defines prescription persistence operations
type PrescriptionStore interface {
	Create(p *types.Prescription) error
	GetByID(id string) (*types.PrescriptionView, error)
	List(filters *PrescriptionFilters) ([]*types.PrescriptionView, error)
	LabQueue() ([]*types.PrescriptionView, error)
	Update(id string, updates map[string]interface{}) error
}

// ReportStore defines medical report persistence operations
type ReportStore interface {
	Create(rep *types.MedicalReport) error
	GetByID(id string) (*types.MedicalReportView, error)
	List(filters *ReportFilters) ([]*types.MedicalReportView, error)
	Update(id string, updates map[string]interface{}) error
	Delete(id string) error
}

// AppointmentSource resolves appointments for clinical validation
type AppointmentSource interface {
	GetByID(id string) (*types.AppointmentView, error)
}

// Notifier delivers clinical lifecycle notifications. Delivery is
// best effort.
type Notifier interface {
	PrescriptionCreated(p *types.PrescriptionView) error
	ReportUploaded(rep *types.MedicalReportView) error
}

// Service implements prescription and medical report management
type Service struct {
	config        *config.Config
	logger        *logger.Logger
	prescriptions PrescriptionStore
	reports       ReportStore
	appointments  AppointmentSource
	files         *FileStore
	notifier      Notifier
}

// NewService creates a new clinical service
func NewService(cfg *config.Config, log *logger.Logger, prescriptions PrescriptionStore, reports ReportStore, appointments AppointmentSource, notifier Notifier) *Service {
	return &Service{
		config:        cfg,
		logger:        log,
		prescriptions: prescriptions,
		reports:       reports,
		appointments:  appointments,
		files:         NewFileStore(&cfg.Uploads, log),
		notifier:      notifier,
	}
}

// CreatePrescription issues a prescription against an appointment.
// Drafts skip the appointment-status rule and stay invisible to the
// lab queue until finalized.
func (s *Service) CreatePrescription(req *types.PrescriptionRequest, claims *types.UserClaims) (*types.PrescriptionView, error) {
	if claims.Role != types.RoleDoctor {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only doctors can create prescriptions")
	}

	apt, err := s.appointments.GetByID(req.AppointmentID)
	if err != nil {
		return nil, err
	}

	if apt.DoctorID != claims.UserID {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Prescriptions can only be created for your own appointments")
	}

	if !req.Draft {
		if apt.Status != types.StatusConfirmed && apt.Status != types.StatusCompleted {
			return nil, types.NewValidationError(types.ErrCodeValidationFailed,
				"Prescriptions can only be created for confirmed or completed appointments", nil)
		}
	}

	if strings.TrimSpace(req.Diagnosis) == "" || strings.TrimSpace(req.Medication) == "" {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Diagnosis and medication are required", nil)
	}

	if req.LabTestsRequired && strings.TrimSpace(req.LabInstructions) == "" {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed,
			"Lab instructions are required when lab tests are requested", nil)
	}

	status := types.PrescriptionActive
	if req.Draft {
		status = types.PrescriptionDraft
	}

	p := &types.Prescription{
		ID:               uuid.New().String(),
		AppointmentID:    apt.ID,
		PatientID:        apt.PatientID,
		DoctorID:         claims.UserID,
		Diagnosis:        req.Diagnosis,
		Medication:       req.Medication,
		Instructions:     req.Instructions,
		LabTestsRequired: req.LabTestsRequired,
		LabInstructions:  req.LabInstructions,
		Status:           status,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := s.prescriptions.Create(p); err != nil {
		return nil, err
	}

	view, err := s.prescriptions.GetByID(p.ID)
	if err != nil {
		return nil, err
	}

	if !req.Draft {
		if err := s.notifier.PrescriptionCreated(view); err != nil {
			s.logger.WithError(err).Warn("Failed to send prescription created notification")
		}
	}

	s.logger.Audit(claims.UserID, "create", "prescriptions", true, map[string]interface{}{
		"prescription_id": p.ID,
		"draft":           req.Draft,
	})

	return view, nil
}

// FinalizeDraft promotes a draft prescription to active. The
// appointment-status rule applies at finalization time.
func (s *Service) FinalizeDraft(id string, claims *types.UserClaims) (*types.PrescriptionView, error) {
	view, err := s.prescriptions.GetByID(id)
	if err != nil {
		return nil, err
	}

	if claims.Role != types.RoleDoctor || view.DoctorID != claims.UserID {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only the prescribing doctor can finalize a draft")
	}

	if view.Status != types.PrescriptionDraft {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Only draft prescriptions can be finalized", nil)
	}

	apt, err := s.appointments.GetByID(view.AppointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Status != types.StatusConfirmed && apt.Status != types.StatusCompleted {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed,
			"Prescriptions can only be created for confirmed or completed appointments", nil)
	}

	if err := s.prescriptions.Update(id, map[string]interface{}{"status": types.PrescriptionActive}); err != nil {
		return nil, err
	}

	view, err = s.prescriptions.GetByID(id)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.PrescriptionCreated(view); err != nil {
		s.logger.WithError(err).Warn("Failed to send prescription created notification")
	}

	return view, nil
}

// GetPrescription retrieves a prescription within the caller's scope
func (s *Service) GetPrescription(id string, claims *types.UserClaims) (*types.PrescriptionView, error) {
	view, err := s.prescriptions.GetByID(id)
	if err != nil {
		return nil, err
	}

	if !s.canAccessPrescription(view, claims) {
		return nil, types.NewNotFoundError("PRESCRIPTION_NOT_FOUND", "Prescription not found")
	}

	return view, nil
}

// ListOptions carries client-driven search and ordering for list
// endpoints. Ordering keys are validated against the per-entity
// allowlist before they reach a query.
type ListOptions struct {
	Search   string
	Ordering string
}

// ListPrescriptions lists prescriptions visible to the caller
func (s *Service) ListPrescriptions(claims *types.UserClaims, opts *ListOptions) ([]*types.PrescriptionView, error) {
	filters := &PrescriptionFilters{}
	if opts != nil {
		if !database.ValidOrdering(opts.Ordering, prescriptionOrderColumns) {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid ordering field", nil)
		}
		filters.Search = opts.Search
		filters.Ordering = opts.Ordering
	}

	switch claims.Role {
	case types.RolePatient:
		// Patients never see drafts
		filters.PatientID = claims.UserID
		filters.ExcludeDrafts = true
	case types.RoleDoctor:
		filters.DoctorID = claims.UserID
	case types.RoleLabTechnician:
		// Assigned work plus unclaimed lab requests
		filters.LabTechnicianID = claims.UserID
		filters.IncludeUnassignedLab = true
		filters.ExcludeDrafts = true
	case types.RoleAdmin:
		// Admins see everything
	default:
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Invalid user type")
	}

	return s.prescriptions.List(filters)
}

// LabQueue lists unassigned prescriptions requesting lab work
func (s *Service) LabQueue(claims *types.UserClaims) ([]*types.PrescriptionView, error) {
	if claims.Role != types.RoleLabTechnician && claims.Role != types.RoleAdmin {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only lab technicians can view the lab queue")
	}

	return s.prescriptions.LabQueue()
}

// UpdatePrescription applies clinical updates by the prescribing
// doctor or an admin
func (s *Service) UpdatePrescription(id string, updates *types.PrescriptionUpdates, claims *types.UserClaims) (*types.PrescriptionView, error) {
	view, err := s.prescriptions.GetByID(id)
	if err != nil {
		return nil, err
	}

	if claims.Role != types.RoleAdmin && (claims.Role != types.RoleDoctor || view.DoctorID != claims.UserID) {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only the prescribing doctor can update a prescription")
	}

	fields := make(map[string]interface{})
	if updates.Diagnosis != nil {
		fields["diagnosis"] = *updates.Diagnosis
	}
	if updates.Medication != nil {
		fields["medication"] = *updates.Medication
	}
	if updates.Instructions != nil {
		fields["instructions"] = *updates.Instructions
	}
	if updates.LabTestsRequired != nil {
		fields["lab_tests_required"] = *updates.LabTestsRequired
	}
	if updates.LabInstructions != nil {
		fields["lab_instructions"] = *updates.LabInstructions
	}

	if len(fields) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided", nil)
	}

	// The lab-instructions rule holds across updates
	labRequired := view.LabTestsRequired
	if updates.LabTestsRequired != nil {
		labRequired = *updates.LabTestsRequired
	}
	labInstructions := view.LabInstructions
	if updates.LabInstructions != nil {
		labInstructions = *updates.LabInstructions
	}
	if labRequired && strings.TrimSpace(labInstructions) == "" {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed,
			"Lab instructions are required when lab tests are requested", nil)
	}

	if err := s.prescriptions.Update(id, fields); err != nil {
		return nil, err
	}

	return s.prescriptions.GetByID(id)
}

// UpdateLabAssignment applies the restricted update a lab technician
// may make: claiming the prescription and moving its workflow status.
// An empty assignment defaults to self-assignment.
func (s *Service) UpdateLabAssignment(id string, upd *types.PrescriptionLabUpdate, claims *types.UserClaims) (*types.PrescriptionView, error) {
	if claims.Role != types.RoleLabTechnician {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only lab technicians can update lab assignments")
	}

	view, err := s.prescriptions.GetByID(id)
	if err != nil {
		return nil, err
	}

	if !view.LabTestsRequired {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "This prescription does not request lab tests", nil)
	}

	if view.Status == types.PrescriptionDraft {
		return nil, types.NewNotFoundError("PRESCRIPTION_NOT_FOUND", "Prescription not found")
	}

	// Unassigned prescriptions can be claimed; assigned ones can only
	// be touched by their assignee
	if view.LabTechnicianID != nil && *view.LabTechnicianID != claims.UserID {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "This prescription is assigned to another lab technician")
	}

	fields := make(map[string]interface{})

	technicianID := claims.UserID
	if upd.LabTechnicianID != nil && *upd.LabTechnicianID != "" {
		if *upd.LabTechnicianID != claims.UserID {
			return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Lab technicians can only assign prescriptions to themselves")
		}
		technicianID = *upd.LabTechnicianID
	}
	fields["lab_technician_id"] = technicianID

	if upd.Status != nil {
		if *upd.Status != types.PrescriptionActive && *upd.Status != types.PrescriptionCompleted {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid prescription status", nil)
		}
		fields["status"] = *upd.Status
	}

	if err := s.prescriptions.Update(id, fields); err != nil {
		return nil, err
	}

	s.logger.Audit(claims.UserID, "lab_update", "prescriptions", true, map[string]interface{}{
		"prescription_id": id,
	})

	return s.prescriptions.GetByID(id)
}

// CreateReport uploads a medical report for a completed appointment.
// file may be nil for metadata-only reports.
func (s *Service) CreateReport(req *types.MedicalReportRequest, file multipart.File, header *multipart.FileHeader, claims *types.UserClaims) (*types.MedicalReportView, error) {
	if claims.Role != types.RoleLabTechnician {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only lab technicians can upload medical reports")
	}

	apt, err := s.appointments.GetByID(req.AppointmentID)
	if err != nil {
		return nil, err
	}

	if apt.Status != types.StatusCompleted {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed,
			"Reports can only be uploaded for completed appointments", nil)
	}

	if !types.ValidReportTypes[req.ReportType] {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid report type", nil)
	}

	if strings.TrimSpace(req.Description) == "" {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Report description is required", nil)
	}

	var filePath string
	if file != nil {
		filePath, err = s.files.Save(file, header)
		if err != nil {
			return nil, err
		}
	}

	rep := &types.MedicalReport{
		ID:              uuid.New().String(),
		AppointmentID:   apt.ID,
		PatientID:       apt.PatientID,
		DoctorID:        apt.DoctorID,
		LabTechnicianID: claims.UserID,
		ReportType:      req.ReportType,
		ReportFile:      filePath,
		Description:     req.Description,
		Notes:           req.Notes,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.reports.Create(rep); err != nil {
		if filePath != "" {
			if rmErr := s.files.Remove(filePath); rmErr != nil {
				s.logger.WithError(rmErr).Warn("Failed to clean up orphaned report file")
			}
		}
		return nil, err
	}

	view, err := s.reports.GetByID(rep.ID)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.ReportUploaded(view); err != nil {
		s.logger.WithError(err).Warn("Failed to send report uploaded notification")
	}

	s.logger.Audit(claims.UserID, "upload", "reports", true, map[string]interface{}{
		"report_id":      rep.ID,
		"appointment_id": rep.AppointmentID,
	})

	return view, nil
}

// GetReport retrieves a medical report within the caller's scope
func (s *Service) GetReport(id string, claims *types.UserClaims) (*types.MedicalReportView, error) {
	view, err := s.reports.GetByID(id)
	if err != nil {
		return nil, err
	}

	if !s.canAccessReport(view, claims) {
		return nil, types.NewNotFoundError("REPORT_NOT_FOUND", "Medical report not found")
	}

	return view, nil
}

// ListReports lists medical reports visible to the caller
func (s *Service) ListReports(claims *types.UserClaims, opts *ListOptions) ([]*types.MedicalReportView, error) {
	filters := &ReportFilters{}
	if opts != nil {
		if !database.ValidOrdering(opts.Ordering, reportOrderColumns) {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid ordering field", nil)
		}
		filters.Search = opts.Search
		filters.Ordering = opts.Ordering
	}

	switch claims.Role {
	case types.RolePatient:
		filters.PatientID = claims.UserID
	case types.RoleDoctor:
		filters.DoctorID = claims.UserID
	case types.RoleLabTechnician:
		filters.LabTechnicianID = claims.UserID
	case types.RoleAdmin:
		// Admins see everything
	default:
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Invalid user type")
	}

	return s.reports.List(filters)
}

// UpdateReport applies updates by the uploading technician or an admin
func (s *Service) UpdateReport(id string, updates *types.MedicalReportUpdates, claims *types.UserClaims) (*types.MedicalReportView, error) {
	view, err := s.reports.GetByID(id)
	if err != nil {
		return nil, err
	}

	if !s.canModifyReport(view, claims) {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only the uploading lab technician or an admin can modify a report")
	}

	fields := make(map[string]interface{})
	if updates.ReportType != nil {
		if !types.ValidReportTypes[*updates.ReportType] {
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid report type", nil)
		}
		fields["report_type"] = *updates.ReportType
	}
	if updates.Description != nil {
		fields["description"] = *updates.Description
	}
	if updates.Notes != nil {
		fields["notes"] = *updates.Notes
	}

	if len(fields) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided", nil)
	}

	if err := s.reports.Update(id, fields); err != nil {
		return nil, err
	}

	return s.reports.GetByID(id)
}

// DeleteReport removes a report and its stored file
func (s *Service) DeleteReport(id string, claims *types.UserClaims) error {
	view, err := s.reports.GetByID(id)
	if err != nil {
		return err
	}

	if !s.canModifyReport(view, claims) {
		return types.NewAuthorizationError(types.ErrCodeForbidden, "Only the uploading lab technician or an admin can delete a report")
	}

	if err := s.reports.Delete(id); err != nil {
		return err
	}

	if view.ReportFile != "" {
		if err := s.files.Remove(view.ReportFile); err != nil {
			s.logger.WithError(err).Warn("Failed to remove report file")
		}
	}

	s.logger.Audit(claims.UserID, "delete", "reports", true, map[string]interface{}{
		"report_id": id,
	})
	return nil
}

// OpenReportFile opens the stored file of a report within the
// caller's scope
func (s *Service) OpenReportFile(id string, claims *types.UserClaims) (*os.File, *types.MedicalReportView, error) {
	view, err := s.GetReport(id, claims)
	if err != nil {
		return nil, nil, err
	}

	if view.ReportFile == "" {
		return nil, nil, types.NewNotFoundError("FILE_NOT_FOUND", "This report has no attached file")
	}

	f, err := s.files.Open(view.ReportFile)
	if err != nil {
		return nil, nil, err
	}

	return f, view, nil
}

func (s *Service) canAccessPrescription(view *types.PrescriptionView, claims *types.UserClaims) bool {
	switch claims.Role {
	case types.RoleAdmin:
		return true
	case types.RolePatient:
		// Drafts stay with the doctor until finalized
		return view.PatientID == claims.UserID && view.Status != types.PrescriptionDraft
	case types.RoleDoctor:
		return view.DoctorID == claims.UserID
	case types.RoleLabTechnician:
		if view.Status == types.PrescriptionDraft || !view.LabTestsRequired {
			return false
		}
		return view.LabTechnicianID == nil || *view.LabTechnicianID == claims.UserID
	default:
		return false
	}
}

func (s *Service) canAccessReport(view *types.MedicalReportView, claims *types.UserClaims) bool {
	switch claims.Role {
	case types.RoleAdmin:
		return true
	case types.RolePatient:
		return view.PatientID == claims.UserID
	case types.RoleDoctor:
		return view.DoctorID == claims.UserID
	case types.RoleLabTechnician:
		return view.LabTechnicianID == claims.UserID
	default:
		return false
	}
}

func (s *Service) canModifyReport(view *types.MedicalReportView, claims *types.UserClaims) bool {
	if claims.Role == types.RoleAdmin {
		return true
	}
	return claims.Role == types.RoleLabTechnician && view.LabTechnicianID == claims.UserID
}

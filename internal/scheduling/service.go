package scheduling

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/database"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

// Repository defines the persistence operations the scheduling
// service needs
type Repository interface {
	Create(apt *types.Appointment) error
	GetByID(id string) (*types.AppointmentView, error)
	CountSlotConflicts(doctorID, date, timeOfDay string, excludeCancelled bool, excludeID string) (int, error)
	Update(id string, updates map[string]interface{}) error
	List(filters *types.AppointmentFilters) ([]*types.AppointmentView, error)
	ListUpcomingForDoctor(doctorID string) ([]*types.AppointmentView, error)
	ListForLabWork(labTechID string) ([]*types.AppointmentView, error)
	HasLabWork(appointmentID, labTechID string) (bool, error)
}

// UserDirectory resolves user accounts for booking validation
type UserDirectory interface {
	GetByID(id string) (*types.User, error)
}

// Notifier delivers appointment lifecycle notifications. Delivery is
// best effort and never blocks the booking flow.
type Notifier interface {
	AppointmentCreated(apt *types.AppointmentView) error
	AppointmentCancelled(apt *types.AppointmentView) error
}

// Service implements appointment booking and lifecycle management
type Service struct {
	config     *config.Config
	logger     *logger.Logger
	repository Repository
	users      UserDirectory
	notifier   Notifier
}

// NewService creates a new scheduling service
func NewService(cfg *config.Config, log *logger.Logger, repo Repository, users UserDirectory, notifier Notifier) *Service {
	return &Service{
		config:     cfg,
		logger:     log,
		repository: repo,
		users:      users,
		notifier:   notifier,
	}
}

// BookAppointment books a slot for the authenticated patient. The
// validation steps run in a fixed order so callers always see the
// first failing rule.
func (s *Service) BookAppointment(req *types.AppointmentRequest, claims *types.UserClaims) (*types.AppointmentView, error) {
	if claims.Role != types.RolePatient {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only patients can book appointments")
	}

	// Step 1: the selected user must exist and be a doctor
	doctor, err := s.users.GetByID(req.DoctorID)
	if err != nil {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Doctor with this ID does not exist", nil)
	}
	if doctor.Role != types.RoleDoctor {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Selected user is not a doctor", nil)
	}

	// Step 2: the slot must be strictly in the future
	slot, err := parseSlot(req.AppointmentDate, req.AppointmentTime)
	if err != nil {
		return nil, err
	}
	if !slot.After(time.Now()) {
		return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Appointment time must be in the future", nil)
	}

	// Step 3: the slot must fall within business hours
	if err := s.checkBusinessHours(req.AppointmentTime); err != nil {
		return nil, err
	}

	// Step 4: the slot must be free for the doctor
	conflicts, err := s.repository.CountSlotConflicts(
		req.DoctorID, req.AppointmentDate, req.AppointmentTime,
		s.config.Scheduling.ExcludeCancelledConflicts, "")
	if err != nil {
		return nil, fmt.Errorf("failed to check slot availability: %w", err)
	}
	if conflicts > 0 {
		return nil, types.NewConflictError(types.ErrCodeSlotTaken, "This time slot is already booked for the selected doctor")
	}

	apt := &types.Appointment{
		ID:              uuid.New().String(),
		PatientID:       claims.UserID,
		DoctorID:        req.DoctorID,
		AppointmentDate: req.AppointmentDate,
		AppointmentTime: req.AppointmentTime,
		Status:          types.StatusPending,

		Gender:                req.Gender,
		BloodGroup:            req.BloodGroup,
		Height:                req.Height,
		Weight:                req.Weight,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		Symptoms:              req.Symptoms,
		MedicalHistory:        req.MedicalHistory,
		CurrentMedications:    req.CurrentMedications,
		InsuranceProvider:     req.InsuranceProvider,
		InsurancePolicyNumber: req.InsurancePolicyNumber,

		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.repository.Create(apt); err != nil {
		return nil, err
	}

	view, err := s.repository.GetByID(apt.ID)
	if err != nil {
		return nil, err
	}

	if err := s.notifier.AppointmentCreated(view); err != nil {
		s.logger.WithError(err).Warn("Failed to send appointment created notification")
	}

	s.logger.Audit(claims.UserID, "book", "appointments", true, map[string]interface{}{
		"appointment_id": apt.ID,
		"doctor_id":      apt.DoctorID,
	})

	return view, nil
}

// GetAppointment retrieves an appointment within the caller's scope.
// Out-of-scope appointments are reported as not found.
func (s *Service) GetAppointment(id string, claims *types.UserClaims) (*types.AppointmentView, error) {
	view, err := s.repository.GetByID(id)
	if err != nil {
		return nil, err
	}

	if !s.canAccess(view, claims) {
		return nil, types.NewNotFoundError("APPOINTMENT_NOT_FOUND", "Appointment not found")
	}

	return view, nil
}

// ListAppointments lists appointments visible to the caller
func (s *Service) ListAppointments(filters *types.AppointmentFilters, claims *types.UserClaims) ([]*types.AppointmentView, error) {
	switch claims.Role {
	case types.RolePatient:
		filters.PatientID = claims.UserID
	case types.RoleDoctor:
		filters.DoctorID = claims.UserID
	case types.RoleLabTechnician:
		// Lab technicians see appointments whose prescriptions request
		// lab work they are assigned to or could claim
		return s.repository.ListForLabWork(claims.UserID)
	case types.RoleAdmin:
		// Admins see everything
	default:
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Invalid user type")
	}

	if filters.Status != "" && !types.ValidAppointmentStatuses[filters.Status] {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid appointment status", nil)
	}

	if !database.ValidOrdering(filters.Ordering, appointmentOrderColumns) {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid ordering field", nil)
	}

	return s.repository.List(filters)
}

// PendingAppointments lists a doctor's pending and confirmed
// appointments in slot order
func (s *Service) PendingAppointments(claims *types.UserClaims) ([]*types.AppointmentView, error) {
	if claims.Role != types.RoleDoctor {
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Only doctors can view their appointment queue")
	}

	return s.repository.ListUpcomingForDoctor(claims.UserID)
}

// UpdateAppointment applies role-scoped updates to an appointment.
// Patients can only cancel their own bookings, doctors can only change
// the status of their own appointments, admins can update anything.
func (s *Service) UpdateAppointment(id string, updates *types.AppointmentUpdates, claims *types.UserClaims) (*types.AppointmentView, error) {
	existing, err := s.repository.GetByID(id)
	if err != nil {
		return nil, err
	}

	if !s.canAccess(existing, claims) {
		return nil, types.NewNotFoundError("APPOINTMENT_NOT_FOUND", "Appointment not found")
	}

	if updates.Status != nil && !types.ValidAppointmentStatuses[*updates.Status] {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid appointment status", nil)
	}

	fields := make(map[string]interface{})

	switch claims.Role {
	case types.RolePatient:
		if updates.AppointmentDate != nil || updates.AppointmentTime != nil ||
			updates.Symptoms != nil || updates.MedicalHistory != nil {
			return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Patients can only cancel appointments")
		}
		if updates.Status == nil || *updates.Status != types.StatusCancelled {
			return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Patients can only cancel appointments")
		}
		// Cancellation is allowed from any status, completed included,
		// unless restrict_cancellation narrows the window
		if s.config.Scheduling.RestrictCancellation &&
			(existing.Status == types.StatusCancelled || existing.Status == types.StatusCompleted) {
			return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Only pending or confirmed appointments can be cancelled", nil)
		}
		fields["status"] = types.StatusCancelled

	case types.RoleDoctor:
		if updates.AppointmentDate != nil || updates.AppointmentTime != nil {
			return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Doctors can only update the appointment status")
		}
		if updates.Status == nil {
			if updates.Symptoms != nil || updates.MedicalHistory != nil {
				return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Doctors can only update the appointment status")
			}
			return nil, types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided", nil)
		}
		fields["status"] = *updates.Status
		if updates.Symptoms != nil {
			fields["symptoms"] = *updates.Symptoms
		}
		if updates.MedicalHistory != nil {
			fields["medical_history"] = *updates.MedicalHistory
		}

	case types.RoleAdmin:
		if updates.AppointmentDate != nil {
			fields["appointment_date"] = *updates.AppointmentDate
		}
		if updates.AppointmentTime != nil {
			fields["appointment_time"] = *updates.AppointmentTime
		}
		if updates.Status != nil {
			fields["status"] = *updates.Status
		}
		if updates.Symptoms != nil {
			fields["symptoms"] = *updates.Symptoms
		}
		if updates.MedicalHistory != nil {
			fields["medical_history"] = *updates.MedicalHistory
		}

		// Reschedules go through the same slot validation as bookings
		if updates.AppointmentDate != nil || updates.AppointmentTime != nil {
			date := existing.AppointmentDate
			timeOfDay := existing.AppointmentTime
			if updates.AppointmentDate != nil {
				date = *updates.AppointmentDate
			}
			if updates.AppointmentTime != nil {
				timeOfDay = *updates.AppointmentTime
			}

			slot, err := parseSlot(date, timeOfDay)
			if err != nil {
				return nil, err
			}
			if !slot.After(time.Now()) {
				return nil, types.NewValidationError(types.ErrCodeValidationFailed, "Appointment time must be in the future", nil)
			}
			if err := s.checkBusinessHours(timeOfDay); err != nil {
				return nil, err
			}

			conflicts, err := s.repository.CountSlotConflicts(
				existing.DoctorID, date, timeOfDay,
				s.config.Scheduling.ExcludeCancelledConflicts, id)
			if err != nil {
				return nil, fmt.Errorf("failed to check slot availability: %w", err)
			}
			if conflicts > 0 {
				return nil, types.NewConflictError(types.ErrCodeSlotTaken, "This time slot is already booked for the selected doctor")
			}
		}

	default:
		return nil, types.NewAuthorizationError(types.ErrCodeForbidden, "Invalid user type")
	}

	if len(fields) == 0 {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided", nil)
	}

	if err := s.repository.Update(id, fields); err != nil {
		return nil, err
	}

	view, err := s.repository.GetByID(id)
	if err != nil {
		return nil, err
	}

	if status, ok := fields["status"]; ok && status == types.StatusCancelled &&
		existing.Status != types.StatusCancelled {
		if err := s.notifier.AppointmentCancelled(view); err != nil {
			s.logger.WithError(err).Warn("Failed to send appointment cancelled notification")
		}
	}

	return view, nil
}

// CancelAppointment cancels an appointment within the caller's scope
func (s *Service) CancelAppointment(id string, claims *types.UserClaims) error {
	existing, err := s.repository.GetByID(id)
	if err != nil {
		return err
	}

	if !s.canAccess(existing, claims) {
		return types.NewNotFoundError("APPOINTMENT_NOT_FOUND", "Appointment not found")
	}

	if s.config.Scheduling.RestrictCancellation &&
		(existing.Status == types.StatusCancelled || existing.Status == types.StatusCompleted) {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Only pending or confirmed appointments can be cancelled", nil)
	}

	if err := s.repository.Update(id, map[string]interface{}{"status": types.StatusCancelled}); err != nil {
		return err
	}

	if existing.Status != types.StatusCancelled {
		view, err := s.repository.GetByID(id)
		if err == nil {
			if err := s.notifier.AppointmentCancelled(view); err != nil {
				s.logger.WithError(err).Warn("Failed to send appointment cancelled notification")
			}
		}
	}

	s.logger.Audit(claims.UserID, "cancel", "appointments", true, map[string]interface{}{
		"appointment_id": id,
	})
	return nil
}

// canAccess reports whether the caller may see an appointment
func (s *Service) canAccess(view *types.AppointmentView, claims *types.UserClaims) bool {
	switch claims.Role {
	case types.RoleAdmin:
		return true
	case types.RolePatient:
		return view.PatientID == claims.UserID
	case types.RoleDoctor:
		return view.DoctorID == claims.UserID
	case types.RoleLabTechnician:
		linked, err := s.repository.HasLabWork(view.ID, claims.UserID)
		if err != nil {
			s.logger.WithError(err).Error("Failed to check lab work linkage")
			return false
		}
		return linked
	default:
		return false
	}
}

// checkBusinessHours validates that a time falls within the
// configured opening hours, bounds inclusive
func (s *Service) checkBusinessHours(timeOfDay string) error {
	minutes, err := clockMinutes(timeOfDay)
	if err != nil {
		return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid appointment time, expected HH:MM", nil)
	}

	opening, err := clockMinutes(s.config.Scheduling.OpeningTime)
	if err != nil {
		return fmt.Errorf("invalid opening time configuration: %w", err)
	}
	closing, err := clockMinutes(s.config.Scheduling.ClosingTime)
	if err != nil {
		return fmt.Errorf("invalid closing time configuration: %w", err)
	}

	if minutes < opening || minutes > closing {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Appointments must be scheduled between 9 AM and 5 PM", nil)
	}

	return nil
}

// parseSlot combines a date and time string into a local timestamp
func parseSlot(date, timeOfDay string) (time.Time, error) {
	if date == "" || timeOfDay == "" {
		return time.Time{}, types.NewValidationError(types.ErrCodeValidationFailed, "Appointment date and time are required", nil)
	}

	slot, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeOfDay, time.Local)
	if err != nil {
		return time.Time{}, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid appointment date or time", nil)
	}

	return slot, nil
}

// clockMinutes converts an HH:MM string to minutes since midnight
func clockMinutes(value string) (int, error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour*60 + minute, nil
}

package scheduling

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/medrex/clinic-backend/pkg/database"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

const appointmentViewColumns = `a.id, a.patient_id, a.doctor_id,
		to_char(a.appointment_date, 'YYYY-MM-DD'), to_char(a.appointment_time, 'HH24:MI'),
		a.status, a.gender, a.blood_group, a.height, a.weight,
		a.emergency_contact_name, a.emergency_contact_phone,
		a.symptoms, a.medical_history, a.current_medications,
		a.insurance_provider, a.insurance_policy_number,
		a.created_at, a.updated_at,
		p.first_name || ' ' || p.last_name,
		'Dr. ' || d.first_name || ' ' || d.last_name,
		d.profession`

const appointmentViewJoins = `
	FROM appointments a
	JOIN users p ON p.id = a.patient_id
	JOIN users d ON d.id = a.doctor_id`

// appointmentOrderColumns is the ordering allowlist for list queries
var appointmentOrderColumns = map[string]string{
	"appointment_date": "a.appointment_date",
	"appointment_time": "a.appointment_time",
	"status":           "a.status",
	"created_at":       "a.created_at",
}

// AppointmentRepository implements appointment data persistence
type AppointmentRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *database.DB, log *logger.Logger) *AppointmentRepository {
	return &AppointmentRepository{
		db:     db,
		logger: log,
	}
}

func scanAppointmentView(row interface {
	Scan(dest ...interface{}) error
}) (*types.AppointmentView, error) {
	var view types.AppointmentView
	var profession types.Profession

	err := row.Scan(
		&view.ID,
		&view.PatientID,
		&view.DoctorID,
		&view.AppointmentDate,
		&view.AppointmentTime,
		&view.Status,
		&view.Gender,
		&view.BloodGroup,
		&view.Height,
		&view.Weight,
		&view.EmergencyContactName,
		&view.EmergencyContactPhone,
		&view.Symptoms,
		&view.MedicalHistory,
		&view.CurrentMedications,
		&view.InsuranceProvider,
		&view.InsurancePolicyNumber,
		&view.CreatedAt,
		&view.UpdatedAt,
		&view.PatientName,
		&view.DoctorName,
		&profession,
	)
	if err != nil {
		return nil, err
	}

	view.DoctorProfession = types.ProfessionDisplay[profession]
	view.StatusDisplay = types.AppointmentStatusDisplay[view.Status]
	return &view, nil
}

// Create inserts a new appointment
func (r *AppointmentRepository) Create(apt *types.Appointment) error {
	query := `
		INSERT INTO appointments (id, patient_id, doctor_id, appointment_date,
			appointment_time, status, gender, blood_group, height, weight,
			emergency_contact_name, emergency_contact_phone, symptoms,
			medical_history, current_medications, insurance_provider,
			insurance_policy_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(query,
		apt.ID,
		apt.PatientID,
		apt.DoctorID,
		apt.AppointmentDate,
		apt.AppointmentTime,
		apt.Status,
		apt.Gender,
		apt.BloodGroup,
		apt.Height,
		apt.Weight,
		apt.EmergencyContactName,
		apt.EmergencyContactPhone,
		apt.Symptoms,
		apt.MedicalHistory,
		apt.CurrentMedications,
		apt.InsuranceProvider,
		apt.InsurancePolicyNumber,
		apt.CreatedAt,
		apt.UpdatedAt,
	)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation on the slot index
				return &types.ClinicError{
					Type:    types.ErrorTypeConflict,
					Code:    types.ErrCodeSlotTaken,
					Message: "This time slot is already booked for the selected doctor",
				}
			}
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"appointment_id": apt.ID,
		"doctor_id":      apt.DoctorID,
	}).Info("Appointment created")
	return nil
}

// GetByID retrieves an appointment with patient and doctor details
func (r *AppointmentRepository) GetByID(id string) (*types.AppointmentView, error) {
	query := `SELECT ` + appointmentViewColumns + appointmentViewJoins + ` WHERE a.id = $1`

	view, err := scanAppointmentView(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &types.ClinicError{
				Type:    types.ErrorTypeNotFound,
				Code:    "APPOINTMENT_NOT_FOUND",
				Message: "Appointment not found",
			}
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return view, nil
}

// CountSlotConflicts counts appointments occupying a doctor's slot.
// The historical booking rule counts cancelled appointments as
// conflicts; excludeCancelled relaxes that when configured.
func (r *AppointmentRepository) CountSlotConflicts(doctorID, date, timeOfDay string, excludeCancelled bool, excludeID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_time = $3`
	args := []interface{}{doctorID, date, timeOfDay}
	argIndex := 4

	if excludeCancelled {
		query += fmt.Sprintf(" AND status <> $%d", argIndex)
		args = append(args, types.StatusCancelled)
		argIndex++
	}

	if excludeID != "" {
		query += fmt.Sprintf(" AND id <> $%d", argIndex)
		args = append(args, excludeID)
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count slot conflicts: %w", err)
	}

	return count, nil
}

// Update updates appointment fields using a whitelist
func (r *AppointmentRepository) Update(id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no updates provided")
	}

	setParts := make([]string, 0, len(updates))
	args := make([]interface{}, 0, len(updates)+1)
	argIndex := 1

	for field, value := range updates {
		switch field {
		case "appointment_date", "appointment_time", "status",
			"symptoms", "medical_history":
			setParts = append(setParts, fmt.Sprintf("%s = $%d", field, argIndex))
			args = append(args, value)
		default:
			return fmt.Errorf("invalid field for update: %s", field)
		}
		argIndex++
	}

	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", argIndex))
	args = append(args, time.Now())
	argIndex++

	args = append(args, id)

	query := fmt.Sprintf("UPDATE appointments SET %s WHERE id = $%d",
		strings.Join(setParts, ", "), argIndex)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return &types.ClinicError{
					Type:    types.ErrorTypeConflict,
					Code:    types.ErrCodeSlotTaken,
					Message: "This time slot is already booked for the selected doctor",
				}
			}
		}
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &types.ClinicError{
			Type:    types.ErrorTypeNotFound,
			Code:    "APPOINTMENT_NOT_FOUND",
			Message: "Appointment not found",
		}
	}

	r.logger.WithField("appointment_id", id).Info("Appointment updated")
	return nil
}

// List retrieves appointments matching the given filters
func (r *AppointmentRepository) List(filters *types.AppointmentFilters) ([]*types.AppointmentView, error) {
	query := `SELECT ` + appointmentViewColumns + appointmentViewJoins

	whereParts := make([]string, 0)
	args := make([]interface{}, 0)
	argIndex := 1

	if filters.PatientID != "" {
		whereParts = append(whereParts, fmt.Sprintf("a.patient_id = $%d", argIndex))
		args = append(args, filters.PatientID)
		argIndex++
	}

	if filters.DoctorID != "" {
		whereParts = append(whereParts, fmt.Sprintf("a.doctor_id = $%d", argIndex))
		args = append(args, filters.DoctorID)
		argIndex++
	}

	if filters.Status != "" {
		whereParts = append(whereParts, fmt.Sprintf("a.status = $%d", argIndex))
		args = append(args, filters.Status)
		argIndex++
	}

	if filters.FromDate != "" {
		whereParts = append(whereParts, fmt.Sprintf("a.appointment_date >= $%d", argIndex))
		args = append(args, filters.FromDate)
		argIndex++
	}

	if filters.ToDate != "" {
		whereParts = append(whereParts, fmt.Sprintf("a.appointment_date <= $%d", argIndex))
		args = append(args, filters.ToDate)
		argIndex++
	}

	if filters.Search != "" {
		whereParts = append(whereParts, fmt.Sprintf(
			"(p.first_name || ' ' || p.last_name ILIKE $%d OR d.first_name || ' ' || d.last_name ILIKE $%d OR a.symptoms ILIKE $%d)",
			argIndex, argIndex, argIndex))
		args = append(args, "%"+filters.Search+"%")
		argIndex++
	}

	if len(whereParts) > 0 {
		query += " WHERE " + strings.Join(whereParts, " AND ")
	}

	query += database.OrderClause(filters.Ordering, appointmentOrderColumns,
		"a.appointment_date DESC, a.appointment_time DESC")

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filters.Limit)
		argIndex++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filters.Offset)
	}

	return r.queryViews(query, args...)
}

// ListUpcomingForDoctor lists a doctor's pending and confirmed
// appointments ordered by slot
func (r *AppointmentRepository) ListUpcomingForDoctor(doctorID string) ([]*types.AppointmentView, error) {
	query := `SELECT ` + appointmentViewColumns + appointmentViewJoins + `
		WHERE a.doctor_id = $1 AND a.status IN ($2, $3)
		ORDER BY a.appointment_date ASC, a.appointment_time ASC`

	return r.queryViews(query, doctorID, types.StatusPending, types.StatusConfirmed)
}

// ListForLabWork lists appointments whose prescriptions request lab
// tests and are either assigned to the given technician or unclaimed
func (r *AppointmentRepository) ListForLabWork(labTechID string) ([]*types.AppointmentView, error) {
	query := `SELECT ` + appointmentViewColumns + appointmentViewJoins + `
		WHERE EXISTS (
			SELECT 1 FROM prescriptions pr
			WHERE pr.appointment_id = a.id
				AND pr.lab_tests_required = TRUE
				AND pr.status <> $1
				AND (pr.lab_technician_id = $2 OR pr.lab_technician_id IS NULL)
		)
		ORDER BY a.appointment_date DESC, a.appointment_time DESC`

	return r.queryViews(query, types.PrescriptionDraft, labTechID)
}

// HasLabWork reports whether an appointment carries lab work visible
// to the given technician
func (r *AppointmentRepository) HasLabWork(appointmentID, labTechID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM prescriptions pr
			WHERE pr.appointment_id = $1
				AND pr.lab_tests_required = TRUE
				AND pr.status <> $2
				AND (pr.lab_technician_id = $3 OR pr.lab_technician_id IS NULL)
		)`

	var linked bool
	if err := r.db.QueryRow(query, appointmentID, types.PrescriptionDraft, labTechID).Scan(&linked); err != nil {
		return false, fmt.Errorf("failed to check lab work linkage: %w", err)
	}

	return linked, nil
}

func (r *AppointmentRepository) queryViews(query string, args ...interface{}) ([]*types.AppointmentView, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var views []*types.AppointmentView
	for rows.Next() {
		view, err := scanAppointmentView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment row: %w", err)
		}
		views = append(views, view)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating appointment rows: %w", err)
	}

	return views, nil
}

package clinical

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/medrex/clinic-backend/pkg/database"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

const prescriptionViewColumns = `pr.id, pr.appointment_id, pr.patient_id, pr.doctor_id,
		pr.diagnosis, pr.medication, pr.instructions, pr.lab_tests_required,
		pr.lab_instructions, pr.lab_technician_id, pr.status,
		pr.created_at, pr.updated_at,
		p.first_name || ' ' || p.last_name,
		'Dr. ' || d.first_name || ' ' || d.last_name,
		COALESCE(lt.first_name || ' ' || lt.last_name, ''),
		to_char(a.appointment_date, 'YYYY-MM-DD'), to_char(a.appointment_time, 'HH24:MI'), a.status`

const prescriptionViewJoins = `
	FROM prescriptions pr
	JOIN users p ON p.id = pr.patient_id
	JOIN users d ON d.id = pr.doctor_id
	LEFT JOIN users lt ON lt.id = pr.lab_technician_id
	JOIN appointments a ON a.id = pr.appointment_id`

// prescriptionOrderColumns is the ordering allowlist for list queries
var prescriptionOrderColumns = map[string]string{
	"created_at": "pr.created_at",
	"status":     "pr.status",
	"diagnosis":  "pr.diagnosis",
}

// PrescriptionRepository implements prescription data persistence
type PrescriptionRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewPrescriptionRepository creates a new prescription repository
func NewPrescriptionRepository(db *database.DB, log *logger.Logger) *PrescriptionRepository {
	return &PrescriptionRepository{
		db:     db,
		logger: log,
	}
}

func scanPrescriptionView(row interface {
	Scan(dest ...interface{}) error
}) (*types.PrescriptionView, error) {
	var view types.PrescriptionView
	var labTechID sql.NullString
	var summary types.AppointmentSummary

	err := row.Scan(
		&view.ID,
		&view.AppointmentID,
		&view.PatientID,
		&view.DoctorID,
		&view.Diagnosis,
		&view.Medication,
		&view.Instructions,
		&view.LabTestsRequired,
		&view.LabInstructions,
		&labTechID,
		&view.Status,
		&view.CreatedAt,
		&view.UpdatedAt,
		&view.PatientName,
		&view.DoctorName,
		&view.LabTechnicianName,
		&summary.Date,
		&summary.Time,
		&summary.Status,
	)
	if err != nil {
		return nil, err
	}

	if labTechID.Valid {
		view.LabTechnicianID = &labTechID.String
	}
	view.AppointmentDetails = &summary
	view.MedicalReports = []types.MedicalReportView{}
	return &view, nil
}

// Create inserts a new prescription
func (r *PrescriptionRepository) Create(p *types.Prescription) error {
	query := `
		INSERT INTO prescriptions (id, appointment_id, patient_id, doctor_id,
			diagnosis, medication, instructions, lab_tests_required,
			lab_instructions, lab_technician_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(query,
		p.ID,
		p.AppointmentID,
		p.PatientID,
		p.DoctorID,
		p.Diagnosis,
		p.Medication,
		p.Instructions,
		p.LabTestsRequired,
		p.LabInstructions,
		p.LabTechnicianID,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"prescription_id": p.ID,
		"appointment_id":  p.AppointmentID,
	}).Info("Prescription created")
	return nil
}

// GetByID retrieves a prescription with its appointment summary and
// attached reports
func (r *PrescriptionRepository) GetByID(id string) (*types.PrescriptionView, error) {
	query := `SELECT ` + prescriptionViewColumns + prescriptionViewJoins + ` WHERE pr.id = $1`

	view, err := scanPrescriptionView(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &types.ClinicError{
				Type:    types.ErrorTypeNotFound,
				Code:    "PRESCRIPTION_NOT_FOUND",
				Message: "Prescription not found",
			}
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}

	reports, err := r.reportsForAppointment(view.AppointmentID)
	if err != nil {
		return nil, err
	}
	view.MedicalReports = reports

	return view, nil
}

// List retrieves prescriptions matching the given scope filters
func (r *PrescriptionRepository) List(filters *PrescriptionFilters) ([]*types.PrescriptionView, error) {
	query := `SELECT ` + prescriptionViewColumns + prescriptionViewJoins

	whereParts := make([]string, 0)
	args := make([]interface{}, 0)
	argIndex := 1

	if filters.PatientID != "" {
		whereParts = append(whereParts, fmt.Sprintf("pr.patient_id = $%d", argIndex))
		args = append(args, filters.PatientID)
		argIndex++
	}

	if filters.DoctorID != "" {
		whereParts = append(whereParts, fmt.Sprintf("pr.doctor_id = $%d", argIndex))
		args = append(args, filters.DoctorID)
		argIndex++
	}

	if filters.LabTechnicianID != "" {
		if filters.IncludeUnassignedLab {
			whereParts = append(whereParts, fmt.Sprintf(
				"(pr.lab_technician_id = $%d OR (pr.lab_tests_required = TRUE AND pr.lab_technician_id IS NULL))", argIndex))
		} else {
			whereParts = append(whereParts, fmt.Sprintf("pr.lab_technician_id = $%d", argIndex))
		}
		args = append(args, filters.LabTechnicianID)
		argIndex++
	}

	if filters.Status != "" {
		whereParts = append(whereParts, fmt.Sprintf("pr.status = $%d", argIndex))
		args = append(args, filters.Status)
		argIndex++
	}

	if filters.ExcludeDrafts {
		whereParts = append(whereParts, fmt.Sprintf("pr.status <> $%d", argIndex))
		args = append(args, types.PrescriptionDraft)
		argIndex++
	}

	if filters.Search != "" {
		whereParts = append(whereParts, fmt.Sprintf(
			"(pr.diagnosis ILIKE $%d OR pr.medication ILIKE $%d OR p.first_name || ' ' || p.last_name ILIKE $%d OR d.first_name || ' ' || d.last_name ILIKE $%d)",
			argIndex, argIndex, argIndex, argIndex))
		args = append(args, "%"+filters.Search+"%")
		argIndex++
	}

	if len(whereParts) > 0 {
		query += " WHERE " + strings.Join(whereParts, " AND ")
	}

	query += database.OrderClause(filters.Ordering, prescriptionOrderColumns, "pr.created_at DESC")

	return r.queryViews(query, args...)
}

// LabQueue lists unassigned prescriptions that request lab work.
// Drafts never enter the queue.
func (r *PrescriptionRepository) LabQueue() ([]*types.PrescriptionView, error) {
	query := `SELECT ` + prescriptionViewColumns + prescriptionViewJoins + `
		WHERE pr.lab_tests_required = TRUE
			AND pr.lab_technician_id IS NULL
			AND pr.status <> $1
		ORDER BY pr.created_at ASC`

	return r.queryViews(query, types.PrescriptionDraft)
}

// Update updates prescription fields using a whitelist
func (r *PrescriptionRepository) Update(id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no updates provided")
	}

	setParts := make([]string, 0, len(updates))
	args := make([]interface{}, 0, len(updates)+1)
	argIndex := 1

	for field, value := range updates {
		switch field {
		case "diagnosis", "medication", "instructions", "lab_tests_required",
			"lab_instructions", "lab_technician_id", "status":
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

	query := fmt.Sprintf("UPDATE prescriptions SET %s WHERE id = $%d",
		strings.Join(setParts, ", "), argIndex)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update prescription: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &types.ClinicError{
			Type:    types.ErrorTypeNotFound,
			Code:    "PRESCRIPTION_NOT_FOUND",
			Message: "Prescription not found",
		}
	}

	r.logger.WithField("prescription_id", id).Info("Prescription updated")
	return nil
}

func (r *PrescriptionRepository) queryViews(query string, args ...interface{}) ([]*types.PrescriptionView, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	defer rows.Close()

	var views []*types.PrescriptionView
	for rows.Next() {
		view, err := scanPrescriptionView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prescription row: %w", err)
		}
		views = append(views, view)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prescription rows: %w", err)
	}

	return views, nil
}

func (r *PrescriptionRepository) reportsForAppointment(appointmentID string) ([]types.MedicalReportView, error) {
	query := `SELECT ` + reportViewColumns + reportViewJoins + `
		WHERE mr.appointment_id = $1
		ORDER BY mr.created_at DESC`

	rows, err := r.db.Query(query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointment reports: %w", err)
	}
	defer rows.Close()

	reports := []types.MedicalReportView{}
	for rows.Next() {
		view, err := scanReportView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		reports = append(reports, *view)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}

	return reports, nil
}

// PrescriptionFilters narrows prescription listings
type PrescriptionFilters struct {
	PatientID       string
	DoctorID        string
	LabTechnicianID string
	Status          types.PrescriptionStatus
	Search          string
	Ordering        string
	ExcludeDrafts   bool

	// Widens a technician filter to unclaimed lab work
	IncludeUnassignedLab bool
}

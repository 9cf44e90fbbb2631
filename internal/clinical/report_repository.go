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

const reportViewColumns = `mr.id, mr.appointment_id, mr.patient_id, mr.doctor_id,
		mr.lab_technician_id, mr.report_type, mr.report_file, mr.description,
		mr.notes, mr.created_at, mr.updated_at,
		p.first_name || ' ' || p.last_name,
		'Dr. ' || d.first_name || ' ' || d.last_name,
		lt.first_name || ' ' || lt.last_name`

const reportViewJoins = `
	FROM medical_reports mr
	JOIN users p ON p.id = mr.patient_id
	JOIN users d ON d.id = mr.doctor_id
	JOIN users lt ON lt.id = mr.lab_technician_id`

// reportOrderColumns is the ordering allowlist for list queries
var reportOrderColumns = map[string]string{
	"created_at":  "mr.created_at",
	"report_type": "mr.report_type",
}

// ReportRepository implements medical report data persistence
type ReportRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewReportRepository creates a new medical report repository
func NewReportRepository(db *database.DB, log *logger.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: log,
	}
}

func scanReportView(row interface {
	Scan(dest ...interface{}) error
}) (*types.MedicalReportView, error) {
	var view types.MedicalReportView

	err := row.Scan(
		&view.ID,
		&view.AppointmentID,
		&view.PatientID,
		&view.DoctorID,
		&view.LabTechnicianID,
		&view.ReportType,
		&view.ReportFile,
		&view.Description,
		&view.Notes,
		&view.CreatedAt,
		&view.UpdatedAt,
		&view.PatientName,
		&view.DoctorName,
		&view.LabTechnicianName,
	)
	if err != nil {
		return nil, err
	}

	view.ReportTypeLabel = types.ReportTypeDisplay[view.ReportType]
	return &view, nil
}

// Create inserts a new medical report
func (r *ReportRepository) Create(rep *types.MedicalReport) error {
	query := `
		INSERT INTO medical_reports (id, appointment_id, patient_id, doctor_id,
			lab_technician_id, report_type, report_file, description, notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Exec(query,
		rep.ID,
		rep.AppointmentID,
		rep.PatientID,
		rep.DoctorID,
		rep.LabTechnicianID,
		rep.ReportType,
		rep.ReportFile,
		rep.Description,
		rep.Notes,
		rep.CreatedAt,
		rep.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medical report: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"report_id":      rep.ID,
		"appointment_id": rep.AppointmentID,
	}).Info("Medical report created")
	return nil
}

// GetByID retrieves a medical report with participant names
func (r *ReportRepository) GetByID(id string) (*types.MedicalReportView, error) {
	query := `SELECT ` + reportViewColumns + reportViewJoins + ` WHERE mr.id = $1`

	view, err := scanReportView(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &types.ClinicError{
				Type:    types.ErrorTypeNotFound,
				Code:    "REPORT_NOT_FOUND",
				Message: "Medical report not found",
			}
		}
		return nil, fmt.Errorf("failed to get medical report: %w", err)
	}

	return view, nil
}

// List retrieves medical reports matching the given scope filters
func (r *ReportRepository) List(filters *ReportFilters) ([]*types.MedicalReportView, error) {
	query := `SELECT ` + reportViewColumns + reportViewJoins

	whereParts := make([]string, 0)
	args := make([]interface{}, 0)
	argIndex := 1

	if filters.PatientID != "" {
		whereParts = append(whereParts, fmt.Sprintf("mr.patient_id = $%d", argIndex))
		args = append(args, filters.PatientID)
		argIndex++
	}

	if filters.DoctorID != "" {
		whereParts = append(whereParts, fmt.Sprintf("mr.doctor_id = $%d", argIndex))
		args = append(args, filters.DoctorID)
		argIndex++
	}

	if filters.LabTechnicianID != "" {
		whereParts = append(whereParts, fmt.Sprintf("mr.lab_technician_id = $%d", argIndex))
		args = append(args, filters.LabTechnicianID)
		argIndex++
	}

	if filters.AppointmentID != "" {
		whereParts = append(whereParts, fmt.Sprintf("mr.appointment_id = $%d", argIndex))
		args = append(args, filters.AppointmentID)
		argIndex++
	}

	if filters.ReportType != "" {
		whereParts = append(whereParts, fmt.Sprintf("mr.report_type = $%d", argIndex))
		args = append(args, filters.ReportType)
		argIndex++
	}

	if filters.Search != "" {
		whereParts = append(whereParts, fmt.Sprintf(
			"(mr.description ILIKE $%d OR mr.notes ILIKE $%d OR p.first_name || ' ' || p.last_name ILIKE $%d)",
			argIndex, argIndex, argIndex))
		args = append(args, "%"+filters.Search+"%")
		argIndex++
	}

	if len(whereParts) > 0 {
		query += " WHERE " + strings.Join(whereParts, " AND ")
	}

	query += database.OrderClause(filters.Ordering, reportOrderColumns, "mr.created_at DESC")

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list medical reports: %w", err)
	}
	defer rows.Close()

	var views []*types.MedicalReportView
	for rows.Next() {
		view, err := scanReportView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		views = append(views, view)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report rows: %w", err)
	}

	return views, nil
}

// Update updates report fields using a whitelist
func (r *ReportRepository) Update(id string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no updates provided")
	}

	setParts := make([]string, 0, len(updates))
	args := make([]interface{}, 0, len(updates)+1)
	argIndex := 1

	for field, value := range updates {
		switch field {
		case "report_type", "report_file", "description", "notes":
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

	query := fmt.Sprintf("UPDATE medical_reports SET %s WHERE id = $%d",
		strings.Join(setParts, ", "), argIndex)

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update medical report: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &types.ClinicError{
			Type:    types.ErrorTypeNotFound,
			Code:    "REPORT_NOT_FOUND",
			Message: "Medical report not found",
		}
	}

	return nil
}

// Delete removes a medical report row
func (r *ReportRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM medical_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete medical report: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &types.ClinicError{
			Type:    types.ErrorTypeNotFound,
			Code:    "REPORT_NOT_FOUND",
			Message: "Medical report not found",
		}
	}

	r.logger.WithField("report_id", id).Info("Medical report deleted")
	return nil
}

// ReportFilters narrows medical report listings
type ReportFilters struct {
	PatientID       string
	DoctorID        string
	LabTechnicianID string
	AppointmentID   string
	ReportType      types.ReportType
	Search          string
	Ordering        string
}

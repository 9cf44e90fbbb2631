package types

import "time"

// PrescriptionStatus represents the lab workflow state of a prescription
type PrescriptionStatus string

const (
	PrescriptionActive    PrescriptionStatus = "active"
	PrescriptionCompleted PrescriptionStatus = "completed"
	PrescriptionDraft     PrescriptionStatus = "draft"
)

// ValidPrescriptionStatuses is the closed set of prescription states
var ValidPrescriptionStatuses = map[PrescriptionStatus]bool{
	PrescriptionActive:    true,
	PrescriptionCompleted: true,
	PrescriptionDraft:     true,
}

// Prescription represents a prescription issued against an appointment
type Prescription struct {
	ID               string             `json:"id" db:"id"`
	AppointmentID    string             `json:"appointment_id" db:"appointment_id"`
	PatientID        string             `json:"patient_id" db:"patient_id"`
	DoctorID         string             `json:"doctor_id" db:"doctor_id"`
	Diagnosis        string             `json:"diagnosis" db:"diagnosis"`
	Medication       string             `json:"medication" db:"medication"`
	Instructions     string             `json:"instructions" db:"instructions"`
	LabTestsRequired bool               `json:"lab_tests_required" db:"lab_tests_required"`
	LabInstructions  string             `json:"lab_instructions,omitempty" db:"lab_instructions"`
	LabTechnicianID  *string            `json:"lab_technician_id,omitempty" db:"lab_technician_id"`
	Status           PrescriptionStatus `json:"status" db:"status"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}

// PrescriptionView is the read projection of a prescription
type PrescriptionView struct {
	Prescription
	PatientName        string              `json:"patient_name"`
	DoctorName         string              `json:"doctor_name"`
	LabTechnicianName  string              `json:"lab_technician_name,omitempty"`
	AppointmentDetails *AppointmentSummary `json:"appointment_details,omitempty"`
	MedicalReports     []MedicalReportView `json:"medical_reports"`
}

// AppointmentSummary is the embedded appointment projection carried by
// prescription and report views
type AppointmentSummary struct {
	Date   string            `json:"date"`
	Time   string            `json:"time"`
	Status AppointmentStatus `json:"status"`
}

// PrescriptionRequest represents a prescription creation submission
type PrescriptionRequest struct {
	AppointmentID    string `json:"appointment_id"`
	Diagnosis        string `json:"diagnosis"`
	Medication       string `json:"medication"`
	Instructions     string `json:"instructions,omitempty"`
	LabTestsRequired bool   `json:"lab_tests_required"`
	LabInstructions  string `json:"lab_instructions,omitempty"`
	Draft            bool   `json:"draft,omitempty"`
}

// PrescriptionLabUpdate is the restricted update a lab technician may
// apply: self-assignment and workflow status only
type PrescriptionLabUpdate struct {
	LabTechnicianID *string             `json:"lab_technician_id,omitempty"`
	Status          *PrescriptionStatus `json:"status,omitempty"`
}

// PrescriptionUpdates represents clinical field updates by the
// prescribing doctor
type PrescriptionUpdates struct {
	Diagnosis        *string `json:"diagnosis,omitempty"`
	Medication       *string `json:"medication,omitempty"`
	Instructions     *string `json:"instructions,omitempty"`
	LabTestsRequired *bool   `json:"lab_tests_required,omitempty"`
	LabInstructions  *string `json:"lab_instructions,omitempty"`
}

// ReportType represents the kind of medical report
type ReportType string

const (
	ReportBloodTest ReportType = "blood_test"
	ReportUrineTest ReportType = "urine_test"
	ReportXRay      ReportType = "x_ray"
	ReportMRI       ReportType = "mri"
	ReportCTScan    ReportType = "ct_scan"
	ReportECG       ReportType = "ecg"
	ReportOther     ReportType = "other"
)

// ValidReportTypes is the closed set of report categories
var ValidReportTypes = map[ReportType]bool{
	ReportBloodTest: true,
	ReportUrineTest: true,
	ReportXRay:      true,
	ReportMRI:       true,
	ReportCTScan:    true,
	ReportECG:       true,
	ReportOther:     true,
}

// ReportTypeDisplay maps report types to their display labels
var ReportTypeDisplay = map[ReportType]string{
	ReportBloodTest: "Blood Test",
	ReportUrineTest: "Urine Test",
	ReportXRay:      "X-Ray",
	ReportMRI:       "MRI",
	ReportCTScan:    "CT Scan",
	ReportECG:       "ECG",
	ReportOther:     "Other",
}

// MedicalReport represents a lab report uploaded for a completed
// appointment
type MedicalReport struct {
	ID              string     `json:"id" db:"id"`
	AppointmentID   string     `json:"appointment_id" db:"appointment_id"`
	PatientID       string     `json:"patient_id" db:"patient_id"`
	DoctorID        string     `json:"doctor_id" db:"doctor_id"`
	LabTechnicianID string     `json:"lab_technician_id" db:"lab_technician_id"`
	ReportType      ReportType `json:"report_type" db:"report_type"`
	ReportFile      string     `json:"report_file,omitempty" db:"report_file"`
	Description     string     `json:"description" db:"description"`
	Notes           string     `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// MedicalReportView is the read projection of a medical report
type MedicalReportView struct {
	MedicalReport
	PatientName       string `json:"patient_name"`
	DoctorName        string `json:"doctor_name"`
	LabTechnicianName string `json:"lab_technician_name"`
	ReportTypeLabel   string `json:"report_type_display"`
}

// MedicalReportRequest represents a report creation submission
type MedicalReportRequest struct {
	AppointmentID string     `json:"appointment_id"`
	ReportType    ReportType `json:"report_type"`
	Description   string     `json:"description"`
	Notes         string     `json:"notes,omitempty"`
}

// MedicalReportUpdates represents updates to a report by its creator
// or an admin
type MedicalReportUpdates struct {
	ReportType  *ReportType `json:"report_type,omitempty"`
	Description *string     `json:"description,omitempty"`
	Notes       *string     `json:"notes,omitempty"`
}

package types

import "time"

// AppointmentStatus represents appointment status values
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// ValidAppointmentStatuses is the closed set of appointment states
var ValidAppointmentStatuses = map[AppointmentStatus]bool{
	StatusPending:   true,
	StatusConfirmed: true,
	StatusCancelled: true,
	StatusCompleted: true,
}

// AppointmentStatusDisplay maps statuses to their display labels
var AppointmentStatusDisplay = map[AppointmentStatus]string{
	StatusPending:   "Pending",
	StatusConfirmed: "Confirmed",
	StatusCancelled: "Cancelled",
	StatusCompleted: "Completed",
}

// Appointment represents a booked appointment slot with the patient
// details captured at booking time
type Appointment struct {
	ID              string            `json:"id" db:"id"`
	PatientID       string            `json:"patient_id" db:"patient_id"`
	DoctorID        string            `json:"doctor_id" db:"doctor_id"`
	AppointmentDate string            `json:"appointment_date" db:"appointment_date"`
	AppointmentTime string            `json:"appointment_time" db:"appointment_time"`
	Status          AppointmentStatus `json:"status" db:"status"`

	Gender                string  `json:"gender,omitempty" db:"gender"`
	BloodGroup            string  `json:"blood_group,omitempty" db:"blood_group"`
	Height                float64 `json:"height,omitempty" db:"height"`
	Weight                float64 `json:"weight,omitempty" db:"weight"`
	EmergencyContactName  string  `json:"emergency_contact_name,omitempty" db:"emergency_contact_name"`
	EmergencyContactPhone string  `json:"emergency_contact_phone,omitempty" db:"emergency_contact_phone"`

	Symptoms              string `json:"symptoms,omitempty" db:"symptoms"`
	MedicalHistory        string `json:"medical_history,omitempty" db:"medical_history"`
	CurrentMedications    string `json:"current_medications,omitempty" db:"current_medications"`
	InsuranceProvider     string `json:"insurance_provider,omitempty" db:"insurance_provider"`
	InsurancePolicyNumber string `json:"insurance_policy_number,omitempty" db:"insurance_policy_number"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// AppointmentView is the read projection of an appointment. Names and
// display strings are computed when the row is read, never stored.
type AppointmentView struct {
	Appointment
	PatientName      string `json:"patient_name"`
	DoctorName       string `json:"doctor_name"`
	DoctorProfession string `json:"doctor_profession"`
	StatusDisplay    string `json:"status_display"`
}

// AppointmentRequest represents a booking submission. Legacy field
// aliases (doctorId, date, time, description) are normalized by the
// decoder before validation.
type AppointmentRequest struct {
	DoctorID        string `json:"doctor_id"`
	AppointmentDate string `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`

	Gender                string  `json:"gender,omitempty"`
	BloodGroup            string  `json:"blood_group,omitempty"`
	Height                float64 `json:"height,omitempty"`
	Weight                float64 `json:"weight,omitempty"`
	EmergencyContactName  string  `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string  `json:"emergency_contact_phone,omitempty"`
	Symptoms              string  `json:"symptoms,omitempty"`
	MedicalHistory        string  `json:"medical_history,omitempty"`
	CurrentMedications    string  `json:"current_medications,omitempty"`
	InsuranceProvider     string  `json:"insurance_provider,omitempty"`
	InsurancePolicyNumber string  `json:"insurance_policy_number,omitempty"`
}

// AppointmentFilters represents filters for appointment queries
type AppointmentFilters struct {
	PatientID string            `json:"patient_id,omitempty"`
	DoctorID  string            `json:"doctor_id,omitempty"`
	Status    AppointmentStatus `json:"status,omitempty"`
	FromDate  string            `json:"from_date,omitempty"`
	ToDate    string            `json:"to_date,omitempty"`
	Search    string            `json:"search,omitempty"`
	Ordering  string            `json:"ordering,omitempty"`
	Limit     int               `json:"limit,omitempty"`
	Offset    int               `json:"offset,omitempty"`
}

// AppointmentUpdates represents updates to an appointment
type AppointmentUpdates struct {
	AppointmentDate *string            `json:"appointment_date,omitempty"`
	AppointmentTime *string            `json:"appointment_time,omitempty"`
	Status          *AppointmentStatus `json:"status,omitempty"`
	Symptoms        *string            `json:"symptoms,omitempty"`
	MedicalHistory  *string            `json:"medical_history,omitempty"`
}

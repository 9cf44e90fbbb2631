package types

import "time"

// UserRole represents the different user roles in the system
type UserRole string

const (
	RolePatient       UserRole = "patient"
	RoleDoctor        UserRole = "doctor"
	RoleLabTechnician UserRole = "lab_technician"
	RoleAdmin         UserRole = "admin"
)

// ValidRoles is the closed set of roles the system accepts. Any role
// outside this set is denied on every authorization check.
var ValidRoles = map[UserRole]bool{
	RolePatient:       true,
	RoleDoctor:        true,
	RoleLabTechnician: true,
	RoleAdmin:         true,
}

// Gender values accepted on profiles and appointments
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

// ValidBloodGroups lists the accepted blood group values
var ValidBloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

// Profession represents a doctor's specialization
type Profession string

const (
	ProfessionGeneral         Profession = "general"
	ProfessionDentist         Profession = "dentist"
	ProfessionDermatologist   Profession = "dermatologist"
	ProfessionOphthalmologist Profession = "ophthalmologist"
	ProfessionPediatrician    Profession = "pediatrician"
	ProfessionPsychiatrist    Profession = "psychiatrist"
	ProfessionOther           Profession = "other"
)

// ValidProfessions lists the accepted doctor specializations
var ValidProfessions = map[Profession]bool{
	ProfessionGeneral:         true,
	ProfessionDentist:         true,
	ProfessionDermatologist:   true,
	ProfessionOphthalmologist: true,
	ProfessionPediatrician:    true,
	ProfessionPsychiatrist:    true,
	ProfessionOther:           true,
}

// ProfessionDisplay maps professions to their display labels
var ProfessionDisplay = map[Profession]string{
	ProfessionGeneral:         "General Physician",
	ProfessionDentist:         "Dentist",
	ProfessionDermatologist:   "Dermatologist",
	ProfessionOphthalmologist: "Ophthalmologist",
	ProfessionPediatrician:    "Pediatrician",
	ProfessionPsychiatrist:    "Psychiatrist",
	ProfessionOther:           "Other Specialist",
}

// User represents a system user
type User struct {
	ID               string     `json:"id" db:"id"`
	Email            string     `json:"email" db:"email"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	FirstName        string     `json:"first_name" db:"first_name"`
	LastName         string     `json:"last_name" db:"last_name"`
	Role             UserRole   `json:"role" db:"role"`
	Phone            string     `json:"phone,omitempty" db:"phone"`
	Address          string     `json:"address,omitempty" db:"address"`
	DateOfBirth      string     `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender           string     `json:"gender,omitempty" db:"gender"`
	BloodGroup       string     `json:"blood_group,omitempty" db:"blood_group"`
	Profession       Profession `json:"profession,omitempty" db:"profession"`
	LicenseNumber    string     `json:"license_number,omitempty" db:"license_number"`
	ProfileCompleted bool       `json:"profile_completed" db:"profile_completed"`
	IsActive         bool       `json:"is_active" db:"is_active"`
	LastLogin        *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

// FullName returns the user's display name
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// UserClaims represents JWT token claims
type UserClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// UserRegistrationRequest represents patient self-registration data
type UserRegistrationRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone,omitempty"`
}

// StaffUserRequest represents admin-initiated account creation
type StaffUserRequest struct {
	Email         string     `json:"email" validate:"required,email"`
	Password      string     `json:"password" validate:"required,min=8"`
	FirstName     string     `json:"first_name" validate:"required"`
	LastName      string     `json:"last_name" validate:"required"`
	Phone         string     `json:"phone,omitempty"`
	Profession    Profession `json:"profession,omitempty"`
	LicenseNumber string     `json:"license_number,omitempty"`
}

// Credentials represents user login credentials
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthToken represents authentication token response
type AuthToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ProfileUpdates represents updates to user profile information
type ProfileUpdates struct {
	FirstName     *string     `json:"first_name,omitempty"`
	LastName      *string     `json:"last_name,omitempty"`
	Phone         *string     `json:"phone,omitempty"`
	Address       *string     `json:"address,omitempty"`
	DateOfBirth   *string     `json:"date_of_birth,omitempty"`
	Gender        *string     `json:"gender,omitempty"`
	BloodGroup    *string     `json:"blood_group,omitempty"`
	Profession    *Profession `json:"profession,omitempty"`
	LicenseNumber *string     `json:"license_number,omitempty"`
	IsActive      *bool       `json:"is_active,omitempty"`
}

// PasswordChangeRequest represents a password change submission
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// UserSearchCriteria represents search criteria for user listings
type UserSearchCriteria struct {
	Email      string     `json:"email,omitempty"`
	Name       string     `json:"name,omitempty"`
	Role       UserRole   `json:"role,omitempty"`
	Profession Profession `json:"profession,omitempty"`
	IsActive   *bool      `json:"is_active,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// DoctorSummary is the public directory projection of a doctor account
type DoctorSummary struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Profession        Profession `json:"profession"`
	ProfessionDisplay string     `json:"profession_display"`
}

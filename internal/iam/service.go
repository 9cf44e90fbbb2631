package iam

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

// Repository defines the persistence operations the IAM service needs
type Repository interface {
	Create(user *types.User) error
	GetByID(id string) (*types.User, error)
	GetByEmail(email string) (*types.User, error)
	Update(id string, updates map[string]interface{}) error
	Delete(id string) error
	List(criteria *types.UserSearchCriteria) ([]*types.User, error)
}

// Service implements account management and authentication
type Service struct {
	config          *config.Config
	logger          *logger.Logger
	repository      Repository
	passwordManager *PasswordManager
	tokenManager    *TokenManager
}

// NewService creates a new IAM service instance
func NewService(cfg *config.Config, log *logger.Logger, repo Repository) *Service {
	return &Service{
		config:          cfg,
		logger:          log,
		repository:      repo,
		passwordManager: NewPasswordManager(),
		tokenManager:    NewTokenManager(&cfg.JWT),
	}
}

// RegisterUser registers a new patient account
func (s *Service) RegisterUser(req *types.UserRegistrationRequest) (*types.User, error) {
	return s.createUser(req.Email, req.Password, req.FirstName, req.LastName, req.Phone, types.RolePatient, "", "")
}

// CreateStaffUser creates an account with an admin-assigned role. The
// role is forced by the caller, never taken from the request body.
func (s *Service) CreateStaffUser(req *types.StaffUserRequest, role types.UserRole) (*types.User, error) {
	if !types.ValidRoles[role] {
		return nil, types.NewValidationError(types.ErrCodeInvalidUserType, "Invalid user type", nil)
	}
	if role == types.RoleDoctor && req.Profession != "" && !types.ValidProfessions[req.Profession] {
		return nil, types.NewValidationError(types.ErrCodeInvalidInput, "Invalid profession", map[string]interface{}{
			"profession": req.Profession,
		})
	}
	return s.createUser(req.Email, req.Password, req.FirstName, req.LastName, req.Phone, role, req.Profession, req.LicenseNumber)
}

func (s *Service) createUser(email, password, firstName, lastName, phone string, role types.UserRole, profession types.Profession, licenseNumber string) (*types.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validateAccountFields(email, password, firstName, lastName); err != nil {
		return nil, err
	}

	// Check if user already exists
	if existingUser, _ := s.repository.GetByEmail(email); existingUser != nil {
		return nil, &types.ClinicError{
			Type:    types.ErrorTypeConflict,
			Code:    types.ErrCodeEmailExists,
			Message: "A user with this email already exists",
		}
	}

	passwordHash, err := s.passwordManager.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		ID:            uuid.New().String(),
		Email:         email,
		PasswordHash:  passwordHash,
		FirstName:     firstName,
		LastName:      lastName,
		Role:          role,
		Phone:         phone,
		Profession:    profession,
		LicenseNumber: licenseNumber,
		IsActive:      true,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := s.repository.Create(user); err != nil {
		return nil, err
	}

	s.logger.Audit(user.ID, "register", "users", true, map[string]interface{}{
		"role": user.Role,
	})

	return user, nil
}

// AuthenticateUser validates credentials and issues tokens
func (s *Service) AuthenticateUser(credentials *types.Credentials) (*types.AuthToken, error) {
	email := strings.ToLower(strings.TrimSpace(credentials.Email))

	user, err := s.repository.GetByEmail(email)
	if err != nil {
		return nil, types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "Invalid email or password")
	}

	if !user.IsActive {
		s.logger.Security("login_inactive_account", user.ID, nil)
		return nil, types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "Account is deactivated")
	}

	valid, err := s.passwordManager.VerifyPassword(user.PasswordHash, credentials.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		s.logger.Security("login_failed", user.ID, nil)
		return nil, types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "Invalid email or password")
	}

	token, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	// Best effort, a failed last_login update never blocks login
	now := time.Now()
	if err := s.repository.Update(user.ID, map[string]interface{}{"last_login": now}); err != nil {
		s.logger.WithError(err).Warn("Failed to update last login timestamp")
	}

	s.logger.Audit(user.ID, "login", "users", true, nil)
	return token, nil
}

// RefreshToken exchanges a refresh token for a new token pair
func (s *Service) RefreshToken(refreshToken string) (*types.AuthToken, error) {
	userID, err := s.tokenManager.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "Invalid refresh token")
	}

	user, err := s.repository.GetByID(userID)
	if err != nil {
		return nil, types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "Invalid refresh token")
	}

	if !user.IsActive {
		return nil, types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "Account is deactivated")
	}

	return s.issueTokens(user)
}

func (s *Service) issueTokens(user *types.User) (*types.AuthToken, error) {
	accessToken, err := s.tokenManager.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.tokenManager.GenerateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &types.AuthToken{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.JWT.AccessTokenTTL),
		IssuedAt:     time.Now(),
	}, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(userID string) (*types.User, error) {
	return s.repository.GetByID(userID)
}

// UpdateProfile applies profile updates for a user
func (s *Service) UpdateProfile(userID string, updates *types.ProfileUpdates, actor *types.UserClaims) error {
	if actor.Role != types.RoleAdmin && actor.UserID != userID {
		return types.NewAuthorizationError(types.ErrCodeForbidden, "Cannot update another user's profile")
	}

	fields := make(map[string]interface{})

	if updates.FirstName != nil {
		fields["first_name"] = *updates.FirstName
	}
	if updates.LastName != nil {
		fields["last_name"] = *updates.LastName
	}
	if updates.Phone != nil {
		fields["phone"] = *updates.Phone
	}
	if updates.Address != nil {
		fields["address"] = *updates.Address
	}
	if updates.DateOfBirth != nil {
		if _, err := time.Parse("2006-01-02", *updates.DateOfBirth); err != nil {
			return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid date of birth, expected YYYY-MM-DD", nil)
		}
		fields["date_of_birth"] = *updates.DateOfBirth
	}
	if updates.Gender != nil {
		if g := *updates.Gender; g != types.GenderMale && g != types.GenderFemale && g != types.GenderOther {
			return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid gender", nil)
		}
		fields["gender"] = *updates.Gender
	}
	if updates.BloodGroup != nil {
		if !types.ValidBloodGroups[*updates.BloodGroup] {
			return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid blood group", nil)
		}
		fields["blood_group"] = *updates.BloodGroup
	}
	if updates.Profession != nil {
		if !types.ValidProfessions[*updates.Profession] {
			return types.NewValidationError(types.ErrCodeInvalidInput, "Invalid profession", nil)
		}
		fields["profession"] = *updates.Profession
	}
	if updates.LicenseNumber != nil {
		fields["license_number"] = *updates.LicenseNumber
	}
	if updates.IsActive != nil {
		// Activation state is an administrative control
		if actor.Role != types.RoleAdmin {
			return types.NewAuthorizationError(types.ErrCodeForbidden, "Only admins can change account state")
		}
		fields["is_active"] = *updates.IsActive
	}

	if len(fields) == 0 {
		return types.NewValidationError(types.ErrCodeInvalidInput, "No updates provided", nil)
	}

	return s.repository.Update(userID, fields)
}

// CompleteProfile marks a profile complete once required fields are set
func (s *Service) CompleteProfile(userID string, updates *types.ProfileUpdates, actor *types.UserClaims) error {
	if err := s.UpdateProfile(userID, updates, actor); err != nil {
		return err
	}

	user, err := s.repository.GetByID(userID)
	if err != nil {
		return err
	}

	missing := missingProfileFields(user)
	if len(missing) > 0 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Profile is incomplete", map[string]interface{}{
			"missing_fields": missing,
		})
	}

	return s.repository.Update(userID, map[string]interface{}{"profile_completed": true})
}

// ChangePassword verifies the current password and sets a new one
func (s *Service) ChangePassword(userID string, req *types.PasswordChangeRequest) error {
	user, err := s.repository.GetByID(userID)
	if err != nil {
		return err
	}

	valid, err := s.passwordManager.VerifyPassword(user.PasswordHash, req.CurrentPassword)
	if err != nil {
		return fmt.Errorf("failed to verify password: %w", err)
	}
	if !valid {
		s.logger.Security("password_change_failed", userID, nil)
		return types.NewAuthenticationError(types.ErrCodeAuthenticationFailed, "Current password is incorrect")
	}

	if len(req.NewPassword) < 8 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Password must be at least 8 characters", nil)
	}

	newHash, err := s.passwordManager.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repository.Update(userID, map[string]interface{}{"password_hash": newHash}); err != nil {
		return err
	}

	s.logger.Audit(userID, "change_password", "users", true, nil)
	return nil
}

// ListDoctors returns the public doctor directory
func (s *Service) ListDoctors(profession types.Profession) ([]*types.DoctorSummary, error) {
	active := true
	criteria := &types.UserSearchCriteria{
		Role:       types.RoleDoctor,
		Profession: profession,
		IsActive:   &active,
	}

	doctors, err := s.repository.List(criteria)
	if err != nil {
		return nil, err
	}

	summaries := make([]*types.DoctorSummary, 0, len(doctors))
	for _, doctor := range doctors {
		summaries = append(summaries, &types.DoctorSummary{
			ID:                doctor.ID,
			Name:              "Dr. " + doctor.FullName(),
			Profession:        doctor.Profession,
			ProfessionDisplay: types.ProfessionDisplay[doctor.Profession],
		})
	}

	return summaries, nil
}

// ListUsers lists accounts for administration, scoped to a role
func (s *Service) ListUsers(role types.UserRole, criteria *types.UserSearchCriteria) ([]*types.User, error) {
	if criteria == nil {
		criteria = &types.UserSearchCriteria{}
	}
	criteria.Role = role
	return s.repository.List(criteria)
}

// DeleteUser removes an account. Admin accounts cannot be deleted.
func (s *Service) DeleteUser(userID string) error {
	user, err := s.repository.GetByID(userID)
	if err != nil {
		return err
	}

	if user.Role == types.RoleAdmin {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Cannot delete admin users", nil)
	}

	if err := s.repository.Delete(userID); err != nil {
		return err
	}

	s.logger.Audit(userID, "delete", "users", true, map[string]interface{}{
		"role": user.Role,
	})
	return nil
}

// validateAccountFields checks the required registration fields
func validateAccountFields(email, password, firstName, lastName string) error {
	if email == "" || !strings.Contains(email, "@") {
		return types.NewValidationError(types.ErrCodeValidationFailed, "A valid email address is required", nil)
	}
	if len(password) < 8 {
		return types.NewValidationError(types.ErrCodeValidationFailed, "Password must be at least 8 characters", nil)
	}
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return types.NewValidationError(types.ErrCodeValidationFailed, "First and last name are required", nil)
	}
	return nil
}

// missingProfileFields returns the profile fields still required for
// the user's role
func missingProfileFields(user *types.User) []string {
	var missing []string

	if user.Phone == "" {
		missing = append(missing, "phone")
	}
	if user.DateOfBirth == "" {
		missing = append(missing, "date_of_birth")
	}
	if user.Gender == "" {
		missing = append(missing, "gender")
	}

	switch user.Role {
	case types.RolePatient:
		if user.BloodGroup == "" {
			missing = append(missing, "blood_group")
		}
	case types.RoleDoctor:
		if user.Profession == "" {
			missing = append(missing, "profession")
		}
		if user.LicenseNumber == "" {
			missing = append(missing, "license_number")
		}
	case types.RoleLabTechnician:
		if user.LicenseNumber == "" {
			missing = append(missing, "license_number")
		}
	}

	return missing
}

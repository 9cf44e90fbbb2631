package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

// Mock implementations for testing

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *types.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id string) (*types.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*types.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserRepository) Update(id string, updates map[string]interface{}) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockUserRepository) List(criteria *types.UserSearchCriteria) ([]*types.User, error) {
	args := m.Called(criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.User), args.Error(1)
}

// Test setup helper
func setupTestService() (*Service, *MockUserRepository) {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			SecretKey:       "test-secret-key",
			AccessTokenTTL:  3600,
			RefreshTokenTTL: 86400,
			Issuer:          "test-issuer",
			Audience:        "test-audience",
		},
	}

	log := logger.New("debug")
	mockRepo := &MockUserRepository{}

	service := &Service{
		config:          cfg,
		logger:          log,
		repository:      mockRepo,
		passwordManager: NewPasswordManager(),
		tokenManager:    NewTokenManager(&cfg.JWT),
	}

	return service, mockRepo
}

func TestService_RegisterUser(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		service, mockRepo := setupTestService()

		req := &types.UserRegistrationRequest{
			Email:     "patient@example.com",
			Password:  "password123",
			FirstName: "Jane",
			LastName:  "Doe",
		}

		mockRepo.On("GetByEmail", "patient@example.com").
			Return(nil, &types.ClinicError{Type: types.ErrorTypeNotFound})
		mockRepo.On("Create", mock.AnythingOfType("*types.User")).Return(nil)

		user, err := service.RegisterUser(req)

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, "patient@example.com", user.Email)
		assert.Equal(t, types.RolePatient, user.Role)
		assert.True(t, user.IsActive)
		assert.NotEmpty(t, user.ID)
		assert.NotEqual(t, "password123", user.PasswordHash)

		mockRepo.AssertExpectations(t)
	})

	t.Run("email already exists", func(t *testing.T) {
		service, mockRepo := setupTestService()

		req := &types.UserRegistrationRequest{
			Email:     "taken@example.com",
			Password:  "password123",
			FirstName: "Jane",
			LastName:  "Doe",
		}

		mockRepo.On("GetByEmail", "taken@example.com").
			Return(&types.User{ID: "existing-id", Email: "taken@example.com"}, nil)

		user, err := service.RegisterUser(req)

		assert.Error(t, err)
		assert.Nil(t, user)

		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeConflict, clinicErr.Type)
		assert.Equal(t, types.ErrCodeEmailExists, clinicErr.Code)
	})

	t.Run("email is normalized before lookup", func(t *testing.T) {
		service, mockRepo := setupTestService()

		req := &types.UserRegistrationRequest{
			Email:     "  Patient@Example.COM ",
			Password:  "password123",
			FirstName: "Jane",
			LastName:  "Doe",
		}

		mockRepo.On("GetByEmail", "patient@example.com").
			Return(nil, &types.ClinicError{Type: types.ErrorTypeNotFound})
		mockRepo.On("Create", mock.AnythingOfType("*types.User")).Return(nil)

		user, err := service.RegisterUser(req)

		assert.NoError(t, err)
		assert.Equal(t, "patient@example.com", user.Email)
		mockRepo.AssertExpectations(t)
	})

	t.Run("password too short", func(t *testing.T) {
		service, _ := setupTestService()

		req := &types.UserRegistrationRequest{
			Email:     "patient@example.com",
			Password:  "short",
			FirstName: "Jane",
			LastName:  "Doe",
		}

		user, err := service.RegisterUser(req)

		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "at least 8 characters")
	})
}

func TestService_CreateStaffUser(t *testing.T) {
	t.Run("role is forced by the caller", func(t *testing.T) {
		service, mockRepo := setupTestService()

		req := &types.StaffUserRequest{
			Email:      "doctor@example.com",
			Password:   "password123",
			FirstName:  "Gregory",
			LastName:   "House",
			Profession: types.ProfessionGeneral,
		}

		mockRepo.On("GetByEmail", "doctor@example.com").
			Return(nil, &types.ClinicError{Type: types.ErrorTypeNotFound})
		mockRepo.On("Create", mock.AnythingOfType("*types.User")).Return(nil)

		user, err := service.CreateStaffUser(req, types.RoleDoctor)

		assert.NoError(t, err)
		assert.Equal(t, types.RoleDoctor, user.Role)
		assert.Equal(t, types.ProfessionGeneral, user.Profession)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		service, _ := setupTestService()

		req := &types.StaffUserRequest{
			Email:     "nurse@example.com",
			Password:  "password123",
			FirstName: "Nina",
			LastName:  "Jones",
		}

		user, err := service.CreateStaffUser(req, types.UserRole("nurse"))

		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "Invalid user type")
	})

	t.Run("invalid profession rejected for doctors", func(t *testing.T) {
		service, _ := setupTestService()

		req := &types.StaffUserRequest{
			Email:      "doctor@example.com",
			Password:   "password123",
			FirstName:  "Gregory",
			LastName:   "House",
			Profession: types.Profession("astrologer"),
		}

		user, err := service.CreateStaffUser(req, types.RoleDoctor)

		assert.Error(t, err)
		assert.Nil(t, user)
	})
}

func TestService_AuthenticateUser(t *testing.T) {
	t.Run("successful authentication", func(t *testing.T) {
		service, mockRepo := setupTestService()

		hash, err := service.passwordManager.HashPassword("password123")
		assert.NoError(t, err)

		user := &types.User{
			ID:           "user-id",
			Email:        "patient@example.com",
			PasswordHash: hash,
			Role:         types.RolePatient,
			IsActive:     true,
		}

		mockRepo.On("GetByEmail", "patient@example.com").Return(user, nil)
		mockRepo.On("Update", "user-id", mock.AnythingOfType("map[string]interface {}")).Return(nil)

		token, err := service.AuthenticateUser(&types.Credentials{
			Email:    "patient@example.com",
			Password: "password123",
		})

		assert.NoError(t, err)
		assert.NotNil(t, token)
		assert.NotEmpty(t, token.AccessToken)
		assert.NotEmpty(t, token.RefreshToken)
		assert.Equal(t, "Bearer", token.TokenType)

		mockRepo.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		service, mockRepo := setupTestService()

		hash, _ := service.passwordManager.HashPassword("password123")
		user := &types.User{
			ID:           "user-id",
			Email:        "patient@example.com",
			PasswordHash: hash,
			IsActive:     true,
		}

		mockRepo.On("GetByEmail", "patient@example.com").Return(user, nil)

		token, err := service.AuthenticateUser(&types.Credentials{
			Email:    "patient@example.com",
			Password: "wrong-password",
		})

		assert.Error(t, err)
		assert.Nil(t, token)

		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthentication, clinicErr.Type)
	})

	t.Run("user not found", func(t *testing.T) {
		service, mockRepo := setupTestService()

		mockRepo.On("GetByEmail", "nobody@example.com").
			Return(nil, &types.ClinicError{Type: types.ErrorTypeNotFound})

		token, err := service.AuthenticateUser(&types.Credentials{
			Email:    "nobody@example.com",
			Password: "password123",
		})

		assert.Error(t, err)
		assert.Nil(t, token)

		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthentication, clinicErr.Type)
	})

	t.Run("inactive account", func(t *testing.T) {
		service, mockRepo := setupTestService()

		hash, _ := service.passwordManager.HashPassword("password123")
		user := &types.User{
			ID:           "user-id",
			Email:        "patient@example.com",
			PasswordHash: hash,
			IsActive:     false,
		}

		mockRepo.On("GetByEmail", "patient@example.com").Return(user, nil)

		token, err := service.AuthenticateUser(&types.Credentials{
			Email:    "patient@example.com",
			Password: "password123",
		})

		assert.Error(t, err)
		assert.Nil(t, token)
		assert.Contains(t, err.Error(), "deactivated")
	})
}

func TestService_RefreshToken(t *testing.T) {
	t.Run("valid refresh token", func(t *testing.T) {
		service, mockRepo := setupTestService()

		user := &types.User{
			ID:       "user-id",
			Email:    "patient@example.com",
			Role:     types.RolePatient,
			IsActive: true,
		}

		refreshToken, err := service.tokenManager.GenerateRefreshToken(user)
		assert.NoError(t, err)

		mockRepo.On("GetByID", "user-id").Return(user, nil)

		token, err := service.RefreshToken(refreshToken)

		assert.NoError(t, err)
		assert.NotEmpty(t, token.AccessToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("access token cannot be used as refresh token", func(t *testing.T) {
		service, _ := setupTestService()

		user := &types.User{ID: "user-id", Email: "patient@example.com", Role: types.RolePatient}
		accessToken, err := service.tokenManager.GenerateAccessToken(user)
		assert.NoError(t, err)

		token, err := service.RefreshToken(accessToken)

		assert.Error(t, err)
		assert.Nil(t, token)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		service, _ := setupTestService()

		token, err := service.RefreshToken("not-a-token")

		assert.Error(t, err)
		assert.Nil(t, token)
	})
}

func TestService_UpdateProfile(t *testing.T) {
	t.Run("patient updates own profile", func(t *testing.T) {
		service, mockRepo := setupTestService()

		phone := "555-0100"
		dob := "1990-04-15"
		updates := &types.ProfileUpdates{Phone: &phone, DateOfBirth: &dob}
		claims := &types.UserClaims{UserID: "user-id", Role: types.RolePatient}

		mockRepo.On("Update", "user-id", map[string]interface{}{
			"phone":         "555-0100",
			"date_of_birth": "1990-04-15",
		}).Return(nil)

		err := service.UpdateProfile("user-id", updates, claims)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("cannot update another user's profile", func(t *testing.T) {
		service, _ := setupTestService()

		phone := "555-0100"
		updates := &types.ProfileUpdates{Phone: &phone}
		claims := &types.UserClaims{UserID: "someone-else", Role: types.RolePatient}

		err := service.UpdateProfile("user-id", updates, claims)

		assert.Error(t, err)
		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeAuthorization, clinicErr.Type)
	})

	t.Run("invalid date of birth rejected", func(t *testing.T) {
		service, _ := setupTestService()

		dob := "15/04/1990"
		updates := &types.ProfileUpdates{DateOfBirth: &dob}
		claims := &types.UserClaims{UserID: "user-id", Role: types.RolePatient}

		err := service.UpdateProfile("user-id", updates, claims)

		assert.Error(t, err)
	})

	t.Run("only admins can change account state", func(t *testing.T) {
		service, _ := setupTestService()

		active := false
		updates := &types.ProfileUpdates{IsActive: &active}
		claims := &types.UserClaims{UserID: "user-id", Role: types.RolePatient}

		err := service.UpdateProfile("user-id", updates, claims)

		assert.Error(t, err)
	})

	t.Run("invalid blood group rejected", func(t *testing.T) {
		service, _ := setupTestService()

		bg := "Z+"
		updates := &types.ProfileUpdates{BloodGroup: &bg}
		claims := &types.UserClaims{UserID: "user-id", Role: types.RolePatient}

		err := service.UpdateProfile("user-id", updates, claims)

		assert.Error(t, err)
	})
}

func TestService_CompleteProfile(t *testing.T) {
	t.Run("profile completed when required fields present", func(t *testing.T) {
		service, mockRepo := setupTestService()

		bg := "O+"
		updates := &types.ProfileUpdates{BloodGroup: &bg}
		claims := &types.UserClaims{UserID: "user-id", Role: types.RolePatient}

		mockRepo.On("Update", "user-id", map[string]interface{}{"blood_group": "O+"}).Return(nil)
		mockRepo.On("GetByID", "user-id").Return(&types.User{
			ID:          "user-id",
			Role:        types.RolePatient,
			Phone:       "555-0100",
			DateOfBirth: "1990-04-15",
			Gender:      types.GenderFemale,
			BloodGroup:  "O+",
		}, nil)
		mockRepo.On("Update", "user-id", map[string]interface{}{"profile_completed": true}).Return(nil)

		err := service.CompleteProfile("user-id", updates, claims)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("incomplete profile reports missing fields", func(t *testing.T) {
		service, mockRepo := setupTestService()

		phone := "555-0100"
		updates := &types.ProfileUpdates{Phone: &phone}
		claims := &types.UserClaims{UserID: "doc-id", Role: types.RoleDoctor}

		mockRepo.On("Update", "doc-id", map[string]interface{}{"phone": "555-0100"}).Return(nil)
		mockRepo.On("GetByID", "doc-id").Return(&types.User{
			ID:          "doc-id",
			Role:        types.RoleDoctor,
			Phone:       "555-0100",
			DateOfBirth: "1980-01-01",
			Gender:      types.GenderMale,
		}, nil)

		err := service.CompleteProfile("doc-id", updates, claims)

		assert.Error(t, err)
		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeValidation, clinicErr.Type)
		assert.Contains(t, clinicErr.Details["missing_fields"], "profession")
		assert.Contains(t, clinicErr.Details["missing_fields"], "license_number")
	})
}

func TestService_ChangePassword(t *testing.T) {
	t.Run("successful change", func(t *testing.T) {
		service, mockRepo := setupTestService()

		hash, _ := service.passwordManager.HashPassword("old-password")
		mockRepo.On("GetByID", "user-id").Return(&types.User{
			ID:           "user-id",
			PasswordHash: hash,
		}, nil)
		mockRepo.On("Update", "user-id", mock.AnythingOfType("map[string]interface {}")).Return(nil)

		err := service.ChangePassword("user-id", &types.PasswordChangeRequest{
			CurrentPassword: "old-password",
			NewPassword:     "new-password-123",
		})

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("wrong current password", func(t *testing.T) {
		service, mockRepo := setupTestService()

		hash, _ := service.passwordManager.HashPassword("old-password")
		mockRepo.On("GetByID", "user-id").Return(&types.User{
			ID:           "user-id",
			PasswordHash: hash,
		}, nil)

		err := service.ChangePassword("user-id", &types.PasswordChangeRequest{
			CurrentPassword: "not-the-password",
			NewPassword:     "new-password-123",
		})

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Current password is incorrect")
	})
}

func TestService_ListDoctors(t *testing.T) {
	service, mockRepo := setupTestService()

	doctors := []*types.User{
		{
			ID:         "doc-1",
			FirstName:  "Meredith",
			LastName:   "Grey",
			Role:       types.RoleDoctor,
			Profession: types.ProfessionGeneral,
		},
		{
			ID:         "doc-2",
			FirstName:  "Derek",
			LastName:   "Shepherd",
			Role:       types.RoleDoctor,
			Profession: types.ProfessionDermatologist,
		},
	}

	mockRepo.On("List", mock.MatchedBy(func(c *types.UserSearchCriteria) bool {
		return c.Role == types.RoleDoctor && c.IsActive != nil && *c.IsActive
	})).Return(doctors, nil)

	summaries, err := service.ListDoctors("")

	assert.NoError(t, err)
	assert.Len(t, summaries, 2)
	assert.Equal(t, "Dr. Meredith Grey", summaries[0].Name)
	assert.Equal(t, "General Physician", summaries[0].ProfessionDisplay)
	mockRepo.AssertExpectations(t)
}

func TestService_DeleteUser(t *testing.T) {
	t.Run("deletes non-admin account", func(t *testing.T) {
		service, mockRepo := setupTestService()

		mockRepo.On("GetByID", "patient-id").Return(&types.User{
			ID:   "patient-id",
			Role: types.RolePatient,
		}, nil)
		mockRepo.On("Delete", "patient-id").Return(nil)

		err := service.DeleteUser("patient-id")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("refuses to delete admin accounts", func(t *testing.T) {
		service, mockRepo := setupTestService()

		mockRepo.On("GetByID", "admin-id").Return(&types.User{
			ID:   "admin-id",
			Role: types.RoleAdmin,
		}, nil)

		err := service.DeleteUser("admin-id")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "Cannot delete admin users")
		mockRepo.AssertNotCalled(t, "Delete", "admin-id")
	})
}

package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

// Mock implementations for testing

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Create(n *types.Notification) error {
	args := m.Called(n)
	return args.Error(0)
}

func (m *MockNotificationRepository) ListByRecipient(recipientID string, page, pageSize int) (*types.NotificationPage, error) {
	args := m.Called(recipientID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.NotificationPage), args.Error(1)
}

func (m *MockNotificationRepository) UnreadCount(recipientID string) (int, error) {
	args := m.Called(recipientID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(id, recipientID string) error {
	args := m.Called(id, recipientID)
	return args.Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(recipientID string) (int64, error) {
	args := m.Called(recipientID)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetByID(id string) (*types.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

// Test setup helper
func setupTestService() (*Service, *MockNotificationRepository, *MockUserDirectory) {
	cfg := &config.Config{
		Notifications: config.NotificationConfig{
			EmailEnabled: false,
			PageSize:     10,
		},
	}

	log := logger.New("debug")
	mockRepo := &MockNotificationRepository{}
	mockUsers := &MockUserDirectory{}

	service := NewService(cfg, log, mockRepo, mockUsers, nil)
	return service, mockRepo, mockUsers
}

func TestService_AppointmentCreated(t *testing.T) {
	service, mockRepo, _ := setupTestService()

	view := &types.AppointmentView{
		Appointment: types.Appointment{
			ID:              "apt-1",
			PatientID:       "patient-1",
			DoctorID:        "doctor-1",
			AppointmentDate: "2030-01-02",
			AppointmentTime: "10:00",
		},
		PatientName: "Jane Doe",
		DoctorName:  "Dr. John Smith",
	}

	var recipients []string
	mockRepo.On("Create", mock.MatchedBy(func(n *types.Notification) bool {
		recipients = append(recipients, n.RecipientID)
		return n.Type == types.NotificationAppointmentCreated &&
			n.RelatedObjectID == "apt-1" &&
			!n.IsRead
	})).Return(nil).Twice()

	err := service.AppointmentCreated(view)

	assert.NoError(t, err)
	assert.Equal(t, []string{"doctor-1", "patient-1"}, recipients)
	mockRepo.AssertExpectations(t)
}

func TestService_AppointmentCancelled(t *testing.T) {
	service, mockRepo, _ := setupTestService()

	view := &types.AppointmentView{
		Appointment: types.Appointment{
			ID:              "apt-1",
			PatientID:       "patient-1",
			DoctorID:        "doctor-1",
			AppointmentDate: "2030-01-02",
			AppointmentTime: "10:00",
		},
		PatientName: "Jane Doe",
		DoctorName:  "Dr. John Smith",
	}

	mockRepo.On("Create", mock.MatchedBy(func(n *types.Notification) bool {
		return n.Type == types.NotificationAppointmentCancelled
	})).Return(nil).Twice()

	err := service.AppointmentCancelled(view)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestService_PrescriptionCreated(t *testing.T) {
	service, mockRepo, _ := setupTestService()

	view := &types.PrescriptionView{
		Prescription: types.Prescription{
			ID:        "rx-1",
			PatientID: "patient-1",
			DoctorID:  "doctor-1",
		},
		DoctorName: "Dr. John Smith",
	}

	mockRepo.On("Create", mock.MatchedBy(func(n *types.Notification) bool {
		return n.RecipientID == "patient-1" &&
			n.Type == types.NotificationPrescriptionCreated &&
			n.RelatedObjectID == "rx-1"
	})).Return(nil)

	err := service.PrescriptionCreated(view)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestService_ReportUploaded(t *testing.T) {
	service, mockRepo, _ := setupTestService()

	view := &types.MedicalReportView{
		MedicalReport: types.MedicalReport{
			ID:         "rep-1",
			PatientID:  "patient-1",
			DoctorID:   "doctor-1",
			ReportType: types.ReportBloodTest,
		},
		PatientName: "Jane Doe",
	}

	mockRepo.On("Create", mock.MatchedBy(func(n *types.Notification) bool {
		return n.Type == types.NotificationReportUploaded
	})).Return(nil).Twice()

	err := service.ReportUploaded(view)

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestService_ListNotifications(t *testing.T) {
	service, mockRepo, _ := setupTestService()

	claims := &types.UserClaims{UserID: "user-1", Role: types.RolePatient}

	mockRepo.On("ListByRecipient", "user-1", 2, 10).Return(&types.NotificationPage{
		Notifications: []*types.Notification{},
		Page:          2,
		PageSize:      10,
		Total:         15,
	}, nil)

	page, err := service.ListNotifications(claims, 2)

	assert.NoError(t, err)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, 15, page.Total)
	mockRepo.AssertExpectations(t)
}

func TestService_MarkAsRead(t *testing.T) {
	t.Run("scoped to the recipient", func(t *testing.T) {
		service, mockRepo, _ := setupTestService()

		claims := &types.UserClaims{UserID: "user-1", Role: types.RolePatient}
		mockRepo.On("MarkRead", "note-1", "user-1").Return(nil)

		err := service.MarkAsRead("note-1", claims)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("another user's notification reports not found", func(t *testing.T) {
		service, mockRepo, _ := setupTestService()

		claims := &types.UserClaims{UserID: "user-2", Role: types.RolePatient}
		mockRepo.On("MarkRead", "note-1", "user-2").
			Return(&types.ClinicError{Type: types.ErrorTypeNotFound})

		err := service.MarkAsRead("note-1", claims)

		assert.Error(t, err)
	})
}

func TestService_MarkAllAsRead(t *testing.T) {
	service, mockRepo, _ := setupTestService()

	claims := &types.UserClaims{UserID: "user-1", Role: types.RolePatient}
	mockRepo.On("MarkAllRead", "user-1").Return(int64(3), nil)

	updated, err := service.MarkAllAsRead(claims)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), updated)
	mockRepo.AssertExpectations(t)
}

func TestEmailSender_DisabledIsNoop(t *testing.T) {
	sender := NewEmailSender(&config.NotificationConfig{EmailEnabled: false}, logger.New("debug"))

	err := sender.Send("someone@example.com", "subject", "body")

	assert.NoError(t, err)
}

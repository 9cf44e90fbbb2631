package clinical

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

// Mock implementations for testing

type MockPrescriptionStore struct {
	mock.Mock
}

func (m *MockPrescriptionStore) Create(p *types.Prescription) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockPrescriptionStore) GetByID(id string) (*types.PrescriptionView, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PrescriptionView), args.Error(1)
}

func (m *MockPrescriptionStore) List(filters *PrescriptionFilters) ([]*types.PrescriptionView, error) {
	args := m.Called(filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.PrescriptionView), args.Error(1)
}

func (m *MockPrescriptionStore) LabQueue() ([]*types.PrescriptionView, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.PrescriptionView), args.Error(1)
}

func (m *MockPrescriptionStore) Update(id string, updates map[string]interface{}) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) Create(rep *types.MedicalReport) error {
	args := m.Called(rep)
	return args.Error(0)
}

func (m *MockReportStore) GetByID(id string) (*types.MedicalReportView, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.MedicalReportView), args.Error(1)
}

func (m *MockReportStore) List(filters *ReportFilters) ([]*types.MedicalReportView, error) {
	args := m.Called(filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*types.MedicalReportView), args.Error(1)
}

func (m *MockReportStore) Update(id string, updates map[string]interface{}) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

func (m *MockReportStore) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockAppointmentSource struct {
	mock.Mock
}

func (m *MockAppointmentSource) GetByID(id string) (*types.AppointmentView, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AppointmentView), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PrescriptionCreated(p *types.PrescriptionView) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockNotifier) ReportUploaded(rep *types.MedicalReportView) error {
	args := m.Called(rep)
	return args.Error(0)
}

// Test setup helper
func setupTestService() (*Service, *MockPrescriptionStore, *MockReportStore, *MockAppointmentSource, *MockNotifier) {
	cfg := &config.Config{
		Uploads: config.UploadConfig{
			Dir:               "uploads",
			MaxSizeBytes:      10 << 20,
			AllowedExtensions: []string{"pdf", "jpg", "jpeg", "png"},
		},
	}

	log := logger.New("debug")
	mockRx := &MockPrescriptionStore{}
	mockReports := &MockReportStore{}
	mockApts := &MockAppointmentSource{}
	mockNotifier := &MockNotifier{}

	service := NewService(cfg, log, mockRx, mockReports, mockApts, mockNotifier)
	return service, mockRx, mockReports, mockApts, mockNotifier
}

func doctorClaims() *types.UserClaims {
	return &types.UserClaims{UserID: "doctor-1", Role: types.RoleDoctor}
}

func labTechClaims() *types.UserClaims {
	return &types.UserClaims{UserID: "lab-1", Role: types.RoleLabTechnician}
}

func appointmentWith(status types.AppointmentStatus) *types.AppointmentView {
	return &types.AppointmentView{
		Appointment: types.Appointment{
			ID:        "apt-1",
			PatientID: "patient-1",
			DoctorID:  "doctor-1",
			Status:    status,
		},
	}
}

func prescriptionView(status types.PrescriptionStatus) *types.PrescriptionView {
	return &types.PrescriptionView{
		Prescription: types.Prescription{
			ID:            "rx-1",
			AppointmentID: "apt-1",
			PatientID:     "patient-1",
			DoctorID:      "doctor-1",
			Diagnosis:     "Flu",
			Medication:    "Rest",
			Status:        status,
		},
		PatientName: "Jane Doe",
		DoctorName:  "Dr. John Smith",
	}
}

func TestService_CreatePrescription(t *testing.T) {
	t.Run("successful creation for confirmed appointment", func(t *testing.T) {
		service, mockRx, _, mockApts, mockNotifier := setupTestService()

		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusConfirmed), nil)
		mockRx.On("Create", mock.MatchedBy(func(p *types.Prescription) bool {
			return p.PatientID == "patient-1" &&
				p.DoctorID == "doctor-1" &&
				p.Status == types.PrescriptionActive
		})).Return(nil)
		mockRx.On("GetByID", mock.AnythingOfType("string")).Return(prescriptionView(types.PrescriptionActive), nil)
		mockNotifier.On("PrescriptionCreated", mock.AnythingOfType("*types.PrescriptionView")).Return(nil)

		view, err := service.CreatePrescription(&types.PrescriptionRequest{
			AppointmentID: "apt-1",
			Diagnosis:     "Flu",
			Medication:    "Rest and fluids",
		}, doctorClaims())

		assert.NoError(t, err)
		assert.NotNil(t, view)
		mockRx.AssertExpectations(t)
		mockNotifier.AssertExpectations(t)
	})

	t.Run("only doctors can create prescriptions", func(t *testing.T) {
		service, _, _, _, _ := setupTestService()

		view, err := service.CreatePrescription(&types.PrescriptionRequest{
			AppointmentID: "apt-1",
		}, &types.UserClaims{UserID: "patient-1", Role: types.RolePatient})

		assert.Error(t, err)
		assert.Nil(t, view)
		assert.Contains(t, err.Error(), "Only doctors can create prescriptions")
	})

	t.Run("pending appointment rejected", func(t *testing.T) {
		service, _, _, mockApts, _ := setupTestService()

		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusPending), nil)

		view, err := service.CreatePrescription(&types.PrescriptionRequest{
			AppointmentID: "apt-1",
			Diagnosis:     "Flu",
			Medication:    "Rest",
		}, doctorClaims())

		assert.Error(t, err)
		assert.Nil(t, view)
		assert.Contains(t, err.Error(), "confirmed or completed appointments")
	})

	t.Run("draft skips the appointment status rule", func(t *testing.T) {
		service, mockRx, _, mockApts, _ := setupTestService()

		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusPending), nil)
		mockRx.On("Create", mock.MatchedBy(func(p *types.Prescription) bool {
			return p.Status == types.PrescriptionDraft
		})).Return(nil)
		mockRx.On("GetByID", mock.AnythingOfType("string")).Return(prescriptionView(types.PrescriptionDraft), nil)

		view, err := service.CreatePrescription(&types.PrescriptionRequest{
			AppointmentID: "apt-1",
			Diagnosis:     "Flu",
			Medication:    "Rest",
			Draft:         true,
		}, doctorClaims())

		assert.NoError(t, err)
		assert.NotNil(t, view)
		// Drafts do not notify the patient
		mockRx.AssertExpectations(t)
	})

	t.Run("another doctor's appointment rejected", func(t *testing.T) {
		service, _, _, mockApts, _ := setupTestService()

		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusConfirmed), nil)

		view, err := service.CreatePrescription(&types.PrescriptionRequest{
			AppointmentID: "apt-1",
			Diagnosis:     "Flu",
			Medication:    "Rest",
		}, &types.UserClaims{UserID: "doctor-2", Role: types.RoleDoctor})

		assert.Error(t, err)
		assert.Nil(t, view)
	})

	t.Run("lab instructions required when lab tests requested", func(t *testing.T) {
		service, _, _, mockApts, _ := setupTestService()

		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusCompleted), nil)

		view, err := service.CreatePrescription(&types.PrescriptionRequest{
			AppointmentID:    "apt-1",
			Diagnosis:        "Flu",
			Medication:       "Rest",
			LabTestsRequired: true,
		}, doctorClaims())

		assert.Error(t, err)
		assert.Nil(t, view)
		assert.Contains(t, err.Error(), "Lab instructions are required")
	})
}

func TestService_FinalizeDraft(t *testing.T) {
	t.Run("finalization applies the status rule", func(t *testing.T) {
		service, mockRx, _, mockApts, _ := setupTestService()

		mockRx.On("GetByID", "rx-1").Return(prescriptionView(types.PrescriptionDraft), nil)
		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusPending), nil)

		view, err := service.FinalizeDraft("rx-1", doctorClaims())

		assert.Error(t, err)
		assert.Nil(t, view)
		assert.Contains(t, err.Error(), "confirmed or completed appointments")
	})

	t.Run("successful finalization notifies the patient", func(t *testing.T) {
		service, mockRx, _, mockApts, mockNotifier := setupTestService()

		mockRx.On("GetByID", "rx-1").Return(prescriptionView(types.PrescriptionDraft), nil).Once()
		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusConfirmed), nil)
		mockRx.On("Update", "rx-1", map[string]interface{}{"status": types.PrescriptionActive}).Return(nil)
		mockRx.On("GetByID", "rx-1").Return(prescriptionView(types.PrescriptionActive), nil)
		mockNotifier.On("PrescriptionCreated", mock.AnythingOfType("*types.PrescriptionView")).Return(nil)

		view, err := service.FinalizeDraft("rx-1", doctorClaims())

		assert.NoError(t, err)
		assert.Equal(t, types.PrescriptionActive, view.Status)
		mockNotifier.AssertExpectations(t)
	})
}

func TestService_ListPrescriptions(t *testing.T) {
	t.Run("patients never see drafts", func(t *testing.T) {
		service, mockRx, _, _, _ := setupTestService()

		mockRx.On("List", mock.MatchedBy(func(f *PrescriptionFilters) bool {
			return f.PatientID == "patient-1" && f.ExcludeDrafts
		})).Return([]*types.PrescriptionView{}, nil)

		_, err := service.ListPrescriptions(&types.UserClaims{UserID: "patient-1", Role: types.RolePatient}, nil)

		assert.NoError(t, err)
		mockRx.AssertExpectations(t)
	})

	t.Run("lab technicians see assignments and unclaimed lab work", func(t *testing.T) {
		service, mockRx, _, _, _ := setupTestService()

		mockRx.On("List", mock.MatchedBy(func(f *PrescriptionFilters) bool {
			return f.LabTechnicianID == "lab-1" && f.IncludeUnassignedLab && f.ExcludeDrafts
		})).Return([]*types.PrescriptionView{}, nil)

		_, err := service.ListPrescriptions(labTechClaims(), nil)

		assert.NoError(t, err)
		mockRx.AssertExpectations(t)
	})

	t.Run("search and ordering reach the query", func(t *testing.T) {
		service, mockRx, _, _, _ := setupTestService()

		mockRx.On("List", mock.MatchedBy(func(f *PrescriptionFilters) bool {
			return f.DoctorID == "doctor-1" && f.Search == "migraine" && f.Ordering == "-created_at"
		})).Return([]*types.PrescriptionView{}, nil)

		_, err := service.ListPrescriptions(doctorClaims(), &ListOptions{
			Search:   "migraine",
			Ordering: "-created_at",
		})

		assert.NoError(t, err)
		mockRx.AssertExpectations(t)
	})

	t.Run("ordering outside the allowlist is rejected", func(t *testing.T) {
		service, mockRx, _, _, _ := setupTestService()

		views, err := service.ListPrescriptions(doctorClaims(), &ListOptions{Ordering: "lab_technician_id"})

		assert.Error(t, err)
		assert.Nil(t, views)
		assert.Contains(t, err.Error(), "Invalid ordering field")
		mockRx.AssertNotCalled(t, "List", mock.Anything)
	})
}

func TestService_ListReports_Options(t *testing.T) {
	t.Run("search and ordering reach the query", func(t *testing.T) {
		service, _, mockReports, _, _ := setupTestService()

		mockReports.On("List", mock.MatchedBy(func(f *ReportFilters) bool {
			return f.LabTechnicianID == "lab-1" && f.Search == "hemoglobin" && f.Ordering == "report_type"
		})).Return([]*types.MedicalReportView{}, nil)

		_, err := service.ListReports(labTechClaims(), &ListOptions{
			Search:   "hemoglobin",
			Ordering: "report_type",
		})

		assert.NoError(t, err)
		mockReports.AssertExpectations(t)
	})

	t.Run("ordering outside the allowlist is rejected", func(t *testing.T) {
		service, _, mockReports, _, _ := setupTestService()

		views, err := service.ListReports(labTechClaims(), &ListOptions{Ordering: "report_file"})

		assert.Error(t, err)
		assert.Nil(t, views)
		assert.Contains(t, err.Error(), "Invalid ordering field")
		mockReports.AssertNotCalled(t, "List", mock.Anything)
	})
}

func TestPrescriptionPayload_Normalize(t *testing.T) {
	t.Run("renamed fields fill empty canonical fields", func(t *testing.T) {
		body := `{"appointmentId": 42, "symptoms": "Migraine", "prescription_text": "Sumatriptan 50mg", "lab_instructions": "Take with food"}`

		var payload prescriptionPayload
		assert.NoError(t, json.Unmarshal([]byte(body), &payload))

		req := payload.normalize()
		assert.Equal(t, "42", req.AppointmentID)
		assert.Equal(t, "Migraine", req.Diagnosis)
		assert.Equal(t, "Sumatriptan 50mg", req.Medication)
		assert.Equal(t, "Take with food", req.Instructions)
		assert.Empty(t, req.LabInstructions)
	})

	t.Run("canonical names win over aliases", func(t *testing.T) {
		body := `{"appointment_id": "apt-1", "appointmentId": "apt-2", "diagnosis": "Migraine", "symptoms": "Something else"}`

		var payload prescriptionPayload
		assert.NoError(t, json.Unmarshal([]byte(body), &payload))

		req := payload.normalize()
		assert.Equal(t, "apt-1", req.AppointmentID)
		assert.Equal(t, "Migraine", req.Diagnosis)
	})

	t.Run("lab instructions stay with requested lab work", func(t *testing.T) {
		body := `{"appointment_id": "apt-1", "diagnosis": "Anemia", "medication": "Iron", "lab_tests_required": true, "lab_instructions": "CBC panel"}`

		var payload prescriptionPayload
		assert.NoError(t, json.Unmarshal([]byte(body), &payload))

		req := payload.normalize()
		assert.Equal(t, "CBC panel", req.LabInstructions)
		assert.Empty(t, req.Instructions)
	})

	t.Run("numeric string identifiers are accepted", func(t *testing.T) {
		body := `{"appointment_id": "17", "diagnosis": "Flu", "medication": "Rest"}`

		var payload prescriptionPayload
		assert.NoError(t, json.Unmarshal([]byte(body), &payload))

		assert.Equal(t, "17", payload.normalize().AppointmentID)
	})
}

func TestService_LabQueue(t *testing.T) {
	t.Run("lab technicians can view the queue", func(t *testing.T) {
		service, mockRx, _, _, _ := setupTestService()

		mockRx.On("LabQueue").Return([]*types.PrescriptionView{}, nil)

		_, err := service.LabQueue(labTechClaims())

		assert.NoError(t, err)
		mockRx.AssertExpectations(t)
	})

	t.Run("patients cannot view the queue", func(t *testing.T) {
		service, _, _, _, _ := setupTestService()

		views, err := service.LabQueue(&types.UserClaims{UserID: "patient-1", Role: types.RolePatient})

		assert.Error(t, err)
		assert.Nil(t, views)
	})
}

func TestService_UpdateLabAssignment(t *testing.T) {
	t.Run("empty assignment defaults to self", func(t *testing.T) {
		service, mockRx, _, _, _ := setupTestService()

		view := prescriptionView(types.PrescriptionActive)
		view.LabTestsRequired = true

		mockRx.On("GetByID", "rx-1").Return(view, nil)
		mockRx.On("Update", "rx-1", map[string]interface{}{"lab_technician_id": "lab-1"}).Return(nil)

		_, err := service.UpdateLabAssignment("rx-1", &types.PrescriptionLabUpdate{}, labTechClaims())

		assert.NoError(t, err)
		mockRx.AssertExpectations(t)
	})

	t.Run("cannot assign to someone else", func(t *testing.T) {
		service, mockRx, _, _, _ := setupTestService()

		view := prescriptionView(types.PrescriptionActive)
		view.LabTestsRequired = true
		mockRx.On("GetByID", "rx-1").Return(view, nil)

		other := "lab-2"
		result, err := service.UpdateLabAssignment("rx-1",
			&types.PrescriptionLabUpdate{LabTechnicianID: &other}, labTechClaims())

		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("another technician's prescription rejected", func(t *testing.T) {
		service, mockRx, _, _, _ := setupTestService()

		view := prescriptionView(types.PrescriptionActive)
		view.LabTestsRequired = true
		assigned := "lab-2"
		view.LabTechnicianID = &assigned
		mockRx.On("GetByID", "rx-1").Return(view, nil)

		result, err := service.UpdateLabAssignment("rx-1", &types.PrescriptionLabUpdate{}, labTechClaims())

		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "assigned to another lab technician")
	})

	t.Run("doctors cannot use the lab update", func(t *testing.T) {
		service, _, _, _, _ := setupTestService()

		result, err := service.UpdateLabAssignment("rx-1", &types.PrescriptionLabUpdate{}, doctorClaims())

		assert.Error(t, err)
		assert.Nil(t, result)
	})

	t.Run("prescription without lab tests rejected", func(t *testing.T) {
		service, mockRx, _, _, _ := setupTestService()

		view := prescriptionView(types.PrescriptionActive)
		view.LabTestsRequired = false
		mockRx.On("GetByID", "rx-1").Return(view, nil)

		result, err := service.UpdateLabAssignment("rx-1", &types.PrescriptionLabUpdate{}, labTechClaims())

		assert.Error(t, err)
		assert.Nil(t, result)
	})
}

func reportView() *types.MedicalReportView {
	return &types.MedicalReportView{
		MedicalReport: types.MedicalReport{
			ID:              "rep-1",
			AppointmentID:   "apt-1",
			PatientID:       "patient-1",
			DoctorID:        "doctor-1",
			LabTechnicianID: "lab-1",
			ReportType:      types.ReportBloodTest,
		},
		PatientName: "Jane Doe",
	}
}

func TestService_CreateReport(t *testing.T) {
	t.Run("successful metadata-only report", func(t *testing.T) {
		service, _, mockReports, mockApts, mockNotifier := setupTestService()

		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusCompleted), nil)
		mockReports.On("Create", mock.MatchedBy(func(rep *types.MedicalReport) bool {
			return rep.PatientID == "patient-1" &&
				rep.DoctorID == "doctor-1" &&
				rep.LabTechnicianID == "lab-1"
		})).Return(nil)
		mockReports.On("GetByID", mock.AnythingOfType("string")).Return(reportView(), nil)
		mockNotifier.On("ReportUploaded", mock.AnythingOfType("*types.MedicalReportView")).Return(nil)

		view, err := service.CreateReport(&types.MedicalReportRequest{
			AppointmentID: "apt-1",
			ReportType:    types.ReportBloodTest,
			Description:   "CBC panel",
		}, nil, nil, labTechClaims())

		assert.NoError(t, err)
		assert.NotNil(t, view)
		mockReports.AssertExpectations(t)
		mockNotifier.AssertExpectations(t)
	})

	t.Run("only lab technicians can upload", func(t *testing.T) {
		service, _, _, _, _ := setupTestService()

		view, err := service.CreateReport(&types.MedicalReportRequest{
			AppointmentID: "apt-1",
		}, nil, nil, doctorClaims())

		assert.Error(t, err)
		assert.Nil(t, view)
		assert.Contains(t, err.Error(), "Only lab technicians can upload medical reports")
	})

	t.Run("appointment must be completed", func(t *testing.T) {
		service, _, _, mockApts, _ := setupTestService()

		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusConfirmed), nil)

		view, err := service.CreateReport(&types.MedicalReportRequest{
			AppointmentID: "apt-1",
			ReportType:    types.ReportBloodTest,
			Description:   "CBC panel",
		}, nil, nil, labTechClaims())

		assert.Error(t, err)
		assert.Nil(t, view)
		assert.Contains(t, err.Error(), "Reports can only be uploaded for completed appointments")
	})

	t.Run("invalid report type rejected", func(t *testing.T) {
		service, _, _, mockApts, _ := setupTestService()

		mockApts.On("GetByID", "apt-1").Return(appointmentWith(types.StatusCompleted), nil)

		view, err := service.CreateReport(&types.MedicalReportRequest{
			AppointmentID: "apt-1",
			ReportType:    types.ReportType("palm_reading"),
			Description:   "???",
		}, nil, nil, labTechClaims())

		assert.Error(t, err)
		assert.Nil(t, view)
	})
}

func TestService_UpdateReport(t *testing.T) {
	t.Run("creator can update", func(t *testing.T) {
		service, _, mockReports, _, _ := setupTestService()

		desc := "Updated description"
		mockReports.On("GetByID", "rep-1").Return(reportView(), nil)
		mockReports.On("Update", "rep-1", map[string]interface{}{"description": desc}).Return(nil)

		_, err := service.UpdateReport("rep-1",
			&types.MedicalReportUpdates{Description: &desc}, labTechClaims())

		assert.NoError(t, err)
		mockReports.AssertExpectations(t)
	})

	t.Run("another technician cannot update", func(t *testing.T) {
		service, _, mockReports, _, _ := setupTestService()

		desc := "Updated"
		mockReports.On("GetByID", "rep-1").Return(reportView(), nil)

		view, err := service.UpdateReport("rep-1",
			&types.MedicalReportUpdates{Description: &desc},
			&types.UserClaims{UserID: "lab-2", Role: types.RoleLabTechnician})

		assert.Error(t, err)
		assert.Nil(t, view)
	})

	t.Run("admin can update any report", func(t *testing.T) {
		service, _, mockReports, _, _ := setupTestService()

		desc := "Corrected"
		mockReports.On("GetByID", "rep-1").Return(reportView(), nil)
		mockReports.On("Update", "rep-1", map[string]interface{}{"description": desc}).Return(nil)

		_, err := service.UpdateReport("rep-1",
			&types.MedicalReportUpdates{Description: &desc},
			&types.UserClaims{UserID: "admin-1", Role: types.RoleAdmin})

		assert.NoError(t, err)
	})
}

func TestService_DeleteReport(t *testing.T) {
	t.Run("patient cannot delete reports", func(t *testing.T) {
		service, _, mockReports, _, _ := setupTestService()

		mockReports.On("GetByID", "rep-1").Return(reportView(), nil)

		err := service.DeleteReport("rep-1",
			&types.UserClaims{UserID: "patient-1", Role: types.RolePatient})

		assert.Error(t, err)
		mockReports.AssertNotCalled(t, "Delete", "rep-1")
	})

	t.Run("creator can delete", func(t *testing.T) {
		service, _, mockReports, _, _ := setupTestService()

		mockReports.On("GetByID", "rep-1").Return(reportView(), nil)
		mockReports.On("Delete", "rep-1").Return(nil)

		err := service.DeleteReport("rep-1", labTechClaims())

		assert.NoError(t, err)
		mockReports.AssertExpectations(t)
	})
}

func TestService_GetReport(t *testing.T) {
	t.Run("out of scope reads report not found", func(t *testing.T) {
		service, _, mockReports, _, _ := setupTestService()

		mockReports.On("GetByID", "rep-1").Return(reportView(), nil)

		view, err := service.GetReport("rep-1",
			&types.UserClaims{UserID: "patient-2", Role: types.RolePatient})

		assert.Error(t, err)
		assert.Nil(t, view)

		clinicErr, ok := err.(*types.ClinicError)
		assert.True(t, ok)
		assert.Equal(t, types.ErrorTypeNotFound, clinicErr.Type)
	})

	t.Run("patient can read own report", func(t *testing.T) {
		service, _, mockReports, _, _ := setupTestService()

		mockReports.On("GetByID", "rep-1").Return(reportView(), nil)

		view, err := service.GetReport("rep-1",
			&types.UserClaims{UserID: "patient-1", Role: types.RolePatient})

		assert.NoError(t, err)
		assert.NotNil(t, view)
	})
}

package notifications

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrex/clinic-backend/pkg/config"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/monitoring"
	"github.com/medrex/clinic-backend/pkg/types"
)

// Repository defines the persistence operations the notification
// service needs
type Repository interface {
	Create(n *types.Notification) error
	ListByRecipient(recipientID string, page, pageSize int) (*types.NotificationPage, error)
	UnreadCount(recipientID string) (int, error)
	MarkRead(id, recipientID string) error
	MarkAllRead(recipientID string) (int64, error)
}

// UserDirectory resolves recipients for email delivery
type UserDirectory interface {
	GetByID(id string) (*types.User, error)
}

// Service persists in-app notifications and delivers email copies on
// a best-effort basis
type Service struct {
	config     *config.Config
	logger     *logger.Logger
	repository Repository
	users      UserDirectory
	email      *EmailSender
	metrics    *monitoring.MetricsCollector
}

// NewService creates a new notification service
func NewService(cfg *config.Config, log *logger.Logger, repo Repository, users UserDirectory, metrics *monitoring.MetricsCollector) *Service {
	return &Service{
		config:     cfg,
		logger:     log,
		repository: repo,
		users:      users,
		email:      NewEmailSender(&cfg.Notifications, log),
		metrics:    metrics,
	}
}

// AppointmentCreated notifies the doctor and the patient about a new
// booking
func (s *Service) AppointmentCreated(apt *types.AppointmentView) error {
	slot := fmt.Sprintf("%s at %s", apt.AppointmentDate, apt.AppointmentTime)

	if err := s.notify(apt.DoctorID, types.NotificationAppointmentCreated,
		"New appointment request",
		fmt.Sprintf("%s requested an appointment on %s.", apt.PatientName, slot),
		apt.ID); err != nil {
		return err
	}

	return s.notify(apt.PatientID, types.NotificationAppointmentCreated,
		"Appointment booked",
		fmt.Sprintf("Your appointment with %s on %s is awaiting confirmation.", apt.DoctorName, slot),
		apt.ID)
}

// AppointmentCancelled notifies the doctor and the patient about a
// cancellation
func (s *Service) AppointmentCancelled(apt *types.AppointmentView) error {
	slot := fmt.Sprintf("%s at %s", apt.AppointmentDate, apt.AppointmentTime)

	if err := s.notify(apt.DoctorID, types.NotificationAppointmentCancelled,
		"Appointment cancelled",
		fmt.Sprintf("The appointment with %s on %s was cancelled.", apt.PatientName, slot),
		apt.ID); err != nil {
		return err
	}

	return s.notify(apt.PatientID, types.NotificationAppointmentCancelled,
		"Appointment cancelled",
		fmt.Sprintf("Your appointment with %s on %s was cancelled.", apt.DoctorName, slot),
		apt.ID)
}

// PrescriptionCreated notifies the patient about a new prescription
func (s *Service) PrescriptionCreated(p *types.PrescriptionView) error {
	return s.notify(p.PatientID, types.NotificationPrescriptionCreated,
		"New prescription",
		fmt.Sprintf("%s issued you a new prescription.", p.DoctorName),
		p.ID)
}

// ReportUploaded notifies the patient and the doctor about a new
// medical report
func (s *Service) ReportUploaded(rep *types.MedicalReportView) error {
	label := types.ReportTypeDisplay[rep.ReportType]

	if err := s.notify(rep.PatientID, types.NotificationReportUploaded,
		"New medical report",
		fmt.Sprintf("A %s report was uploaded for your appointment.", label),
		rep.ID); err != nil {
		return err
	}

	return s.notify(rep.DoctorID, types.NotificationReportUploaded,
		"New medical report",
		fmt.Sprintf("A %s report was uploaded for %s.", label, rep.PatientName),
		rep.ID)
}

// notify persists an in-app notification and sends an email copy. A
// failed email never fails the notification.
func (s *Service) notify(recipientID string, ntype types.NotificationType, title, message, relatedID string) error {
	n := &types.Notification{
		ID:              uuid.New().String(),
		RecipientID:     recipientID,
		Type:            ntype,
		Title:           title,
		Message:         message,
		RelatedObjectID: relatedID,
		CreatedAt:       time.Now(),
	}

	if err := s.repository.Create(n); err != nil {
		if s.metrics != nil {
			s.metrics.RecordNotification(string(ntype), "in_app", "failure")
		}
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordNotification(string(ntype), "in_app", "success")
	}

	s.sendEmailCopy(recipientID, ntype, title, message)
	return nil
}

func (s *Service) sendEmailCopy(recipientID string, ntype types.NotificationType, subject, body string) {
	if !s.config.Notifications.EmailEnabled {
		return
	}

	user, err := s.users.GetByID(recipientID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to resolve notification recipient for email")
		return
	}

	if err := s.email.Send(user.Email, subject, body); err != nil {
		s.logger.WithError(err).WithField("recipient_id", recipientID).Warn("Failed to send notification email")
		if s.metrics != nil {
			s.metrics.RecordNotification(string(ntype), "email", "failure")
		}
		return
	}

	if s.metrics != nil {
		s.metrics.RecordNotification(string(ntype), "email", "success")
	}
}

// ListNotifications returns a page of the caller's notifications
func (s *Service) ListNotifications(claims *types.UserClaims, page int) (*types.NotificationPage, error) {
	pageSize := s.config.Notifications.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	return s.repository.ListByRecipient(claims.UserID, page, pageSize)
}

// UnreadCount returns the caller's unread notification count
func (s *Service) UnreadCount(claims *types.UserClaims) (int, error) {
	return s.repository.UnreadCount(claims.UserID)
}

// MarkAsRead marks one of the caller's notifications as read
func (s *Service) MarkAsRead(id string, claims *types.UserClaims) error {
	return s.repository.MarkRead(id, claims.UserID)
}

// MarkAllAsRead marks all of the caller's notifications as read
func (s *Service) MarkAllAsRead(claims *types.UserClaims) (int64, error) {
	return s.repository.MarkAllRead(claims.UserID)
}

package types

import "time"

// NotificationType represents the event a notification describes
type NotificationType string

const (
	NotificationAppointmentCreated   NotificationType = "appointment_created"
	NotificationAppointmentCancelled NotificationType = "appointment_cancelled"
	NotificationPrescriptionCreated  NotificationType = "prescription_created"
	NotificationReportUploaded       NotificationType = "report_uploaded"
)

// Notification represents a persisted in-app notification
type Notification struct {
	ID              string           `json:"id" db:"id"`
	RecipientID     string           `json:"recipient_id" db:"recipient_id"`
	Type            NotificationType `json:"notification_type" db:"notification_type"`
	Title           string           `json:"title" db:"title"`
	Message         string           `json:"message" db:"message"`
	RelatedObjectID string           `json:"related_object_id,omitempty" db:"related_object_id"`
	IsRead          bool             `json:"is_read" db:"is_read"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
}

// NotificationPage is a paginated notification listing
type NotificationPage struct {
	Notifications []*Notification `json:"notifications"`
	Page          int             `json:"page"`
	PageSize      int             `json:"page_size"`
	Total         int             `json:"total"`
}

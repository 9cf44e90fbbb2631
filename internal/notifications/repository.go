package notifications

import (
	"database/sql"
	"fmt"

	"github.com/medrex/clinic-backend/pkg/database"
	"github.com/medrex/clinic-backend/pkg/logger"
	"github.com/medrex/clinic-backend/pkg/types"
)

// NotificationRepository implements notification persistence
type NotificationRepository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB, log *logger.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: log,
	}
}

// Create inserts a new notification
func (r *NotificationRepository) Create(n *types.Notification) error {
	query := `
		INSERT INTO notifications (id, recipient_id, notification_type, title,
			message, related_object_id, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)`

	_, err := r.db.Exec(query,
		n.ID,
		n.RecipientID,
		n.Type,
		n.Title,
		n.Message,
		n.RelatedObjectID,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListByRecipient returns a page of a user's notifications, newest
// first
func (r *NotificationRepository) ListByRecipient(recipientID string, page, pageSize int) (*types.NotificationPage, error) {
	if page < 1 {
		page = 1
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1`
	if err := r.db.QueryRow(countQuery, recipientID).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, recipient_id, notification_type, title, message,
			COALESCE(related_object_id::text, ''), is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, recipientID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*types.Notification, 0, pageSize)
	for rows.Next() {
		var n types.Notification
		err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.RelatedObjectID,
			&n.IsRead,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return &types.NotificationPage{
		Notifications: notifications,
		Page:          page,
		PageSize:      pageSize,
		Total:         total,
	}, nil
}

// UnreadCount returns the number of unread notifications for a user
func (r *NotificationRepository) UnreadCount(recipientID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = FALSE`

	var count int
	if err := r.db.QueryRow(query, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkRead marks one of the recipient's notifications as read
func (r *NotificationRepository) MarkRead(id, recipientID string) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`

	result, err := r.db.Exec(query, id, recipientID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &types.ClinicError{
			Type:    types.ErrorTypeNotFound,
			Code:    "NOTIFICATION_NOT_FOUND",
			Message: "Notification not found",
		}
	}

	return nil
}

// MarkAllRead marks all of the recipient's notifications as read
func (r *NotificationRepository) MarkAllRead(recipientID string) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND is_read = FALSE`

	result, err := r.db.Exec(query, recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

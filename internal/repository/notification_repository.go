package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"case-engine/internal/models"
)

// NotificationRepository persists outbound notifications. Rows are append
// only; the read flag is the single permitted mutation.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	MarkRead(ctx context.Context, id, recipient uuid.UUID) (bool, error)
	ListUnread(ctx context.Context, recipient uuid.UUID) ([]*models.Notification, error)
	CountUnread(ctx context.Context, recipient uuid.UUID) (int, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a notification repository.
func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	now := time.Now()
	for _, n := range notifications {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt = now
	}

	query := `
		INSERT INTO notifications (id, recipient_id, type, case_id, read, created_at)
		VALUES (:id, :recipient_id, :type, :case_id, :read, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, notifications); err != nil {
		return errors.Wrap(err, "failed to create notifications")
	}
	return nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipient uuid.UUID) (bool, error) {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1 AND recipient_id = $2 AND read = FALSE`

	result, err := r.db.ExecContext(ctx, query, id, recipient)
	if err != nil {
		return false, errors.Wrap(err, "failed to mark notification read")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read notification update result")
	}
	return rows > 0, nil
}

func (r *notificationRepository) ListUnread(ctx context.Context, recipient uuid.UUID) ([]*models.Notification, error) {
	var notifications []*models.Notification

	query := `
		SELECT id, recipient_id, type, case_id, read, created_at
		FROM notifications
		WHERE recipient_id = $1 AND read = FALSE
		ORDER BY created_at DESC`

	if err := r.db.SelectContext(ctx, &notifications, query, recipient); err != nil {
		return nil, errors.Wrap(err, "failed to list unread notifications")
	}
	return notifications, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipient uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read = FALSE`
	if err := r.db.GetContext(ctx, &count, query, recipient); err != nil {
		return 0, errors.Wrap(err, "failed to count unread notifications")
	}
	return count, nil
}

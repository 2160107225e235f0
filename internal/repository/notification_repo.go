package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/saeid-a/CoachLinkBack/internal/models"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(
	ctx context.Context,
	userID int64,
	notificationType models.NotificationType,
	message string,
) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (user_id, type, message, is_read)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, user_id, type, message, is_read, created_at
	`

	var notification models.Notification
	err := r.db.QueryRow(ctx, query, userID, notificationType, message).Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Type,
		&notification.Message,
		&notification.IsRead,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	query := `
		SELECT id, user_id, type, message, is_read, created_at
		FROM notifications
		WHERE id = $1
	`

	var notification models.Notification
	err := r.db.QueryRow(ctx, query, id).Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Type,
		&notification.Message,
		&notification.IsRead,
		&notification.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepository) List(
	ctx context.Context,
	userID int64,
	filter models.NotificationFilter,
) ([]models.Notification, int, error) {
	args := []any{userID}
	whereParts := []string{"user_id = $1"}

	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		whereParts = append(whereParts, fmt.Sprintf("is_read = $%d", len(args)))
	}
	where := strings.Join(whereParts, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT id, user_id, type, message, is_read, created_at
		FROM notifications
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var notification models.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.UserID,
			&notification.Type,
			&notification.Message,
			&notification.IsRead,
			&notification.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

// MarkReadIfUnread returns false when the row was already read.
func (r *NotificationRepository) MarkReadIfUnread(ctx context.Context, id int64, userID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2 AND is_read = FALSE
	`, id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE user_id = $1 AND is_read = FALSE
	`, userID).Scan(&count)
	return count, err
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

type notificationStore interface {
	Create(ctx context.Context, userID int64, notificationType models.NotificationType, message string) (*models.Notification, error)
	GetByID(ctx context.Context, id int64) (*models.Notification, error)
	List(ctx context.Context, userID int64, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkReadIfUnread(ctx context.Context, id int64, userID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
}

type NotificationService struct {
	store       notificationStore
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewNotificationService(
	store notificationStore,
	broadcaster Broadcaster,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		store:       store,
		broadcaster: broadcasterOrNoop(broadcaster),
		logger:      loggerOrDefault(logger),
	}
}

// CreateNotification persists the notification and then pushes it to the
// user's live connections. Delivery problems are logged; the stored row is
// the source of truth.
func (s *NotificationService) CreateNotification(
	ctx context.Context,
	userID int64,
	notificationType models.NotificationType,
	message string,
) (*models.Notification, error) {
	message = strings.TrimSpace(message)
	if userID <= 0 || notificationType == "" || message == "" {
		return nil, apperror.BadRequest("Invalid notification")
	}

	notification, err := s.store.Create(ctx, userID, notificationType, message)
	if err != nil {
		return nil, internal("create notification", err)
	}

	s.push(notification)
	return notification, nil
}

func (s *NotificationService) push(notification *models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("notification push panicked", "notification_id", notification.ID, "panic", r)
		}
	}()

	delivered, err := s.broadcaster.EmitToUser(notification.UserID, models.EventNotification, notification)
	if err != nil {
		s.logger.Warn("notification push failed",
			"notification_id", notification.ID,
			"user_id", notification.UserID,
			"error", err,
		)
		return
	}
	s.logger.Debug("notification pushed",
		"notification_id", notification.ID,
		"user_id", notification.UserID,
		"connections", delivered,
	)
}

func (s *NotificationService) GetNotifications(
	ctx context.Context,
	userID int64,
	page int,
	limit int,
	isRead *bool,
) ([]models.Notification, models.PaginationMeta, error) {
	page, limit = normalizePage(page, limit, defaultNotificationLimit, maxNotificationLimit)

	notifications, total, err := s.store.List(ctx, userID, models.NotificationFilter{
		IsRead: isRead,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return nil, models.PaginationMeta{}, internal("list notifications", err)
	}

	return notifications, models.NewPaginationMeta(page, limit, total), nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID int64, id int64) (*models.Notification, error) {
	notification, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("Notification not found")
		}
		return nil, internal("load notification", err)
	}
	// Someone else's notification is reported as missing.
	if notification.UserID != userID {
		return nil, apperror.NotFound("Notification not found")
	}
	if notification.IsRead {
		return nil, apperror.BadRequest("Notification is already read")
	}

	updated, err := s.store.MarkReadIfUnread(ctx, id, userID)
	if err != nil {
		return nil, internal("mark notification read", err)
	}
	if !updated {
		return nil, apperror.BadRequest("Notification is already read")
	}

	notification.IsRead = true
	return notification, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int64) (int64, error) {
	count, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, internal("mark all notifications read", err)
	}
	return count, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int, error) {
	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, internal("count unread notifications", err)
	}
	return count, nil
}

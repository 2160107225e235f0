package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
)

// Broadcaster pushes real-time events to connected users. It reports how
// many connections received the frame; zero is not an error.
type Broadcaster interface {
	EmitToUser(userID int64, event string, payload any) (int, error)
	EmitToChat(chatID int64, event string, payload any) (int, error)
}

// NoopBroadcaster drops every event.
type NoopBroadcaster struct{}

func (NoopBroadcaster) EmitToUser(int64, string, any) (int, error) { return 0, nil }
func (NoopBroadcaster) EmitToChat(int64, string, any) (int, error) { return 0, nil }

// TxBeginner is satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// Notifier is the slice of NotificationService the other services use.
type Notifier interface {
	CreateNotification(
		ctx context.Context,
		userID int64,
		notificationType models.NotificationType,
		message string,
	) (*models.Notification, error)
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func broadcasterOrNoop(b Broadcaster) Broadcaster {
	if b == nil {
		return NoopBroadcaster{}
	}
	return b
}

// notFoundOr turns pgx.ErrNoRows into a NotFound error with the given
// message and wraps anything else as Internal.
func notFoundOr(err error, message string, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(message)
	}
	return internal(op, err)
}

func internal(op string, err error) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Wrap(apperror.KindInternal, op, err)
}

func displayName(user *models.User) string {
	if user != nil && user.FullName != nil && *user.FullName != "" {
		return *user.FullName
	}
	if user != nil && user.Role == models.RoleTrainer {
		return "Your trainer"
	}
	return "Your client"
}

func normalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

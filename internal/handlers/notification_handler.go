package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
)

const (
	defaultNotificationPageLimit = 20
	maxNotificationPageLimit     = 100
)

type notificationApplicationService interface {
	GetNotifications(ctx context.Context, userID int64, page int, limit int, isRead *bool) ([]models.Notification, models.PaginationMeta, error)
	MarkAsRead(ctx context.Context, userID int64, id int64) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

type NotificationHandler struct {
	service notificationApplicationService
}

func NewNotificationHandler(service notificationApplicationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	page, limit := pageParams(c, defaultNotificationPageLimit, maxNotificationPageLimit)

	var isRead *bool
	if raw := c.Query("isRead"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return apperror.BadRequest("isRead must be true or false")
		}
		isRead = &value
	}

	notifications, meta, err := h.service.GetNotifications(c.UserContext(), userID, page, limit, isRead)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"notifications": notifications,
		"pagination":    meta,
	})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	count, err := h.service.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

func (h *NotificationHandler) MarkAsRead(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseIDParam(c, "id", "notification id")
	if err != nil {
		return err
	}

	notification, err := h.service.MarkAsRead(c.UserContext(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notification": notification})
}

func (h *NotificationHandler) MarkAllAsRead(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}

	updated, err := h.service.MarkAllAsRead(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": updated})
}

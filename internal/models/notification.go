package models

import "time"

type NotificationType string

const (
	NotificationNewMessage           NotificationType = "NEW_MESSAGE"
	NotificationInviteReceived       NotificationType = "INVITE_RECEIVED"
	NotificationInviteAccepted       NotificationType = "INVITE_ACCEPTED"
	NotificationInviteRejected       NotificationType = "INVITE_REJECTED"
	NotificationInviteCancelled      NotificationType = "INVITE_CANCELLED"
	NotificationCooperationCancelled NotificationType = "COOPERATION_CANCELLED"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

type NotificationFilter struct {
	IsRead *bool
	Limit  int
	Offset int
}

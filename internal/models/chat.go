package models

import "time"

type Chat struct {
	ID        int64     `json:"id"`
	TrainerID int64     `json:"trainer_id"`
	ClientID  int64     `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID        int64        `json:"id"`
	ChatID    int64        `json:"chat_id"`
	SenderID  int64        `json:"sender_id"`
	Content   string       `json:"content"`
	ImageURL  *string      `json:"image_url,omitempty"`
	IsRead    bool         `json:"is_read"`
	CreatedAt time.Time    `json:"created_at"`
	Sender    *UserSummary `json:"sender,omitempty"`
}

type ChatSummary struct {
	Chat
	Counterpart UserSummary  `json:"counterpart"`
	IsFavorite  bool         `json:"is_favorite"`
	LastMessage *ChatMessage `json:"last_message,omitempty"`
	UnreadCount int          `json:"unread_count"`
}

package models

import "time"

type Role string

const (
	RoleClient  Role = "CLIENT"
	RoleTrainer Role = "TRAINER"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	FullName     *string   `json:"full_name"`
	AvatarURL    *string   `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSummary carries the display fields attached to messages, chats and
// relationship listings.
type UserSummary struct {
	ID        int64   `json:"id"`
	Role      Role    `json:"role"`
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:        u.ID,
		Role:      u.Role,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
	}
}

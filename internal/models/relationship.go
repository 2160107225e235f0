package models

import "time"

type RelationshipStatus string

const (
	StatusPending  RelationshipStatus = "PENDING"
	StatusAccepted RelationshipStatus = "ACCEPTED"
	StatusRejected RelationshipStatus = "REJECTED"
)

// MaxPendingInvites caps how many invites a client may have outstanding.
const MaxPendingInvites = 5

type Relationship struct {
	ID         int64              `json:"id"`
	ClientID   int64              `json:"client_id"`
	TrainerID  int64              `json:"trainer_id"`
	Status     RelationshipStatus `json:"status"`
	IsFavorite bool               `json:"is_favorite"`
	CreatedAt  time.Time          `json:"created_at"`
	AcceptedAt *time.Time         `json:"accepted_at,omitempty"`
}

type RelationshipDetail struct {
	Relationship
	Client  UserSummary `json:"client"`
	Trainer UserSummary `json:"trainer"`
}

type CancelCooperationResult struct {
	TrainerID             int64 `json:"trainer_id"`
	DeletedNutritionPlans int64 `json:"deletedNutritionPlans"`
}

type AcceptInviteResult struct {
	Relationship      Relationship `json:"relationship"`
	Chat              Chat         `json:"chat"`
	RejectedInviteIDs []int64      `json:"rejected_invite_ids"`
}

// Package access holds the authorization predicates shared by the
// relationship, chat and notification services. Every function is pure.
package access

import (
	"strings"

	"github.com/saeid-a/CoachLinkBack/internal/models"
)

// ParseRole normalizes a role claim. Unknown values report false.
func ParseRole(value string) (models.Role, bool) {
	switch models.Role(strings.ToUpper(strings.TrimSpace(value))) {
	case models.RoleClient:
		return models.RoleClient, true
	case models.RoleTrainer:
		return models.RoleTrainer, true
	default:
		return "", false
	}
}

func IsClient(role models.Role) bool {
	return role == models.RoleClient
}

func IsTrainer(role models.Role) bool {
	return role == models.RoleTrainer
}

func IsKnownRole(role models.Role) bool {
	return IsClient(role) || IsTrainer(role)
}

func IsRelationshipParticipant(rel *models.Relationship, userID int64) bool {
	if rel == nil || userID <= 0 {
		return false
	}
	return rel.ClientID == userID || rel.TrainerID == userID
}

// CanDecideInvite reports whether the actor is the trainer named on the invite.
func CanDecideInvite(rel *models.Relationship, trainerID int64) bool {
	return rel != nil && rel.TrainerID == trainerID
}

// CanCancelInvite reports whether the actor is the client who sent the invite.
func CanCancelInvite(rel *models.Relationship, clientID int64) bool {
	return rel != nil && rel.ClientID == clientID
}

func IsChatParticipant(chat *models.Chat, userID int64) bool {
	if chat == nil || userID <= 0 {
		return false
	}
	return chat.TrainerID == userID || chat.ClientID == userID
}

// CounterpartID returns the other participant of the chat, or 0 when userID
// is not a participant.
func CounterpartID(chat *models.Chat, userID int64) int64 {
	switch {
	case chat == nil:
		return 0
	case chat.TrainerID == userID:
		return chat.ClientID
	case chat.ClientID == userID:
		return chat.TrainerID
	default:
		return 0
	}
}

package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saeid-a/CoachLinkBack/internal/models"
)

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" trainer ")
	assert.True(t, ok)
	assert.Equal(t, models.RoleTrainer, role)

	role, ok = ParseRole("CLIENT")
	assert.True(t, ok)
	assert.Equal(t, models.RoleClient, role)

	_, ok = ParseRole("admin")
	assert.False(t, ok)
}

func TestChatParticipancy(t *testing.T) {
	chat := &models.Chat{ID: 3, TrainerID: 7, ClientID: 42}

	assert.True(t, IsChatParticipant(chat, 7))
	assert.True(t, IsChatParticipant(chat, 42))
	assert.False(t, IsChatParticipant(chat, 8))
	assert.False(t, IsChatParticipant(nil, 7))

	assert.Equal(t, int64(42), CounterpartID(chat, 7))
	assert.Equal(t, int64(7), CounterpartID(chat, 42))
	assert.Zero(t, CounterpartID(chat, 99))
}

func TestInviteOwnership(t *testing.T) {
	rel := &models.Relationship{ID: 1, ClientID: 42, TrainerID: 7}

	assert.True(t, CanDecideInvite(rel, 7))
	assert.False(t, CanDecideInvite(rel, 42))
	assert.True(t, CanCancelInvite(rel, 42))
	assert.False(t, CanCancelInvite(rel, 7))
	assert.True(t, IsRelationshipParticipant(rel, 42))
	assert.False(t, IsRelationshipParticipant(rel, 0))
}

package services

import (
	"context"
	"strings"
	"testing"

	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestOrderChatSummariesLiftsFavoritesForTrainers(t *testing.T) {
	summaries := func() []models.ChatSummary {
		return []models.ChatSummary{
			{Chat: models.Chat{ID: 1}},
			{Chat: models.Chat{ID: 2}, IsFavorite: true},
			{Chat: models.Chat{ID: 3}},
			{Chat: models.Chat{ID: 4}, IsFavorite: true},
		}
	}
	ids := func(in []models.ChatSummary) []int64 {
		out := make([]int64, 0, len(in))
		for _, s := range in {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t, []int64{2, 4, 1, 3}, ids(orderChatSummaries(summaries(), models.RoleTrainer)))
	assert.Equal(t, []int64{1, 2, 3, 4}, ids(orderChatSummaries(summaries(), models.RoleClient)))
}

func TestSendMessageValidatesBodyBeforeTouchingStorage(t *testing.T) {
	svc := NewChatService(nil, nil, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.SendMessage(context.Background(), 1, models.RoleClient, SendMessageInput{Content: "   "})
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))

	_, err = svc.SendMessage(context.Background(), 1, models.RoleClient, SendMessageInput{
		Content: strings.Repeat("é", MaxMessageLength+1),
	})
	assert.Equal(t, apperror.KindBadRequest, apperror.KindOf(err))

	_, err = svc.SendMessage(context.Background(), 1, models.RoleTrainer, SendMessageInput{Content: "hi"})
	assert.Equal(t, "chat_id is required", apperror.PublicMessage(err))

	bad := int64(0)
	_, err = svc.SendMessage(context.Background(), 1, models.RoleTrainer, SendMessageInput{ChatID: &bad, Content: "hi"})
	assert.Equal(t, "Invalid chat id", apperror.PublicMessage(err))
}

func TestGetChatsRejectsUnknownRole(t *testing.T) {
	svc := NewChatService(nil, nil, nil, nil, nil, nil, nil, nil, nil)

	_, err := svc.GetChats(context.Background(), 1, models.Role("ADMIN"))
	assert.Equal(t, apperror.KindForbidden, apperror.KindOf(err))
}

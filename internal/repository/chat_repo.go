package repository

import (
	"context"
	"database/sql"

	"github.com/saeid-a/CoachLinkBack/internal/models"
)

type ChatRepository struct {
	db DBTX
}

func NewChatRepository(db DBTX) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) CreateOrGet(
	ctx context.Context,
	trainerID int64,
	clientID int64,
) (*models.Chat, error) {
	query := `
		INSERT INTO chats (trainer_id, client_id)
		VALUES ($1, $2)
		ON CONFLICT (trainer_id, client_id)
		DO UPDATE SET updated_at = chats.updated_at
		RETURNING id, trainer_id, client_id, created_at, updated_at
	`

	var chat models.Chat
	err := r.db.QueryRow(ctx, query, trainerID, clientID).Scan(
		&chat.ID,
		&chat.TrainerID,
		&chat.ClientID,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &chat, nil
}

func (r *ChatRepository) GetByID(ctx context.Context, chatID int64) (*models.Chat, error) {
	query := `
		SELECT id, trainer_id, client_id, created_at, updated_at
		FROM chats
		WHERE id = $1
	`

	var chat models.Chat
	err := r.db.QueryRow(ctx, query, chatID).Scan(
		&chat.ID,
		&chat.TrainerID,
		&chat.ClientID,
		&chat.CreatedAt,
		&chat.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &chat, nil
}

func (r *ChatRepository) CountForPair(ctx context.Context, trainerID int64, clientID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM chats
		WHERE trainer_id = $1 AND client_id = $2
	`, trainerID, clientID).Scan(&count)
	return count, err
}

// ListForParticipant returns every chat the user takes part in with its
// latest message, unread count for that user, the counterpart's display
// fields and the favorite flag of the underlying relationship. Rows come
// back most recently active first.
func (r *ChatRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.ChatSummary, error) {
	query := `
		SELECT
			c.id,
			c.trainer_id,
			c.client_id,
			c.created_at,
			c.updated_at,
			u.id,
			u.role,
			u.full_name,
			u.avatar_url,
			COALESCE(rel.is_favorite, FALSE),
			lm.id,
			lm.chat_id,
			lm.sender_id,
			lm.content,
			lm.image_url,
			lm.is_read,
			lm.created_at,
			COALESCE(uc.unread_count, 0)
		FROM chats c
		JOIN users u
		  ON u.id = CASE WHEN c.trainer_id = $1 THEN c.client_id ELSE c.trainer_id END
		LEFT JOIN relationships rel
		  ON rel.trainer_id = c.trainer_id AND rel.client_id = c.client_id
		LEFT JOIN LATERAL (
			SELECT id, chat_id, sender_id, content, image_url, is_read, created_at
			FROM messages
			WHERE chat_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages
			WHERE chat_id = c.id
			  AND sender_id <> $1
			  AND is_read = FALSE
		) uc ON TRUE
		WHERE c.trainer_id = $1 OR c.client_id = $1
		ORDER BY c.updated_at DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]models.ChatSummary, 0)
	for rows.Next() {
		var summary models.ChatSummary
		var messageID sql.NullInt64
		var messageChatID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageContent sql.NullString
		var messageImageURL sql.NullString
		var messageIsRead sql.NullBool
		var messageCreatedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.TrainerID,
			&summary.ClientID,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.Counterpart.ID,
			&summary.Counterpart.Role,
			&summary.Counterpart.FullName,
			&summary.Counterpart.AvatarURL,
			&summary.IsFavorite,
			&messageID,
			&messageChatID,
			&messageSenderID,
			&messageContent,
			&messageImageURL,
			&messageIsRead,
			&messageCreatedAt,
			&summary.UnreadCount,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.ChatMessage{
				ID:        messageID.Int64,
				ChatID:    messageChatID.Int64,
				SenderID:  messageSenderID.Int64,
				Content:   messageContent.String,
				IsRead:    messageIsRead.Bool,
				CreatedAt: messageCreatedAt.Time,
			}
			if messageImageURL.Valid {
				imageURL := messageImageURL.String
				summary.LastMessage.ImageURL = &imageURL
			}
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *ChatRepository) Touch(ctx context.Context, chatID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE chats
		SET updated_at = NOW()
		WHERE id = $1
	`, chatID)
	return err
}

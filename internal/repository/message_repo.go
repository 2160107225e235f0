package repository

import (
	"context"

	"github.com/saeid-a/CoachLinkBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	chatID int64,
	senderID int64,
	content string,
	imageURL *string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (chat_id, sender_id, content, image_url, is_read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, chat_id, sender_id, content, image_url, is_read, created_at
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, chatID, senderID, content, imageURL).Scan(
		&message.ID,
		&message.ChatID,
		&message.SenderID,
		&message.Content,
		&message.ImageURL,
		&message.IsRead,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByChat returns one page of messages newest first together with the
// chat's total message count. Sender display fields are joined in.
func (r *MessageRepository) ListByChat(
	ctx context.Context,
	chatID int64,
	limit int,
	offset int,
) ([]models.ChatMessage, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM messages
		WHERE chat_id = $1
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, chatID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT m.id, m.chat_id, m.sender_id, m.content, m.image_url, m.is_read, m.created_at,
			u.id, u.role, u.full_name, u.avatar_url
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.chat_id = $1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, chatID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		var sender models.UserSummary
		if err := rows.Scan(
			&message.ID,
			&message.ChatID,
			&message.SenderID,
			&message.Content,
			&message.ImageURL,
			&message.IsRead,
			&message.CreatedAt,
			&sender.ID,
			&sender.Role,
			&sender.FullName,
			&sender.AvatarURL,
		); err != nil {
			return nil, 0, err
		}
		message.Sender = &sender

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

// MarkChatRead flips every unread message in the chat that the reader did
// not send.
func (r *MessageRepository) MarkChatRead(
	ctx context.Context,
	chatID int64,
	readerID int64,
) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_read = TRUE
		WHERE chat_id = $1
		  AND sender_id <> $2
		  AND is_read = FALSE
	`, chatID, readerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *MessageRepository) CountUnread(
	ctx context.Context,
	chatID int64,
	readerID int64,
) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages
		WHERE chat_id = $1
		  AND sender_id <> $2
		  AND is_read = FALSE
	`, chatID, readerID).Scan(&count)
	return count, err
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/saeid-a/CoachLinkBack/internal/access"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
	"github.com/saeid-a/CoachLinkBack/internal/repository"
)

const (
	MaxMessageLength  = 4000
	MaxChatImageBytes = 5 << 20

	defaultMessagePageLimit = 50
	maxMessagePageLimit     = 100

	chatImageFolder = "chat"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type ImageUpload struct {
	Filename string
	Data     []byte
}

type SendMessageInput struct {
	// ChatID is optional for clients; it resolves to the chat with their
	// active trainer.
	ChatID  *int64
	Content string
	Image   *ImageUpload
}

type ChatUpdate struct {
	ChatID      int64               `json:"chat_id"`
	LastMessage *models.ChatMessage `json:"last_message"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type ChatService struct {
	db               TxBeginner
	chatRepo         *repository.ChatRepository
	messageRepo      *repository.MessageRepository
	relationshipRepo *repository.RelationshipRepository
	userRepo         userReader
	storage          StorageService
	broadcaster      Broadcaster
	notifier         Notifier
	logger           *slog.Logger
}

func NewChatService(
	db TxBeginner,
	chatRepo *repository.ChatRepository,
	messageRepo *repository.MessageRepository,
	relationshipRepo *repository.RelationshipRepository,
	userRepo userReader,
	storage StorageService,
	broadcaster Broadcaster,
	notifier Notifier,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		db:               db,
		chatRepo:         chatRepo,
		messageRepo:      messageRepo,
		relationshipRepo: relationshipRepo,
		userRepo:         userRepo,
		storage:          storage,
		broadcaster:      broadcasterOrNoop(broadcaster),
		notifier:         notifier,
		logger:           loggerOrDefault(logger),
	}
}

func (s *ChatService) SendMessage(
	ctx context.Context,
	senderID int64,
	role models.Role,
	input SendMessageInput,
) (*models.ChatMessage, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && input.Image == nil {
		return nil, apperror.BadRequest("Message must have content or an image")
	}
	if len([]rune(content)) > MaxMessageLength {
		return nil, apperror.BadRequest(fmt.Sprintf("Message must be at most %d characters", MaxMessageLength))
	}

	chat, err := s.resolveChat(ctx, senderID, role, input.ChatID)
	if err != nil {
		return nil, err
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, notFoundOr(err, "User not found", "load sender")
	}

	var imageURL *string
	if input.Image != nil {
		uploaded, err := s.uploadImage(ctx, chat.ID, input.Image)
		if err != nil {
			return nil, err
		}
		imageURL = &uploaded
	}

	message, err := s.storeMessage(ctx, chat.ID, senderID, content, imageURL)
	if err != nil {
		if imageURL != nil {
			if cleanupErr := s.storage.Delete(context.WithoutCancel(ctx), *imageURL); cleanupErr != nil {
				err = errors.Join(err, fmt.Errorf("remove orphaned image: %w", cleanupErr))
			}
		}
		return nil, err
	}

	summary := sender.Summary()
	message.Sender = &summary

	s.fanOut(ctx, chat, message, sender)

	return message, nil
}

func (s *ChatService) resolveChat(
	ctx context.Context,
	senderID int64,
	role models.Role,
	chatID *int64,
) (*models.Chat, error) {
	if chatID == nil {
		if !access.IsClient(role) {
			return nil, apperror.BadRequest("chat_id is required")
		}
		relationship, err := s.relationshipRepo.GetAcceptedByClient(ctx, senderID)
		if err != nil {
			return nil, notFoundOr(err, "You do not have an active trainer", "load active relationship")
		}
		chat, err := s.chatRepo.CreateOrGet(ctx, relationship.TrainerID, relationship.ClientID)
		if err != nil {
			return nil, internal("load chat", err)
		}
		return chat, nil
	}

	if *chatID <= 0 {
		return nil, apperror.BadRequest("Invalid chat id")
	}
	chat, err := s.chatRepo.GetByID(ctx, *chatID)
	if err != nil {
		return nil, notFoundOr(err, "Chat not found", "load chat")
	}
	if !access.IsChatParticipant(chat, senderID) {
		return nil, apperror.Forbidden("You are not a participant of this chat")
	}
	return chat, nil
}

func (s *ChatService) uploadImage(ctx context.Context, chatID int64, image *ImageUpload) (string, error) {
	if s.storage == nil {
		return "", apperror.Wrap(apperror.KindInternal, "upload image", ErrStorageUnavailable)
	}
	if len(image.Data) == 0 {
		return "", apperror.BadRequest("Image is empty")
	}
	if len(image.Data) > MaxChatImageBytes {
		return "", apperror.BadRequest("Image must be at most 5MB")
	}

	contentType := http.DetectContentType(image.Data)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", apperror.BadRequest("Only JPEG, PNG, GIF and WEBP images are allowed")
	}
	if original := strings.ToLower(filepath.Ext(image.Filename)); original == ".jpeg" && ext == ".jpg" {
		ext = original
	}

	objectName := fmt.Sprintf("%d/%s%s", chatID, uuid.NewString(), ext)
	url, err := s.storage.Upload(ctx, image.Data, objectName, chatImageFolder, contentType)
	if err != nil {
		return "", internal("upload image", err)
	}
	return url, nil
}

func (s *ChatService) storeMessage(
	ctx context.Context,
	chatID int64,
	senderID int64,
	content string,
	imageURL *string,
) (*models.ChatMessage, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, internal("begin send message", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	message, err := repository.NewMessageRepository(tx).Create(ctx, chatID, senderID, content, imageURL)
	if err != nil {
		return nil, internal("create message", err)
	}
	if err := repository.NewChatRepository(tx).Touch(ctx, chatID); err != nil {
		return nil, internal("touch chat", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, internal("commit send message", err)
	}
	return message, nil
}

// fanOut runs after the message is durable. Delivery problems are logged and
// never fail the send.
func (s *ChatService) fanOut(ctx context.Context, chat *models.Chat, message *models.ChatMessage, sender *models.User) {
	if _, err := s.broadcaster.EmitToChat(chat.ID, models.EventNewMessage, message); err != nil {
		s.logger.Warn("emit new message failed", "chat_id", chat.ID, "error", err)
	}

	update := ChatUpdate{ChatID: chat.ID, LastMessage: message, UpdatedAt: message.CreatedAt}
	for _, participantID := range []int64{chat.TrainerID, chat.ClientID} {
		if _, err := s.broadcaster.EmitToUser(participantID, models.EventChatUpdated, update); err != nil {
			s.logger.Warn("emit chat update failed", "chat_id", chat.ID, "user_id", participantID, "error", err)
		}
	}

	if s.notifier == nil {
		return
	}
	recipientID := access.CounterpartID(chat, message.SenderID)
	text := fmt.Sprintf("New message from %s", displayName(sender))
	if _, err := s.notifier.CreateNotification(ctx, recipientID, models.NotificationNewMessage, text); err != nil {
		s.logger.Warn("message notification failed", "chat_id", chat.ID, "user_id", recipientID, "error", err)
	}
}

// GetMessages returns one page of the chat in chronological order and marks
// every message the caller received in that chat as read.
func (s *ChatService) GetMessages(
	ctx context.Context,
	chatID int64,
	userID int64,
	page int,
	limit int,
) ([]models.ChatMessage, models.PaginationMeta, error) {
	if chatID <= 0 {
		return nil, models.PaginationMeta{}, apperror.BadRequest("Invalid chat id")
	}
	page, limit = normalizePage(page, limit, defaultMessagePageLimit, maxMessagePageLimit)

	if _, err := s.participantChat(ctx, chatID, userID); err != nil {
		return nil, models.PaginationMeta{}, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, models.PaginationMeta{}, internal("begin list messages", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)

	messages, total, err := txMessageRepo.ListByChat(ctx, chatID, limit, (page-1)*limit)
	if err != nil {
		return nil, models.PaginationMeta{}, internal("list messages", err)
	}
	if _, err := txMessageRepo.MarkChatRead(ctx, chatID, userID); err != nil {
		return nil, models.PaginationMeta{}, internal("mark chat read", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, models.PaginationMeta{}, internal("commit list messages", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	for i := range messages {
		if messages[i].SenderID != userID {
			messages[i].IsRead = true
		}
	}

	return messages, models.NewPaginationMeta(page, limit, total), nil
}

func (s *ChatService) GetChats(ctx context.Context, userID int64, role models.Role) ([]models.ChatSummary, error) {
	if !access.IsKnownRole(role) {
		return nil, apperror.Forbidden("Unknown role")
	}

	summaries, err := s.chatRepo.ListForParticipant(ctx, userID)
	if err != nil {
		return nil, internal("list chats", err)
	}
	return orderChatSummaries(summaries, role), nil
}

// orderChatSummaries keeps the recency order from storage and, for trainers,
// lifts favorite clients to the top.
func orderChatSummaries(summaries []models.ChatSummary, role models.Role) []models.ChatSummary {
	if !access.IsTrainer(role) {
		return summaries
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].IsFavorite && !summaries[j].IsFavorite
	})
	return summaries
}

func (s *ChatService) UnreadCount(ctx context.Context, chatID int64, userID int64) (int, error) {
	if _, err := s.participantChat(ctx, chatID, userID); err != nil {
		return 0, err
	}
	count, err := s.messageRepo.CountUnread(ctx, chatID, userID)
	if err != nil {
		return 0, internal("count unread messages", err)
	}
	return count, nil
}

// CanJoinChat reports whether the user may subscribe to the chat's room.
func (s *ChatService) CanJoinChat(ctx context.Context, chatID int64, userID int64) (bool, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, internal("load chat", err)
	}
	return access.IsChatParticipant(chat, userID), nil
}

func (s *ChatService) participantChat(ctx context.Context, chatID int64, userID int64) (*models.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, notFoundOr(err, "Chat not found", "load chat")
	}
	if !access.IsChatParticipant(chat, userID) {
		return nil, apperror.Forbidden("You are not a participant of this chat")
	}
	return chat, nil
}

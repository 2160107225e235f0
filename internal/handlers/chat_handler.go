package handlers

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
	"github.com/saeid-a/CoachLinkBack/internal/services"
)

const (
	defaultMessagePageLimit = 50
	maxMessagePageLimit     = 100
)

type chatApplicationService interface {
	GetChats(ctx context.Context, userID int64, role models.Role) ([]models.ChatSummary, error)
	GetMessages(ctx context.Context, chatID int64, userID int64, page int, limit int) ([]models.ChatMessage, models.PaginationMeta, error)
	SendMessage(ctx context.Context, senderID int64, role models.Role, input services.SendMessageInput) (*models.ChatMessage, error)
	UnreadCount(ctx context.Context, chatID int64, userID int64) (int, error)
}

type ChatHandler struct {
	service chatApplicationService
}

func NewChatHandler(service chatApplicationService) *ChatHandler {
	return &ChatHandler{service: service}
}

type sendMessageRequest struct {
	ChatID  *int64 `json:"chat_id"`
	Content string `json:"content"`
}

func (h *ChatHandler) GetChats(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}

	chats, err := h.service.GetChats(c.UserContext(), userID, role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"chats": chats})
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	chatID, err := parseIDParam(c, "chatId", "chat id")
	if err != nil {
		return err
	}
	page, limit := pageParams(c, defaultMessagePageLimit, maxMessagePageLimit)

	messages, meta, err := h.service.GetMessages(c.UserContext(), chatID, userID, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"messages":   messages,
		"pagination": meta,
	})
}

func (h *ChatHandler) UnreadCount(c *fiber.Ctx) error {
	userID, _, err := currentUser(c)
	if err != nil {
		return err
	}
	chatID, err := parseIDParam(c, "chatId", "chat id")
	if err != nil {
		return err
	}

	count, err := h.service.UnreadCount(c.UserContext(), chatID, userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"chat_id": chatID, "unread_count": count})
}

// SendMessage accepts either a JSON body or a multipart form with an
// optional "image" file.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, role, err := currentUser(c)
	if err != nil {
		return err
	}

	var input services.SendMessageInput
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		input, err = parseMultipartMessage(c)
	} else {
		input, err = parseJSONMessage(c)
	}
	if err != nil {
		return err
	}

	message, err := h.service.SendMessage(c.UserContext(), userID, role, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": message})
}

func parseJSONMessage(c *fiber.Ctx) (services.SendMessageInput, error) {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return services.SendMessageInput{}, apperror.BadRequest("Invalid request body")
	}
	return services.SendMessageInput{ChatID: req.ChatID, Content: req.Content}, nil
}

func parseMultipartMessage(c *fiber.Ctx) (services.SendMessageInput, error) {
	input := services.SendMessageInput{Content: c.FormValue("content")}

	if raw := strings.TrimSpace(c.FormValue("chat_id")); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || chatID <= 0 {
			return services.SendMessageInput{}, apperror.BadRequest("Invalid chat id")
		}
		input.ChatID = &chatID
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		// No file part means a text-only message.
		return input, nil
	}
	if fileHeader.Size > services.MaxChatImageBytes {
		return services.SendMessageInput{}, apperror.BadRequest("Image must be at most 5MB")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return services.SendMessageInput{}, apperror.BadRequest("Invalid image upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, services.MaxChatImageBytes+1))
	if err != nil {
		return services.SendMessageInput{}, apperror.BadRequest("Invalid image upload")
	}
	input.Image = &services.ImageUpload{Filename: fileHeader.Filename, Data: data}
	return input, nil
}

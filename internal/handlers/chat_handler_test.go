package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
	"github.com/saeid-a/CoachLinkBack/internal/services"
)

type stubChatService struct {
	chatsResult    []models.ChatSummary
	messagesResult []models.ChatMessage
	messagesMeta   models.PaginationMeta
	sendResult     *models.ChatMessage
	err            error

	lastUserID int64
	lastRole   models.Role
	lastChatID int64
	lastPage   int
	lastLimit  int
	lastInput  services.SendMessageInput
}

func (s *stubChatService) GetChats(_ context.Context, userID int64, role models.Role) ([]models.ChatSummary, error) {
	s.lastUserID = userID
	s.lastRole = role
	return s.chatsResult, s.err
}

func (s *stubChatService) GetMessages(_ context.Context, chatID int64, userID int64, page int, limit int) ([]models.ChatMessage, models.PaginationMeta, error) {
	s.lastChatID = chatID
	s.lastUserID = userID
	s.lastPage = page
	s.lastLimit = limit
	return s.messagesResult, s.messagesMeta, s.err
}

func (s *stubChatService) SendMessage(_ context.Context, senderID int64, role models.Role, input services.SendMessageInput) (*models.ChatMessage, error) {
	s.lastUserID = senderID
	s.lastRole = role
	s.lastInput = input
	return s.sendResult, s.err
}

func (s *stubChatService) UnreadCount(_ context.Context, chatID int64, userID int64) (int, error) {
	s.lastChatID = chatID
	s.lastUserID = userID
	return 4, s.err
}

func TestGetChatsReturnsSummaries(t *testing.T) {
	service := &stubChatService{
		chatsResult: []models.ChatSummary{
			{
				Chat: models.Chat{ID: 17, TrainerID: 8, ClientID: 42},
				LastMessage: &models.ChatMessage{
					ID:        3,
					ChatID:    17,
					SenderID:  8,
					Content:   "See you tomorrow",
					CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				},
				UnreadCount: 2,
			},
		},
	}
	handler := NewChatHandler(service)

	app := newTestApp("42", models.RoleClient)
	app.Get("/api/v1/chats", handler.GetChats)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/chats", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastUserID != 42 || service.lastRole != models.RoleClient {
		t.Fatalf("unexpected actor context: %d %q", service.lastUserID, service.lastRole)
	}

	var body struct {
		Chats []models.ChatSummary `json:"chats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Chats) != 1 || body.Chats[0].UnreadCount != 2 {
		t.Fatalf("unexpected response: %+v", body.Chats)
	}
}

func TestGetMessagesPassesPagination(t *testing.T) {
	service := &stubChatService{
		messagesResult: []models.ChatMessage{{ID: 1, ChatID: 17, SenderID: 8, Content: "hi"}},
		messagesMeta:   models.NewPaginationMeta(2, 25, 30),
	}
	handler := NewChatHandler(service)

	app := newTestApp("42", models.RoleClient)
	app.Get("/api/v1/chats/:chatId/messages", handler.GetMessages)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/chats/17/messages?page=2&limit=25", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastChatID != 17 || service.lastPage != 2 || service.lastLimit != 25 {
		t.Fatalf("unexpected call: chat=%d page=%d limit=%d", service.lastChatID, service.lastPage, service.lastLimit)
	}

	var body struct {
		Messages   []models.ChatMessage  `json:"messages"`
		Pagination models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Pagination.TotalPages != 2 || len(body.Messages) != 1 {
		t.Fatalf("unexpected response: %+v", body)
	}
}

func TestGetMessagesForbiddenForOutsider(t *testing.T) {
	service := &stubChatService{err: apperror.Forbidden("You are not a participant of this chat")}
	handler := NewChatHandler(service)

	app := newTestApp("99", models.RoleClient)
	app.Get("/api/v1/:chatId/messages", handler.GetMessages)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/17/messages", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestSendMessageJSONWithoutChatID(t *testing.T) {
	service := &stubChatService{
		sendResult: &models.ChatMessage{ID: 11, ChatID: 17, SenderID: 42, Content: "Ready for Monday"},
	}
	handler := NewChatHandler(service)

	app := newTestApp("42", models.RoleClient)
	app.Post("/api/v1/messages", handler.SendMessage)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"content":"Ready for Monday"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastInput.ChatID != nil {
		t.Fatalf("expected no chat id, got %d", *service.lastInput.ChatID)
	}
	if service.lastInput.Content != "Ready for Monday" || service.lastInput.Image != nil {
		t.Fatalf("unexpected input: %+v", service.lastInput)
	}
}

func TestSendMessageMultipartWithImage(t *testing.T) {
	service := &stubChatService{sendResult: &models.ChatMessage{ID: 12, ChatID: 17}}
	handler := NewChatHandler(service)

	app := newTestApp("8", models.RoleTrainer)
	app.Post("/api/v1/messages", handler.SendMessage)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("chat_id", "17")
	_ = writer.WriteField("content", "Form check")
	part, err := writer.CreateFormFile("image", "squat.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	png := []byte("\x89PNG\r\n\x1a\n0000")
	if _, err := part.Write(png); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	input := service.lastInput
	if input.ChatID == nil || *input.ChatID != 17 {
		t.Fatalf("expected chat 17, got %+v", input.ChatID)
	}
	if input.Image == nil || input.Image.Filename != "squat.png" || !bytes.Equal(input.Image.Data, png) {
		t.Fatalf("unexpected image: %+v", input.Image)
	}
}

func TestSendMessageMultipartRejectsBadChatID(t *testing.T) {
	handler := NewChatHandler(&stubChatService{})

	app := newTestApp("8", models.RoleTrainer)
	app.Post("/api/v1/messages", handler.SendMessage)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	_ = writer.WriteField("chat_id", "abc")
	_ = writer.WriteField("content", "hi")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUnreadCountUsesSnakeCaseKeys(t *testing.T) {
	service := &stubChatService{}
	handler := NewChatHandler(service)

	app := newTestApp("42", models.RoleClient)
	app.Get("/api/v1/chats/:chatId/unread-count", handler.UnreadCount)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/chats/17/unread-count", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]int64
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body["chat_id"] != 17 || body["unread_count"] != 4 {
		t.Fatalf("unexpected response: %+v", body)
	}
	if _, ok := body["unreadCount"]; ok {
		t.Fatalf("camelCase key in response: %+v", body)
	}
}

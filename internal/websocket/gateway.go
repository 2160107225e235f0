package chatws

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachLinkBack/internal/apperror"
	"github.com/saeid-a/CoachLinkBack/internal/models"
	"github.com/saeid-a/CoachLinkBack/internal/services"
)

const (
	localsToken     = "ws_token"
	localsSessionID = "ws_session_id"

	authTimeout   = 5 * time.Second
	actionTimeout = 5 * time.Second
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string, sessionID string) (*services.Identity, error)
}

type ChatAccess interface {
	CanJoinChat(ctx context.Context, chatID int64, userID int64) (bool, error)
}

type chatRef struct {
	ChatID int64 `json:"chat_id"`
}

type typingEvent struct {
	ChatID int64 `json:"chat_id"`
	UserID int64 `json:"user_id"`
}

// Gateway upgrades HTTP requests, authenticates the connection against its
// durable session and then serves room and typing events.
type Gateway struct {
	hub    *Hub
	auth   Authenticator
	chats  ChatAccess
	logger *slog.Logger
}

func NewGateway(hub *Hub, auth Authenticator, chats ChatAccess, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		hub:    hub,
		auth:   auth,
		chats:  chats,
		logger: logger,
	}
}

// Upgrade rejects plain HTTP requests and stashes the handshake credentials
// for the websocket handler.
func (g *Gateway) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.NewError(fiber.StatusUpgradeRequired, "WebSocket upgrade required")
	}

	c.Locals(localsToken, handshakeToken(c))
	c.Locals(localsSessionID, handshakeSessionID(c))
	return c.Next()
}

func (g *Gateway) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		token, _ := conn.Locals(localsToken).(string)
		sessionID, _ := conn.Locals(localsSessionID).(string)
		g.Serve(conn, token, sessionID)
	})
}

// Serve blocks until the connection closes.
func (g *Gateway) Serve(c conn, token string, sessionID string) {
	client := newClient(g.hub, c)
	client.setState(StateAuthenticating)

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	identity, err := g.auth.Authenticate(ctx, token, sessionID)
	cancel()
	if err != nil {
		g.logger.Info("websocket authentication failed", "conn_id", client.id, "error", err)
		client.reject(CloseUnauthorized, apperror.PublicMessage(err))
		return
	}

	client.userID = identity.UserID
	g.hub.register(client)
	client.setState(StateJoined)

	g.logger.Debug("websocket connected", "conn_id", client.id, "user_id", client.userID)

	go client.writePump()
	client.readPump(g.dispatch)

	g.logger.Debug("websocket disconnected", "conn_id", client.id, "user_id", client.userID)
}

func (g *Gateway) dispatch(client *Client, envelope Envelope) {
	switch envelope.Event {
	case models.EventJoinChat:
		g.joinChat(client, envelope.Data)
	case models.EventLeaveChat:
		ref, ok := parseChatRef(envelope.Data)
		if !ok {
			client.sendError("Invalid chat id")
			return
		}
		g.hub.leave(client, ChatRoom(ref.ChatID))
	case models.EventTypingStart:
		g.relayTyping(client, envelope.Data, models.EventUserTyping)
	case models.EventTypingStop:
		g.relayTyping(client, envelope.Data, models.EventUserStoppedTyping)
	default:
		client.sendError("Unsupported event")
	}
}

func (g *Gateway) joinChat(client *Client, data json.RawMessage) {
	ref, ok := parseChatRef(data)
	if !ok {
		client.sendError("Invalid chat id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	allowed, err := g.chats.CanJoinChat(ctx, ref.ChatID, client.userID)
	if err != nil {
		g.logger.Warn("join chat check failed", "chat_id", ref.ChatID, "user_id", client.userID, "error", err)
		client.sendError("Could not join chat")
		return
	}
	if !allowed {
		client.sendError("You are not a participant of this chat")
		return
	}
	g.hub.join(client, ChatRoom(ref.ChatID))
}

func (g *Gateway) relayTyping(client *Client, data json.RawMessage, event string) {
	ref, ok := parseChatRef(data)
	if !ok {
		client.sendError("Invalid chat id")
		return
	}

	room := ChatRoom(ref.ChatID)
	if !g.hub.inRoom(client, room) {
		client.sendError("Join the chat before sending typing events")
		return
	}

	payload := typingEvent{ChatID: ref.ChatID, UserID: client.userID}
	if _, err := g.hub.EmitToRoom(room, event, payload, client); err != nil {
		g.logger.Warn("relay typing failed", "chat_id", ref.ChatID, "error", err)
	}
}

func decodeEnvelope(payload []byte) (Envelope, bool) {
	var envelope Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return Envelope{}, false
	}
	envelope.Event = strings.TrimSpace(envelope.Event)
	return envelope, envelope.Event != ""
}

func parseChatRef(data json.RawMessage) (chatRef, bool) {
	var ref chatRef
	if len(data) == 0 || json.Unmarshal(data, &ref) != nil || ref.ChatID <= 0 {
		return chatRef{}, false
	}
	return ref, true
}

func handshakeToken(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		return token
	}
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

func handshakeSessionID(c *fiber.Ctx) string {
	if sessionID := strings.TrimSpace(c.Query("session_id")); sessionID != "" {
		return sessionID
	}
	return strings.TrimSpace(c.Get("X-Session-ID"))
}

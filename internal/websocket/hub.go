package chatws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	SentAt time.Time       `json:"sent_at"`
}

func UserRoom(userID int64) string {
	return "user_" + strconv.FormatInt(userID, 10)
}

func ChatRoom(chatID int64) string {
	return "chat_" + strconv.FormatInt(chatID, 10)
}

// Hub tracks live connections by room. Frames are encoded once and queued
// on each recipient's send buffer; socket writes only happen in the
// recipient's write pump.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	logger  *slog.Logger
	now     func() time.Time
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		logger:  logger,
		now:     time.Now,
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client] = struct{}{}
	h.joinLocked(client, UserRoom(client.userID))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	for room := range client.rooms {
		h.leaveLocked(client, room)
	}
	delete(h.clients, client)
}

func (h *Hub) join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	h.joinLocked(client, room)
}

func (h *Hub) leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

func (h *Hub) joinLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(client *Client, room string) {
	delete(client.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) inRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := client.rooms[room]
	return ok
}

func (h *Hub) EmitToUser(userID int64, event string, payload any) (int, error) {
	return h.EmitToRoom(UserRoom(userID), event, payload, nil)
}

func (h *Hub) EmitToChat(chatID int64, event string, payload any) (int, error) {
	return h.EmitToRoom(ChatRoom(chatID), event, payload, nil)
}

// EmitToRoom queues the event for every member of room except the given
// client and returns how many connections accepted it. Members whose buffer
// is full are disconnected.
func (h *Hub) EmitToRoom(room string, event string, payload any, except *Client) (int, error) {
	frame, err := h.encode(event, payload)
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		if client != except {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range targets {
		if client.enqueue(frame) {
			delivered++
			continue
		}
		h.logger.Warn("dropping slow websocket connection",
			"conn_id", client.id,
			"user_id", client.userID,
			"room", room,
		)
		h.unregister(client)
		client.shutdown()
	}
	return delivered, nil
}

func (h *Hub) encode(event string, payload any) ([]byte, error) {
	envelope := Envelope{Event: event, SentAt: h.now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		envelope.Data = data
	}
	return json.Marshal(envelope)
}

// ConnectionCount reports how many live connections the user has.
func (h *Hub) ConnectionCount(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[UserRoom(userID)])
}

// Close disconnects every client. Used on server shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, client := range clients {
		client.shutdown()
	}
}

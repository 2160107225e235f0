package chatws

import (
	"sync"
	"sync/atomic"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/saeid-a/CoachLinkBack/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 32

	// CloseUnauthorized is sent when the handshake credentials are rejected.
	CloseUnauthorized = 4401
)

type State int32

const (
	StateConnecting State = iota
	StateAuthenticating
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// conn is the part of *websocket.Conn the pumps use.
type conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

type Client struct {
	id     string
	hub    *Hub
	conn   conn
	userID int64

	// rooms is guarded by hub.mu.
	rooms map[string]struct{}

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	state     atomic.Int32
}

func newClient(hub *Hub, c conn) *Client {
	client := &Client{
		id:    uuid.NewString(),
		hub:   hub,
		conn:  c,
		rooms: make(map[string]struct{}),
		send:  make(chan []byte, sendBufferSize),
		done:  make(chan struct{}),
	}
	client.setState(StateConnecting)
	return client
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(state State) {
	c.state.Store(int32(state))
}

// enqueue never blocks. It reports false when the client is closed or its
// buffer is full.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.done)
	})
}

// reject closes the connection with the given code before it joins any
// room.
func (c *Client) reject(code int, reason string) {
	deadline := time.Now().Add(writeWait)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
	c.shutdown()
	_ = c.conn.Close()
}

func (c *Client) readPump(handle func(*Client, Envelope)) {
	defer func() {
		c.hub.unregister(c)
		c.shutdown()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket read failed", "conn_id", c.id, "error", err)
			}
			return
		}

		envelope, ok := decodeEnvelope(payload)
		if !ok {
			c.sendError("Invalid message payload")
			continue
		}
		handle(c, envelope)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait),
			)
			return
		}
	}
}

func (c *Client) sendError(message string) {
	frame, err := c.hub.encode(models.EventError, map[string]string{"message": message})
	if err != nil {
		return
	}
	c.enqueue(frame)
}

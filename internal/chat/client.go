package chat

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/moyeo-app/moyeo/backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
	maxFrameSize   = 8 << 10
)

// ConnLike is the subset of *websocket.Conn the pumps need; tests swap in
// an in-memory implementation.
type ConnLike interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// InboundHandler receives parsed events from a connection's read pump.
// Implemented by the session manager.
type InboundHandler interface {
	HandleJoinRoom(c *Client, roomID string)
	HandleChatMessage(c *Client, in ChatMessageInbound)
}

// Client is one live connection bound to a verified identity. A user may
// hold any number of clients at once.
type Client struct {
	ID       string // connection id, not user id
	Identity models.Identity
	Conn     ConnLike
	Send     chan []byte

	rooms map[string]struct{} // rooms this connection joined, for cleanup

	mu     sync.Mutex // guards closed and the close of Send
	closed bool
}

func NewClient(id string, identity models.Identity, conn ConnLike) *Client {
	return &Client{
		ID:       id,
		Identity: identity,
		Conn:     conn,
		Send:     make(chan []byte, sendBufferSize),
		rooms:    map[string]struct{}{},
	}
}

// trySend queues a frame without blocking; a full buffer drops the frame
// (delivery to live channels is best-effort, the stored feed remains the
// source of truth). The hub broadcasts from a snapshot taken before
// delivery, so a concurrent disconnect can close this client in between;
// the closed check and the channel close share c.mu, which makes a late
// send a silent drop instead of a send on a closed channel.
func (c *Client) trySend(payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- payload:
	default:
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// SendEvent marshals and queues a single event for this connection only.
func (c *Client) SendEvent(event string, data interface{}) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	c.trySend(payload)
}

// ReadPump consumes inbound frames until the transport drops, then
// unregisters the connection from the hub.
func (c *Client) ReadPump(hub *Hub, handler InboundHandler) {
	defer func() {
		hub.Unregister(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxFrameSize)

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}

		var envelope struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			continue
		}

		switch envelope.Event {
		case EventJoinRoom:
			var join JoinRoomInbound
			if err := json.Unmarshal(envelope.Data, &join); err != nil || join.Room == "" {
				continue
			}
			handler.HandleJoinRoom(c, join.Room)
		case EventChatMessage:
			var in ChatMessageInbound
			if err := json.Unmarshal(envelope.Data, &in); err != nil {
				continue
			}
			handler.HandleChatMessage(c, in)
		}
	}
}

// WritePump drains the send queue onto the transport.
func (c *Client) WritePump() {
	for data := range c.Send {
		c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

package chat

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/moyeo-app/moyeo/backend/pkg/metrics"
)

// Hub is the in-process session table. It tracks every live connection
// keyed by user identity (a user may hold several concurrent connections)
// and the set of connections currently joined to each room. The hub only
// moves bytes; authorization happens in the session manager and pipeline
// before anything reaches it.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uint]map[*Client]struct{}   // user id -> live connections
	rooms    map[string]map[*Client]struct{} // room id -> joined connections
}

func NewHub() *Hub {
	return &Hub{
		sessions: map[uint]map[*Client]struct{}{},
		rooms:    map[string]map[*Client]struct{}{},
	}
}

// Register enrolls an authenticated connection into its user's personal
// delivery channel.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.sessions[c.Identity.ID]; !ok {
		h.sessions[c.Identity.ID] = map[*Client]struct{}{}
	}
	h.sessions[c.Identity.ID][c] = struct{}{}
	metrics.LiveConnections.Inc()
}

// Unregister releases the connection's session entry and every room
// membership. Called on disconnect; a dropped transport counts.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.sessions[c.Identity.ID]; ok {
		if _, present := conns[c]; present {
			delete(conns, c)
			metrics.LiveConnections.Dec()
		}
		if len(conns) == 0 {
			delete(h.sessions, c.Identity.ID)
		}
	}
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.closeSend()
}

// JoinRoom adds an already-authorized connection to a room's delivery set.
func (h *Hub) JoinRoom(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = map[*Client]struct{}{}
	}
	h.rooms[roomID][c] = struct{}{}
	c.rooms[roomID] = struct{}{}
}

// EmitToRoom pushes one event to every connection currently joined to the
// room, including the sender's other connections. Slow consumers are
// skipped rather than blocking the broadcast.
func (h *Hub) EmitToRoom(roomID string, event string, data interface{}) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("hub: marshal %s event failed: %v", event, err)
		return
	}

	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		c.trySend(payload)
	}
}

// EmitToUser pushes one event over every live connection of a user's
// personal channel. Absence of a connection is not an error; the event is
// simply not delivered live.
func (h *Hub) EmitToUser(userID uint, event string, data interface{}) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		log.Printf("hub: marshal %s event failed: %v", event, err)
		return
	}

	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.sessions[userID]))
	for c := range h.sessions[userID] {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	for _, c := range snapshot {
		c.trySend(payload)
	}
}

// IsConnected reports whether the user holds at least one live connection.
func (h *Hub) IsConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID]) > 0
}

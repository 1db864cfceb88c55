package chat

import (
	"context"
	"log"
	"time"
)

// SessionManager binds authenticated connections to the hub and handles
// their inbound events. Join authorization is repeated on every join, even
// for a room this connection already joined, because membership and block
// state can change between joins.
type SessionManager struct {
	hub      *Hub
	registry *Registry
	pipeline *Pipeline
}

func NewSessionManager(hub *Hub, registry *Registry, pipeline *Pipeline) *SessionManager {
	return &SessionManager{hub: hub, registry: registry, pipeline: pipeline}
}

// Attach enrolls a freshly authenticated connection and announces its
// identity back over the wire.
func (s *SessionManager) Attach(c *Client) {
	s.hub.Register(c)
	c.SendEvent(EventUserInfo, UserInfoOutbound{
		ID:       c.Identity.ID,
		Username: c.Identity.Username,
		Role:     c.Identity.Role,
	})
}

// HandleJoinRoom re-validates membership and blocking, then replays the
// recent backlog. Unauthorized joins are silently ignored so that room
// existence never leaks to non-members.
func (s *SessionManager) HandleJoinRoom(c *Client, roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	room, sets, err := s.registry.ResolveMember(ctx, c.Identity, roomID)
	if err != nil {
		return
	}
	if err := AuthorizeInteraction(room, c.Identity.ID, sets); err != nil {
		return
	}

	s.hub.JoinRoom(c, room.ID.Hex())

	backlog, err := s.pipeline.historyFor(ctx, room, sets)
	if err != nil {
		log.Printf("backlog fetch failed for room %s: %v", room.ID.Hex(), err)
		return
	}
	c.SendEvent(EventPreviousMessages, backlog)
}

// HandleChatMessage runs an inbound live-channel send through the same
// pipeline as the REST fallback. Pipeline failures are reported only to
// the sending connection.
func (s *SessionManager) HandleChatMessage(c *Client, in ChatMessageInbound) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := s.pipeline.Send(ctx, c.Identity, in.Room, in.Body, in.Kind); err != nil {
		c.SendEvent(EventError, map[string]string{"message": err.Error()})
	}
}

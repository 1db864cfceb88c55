package chat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachAnnouncesIdentity(t *testing.T) {
	f := newPipelineFixture(t)
	sessions := NewSessionManager(f.hub, f.registry, f.pipeline)

	client := NewClient("conn-1", testIdentity(1, "alice"), &fakeConn{})
	sessions.Attach(client)

	event, data := nextEvent(t, client)
	assert.Equal(t, EventUserInfo, event)
	var info UserInfoOutbound
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, uint(1), info.ID)
	assert.Equal(t, "alice", info.Username)
	assert.True(t, f.hub.IsConnected(1))
}

func TestJoinRoomReplaysBacklog(t *testing.T) {
	f := newPipelineFixture(t)
	sessions := NewSessionManager(f.hub, f.registry, f.pipeline)
	ctx := context.Background()
	alice := testIdentity(1, "alice")

	room, err := f.registry.CreateGroup(ctx, alice, "general", []uint{2})
	require.NoError(t, err)
	roomID := room.ID.Hex()

	_, err = f.pipeline.Send(ctx, alice, roomID, "earlier message", models.MessageText)
	require.NoError(t, err)

	client := NewClient("conn-1", testIdentity(2, "bob"), &fakeConn{})
	f.hub.Register(client)
	sessions.HandleJoinRoom(client, roomID)

	event, data := nextEvent(t, client)
	assert.Equal(t, EventPreviousMessages, event)
	var backlog []models.Message
	require.NoError(t, json.Unmarshal(data, &backlog))
	require.Len(t, backlog, 1)
	assert.Equal(t, "earlier message", backlog[0].Body)

	// joined: subsequent sends now reach this connection
	_, err = f.pipeline.Send(ctx, alice, roomID, "live message", models.MessageText)
	require.NoError(t, err)
	event, _ = nextEvent(t, client)
	assert.Equal(t, EventChatMessage, event)
}

func TestJoinRoomSilentlyIgnoresUnauthorized(t *testing.T) {
	f := newPipelineFixture(t)
	sessions := NewSessionManager(f.hub, f.registry, f.pipeline)
	ctx := context.Background()
	alice := testIdentity(1, "alice")

	room, err := f.registry.CreateGroup(ctx, alice, "private", []uint{2})
	require.NoError(t, err)
	roomID := room.ID.Hex()

	outsider := NewClient("conn-1", testIdentity(3, "carol"), &fakeConn{})
	f.hub.Register(outsider)
	sessions.HandleJoinRoom(outsider, roomID)
	assert.Empty(t, outsider.Send, "non-member join produces no response at all")

	sessions.HandleJoinRoom(outsider, "does-not-exist")
	assert.Empty(t, outsider.Send, "unknown room join produces no response at all")

	// a member blocked-with another participant is refused the same way
	require.NoError(t, f.blocks.CreateBlock(2, 1))
	member := NewClient("conn-2", alice, &fakeConn{})
	f.hub.Register(member)
	sessions.HandleJoinRoom(member, roomID)
	assert.Empty(t, member.Send)
}

func TestHandleChatMessageReportsErrorsToSenderOnly(t *testing.T) {
	f := newPipelineFixture(t)
	sessions := NewSessionManager(f.hub, f.registry, f.pipeline)
	ctx := context.Background()
	alice := testIdentity(1, "alice")

	room, err := f.registry.CreateGroup(ctx, alice, "general", []uint{2})
	require.NoError(t, err)
	roomID := room.ID.Hex()

	member := NewClient("conn-1", alice, &fakeConn{})
	bystander := NewClient("conn-2", testIdentity(2, "bob"), &fakeConn{})
	f.hub.Register(member)
	f.hub.Register(bystander)
	f.hub.JoinRoom(bystander, roomID)

	// empty body fails validation; only the sender hears about it
	sessions.HandleChatMessage(member, ChatMessageInbound{Room: roomID, Body: "   "})

	event, _ := nextEvent(t, member)
	assert.Equal(t, EventError, event)
	assert.Empty(t, bystander.Send)

	// a valid send reaches joined connections
	sessions.HandleChatMessage(member, ChatMessageInbound{Room: roomID, Body: "hello"})
	event, _ = nextEvent(t, bystander)
	assert.Equal(t, EventChatMessage, event)
}

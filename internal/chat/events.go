package chat

import "github.com/moyeo-app/moyeo/backend/internal/models"

// Live channel event names. Inbound events arrive from clients, outbound
// events are pushed by the server.
const (
	EventUserInfo         = "userInfo"
	EventJoinRoom         = "joinRoom"
	EventChatMessage      = "chatMessage"
	EventPreviousMessages = "previousMessages"
	EventMessageDeleted   = "messageDeleted"
	EventMessageEdited    = "messageEdited"
	EventNotificationNew  = "notification:new"
	EventNotificationUpd  = "notification:updated"
	EventNotificationAll  = "notification:read-all"
	EventError            = "error"
)

// Envelope is the wire frame for every live channel event.
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// ChatMessageInbound is the payload of an inbound chatMessage event.
type ChatMessageInbound struct {
	Room string             `json:"room"`
	Body string             `json:"message"`
	Kind models.MessageKind `json:"messageType"`
}

// JoinRoomInbound is the payload of an inbound joinRoom event.
type JoinRoomInbound struct {
	Room string `json:"room"`
}

// MessageDeletedOutbound announces a removed message to a room.
type MessageDeletedOutbound struct {
	MessageID string `json:"messageId"`
	Room      string `json:"room"`
}

// UserInfoOutbound is sent once right after a connection authenticates.
type UserInfoOutbound struct {
	ID       uint        `json:"id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

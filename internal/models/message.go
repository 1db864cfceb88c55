package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageKind is the closed set of chat message kinds.
type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageImage  MessageKind = "image"
	MessageSystem MessageKind = "system"
)

// ValidMessageKind reports whether k is one of the known kinds; empty
// input defaults to text at the call sites.
func ValidMessageKind(k MessageKind) bool {
	switch k {
	case MessageText, MessageImage, MessageSystem:
		return true
	}
	return false
}

// MessageEdit is one append-only entry of a message's edit trail.
type MessageEdit struct {
	Previous   string    `bson:"previous" json:"previous"`
	Next       string    `bson:"next" json:"next"`
	EditedAt   time.Time `bson:"edited_at" json:"editedAt"`
	EditorID   uint      `bson:"editor_id" json:"editorId"`
	EditorName string    `bson:"editor_name" json:"editorName"`
}

// Message is a chat message document (MongoDB). Immutable after creation
// except for the edit trail; deletion leaves no row behind.
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Room        string             `bson:"room" json:"room"`
	AuthorID    uint               `bson:"author_id" json:"authorId"`
	AuthorName  string             `bson:"author_name" json:"authorName"` // display name snapshot at send time
	Body        string             `bson:"body" json:"body"`
	Kind        MessageKind        `bson:"kind" json:"kind"`
	Time        time.Time          `bson:"time" json:"time"`
	EditedAt    *time.Time         `bson:"edited_at,omitempty" json:"editedAt,omitempty"`
	EditHistory []MessageEdit      `bson:"edit_history,omitempty" json:"editHistory,omitempty"`
}

type SendMessageRequest struct {
	Room string      `json:"room" validate:"required"`
	Body string      `json:"message" validate:"required,max=2000"`
	Kind MessageKind `json:"messageType"`
}

type EditMessageRequest struct {
	Body string `json:"message" validate:"required,max=2000"`
}

type ReportMessageRequest struct {
	Reason string `json:"reason" validate:"required,min=2,max=500"`
}

// Report is a user report against a chat message (MongoDB). One report per
// reporter per message.
type Report struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ContentType  string             `bson:"content_type" json:"contentType"`
	ContentID    primitive.ObjectID `bson:"content_id" json:"contentId"`
	ContentOwner uint               `bson:"content_owner" json:"contentOwner"`
	ReporterID   uint               `bson:"reporter_id" json:"reporterId"`
	Reason       string             `bson:"reason" json:"reason"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}

package models

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RoomKind distinguishes group chatrooms from direct (1:1) conversations.
type RoomKind string

const (
	RoomGroup  RoomKind = "group"
	RoomDirect RoomKind = "dm"
)

// Room is a conversation document (MongoDB). A direct room carries a
// deterministic DMKey derived from its two participants so re-initiating
// the same conversation always resolves to the same document.
type Room struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind          RoomKind           `bson:"kind" json:"kind"`
	Name          string             `bson:"name,omitempty" json:"name,omitempty"`
	Participants  []uint             `bson:"participants" json:"participants"`
	CreatedBy     uint               `bson:"created_by" json:"created_by"`
	DMKey         string             `bson:"dm_key,omitempty" json:"-"`
	LastMessageAt time.Time          `bson:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// HasParticipant reports current membership. Membership is re-checked on
// every send and join, never cached on a connection.
func (r *Room) HasParticipant(userID uint) bool {
	for _, id := range r.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipants returns every participant except the given user.
func (r *Room) OtherParticipants(userID uint) []uint {
	others := make([]uint, 0, len(r.Participants))
	for _, id := range r.Participants {
		if id != userID {
			others = append(others, id)
		}
	}
	return others
}

// DirectRoomKey builds the deterministic key for a direct conversation:
// the two ids as strings, sorted lexicographically, joined by "::".
// DirectRoomKey(a, b) == DirectRoomKey(b, a) for all a, b.
func DirectRoomKey(a, b uint) string {
	pair := []string{strconv.FormatUint(uint64(a), 10), strconv.FormatUint(uint64(b), 10)}
	sort.Strings(pair)
	return strings.Join(pair, "::")
}

type CreateRoomRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=60"`
	UserIDs []uint `json:"userIds"`
}

type CreateDirectRoomRequest struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
}

// RoomView is the room shape returned to a particular caller; direct rooms
// are labeled with the other participant.
type RoomView struct {
	ID               string       `json:"id"`
	Kind             RoomKind     `json:"kind"`
	Name             string       `json:"name,omitempty"`
	DisplayName      string       `json:"displayName"`
	LastMessageAt    time.Time    `json:"lastMessageAt"`
	OtherParticipant *UserCompact `json:"otherParticipant,omitempty"`
}

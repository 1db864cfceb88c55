package models

import "time"

// NotificationType is the closed enumeration of notification types.
type NotificationType string

const (
	NotifComment          NotificationType = "comment"
	NotifMention          NotificationType = "mention"
	NotifDirectMessage    NotificationType = "dm"
	NotifGroupInvite      NotificationType = "group_invite"
	NotifAnnouncement     NotificationType = "announcement"
	NotifSecurityAlert    NotificationType = "security_alert"
	NotifCalendarCreate   NotificationType = "calendar-create"
	NotifCalendarUpdate   NotificationType = "calendar-update"
	NotifCalendarReminder NotificationType = "calendar-reminder"
)

// NotificationTypes lists every known type, in the order used by summaries.
var NotificationTypes = []NotificationType{
	NotifComment,
	NotifMention,
	NotifDirectMessage,
	NotifGroupInvite,
	NotifAnnouncement,
	NotifSecurityAlert,
	NotifCalendarCreate,
	NotifCalendarUpdate,
	NotifCalendarReminder,
}

func ValidNotificationType(t NotificationType) bool {
	for _, known := range NotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// QuickReply marks a notification as actionable: replying re-enters the
// message pipeline against the referenced room.
type QuickReply struct {
	Type   string `json:"type"` // currently only "dm"
	RoomID string `json:"roomId"`
}

// NotificationPayload carries type-specific context. All fields are
// optional; producers fill only what applies.
type NotificationPayload struct {
	QuickReply *QuickReply `json:"quickReply,omitempty"`
	RoomID     string      `json:"roomId,omitempty"`
	MessageID  string      `json:"messageId,omitempty"`
	Preview    string      `json:"preview,omitempty"`
	IPAddress  string      `json:"ipAddress,omitempty"`
	UserAgent  string      `json:"userAgent,omitempty"`
	Reasons    []string    `json:"reasons,omitempty"`
	EventID    string      `json:"eventId,omitempty"`
	EventDate  string      `json:"eventDate,omitempty"`
	At         *time.Time  `json:"at,omitempty"`
}

// Notification is a stored, independently pollable notification
// (PostgreSQL). Read-state transitions are monotonic: unread -> read.
type Notification struct {
	ID          uint                `json:"id" gorm:"primaryKey"`
	RecipientID uint                `json:"recipient_id" gorm:"index:idx_notif_feed,priority:1"`
	ActorID     *uint               `json:"actor_id,omitempty" gorm:"index"`
	Type        NotificationType    `json:"type" gorm:"size:30;index"`
	Message     string              `json:"message"`
	Link        string              `json:"link,omitempty"`
	Payload     NotificationPayload `json:"payload" gorm:"serializer:json"`
	Read        bool                `json:"read" gorm:"default:false;index:idx_notif_feed,priority:2"`
	ReadAt      *time.Time          `json:"read_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at" gorm:"index:idx_notif_feed,priority:3"`
}

// TypeCount is one cell of the per-type summary rollup.
type TypeCount struct {
	Total  int64 `json:"total"`
	Unread int64 `json:"unread"`
}

// NotificationSummary maps "all" plus each type to its counts.
type NotificationSummary map[string]TypeCount

type QuickReplyRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

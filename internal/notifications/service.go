package notifications

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/chat"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
	"github.com/moyeo-app/moyeo/backend/pkg/metrics"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	previewLength    = 80
)

// Pusher delivers events over a recipient's personal live channel.
// Implemented by the chat hub; absence of a live connection is fine, the
// stored feed stays pollable.
type Pusher interface {
	EmitToUser(userID uint, event string, data interface{})
}

// ReplySender re-enters the message pipeline for quick replies.
// Implemented by the chat pipeline.
type ReplySender interface {
	Send(ctx context.Context, sender models.Identity, roomID, body string, kind models.MessageKind) (*models.Message, error)
}

// CreateInput describes one notification to create. ActorID nil means the
// notification has no acting user (system producers).
type CreateInput struct {
	RecipientID uint
	ActorID     *uint
	Type        models.NotificationType
	Message     string
	Link        string
	Payload     models.NotificationPayload
}

// ListOptions narrows a feed listing.
type ListOptions struct {
	UnreadOnly bool
	Types      []models.NotificationType
	Limit      int
	Cursor     string
}

// ListResult is one page of a recipient's feed plus the badge counts.
type ListResult struct {
	Notifications []models.Notification      `json:"notifications"`
	UnreadCount   int64                      `json:"unreadCount"`
	Summary       models.NotificationSummary `json:"summary"`
	NextCursor    string                     `json:"nextCursor,omitempty"`
}

// QuickReplyResult bundles everything the client needs after a reply.
type QuickReplyResult struct {
	Notification *models.Notification       `json:"notification"`
	Message      *models.Message            `json:"message"`
	UnreadCount  int64                      `json:"unreadCount"`
	Summary      models.NotificationSummary `json:"summary"`
}

// Service creates, lists and transitions notifications, and pushes live
// events for each state change.
type Service struct {
	repo    repositories.NotificationRepository
	pusher  Pusher
	replies ReplySender
}

func NewService(repo repositories.NotificationRepository, pusher Pusher) *Service {
	return &Service{repo: repo, pusher: pusher}
}

// BindReplySender attaches the pipeline used by quick replies. Wired after
// construction because the pipeline's fan-out points back at this service.
func (s *Service) BindReplySender(r ReplySender) {
	s.replies = r
}

// Create persists one notification and pushes a notification:new event to
// the recipient's personal channel. Self-notifications are suppressed:
// recipient == actor returns (nil, nil) and persists nothing.
func (s *Service) Create(in CreateInput) (*models.Notification, error) {
	if in.RecipientID == 0 || in.Type == "" || in.Message == "" {
		return nil, nil
	}
	if in.ActorID != nil && *in.ActorID == in.RecipientID {
		return nil, nil
	}
	if !models.ValidNotificationType(in.Type) {
		return nil, fmt.Errorf("%w: unknown notification type %q", chat.ErrValidation, in.Type)
	}

	notification := &models.Notification{
		RecipientID: in.RecipientID,
		ActorID:     in.ActorID,
		Type:        in.Type,
		Message:     in.Message,
		Link:        in.Link,
		Payload:     in.Payload,
	}
	if err := s.repo.CreateNotification(notification); err != nil {
		return nil, err
	}

	metrics.NotificationsCreated.WithLabelValues(string(in.Type)).Inc()
	s.push(in.RecipientID, chat.EventNotificationNew, notification)
	return notification, nil
}

// CreateMany creates notifications sequentially; one failing item never
// aborts the rest.
func (s *Service) CreateMany(items []CreateInput) []*models.Notification {
	created := make([]*models.Notification, 0, len(items))
	for _, item := range items {
		notification, err := s.Create(item)
		if err != nil {
			log.Printf("notification create failed for recipient %d: %v", item.RecipientID, err)
			continue
		}
		if notification != nil {
			created = append(created, notification)
		}
	}
	return created
}

// List returns one cursor page of the recipient's feed, newest first. A
// next cursor is present only when the page came back full.
func (s *Service) List(recipientID uint, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	notifications, err := s.repo.ListByRecipient(recipientID, repositories.NotificationFilter{
		UnreadOnly: opts.UnreadOnly,
		Types:      opts.Types,
		Limit:      limit,
		Cursor:     decodeCursor(opts.Cursor),
	})
	if err != nil {
		return nil, err
	}

	unread, err := s.repo.GetUnreadCount(recipientID)
	if err != nil {
		return nil, err
	}
	summary, err := s.Summary(recipientID)
	if err != nil {
		return nil, err
	}

	result := &ListResult{
		Notifications: notifications,
		UnreadCount:   unread,
		Summary:       summary,
	}
	if len(notifications) == limit {
		last := notifications[len(notifications)-1]
		result.NextCursor = encodeCursor(last.CreatedAt, last.ID)
	}
	return result, nil
}

// Summary rolls up total/unread per type plus an "all" row. Computed by
// aggregation on every call, never cached.
func (s *Service) Summary(recipientID uint) (models.NotificationSummary, error) {
	rows, err := s.repo.CountsByType(recipientID)
	if err != nil {
		return nil, err
	}

	summary := models.NotificationSummary{}
	for _, t := range models.NotificationTypes {
		summary[string(t)] = models.TypeCount{}
	}
	all := models.TypeCount{}
	for _, row := range rows {
		summary[string(row.Type)] = models.TypeCount{Total: row.Total, Unread: row.Unread}
		all.Total += row.Total
		all.Unread += row.Unread
	}
	summary["all"] = all
	return summary, nil
}

// MarkRead transitions unread -> read. Idempotent: marking an already-read
// notification returns its current state without error. Returns nil when
// the notification does not exist for this recipient.
func (s *Service) MarkRead(id, recipientID uint) (*models.Notification, error) {
	notification, err := s.repo.GetByID(id, recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !notification.Read {
		now := time.Now()
		if err := s.repo.MarkAsRead(id, recipientID, now); err != nil {
			return nil, err
		}
		notification.Read = true
		notification.ReadAt = &now
	}

	s.push(recipientID, chat.EventNotificationUpd, notification)
	return notification, nil
}

// MarkAllRead bulk-transitions every unread notification and emits a
// single read-all event instead of one per item.
func (s *Service) MarkAllRead(recipientID uint) (int64, error) {
	now := time.Now()
	updated, err := s.repo.MarkAllAsRead(recipientID, now)
	if err != nil {
		return 0, err
	}
	s.push(recipientID, chat.EventNotificationAll, map[string]string{"readAt": now.Format(time.RFC3339)})
	return updated, nil
}

// QuickReply answers an actionable notification: the reply re-enters the
// message pipeline against the referenced room (which also fans out the
// fresh dm notification to the other participants), then the source
// notification is marked read.
func (s *Service) QuickReply(ctx context.Context, id uint, actor models.Identity, text string) (*QuickReplyResult, error) {
	notification, err := s.repo.GetByID(id, actor.ID)
	if err != nil {
		return nil, err
	}

	descriptor := notification.Payload.QuickReply
	if descriptor == nil || descriptor.Type != "dm" || descriptor.RoomID == "" {
		return nil, chat.ErrUnsupportedNotification
	}
	if s.replies == nil {
		return nil, fmt.Errorf("quick replies not wired")
	}

	message, err := s.replies.Send(ctx, actor, descriptor.RoomID, text, models.MessageText)
	if err != nil {
		return nil, err
	}

	updated, err := s.MarkRead(id, actor.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		updated = notification
	}

	unread, err := s.repo.GetUnreadCount(actor.ID)
	if err != nil {
		return nil, err
	}
	summary, err := s.Summary(actor.ID)
	if err != nil {
		return nil, err
	}

	return &QuickReplyResult{
		Notification: updated,
		Message:      message,
		UnreadCount:  unread,
		Summary:      summary,
	}, nil
}

func (s *Service) push(recipientID uint, event string, data interface{}) {
	if s.pusher == nil {
		return
	}
	s.pusher.EmitToUser(recipientID, event, data)
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength]) + "…"
}

// NotifyMention implements the pipeline's mention fan-out for group rooms.
func (s *Service) NotifyMention(_ context.Context, recipient models.User, actor models.Identity, room *models.Room, msg *models.Message) {
	actorID := actor.ID
	_, err := s.Create(CreateInput{
		RecipientID: recipient.ID,
		ActorID:     &actorID,
		Type:        models.NotifMention,
		Message:     fmt.Sprintf("@%s mentioned you in %s", actor.Username, room.Name),
		Link:        "/chat.html?room=" + room.ID.Hex(),
		Payload: models.NotificationPayload{
			RoomID:    room.ID.Hex(),
			MessageID: msg.ID.Hex(),
			Preview:   preview(msg.Body),
		},
	})
	if err != nil {
		log.Printf("mention notification failed for user %d: %v", recipient.ID, err)
	}
}

// NotifyDirectMessage implements the pipeline's dm fan-out. The payload
// carries a quick-reply descriptor so the alert is answerable in place.
func (s *Service) NotifyDirectMessage(_ context.Context, recipientID uint, actor models.Identity, room *models.Room, msg *models.Message) {
	actorID := actor.ID
	_, err := s.Create(CreateInput{
		RecipientID: recipientID,
		ActorID:     &actorID,
		Type:        models.NotifDirectMessage,
		Message:     fmt.Sprintf("@%s sent you a direct message", actor.Username),
		Link:        "/chat.html?room=" + room.ID.Hex(),
		Payload: models.NotificationPayload{
			QuickReply: &models.QuickReply{Type: "dm", RoomID: room.ID.Hex()},
			RoomID:     room.ID.Hex(),
			MessageID:  msg.ID.Hex(),
			Preview:    preview(msg.Body),
		},
	})
	if err != nil {
		log.Printf("dm notification failed for user %d: %v", recipientID, err)
	}
}

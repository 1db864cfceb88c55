package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/blocking"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
	"github.com/moyeo-app/moyeo/backend/pkg/metrics"
)

// Notifier is the notification fan-out the pipeline triggers after a
// message commits. Implemented by the notification service; kept as an
// interface so the pipeline never depends on it directly.
type Notifier interface {
	NotifyMention(ctx context.Context, recipient models.User, actor models.Identity, room *models.Room, msg *models.Message)
	NotifyDirectMessage(ctx context.Context, recipientID uint, actor models.Identity, room *models.Room, msg *models.Message)
}

// Pipeline validates, persists and broadcasts chat messages. Sends within
// one room are serialized (persist -> touch -> broadcast under a per-room
// lock) so broadcast order always equals commit order; different rooms
// proceed in parallel.
type Pipeline struct {
	registry *Registry
	rooms    repositories.RoomRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	hub      *Hub

	notifier Notifier

	historyLimit int64

	lockMu    sync.Mutex
	roomLocks map[string]*sync.Mutex

	// dispatch runs the post-commit fan-out; asynchronous in production,
	// replaced with a synchronous func in tests.
	dispatch func(func())
}

func NewPipeline(registry *Registry, rooms repositories.RoomRepository, messages repositories.MessageRepository, users repositories.UserRepository, hub *Hub, historyLimit int) *Pipeline {
	if historyLimit <= 0 {
		historyLimit = 100
	}
	return &Pipeline{
		registry:     registry,
		rooms:        rooms,
		messages:     messages,
		users:        users,
		hub:          hub,
		historyLimit: int64(historyLimit),
		roomLocks:    map[string]*sync.Mutex{},
		dispatch:     func(fn func()) { go fn() },
	}
}

// BindNotifier attaches the notification fan-out. Wired after construction
// because the notification service's quick-reply path points back here.
func (p *Pipeline) BindNotifier(n Notifier) {
	p.notifier = n
}

func (p *Pipeline) roomLock(roomID string) *sync.Mutex {
	p.lockMu.Lock()
	defer p.lockMu.Unlock()
	if lock, ok := p.roomLocks[roomID]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	p.roomLocks[roomID] = lock
	return lock
}

// Send runs the full pipeline: membership and blocking are re-resolved on
// every call, the message is persisted with a server timestamp, room
// activity is touched, and only then is the canonical persisted document
// broadcast to every connection joined to the room.
func (p *Pipeline) Send(ctx context.Context, sender models.Identity, roomID, body string, kind models.MessageKind) (*models.Message, error) {
	body = strings.TrimSpace(body)
	if roomID == "" || body == "" {
		return nil, fmt.Errorf("%w: room and message are required", ErrValidation)
	}
	if kind == "" {
		kind = models.MessageText
	}
	if !models.ValidMessageKind(kind) {
		return nil, fmt.Errorf("%w: unknown message kind %q", ErrValidation, kind)
	}

	room, sets, err := p.registry.ResolveMember(ctx, sender, roomID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeInteraction(room, sender.ID, sets); err != nil {
		return nil, err
	}

	msg := &models.Message{
		Room:       room.ID.Hex(),
		AuthorID:   sender.ID,
		AuthorName: sender.Username,
		Body:       body,
		Kind:       kind,
		Time:       time.Now(),
	}

	lock := p.roomLock(msg.Room)
	lock.Lock()
	if err := p.messages.CreateMessage(ctx, msg); err != nil {
		lock.Unlock()
		return nil, err
	}
	if err := p.rooms.TouchActivity(ctx, msg.Room, msg.Time); err != nil {
		// activity is advisory; the message is already durable
		log.Printf("touch activity failed for room %s: %v", msg.Room, err)
	}
	p.hub.EmitToRoom(msg.Room, EventChatMessage, msg)
	lock.Unlock()

	metrics.MessagesSent.Inc()
	p.auditSend(room, msg)

	snapshot := *room
	sent := *msg
	p.dispatch(func() { p.fanOut(&snapshot, &sent, sender) })

	return msg, nil
}

// auditSend appends a correlation line to the audit log. Best effort:
// logging can never fail the send.
func (p *Pipeline) auditSend(room *models.Room, msg *models.Message) {
	log.Printf("[CHAT] room=%s messageId=%s from=%s kind=%s", room.ID.Hex(), msg.ID.Hex(), msg.AuthorName, msg.Kind)
}

// fanOut generates the post-commit notifications: a dm alert for the other
// side of a direct room, mention alerts for group rooms. Runs detached
// from the sender's request.
func (p *Pipeline) fanOut(room *models.Room, msg *models.Message, sender models.Identity) {
	if p.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if room.Kind == models.RoomDirect {
		for _, recipient := range room.OtherParticipants(sender.ID) {
			p.notifier.NotifyDirectMessage(ctx, recipient, sender, room, msg)
		}
		return
	}

	usernames := ExtractMentions(msg.Body)
	if len(usernames) == 0 {
		return
	}
	mentioned, err := p.users.GetUsersByUsernames(usernames)
	if err != nil {
		log.Printf("mention lookup failed for message %s: %v", msg.ID.Hex(), err)
		return
	}
	for _, user := range mentioned {
		if user.ID == sender.ID || !room.HasParticipant(user.ID) {
			continue
		}
		p.notifier.NotifyMention(ctx, user, sender, room, msg)
	}
}

// History returns up to the configured limit of a room's messages for a
// member, oldest first, with authors blocked-with the caller filtered out.
func (p *Pipeline) History(ctx context.Context, identity models.Identity, roomID string) ([]models.Message, error) {
	room, sets, err := p.registry.ResolveMember(ctx, identity, roomID)
	if err != nil {
		return nil, err
	}
	return p.historyFor(ctx, room, sets)
}

func (p *Pipeline) historyFor(ctx context.Context, room *models.Room, sets blocking.Sets) ([]models.Message, error) {
	messages, err := p.messages.GetMessagesByRoom(ctx, room.ID.Hex(), p.historyLimit)
	if err != nil {
		return nil, err
	}
	visible := make([]models.Message, 0, len(messages))
	for _, msg := range messages {
		if sets.Blocks(msg.AuthorID) {
			continue
		}
		visible = append(visible, msg)
	}
	return visible, nil
}

// Delete removes a message. The owner may always delete their own; a
// moderator role may delete any message but only when the explicit
// moderation override accompanies the request, so admin deletions stay
// distinguishable in the audit trail.
func (p *Pipeline) Delete(ctx context.Context, actor models.Identity, messageID string, moderationOverride bool) error {
	msg, err := p.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return err
	}

	isOwner := msg.AuthorID == actor.ID
	allowOverride := moderationOverride && actor.Role.CanModerate()
	if !isOwner && !allowOverride {
		return ErrForbidden
	}

	room, err := p.rooms.GetRoomByID(ctx, msg.Room)
	if err != nil && !errors.Is(err, repositories.ErrRoomNotFound) {
		return err
	}
	if room != nil && !allowOverride && !room.HasParticipant(actor.ID) {
		return ErrForbidden
	}

	lock := p.roomLock(msg.Room)
	lock.Lock()
	defer lock.Unlock()

	if err := p.messages.DeleteMessage(ctx, messageID); err != nil {
		return err
	}

	if room != nil {
		// recompute activity from the newest remaining message; a room
		// left empty keeps its previous timestamp
		latest, err := p.messages.GetLatestMessage(ctx, msg.Room)
		if err == nil && latest != nil {
			if err := p.rooms.TouchActivity(ctx, msg.Room, latest.Time); err != nil {
				log.Printf("touch activity failed for room %s: %v", msg.Room, err)
			}
		}
	}

	p.hub.EmitToRoom(msg.Room, EventMessageDeleted, MessageDeletedOutbound{
		MessageID: messageID,
		Room:      msg.Room,
	})

	overrideNote := ""
	if allowOverride && !isOwner {
		overrideNote = " (moderation override)"
	}
	log.Printf("[CHAT] deleted messageId=%s room=%s by=%s%s", messageID, msg.Room, actor.Username, overrideNote)
	return nil
}

// Edit swaps the message body and appends a before/after entry to the edit
// trail. Only the author edits; the trail is never rewritten.
func (p *Pipeline) Edit(ctx context.Context, actor models.Identity, messageID, newBody string) (*models.Message, error) {
	newBody = strings.TrimSpace(newBody)
	if newBody == "" {
		return nil, fmt.Errorf("%w: message body is required", ErrValidation)
	}

	msg, err := p.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.AuthorID != actor.ID {
		return nil, ErrForbidden
	}

	edit := models.MessageEdit{
		Previous:   msg.Body,
		Next:       newBody,
		EditedAt:   time.Now(),
		EditorID:   actor.ID,
		EditorName: actor.Username,
	}
	if err := p.messages.AppendEdit(ctx, messageID, newBody, edit); err != nil {
		return nil, err
	}

	updated, err := p.messages.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	p.hub.EmitToRoom(updated.Room, EventMessageEdited, updated)
	return updated, nil
}

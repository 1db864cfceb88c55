package notifications

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/chat"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

type fakeNotificationRepo struct {
	mu     sync.Mutex
	nextID uint
	items  []models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) CreateNotification(n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	n.ID = f.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeNotificationRepo) GetByID(id, recipientID uint) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].RecipientID == recipientID {
			clone := f.items[i]
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeNotificationRepo) ListByRecipient(recipientID uint, filter repositories.NotificationFilter) ([]models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Notification
	for _, n := range f.items {
		if n.RecipientID != recipientID {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		if len(filter.Types) > 0 {
			match := false
			for _, t := range filter.Types {
				if n.Type == t {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		if c := filter.Cursor; c != nil {
			older := n.CreatedAt.UnixNano() < c.CreatedAt.UnixNano() ||
				(n.CreatedAt.UnixNano() == c.CreatedAt.UnixNano() && n.ID < c.ID)
			if !older {
				continue
			}
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeNotificationRepo) GetUnreadCount(recipientID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, n := range f.items {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) CountsByType(recipientID uint) ([]repositories.TypeCountRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byType := map[models.NotificationType]*repositories.TypeCountRow{}
	for _, n := range f.items {
		if n.RecipientID != recipientID {
			continue
		}
		row, ok := byType[n.Type]
		if !ok {
			row = &repositories.TypeCountRow{Type: n.Type}
			byType[n.Type] = row
		}
		row.Total++
		if !n.Read {
			row.Unread++
		}
	}
	var rows []repositories.TypeCountRow
	for _, row := range byType {
		rows = append(rows, *row)
	}
	return rows, nil
}

func (f *fakeNotificationRepo) MarkAsRead(id, recipientID uint, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && f.items[i].RecipientID == recipientID && !f.items[i].Read {
			f.items[i].Read = true
			readAt := at
			f.items[i].ReadAt = &readAt
		}
	}
	return nil
}

func (f *fakeNotificationRepo) MarkAllAsRead(recipientID uint, at time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var updated int64
	for i := range f.items {
		if f.items[i].RecipientID == recipientID && !f.items[i].Read {
			f.items[i].Read = true
			readAt := at
			f.items[i].ReadAt = &readAt
			updated++
		}
	}
	return updated, nil
}

type pushedEvent struct {
	UserID uint
	Event  string
}

type fakePusher struct {
	mu     sync.Mutex
	events []pushedEvent
}

func (f *fakePusher) EmitToUser(userID uint, event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, pushedEvent{UserID: userID, Event: event})
}

func (f *fakePusher) last() *pushedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return nil
	}
	last := f.events[len(f.events)-1]
	return &last
}

type fakeReplySender struct {
	mu       sync.Mutex
	lastRoom string
	lastBody string
	err      error
}

func (f *fakeReplySender) Send(_ context.Context, sender models.Identity, roomID, body string, kind models.MessageKind) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.lastRoom = roomID
	f.lastBody = body
	return &models.Message{
		ID:         primitive.NewObjectID(),
		Room:       roomID,
		AuthorID:   sender.ID,
		AuthorName: sender.Username,
		Body:       body,
		Kind:       kind,
		Time:       time.Now(),
	}, nil
}

func newTestService() (*Service, *fakeNotificationRepo, *fakePusher, *fakeReplySender) {
	repo := newFakeNotificationRepo()
	pusher := &fakePusher{}
	replies := &fakeReplySender{}
	svc := NewService(repo, pusher)
	svc.BindReplySender(replies)
	return svc, repo, pusher, replies
}

func actorRef(id uint) *uint { return &id }

func TestCreatePersistsAndPushes(t *testing.T) {
	svc, repo, pusher, _ := newTestService()

	n, err := svc.Create(CreateInput{
		RecipientID: 1,
		ActorID:     actorRef(2),
		Type:        models.NotifMention,
		Message:     "@bob mentioned you in general",
	})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.NotZero(t, n.ID)
	assert.False(t, n.Read)

	require.Len(t, repo.items, 1)
	event := pusher.last()
	require.NotNil(t, event)
	assert.Equal(t, uint(1), event.UserID)
	assert.Equal(t, chat.EventNotificationNew, event.Event)
}

func TestCreateSuppressesSelfNotification(t *testing.T) {
	svc, repo, pusher, _ := newTestService()

	n, err := svc.Create(CreateInput{
		RecipientID: 5,
		ActorID:     actorRef(5),
		Type:        models.NotifDirectMessage,
		Message:     "talking to myself",
	})
	assert.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, repo.items)
	assert.Nil(t, pusher.last())
}

func TestCreateIgnoresIncompleteInput(t *testing.T) {
	svc, repo, _, _ := newTestService()

	for _, in := range []CreateInput{
		{Type: models.NotifMention, Message: "no recipient"},
		{RecipientID: 1, Message: "no type"},
		{RecipientID: 1, Type: models.NotifMention},
	} {
		n, err := svc.Create(in)
		assert.NoError(t, err)
		assert.Nil(t, n)
	}
	assert.Empty(t, repo.items)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(CreateInput{
		RecipientID: 1,
		Type:        "carrier_pigeon",
		Message:     "coo",
	})
	assert.ErrorIs(t, err, chat.ErrValidation)
}

func TestListPaginationStableUnderCursor(t *testing.T) {
	svc, repo, _, _ := newTestService()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.CreateNotification(&models.Notification{
			RecipientID: 1,
			Type:        models.NotifAnnouncement,
			Message:     "item",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page1, err := svc.List(1, ListOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Notifications, 2)
	require.NotEmpty(t, page1.NextCursor)
	assert.Equal(t, int64(5), page1.UnreadCount)

	page2, err := svc.List(1, ListOptions{Limit: 2, Cursor: page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Notifications, 2)
	require.NotEmpty(t, page2.NextCursor)

	page3, err := svc.List(1, ListOptions{Limit: 2, Cursor: page2.NextCursor})
	require.NoError(t, err)
	require.Len(t, page3.Notifications, 1)
	assert.Empty(t, page3.NextCursor, "partial page ends the walk")

	// no overlap, newest first across the whole walk
	seen := map[uint]bool{}
	var all []models.Notification
	all = append(all, page1.Notifications...)
	all = append(all, page2.Notifications...)
	all = append(all, page3.Notifications...)
	for i, n := range all {
		assert.False(t, seen[n.ID], "id %d appeared twice", n.ID)
		seen[n.ID] = true
		if i > 0 {
			assert.False(t, n.CreatedAt.After(all[i-1].CreatedAt))
		}
	}
}

func TestListMalformedCursorRestartsFromNewest(t *testing.T) {
	svc, repo, _, _ := newTestService()
	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 1, Type: models.NotifAnnouncement, Message: "only one",
	}))

	result, err := svc.List(1, ListOptions{Cursor: "garbage!!"})
	require.NoError(t, err)
	assert.Len(t, result.Notifications, 1)
}

func TestSummaryZeroFillsKnownTypes(t *testing.T) {
	svc, repo, _, _ := newTestService()

	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 1, Type: models.NotifMention, Message: "a",
	}))
	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 1, Type: models.NotifMention, Message: "b", Read: true,
	}))

	summary, err := svc.Summary(1)
	require.NoError(t, err)

	assert.Equal(t, models.TypeCount{Total: 2, Unread: 1}, summary["mention"])
	assert.Equal(t, models.TypeCount{Total: 2, Unread: 1}, summary["all"])
	assert.Equal(t, models.TypeCount{}, summary["security_alert"], "absent types report zeros")
	for _, known := range models.NotificationTypes {
		_, ok := summary[string(known)]
		assert.True(t, ok, "summary missing type %s", known)
	}
}

func TestMarkReadIsIdempotent(t *testing.T) {
	svc, repo, pusher, _ := newTestService()
	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 1, Type: models.NotifMention, Message: "read me",
	}))

	first, err := svc.MarkRead(1, 1)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, first.Read)
	require.NotNil(t, first.ReadAt)
	firstReadAt := *first.ReadAt

	second, err := svc.MarkRead(1, 1)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.True(t, second.Read)
	assert.Equal(t, firstReadAt.Unix(), second.ReadAt.Unix())

	event := pusher.last()
	require.NotNil(t, event)
	assert.Equal(t, chat.EventNotificationUpd, event.Event)
}

func TestMarkReadMissingOrForeignNotification(t *testing.T) {
	svc, repo, _, _ := newTestService()
	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 2, Type: models.NotifMention, Message: "not yours",
	}))

	n, err := svc.MarkRead(999, 1)
	assert.NoError(t, err)
	assert.Nil(t, n)

	// someone else's notification is indistinguishable from a missing one
	n, err = svc.MarkRead(1, 1)
	assert.NoError(t, err)
	assert.Nil(t, n)
}

func TestMarkAllRead(t *testing.T) {
	svc, repo, pusher, _ := newTestService()
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateNotification(&models.Notification{
			RecipientID: 1, Type: models.NotifAnnouncement, Message: "x",
		}))
	}
	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 2, Type: models.NotifAnnouncement, Message: "other user",
	}))

	updated, err := svc.MarkAllRead(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	event := pusher.last()
	require.NotNil(t, event)
	assert.Equal(t, chat.EventNotificationAll, event.Event)

	// repeating is harmless and reports zero
	updated, err = svc.MarkAllRead(1)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestQuickReplySendsThroughPipelineAndMarksRead(t *testing.T) {
	svc, repo, _, replies := newTestService()
	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 1,
		Type:        models.NotifDirectMessage,
		Message:     "@bob sent you a direct message",
		Payload: models.NotificationPayload{
			QuickReply: &models.QuickReply{Type: "dm", RoomID: "room-abc"},
		},
	}))

	actor := models.Identity{ID: 1, Username: "alice", Role: models.RoleUser}
	result, err := svc.QuickReply(context.Background(), 1, actor, "on my way")
	require.NoError(t, err)

	assert.Equal(t, "room-abc", replies.lastRoom)
	assert.Equal(t, "on my way", replies.lastBody)
	require.NotNil(t, result.Message)
	assert.Equal(t, "on my way", result.Message.Body)
	require.NotNil(t, result.Notification)
	assert.True(t, result.Notification.Read)
	assert.Zero(t, result.UnreadCount)
}

func TestQuickReplyUnsupportedNotification(t *testing.T) {
	svc, repo, _, _ := newTestService()
	actor := models.Identity{ID: 1, Username: "alice", Role: models.RoleUser}

	// no quick-reply descriptor at all
	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 1, Type: models.NotifMention, Message: "plain mention",
	}))
	_, err := svc.QuickReply(context.Background(), 1, actor, "hi")
	assert.ErrorIs(t, err, chat.ErrUnsupportedNotification)

	// descriptor of the wrong type
	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 1, Type: models.NotifDirectMessage, Message: "odd",
		Payload: models.NotificationPayload{QuickReply: &models.QuickReply{Type: "webhook", RoomID: "r"}},
	}))
	_, err = svc.QuickReply(context.Background(), 2, actor, "hi")
	assert.ErrorIs(t, err, chat.ErrUnsupportedNotification)
}

func TestQuickReplyPropagatesPipelineRejection(t *testing.T) {
	svc, repo, _, replies := newTestService()
	replies.err = chat.ErrBlockedMember

	require.NoError(t, repo.CreateNotification(&models.Notification{
		RecipientID: 1, Type: models.NotifDirectMessage, Message: "dm",
		Payload: models.NotificationPayload{QuickReply: &models.QuickReply{Type: "dm", RoomID: "room-abc"}},
	}))

	actor := models.Identity{ID: 1, Username: "alice", Role: models.RoleUser}
	_, err := svc.QuickReply(context.Background(), 1, actor, "hello?")
	assert.ErrorIs(t, err, chat.ErrBlockedMember)

	// the source notification stays unread after a failed reply
	n, getErr := repo.GetByID(1, 1)
	require.NoError(t, getErr)
	assert.False(t, n.Read)
}

func TestQuickReplyUnknownNotification(t *testing.T) {
	svc, _, _, _ := newTestService()
	actor := models.Identity{ID: 1, Username: "alice", Role: models.RoleUser}

	_, err := svc.QuickReply(context.Background(), 42, actor, "hi")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNotifyDirectMessageCarriesQuickReplyDescriptor(t *testing.T) {
	svc, repo, _, _ := newTestService()

	room := &models.Room{ID: primitive.NewObjectID(), Kind: models.RoomDirect, Participants: []uint{1, 2}}
	msg := &models.Message{ID: primitive.NewObjectID(), Room: room.ID.Hex(), AuthorID: 2, Body: "hey"}
	actor := models.Identity{ID: 2, Username: "bob", Role: models.RoleUser}

	svc.NotifyDirectMessage(context.Background(), 1, actor, room, msg)

	require.Len(t, repo.items, 1)
	n := repo.items[0]
	assert.Equal(t, models.NotifDirectMessage, n.Type)
	require.NotNil(t, n.Payload.QuickReply)
	assert.Equal(t, "dm", n.Payload.QuickReply.Type)
	assert.Equal(t, room.ID.Hex(), n.Payload.QuickReply.RoomID)
	assert.Equal(t, "hey", n.Payload.Preview)
}

func TestNotifyMentionHasNoQuickReply(t *testing.T) {
	svc, repo, _, _ := newTestService()

	room := &models.Room{ID: primitive.NewObjectID(), Kind: models.RoomGroup, Name: "general", Participants: []uint{1, 2}}
	msg := &models.Message{ID: primitive.NewObjectID(), Room: room.ID.Hex(), AuthorID: 2, Body: "@alice hi"}
	actor := models.Identity{ID: 2, Username: "bob", Role: models.RoleUser}

	svc.NotifyMention(context.Background(), models.User{ID: 1, Username: "alice"}, actor, room, msg)

	require.Len(t, repo.items, 1)
	assert.Equal(t, models.NotifMention, repo.items[0].Type)
	assert.Nil(t, repo.items[0].Payload.QuickReply)
}

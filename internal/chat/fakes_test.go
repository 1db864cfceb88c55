package chat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/gorm"
)

// In-memory repository fakes shared by the package tests.

type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: map[string]*models.Room{}}
}

func (f *fakeRoomRepo) CreateRoom(_ context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room.ID = primitive.NewObjectID()
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	if room.LastMessageAt.IsZero() {
		room.LastMessageAt = room.CreatedAt
	}
	clone := *room
	f.rooms[room.ID.Hex()] = &clone
	return nil
}

func (f *fakeRoomRepo) GetRoomByID(_ context.Context, id string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, repositories.ErrRoomNotFound
	}
	clone := *room
	return &clone, nil
}

func (f *fakeRoomRepo) FindDirectByKey(_ context.Context, dmKey string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, room := range f.rooms {
		if room.Kind == models.RoomDirect && room.DMKey == dmKey {
			clone := *room
			return &clone, nil
		}
	}
	return nil, repositories.ErrRoomNotFound
}

func (f *fakeRoomRepo) GetRoomsByParticipant(_ context.Context, userID uint) ([]models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var rooms []models.Room
	for _, room := range f.rooms {
		if room.HasParticipant(userID) {
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].LastMessageAt.After(rooms[j].LastMessageAt)
	})
	return rooms, nil
}

func (f *fakeRoomRepo) TouchActivity(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return repositories.ErrRoomNotFound
	}
	room.LastMessageAt = at
	room.UpdatedAt = time.Now()
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) CreateMessage(_ context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	message.ID = primitive.NewObjectID()
	if message.Time.IsZero() {
		message.Time = time.Now()
	}
	f.messages = append(f.messages, *message)
	return nil
}

func (f *fakeMessageRepo) GetMessageByID(_ context.Context, id string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		if f.messages[i].ID.Hex() == id {
			clone := f.messages[i]
			return &clone, nil
		}
	}
	return nil, repositories.ErrMessageNotFound
}

func (f *fakeMessageRepo) GetMessagesByRoom(_ context.Context, roomID string, limit int64) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, msg := range f.messages {
		if msg.Room == roomID {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageRepo) GetLatestMessage(_ context.Context, roomID string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Message
	for i := range f.messages {
		if f.messages[i].Room != roomID {
			continue
		}
		if latest == nil || f.messages[i].Time.After(latest.Time) {
			latest = &f.messages[i]
		}
	}
	if latest == nil {
		return nil, nil
	}
	clone := *latest
	return &clone, nil
}

func (f *fakeMessageRepo) DeleteMessage(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		if f.messages[i].ID.Hex() == id {
			f.messages = append(f.messages[:i], f.messages[i+1:]...)
			return nil
		}
	}
	return repositories.ErrMessageNotFound
}

func (f *fakeMessageRepo) AppendEdit(_ context.Context, id string, newBody string, edit models.MessageEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.messages {
		if f.messages[i].ID.Hex() == id {
			f.messages[i].Body = newBody
			editedAt := edit.EditedAt
			f.messages[i].EditedAt = &editedAt
			f.messages[i].EditHistory = append(f.messages[i].EditHistory, edit)
			return nil
		}
	}
	return repositories.ErrMessageNotFound
}

func (f *fakeMessageRepo) SearchMessages(_ context.Context, query repositories.MessageSearchQuery) ([]models.Message, int64, error) {
	return nil, 0, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]models.User
}

func newFakeUserRepo(users ...models.User) *fakeUserRepo {
	f := &fakeUserRepo{users: map[uint]models.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) CreateUser(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetUserByID(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func (f *fakeUserRepo) GetUserByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetUserByUsername(username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			user := u
			return &user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetUserByFirebaseUID(string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) GetUsersByUsernames(usernames []string) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, name := range usernames {
		for _, u := range f.users {
			if u.Username == name {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetUsersByIDs(ids []uint) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) UpdateUser(user *models.User) error {
	return f.CreateUser(user)
}

func (f *fakeUserRepo) SearchUsers(string, uint, int) ([]models.User, error) {
	return nil, nil
}

type fakeBlockRepo struct {
	mu    sync.Mutex
	edges map[[2]uint]struct{}
}

func newFakeBlockRepo() *fakeBlockRepo {
	return &fakeBlockRepo{edges: map[[2]uint]struct{}{}}
}

func (f *fakeBlockRepo) CreateBlock(blockerID, blockedID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges[[2]uint{blockerID, blockedID}] = struct{}{}
	return nil
}

func (f *fakeBlockRepo) DeleteBlock(blockerID, blockedID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.edges, [2]uint{blockerID, blockedID})
	return nil
}

func (f *fakeBlockRepo) GetBlockedIDs(blockerID uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uint
	for edge := range f.edges {
		if edge[0] == blockerID {
			ids = append(ids, edge[1])
		}
	}
	return ids, nil
}

func (f *fakeBlockRepo) GetBlockerIDs(blockedID uint) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uint
	for edge := range f.edges {
		if edge[1] == blockedID {
			ids = append(ids, edge[0])
		}
	}
	return ids, nil
}

// fakeConn satisfies ConnLike for pump tests without a real transport.
type fakeConn struct {
	mu     sync.Mutex
	writes [][]byte
	closed bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) { select {} }

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadLimit(int64)               {}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeNotifier records fan-out calls from the pipeline.
type fakeNotifier struct {
	mu       sync.Mutex
	mentions []uint
	dms      []uint
}

func (f *fakeNotifier) NotifyMention(_ context.Context, recipient models.User, _ models.Identity, _ *models.Room, _ *models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mentions = append(f.mentions, recipient.ID)
}

func (f *fakeNotifier) NotifyDirectMessage(_ context.Context, recipientID uint, _ models.Identity, _ *models.Room, _ *models.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, recipientID)
}

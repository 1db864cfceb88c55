package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moyeo-app/moyeo/backend/internal/blocking"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/moyeo-app/moyeo/backend/internal/repositories"
)

// Registry owns chatroom creation and membership resolution. Both the REST
// surface and the live channel go through it, so validation never diverges
// between the two paths.
type Registry struct {
	rooms       repositories.RoomRepository
	users       repositories.UserRepository
	resolver    *blocking.Resolver
	memberLimit int
}

func NewRegistry(rooms repositories.RoomRepository, users repositories.UserRepository, resolver *blocking.Resolver, memberLimit int) *Registry {
	if memberLimit <= 0 {
		memberLimit = 20
	}
	return &Registry{rooms: rooms, users: users, resolver: resolver, memberLimit: memberLimit}
}

// CreateGroup creates a group room. Members are de-duplicated, the creator
// always participates, the member limit is enforced, and any member with a
// block relationship to the creator rejects the whole room.
func (g *Registry) CreateGroup(ctx context.Context, creator models.Identity, name string, memberIDs []uint) (*models.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}

	participantSet := map[uint]struct{}{creator.ID: {}}
	participants := []uint{creator.ID}
	for _, id := range memberIDs {
		if id == 0 {
			continue
		}
		if _, ok := participantSet[id]; ok {
			continue
		}
		participantSet[id] = struct{}{}
		participants = append(participants, id)
	}

	if len(participants) > g.memberLimit {
		return nil, fmt.Errorf("%w: at most %d members", ErrRoomFull, g.memberLimit)
	}

	sets, err := g.resolver.ResolveBlockSets(creator.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range participants {
		if id == creator.ID {
			continue
		}
		if sets.Blocks(id) {
			return nil, ErrBlockedMember
		}
	}

	room := &models.Room{
		Kind:          models.RoomGroup,
		Name:          name,
		Participants:  participants,
		CreatedBy:     creator.ID,
		LastMessageAt: time.Now(),
	}
	if err := g.rooms.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// GetOrCreateDirect resolves the direct conversation between two users.
// The deterministic pair key makes creation idempotent: calling with
// (a, b) and (b, a) yields the same room.
func (g *Registry) GetOrCreateDirect(ctx context.Context, a models.Identity, b uint) (*models.Room, error) {
	if a.ID == b {
		return nil, ErrSelfConversation
	}

	sets, err := g.resolver.ResolveBlockSets(a.ID)
	if err != nil {
		return nil, err
	}
	if sets.Blocks(b) {
		return nil, ErrBlockedMember
	}

	key := models.DirectRoomKey(a.ID, b)
	room, err := g.rooms.FindDirectByKey(ctx, key)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, repositories.ErrRoomNotFound) {
		return nil, err
	}

	room = &models.Room{
		Kind:          models.RoomDirect,
		Participants:  []uint{a.ID, b},
		CreatedBy:     a.ID,
		DMKey:         key,
		LastMessageAt: time.Now(),
	}
	if err := g.rooms.CreateRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ListRoomsFor returns the rooms visible to the user: every room they
// participate in, minus rooms containing a blocked-with participant. The
// hidden rooms stay in storage, they just drop out of this listing.
func (g *Registry) ListRoomsFor(ctx context.Context, identity models.Identity) ([]models.Room, error) {
	rooms, err := g.rooms.GetRoomsByParticipant(ctx, identity.ID)
	if err != nil {
		return nil, err
	}

	sets, err := g.resolver.ResolveBlockSets(identity.ID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		hidden := false
		for _, participant := range room.Participants {
			if participant == identity.ID {
				continue
			}
			if sets.Blocks(participant) {
				hidden = true
				break
			}
		}
		if !hidden {
			visible = append(visible, room)
		}
	}
	return visible, nil
}

// ResolveMember loads a room, verifies current membership and resolves a
// fresh pair of block sets for the caller. Shared by joins, sends and
// history reads; never cached between calls.
func (g *Registry) ResolveMember(ctx context.Context, identity models.Identity, roomID string) (*models.Room, blocking.Sets, error) {
	sets, err := g.resolver.ResolveBlockSets(identity.ID)
	if err != nil {
		return nil, sets, err
	}

	room, err := g.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repositories.ErrRoomNotFound) {
			return nil, sets, ErrRoomNotFound
		}
		return nil, sets, err
	}

	if !room.HasParticipant(identity.ID) {
		return nil, sets, ErrNotAMember
	}
	return room, sets, nil
}

// AuthorizeInteraction rejects the interaction when any other participant
// is blocked-with the caller. The whole room is refused; partial delivery
// is never attempted.
func AuthorizeInteraction(room *models.Room, callerID uint, sets blocking.Sets) error {
	for _, participant := range room.Participants {
		if participant == callerID {
			continue
		}
		if sets.Blocks(participant) {
			return ErrBlockedMember
		}
	}
	return nil
}

// ViewFor shapes a room for one caller, labeling direct rooms with the
// other participant.
func (g *Registry) ViewFor(room *models.Room, callerID uint) models.RoomView {
	view := models.RoomView{
		ID:            room.ID.Hex(),
		Kind:          room.Kind,
		Name:          room.Name,
		DisplayName:   room.Name,
		LastMessageAt: room.LastMessageAt,
	}
	if view.DisplayName == "" {
		view.DisplayName = "chatroom"
	}

	if room.Kind == models.RoomDirect {
		others := room.OtherParticipants(callerID)
		if len(others) == 1 {
			if other, err := g.users.GetUserByID(others[0]); err == nil {
				compact := other.ToCompact()
				view.OtherParticipant = &compact
				view.DisplayName = other.Username
			}
		}
	}
	return view
}

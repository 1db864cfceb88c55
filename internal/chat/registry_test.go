package chat

import (
	"context"
	"testing"

	"github.com/moyeo-app/moyeo/backend/internal/blocking"
	"github.com/moyeo-app/moyeo/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(id uint, username string) models.Identity {
	return models.Identity{ID: id, Username: username, Role: models.RoleUser}
}

func newTestRegistry(t *testing.T, memberLimit int) (*Registry, *fakeRoomRepo, *fakeBlockRepo, *fakeUserRepo) {
	t.Helper()
	rooms := newFakeRoomRepo()
	blocks := newFakeBlockRepo()
	users := newFakeUserRepo(
		models.User{ID: 1, Username: "alice", Name: "Alice"},
		models.User{ID: 2, Username: "bob", Name: "Bob"},
		models.User{ID: 3, Username: "carol", Name: "Carol"},
	)
	registry := NewRegistry(rooms, users, blocking.NewResolver(blocks), memberLimit)
	return registry, rooms, blocks, users
}

func TestCreateGroupDeduplicatesAndIncludesCreator(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t, 20)

	room, err := registry.CreateGroup(context.Background(), testIdentity(1, "alice"), "general", []uint{2, 2, 3, 1, 0})
	require.NoError(t, err)

	assert.Equal(t, models.RoomGroup, room.Kind)
	assert.ElementsMatch(t, []uint{1, 2, 3}, room.Participants)
	assert.Equal(t, uint(1), room.CreatedBy)
}

func TestCreateGroupRequiresName(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t, 20)

	_, err := registry.CreateGroup(context.Background(), testIdentity(1, "alice"), "", []uint{2})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateGroupEnforcesMemberLimit(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t, 3)

	_, err := registry.CreateGroup(context.Background(), testIdentity(1, "alice"), "too-big", []uint{2, 3, 4})
	assert.ErrorIs(t, err, ErrRoomFull)

	// exactly at the limit is fine
	_, err = registry.CreateGroup(context.Background(), testIdentity(1, "alice"), "just-right", []uint{2, 3})
	assert.NoError(t, err)
}

func TestCreateGroupRejectsBlockedMember(t *testing.T) {
	registry, _, blocks, _ := newTestRegistry(t, 20)
	require.NoError(t, blocks.CreateBlock(3, 1)) // carol blocked alice

	_, err := registry.CreateGroup(context.Background(), testIdentity(1, "alice"), "general", []uint{2, 3})
	assert.ErrorIs(t, err, ErrBlockedMember)
}

func TestGetOrCreateDirectIsIdempotentBothWays(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t, 20)
	ctx := context.Background()

	first, err := registry.GetOrCreateDirect(ctx, testIdentity(1, "alice"), 2)
	require.NoError(t, err)

	second, err := registry.GetOrCreateDirect(ctx, testIdentity(2, "bob"), 1)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.RoomDirect, first.Kind)
	assert.ElementsMatch(t, []uint{1, 2}, first.Participants)
}

func TestGetOrCreateDirectRejectsSelf(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t, 20)

	_, err := registry.GetOrCreateDirect(context.Background(), testIdentity(1, "alice"), 1)
	assert.ErrorIs(t, err, ErrSelfConversation)
}

func TestGetOrCreateDirectRejectsBlockedEitherDirection(t *testing.T) {
	registry, _, blocks, _ := newTestRegistry(t, 20)
	ctx := context.Background()

	require.NoError(t, blocks.CreateBlock(1, 2)) // alice blocked bob
	_, err := registry.GetOrCreateDirect(ctx, testIdentity(1, "alice"), 2)
	assert.ErrorIs(t, err, ErrBlockedMember)

	// the other direction is just as closed
	_, err = registry.GetOrCreateDirect(ctx, testIdentity(2, "bob"), 1)
	assert.ErrorIs(t, err, ErrBlockedMember)
}

func TestDirectRoomKeyIsSymmetric(t *testing.T) {
	assert.Equal(t, models.DirectRoomKey(1, 2), models.DirectRoomKey(2, 1))
	assert.Equal(t, "1::2", models.DirectRoomKey(2, 1))
	assert.NotEqual(t, models.DirectRoomKey(1, 2), models.DirectRoomKey(1, 3))
}

func TestListRoomsForHidesRoomsWithBlockedParticipants(t *testing.T) {
	registry, _, blocks, _ := newTestRegistry(t, 20)
	ctx := context.Background()
	alice := testIdentity(1, "alice")

	visible, err := registry.CreateGroup(ctx, alice, "with-bob", []uint{2})
	require.NoError(t, err)
	hidden, err := registry.CreateGroup(ctx, alice, "with-carol", []uint{3})
	require.NoError(t, err)

	// the block arrives after both rooms exist
	require.NoError(t, blocks.CreateBlock(3, 1))

	rooms, err := registry.ListRoomsFor(ctx, alice)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, visible.ID, rooms[0].ID)
	assert.NotEqual(t, hidden.ID, rooms[0].ID)

	// unblocking restores visibility; the room was never deleted
	require.NoError(t, blocks.DeleteBlock(3, 1))
	rooms, err = registry.ListRoomsFor(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestResolveMemberRejectsNonMembersAndUnknownRooms(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t, 20)
	ctx := context.Background()

	room, err := registry.CreateGroup(ctx, testIdentity(1, "alice"), "private", []uint{2})
	require.NoError(t, err)

	_, _, err = registry.ResolveMember(ctx, testIdentity(3, "carol"), room.ID.Hex())
	assert.ErrorIs(t, err, ErrNotAMember)

	_, _, err = registry.ResolveMember(ctx, testIdentity(1, "alice"), "000000000000000000000000")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, _, err = registry.ResolveMember(ctx, testIdentity(1, "alice"), room.ID.Hex())
	assert.NoError(t, err)
}

func TestViewForLabelsDirectRoomWithOtherParticipant(t *testing.T) {
	registry, _, _, _ := newTestRegistry(t, 20)

	room, err := registry.GetOrCreateDirect(context.Background(), testIdentity(1, "alice"), 2)
	require.NoError(t, err)

	view := registry.ViewFor(room, 1)
	assert.Equal(t, "bob", view.DisplayName)
	require.NotNil(t, view.OtherParticipant)
	assert.Equal(t, uint(2), view.OtherParticipant.ID)

	view = registry.ViewFor(room, 2)
	assert.Equal(t, "alice", view.DisplayName)
}

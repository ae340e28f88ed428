package repository

import (
	"context"
	"testing"
	"time"

	"chatspace/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddMemberIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")
	room := createTestRoom(t, db, "general", false, user.ID)

	first := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AddMember(ctx, room.ID, user.ID, first))
	require.NoError(t, repo.AddMember(ctx, room.ID, user.ID, first.Add(time.Hour)))

	var count int64
	require.NoError(t, db.Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", room.ID, user.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count, "exactly one membership row after two adds")

	// The original joined_at is kept.
	var member model.RoomMember
	require.NoError(t, db.First(&member, "room_id = ? AND user_id = ?", room.ID, user.ID).Error)
	assert.Equal(t, first.Unix(), member.JoinedAt.Unix())
}

func TestIsMember(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "bob")
	room := createTestRoom(t, db, "lounge", true, user.ID)

	ok, err := repo.IsMember(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.AddMember(ctx, room.ID, user.ID, time.Now().UTC()))

	ok, err = repo.IsMember(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsMember(ctx, room.ID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveMemberIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "carol")
	room := createTestRoom(t, db, "random", false, user.ID)

	// Removing a non-member is a no-op, not an error.
	require.NoError(t, repo.RemoveMember(ctx, room.ID, user.ID))

	require.NoError(t, repo.AddMember(ctx, room.ID, user.ID, time.Now().UTC()))
	require.NoError(t, repo.RemoveMember(ctx, room.ID, user.ID))
	require.NoError(t, repo.RemoveMember(ctx, room.ID, user.ID))

	ok, err := repo.IsMember(ctx, room.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListMembers(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "dave")
	guest := createTestUser(t, db, "erin")
	room := createTestRoom(t, db, "standup", true, owner.ID)

	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.AddMember(ctx, room.ID, owner.ID, base))
	require.NoError(t, repo.AddMember(ctx, room.ID, guest.ID, base.Add(time.Minute)))

	members, total, err := repo.ListMembers(ctx, room.ID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, members, 2)

	// Ordered by join time.
	assert.Equal(t, owner.ID, members[0].UserID)
	assert.Equal(t, "dave", members[0].Name)
	assert.Equal(t, guest.ID, members[1].UserID)
	assert.Equal(t, "erin@example.com", members[1].Email)
}

func TestCountMembers(t *testing.T) {
	db := newTestDB(t)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "frank")
	room := createTestRoom(t, db, "dev", false, owner.ID)

	count, err := repo.CountMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	require.NoError(t, repo.AddMember(ctx, room.ID, owner.ID, time.Now().UTC()))
	count, err = repo.CountMembers(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

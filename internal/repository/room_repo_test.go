package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListVisible(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomRepository(db)
	members := NewMembershipRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner")
	viewer := createTestUser(t, db, "viewer")

	public := createTestRoom(t, db, "town-square", false, owner.ID)
	joined := createTestRoom(t, db, "joined-private", true, owner.ID)
	hidden := createTestRoom(t, db, "hidden-private", true, owner.ID)

	require.NoError(t, members.AddMember(ctx, joined.ID, viewer.ID, time.Now().UTC()))

	// Anonymous callers see only public rooms.
	got, total, err := rooms.ListVisible(ctx, nil, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, got, 1)
	assert.Equal(t, public.ID, got[0].ID)

	// The viewer additionally sees the private room they joined.
	got, total, err = rooms.ListVisible(ctx, &viewer.ID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	slugs := []string{got[0].Slug, got[1].Slug}
	assert.Contains(t, slugs, public.Slug)
	assert.Contains(t, slugs, joined.Slug)
	assert.NotContains(t, slugs, hidden.Slug)

	// The owner sees everything they created.
	_, total, err = rooms.ListVisible(ctx, &owner.ID, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestListPrivateForUser(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomRepository(db)
	members := NewMembershipRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "owner2")
	guest := createTestUser(t, db, "guest2")

	created := createTestRoom(t, db, "mine", true, owner.ID)
	joined := createTestRoom(t, db, "theirs", true, guest.ID)
	createTestRoom(t, db, "public", false, guest.ID)

	require.NoError(t, members.AddMember(ctx, joined.ID, owner.ID, time.Now().UTC()))

	got, err := rooms.ListPrivateForUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	slugs := []string{got[0].Slug, got[1].Slug}
	assert.Contains(t, slugs, created.Slug)
	assert.Contains(t, slugs, joined.Slug)
}

func TestGetBySlug(t *testing.T) {
	db := newTestDB(t)
	rooms := NewRoomRepository(db)
	ctx := context.Background()

	owner := createTestUser(t, db, "slugger")
	room := createTestRoom(t, db, "findme", false, owner.ID)

	got, err := rooms.GetBySlug(ctx, room.Slug)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)

	_, err = rooms.GetBySlug(ctx, "no-such-slug")
	assert.Error(t, err)
}

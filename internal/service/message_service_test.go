package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"chatspace/internal/model"
	"chatspace/pkg/pagination"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures broadcasts for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	channels []string
	payloads [][]byte
}

func (n *recordingNotifier) BroadcastToChannel(channel string, payload []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, channel)
	n.payloads = append(n.payloads, payload)
}

func newMessageEnv(t *testing.T) (*env, MessageService, *recordingNotifier) {
	t.Helper()
	e := newEnv(t)
	require.NoError(t, e.roleService.SeedDefaultRolesAndPermissions(context.Background()))
	notifier := &recordingNotifier{}
	svc := NewMessageService(e.messages, e.rooms, e.roles, e.policy, notifier)
	return e, svc, notifier
}

func TestSendMessageBroadcasts(t *testing.T) {
	e, svc, notifier := newMessageEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "alice", model.RoleUser)

	room, err := e.roomService.CreateRoom(ctx, author, CreateRoomRequest{Name: "Lobby"})
	require.NoError(t, err)

	resp, err := svc.Send(ctx, author, room.Slug, SendMessageRequest{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, author.ID, resp.UserID)
	assert.Equal(t, "alice", resp.AuthorName)

	require.Len(t, notifier.channels, 1)
	assert.Equal(t, "room."+room.Slug, notifier.channels[0])

	var event struct {
		Event   string          `json:"event"`
		Channel string          `json:"channel"`
		Data    MessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(notifier.payloads[0], &event))
	assert.Equal(t, "message.sent", event.Event)
	assert.Equal(t, "hello", event.Data.Content)
}

func TestSendMessageRequiresPermission(t *testing.T) {
	e, svc, notifier := newMessageEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "alice", model.RoleUser)
	roleless := e.createUser(t, "bob")

	room, err := e.roomService.CreateRoom(ctx, author, CreateRoomRequest{Name: "Lobby"})
	require.NoError(t, err)

	_, err = svc.Send(ctx, roleless, room.Slug, SendMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, notifier.channels)
}

func TestSendMessageToPrivateRoomDenied(t *testing.T) {
	e, svc, _ := newMessageEnv(t)
	ctx := context.Background()
	creator := e.createUser(t, "alice", model.RoleUser)
	outsider := e.createUser(t, "bob", model.RoleUser)

	room, err := e.roomService.CreateRoom(ctx, creator, CreateRoomRequest{Name: "Vault", IsPrivate: true})
	require.NoError(t, err)

	_, err = svc.Send(ctx, outsider, room.Slug, SendMessageRequest{Content: "let me in"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Send(ctx, outsider, "no-such-room", SendMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMessagesChronological(t *testing.T) {
	e, svc, _ := newMessageEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "alice", model.RoleUser)

	room, err := e.roomService.CreateRoom(ctx, author, CreateRoomRequest{Name: "Lobby"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := svc.Send(ctx, author, room.Slug, SendMessageRequest{Content: fmt.Sprintf("msg-%d", i)})
		require.NoError(t, err)
	}

	messages, err := svc.List(ctx, author, room.Slug, ListMessagesQuery{})
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "msg-0", messages[0].Content)
	assert.Equal(t, "msg-2", messages[2].Content)
}

func TestListMessagesVisibilityGate(t *testing.T) {
	e, svc, _ := newMessageEnv(t)
	ctx := context.Background()
	creator := e.createUser(t, "alice", model.RoleUser)
	outsider := e.createUser(t, "bob", model.RoleUser)

	room, err := e.roomService.CreateRoom(ctx, creator, CreateRoomRequest{Name: "Vault", IsPrivate: true})
	require.NoError(t, err)

	_, err = svc.List(ctx, outsider, room.Slug, ListMessagesQuery{})
	assert.ErrorIs(t, err, ErrForbidden)

	// Master sees every room.
	master := e.createUser(t, "root", model.RoleMaster)
	_, err = svc.List(ctx, master, room.Slug, ListMessagesQuery{})
	require.NoError(t, err)
}

func TestUpdateMessageAuthorOrOverride(t *testing.T) {
	e, svc, _ := newMessageEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "alice", model.RoleUser)
	other := e.createUser(t, "bob", model.RoleUser)
	admin := e.createUser(t, "eve", model.RoleAdmin)

	room, err := e.roomService.CreateRoom(ctx, author, CreateRoomRequest{Name: "Lobby"})
	require.NoError(t, err)
	msg, err := svc.Send(ctx, author, room.Slug, SendMessageRequest{Content: "original"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, other, msg.ID, UpdateMessageRequest{Content: "hijacked"})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, author, msg.ID, UpdateMessageRequest{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
	require.NotNil(t, updated.EditedAt)

	// Admin holds edit-any-message.
	updated, err = svc.Update(ctx, admin, msg.ID, UpdateMessageRequest{Content: "moderated"})
	require.NoError(t, err)
	assert.Equal(t, "moderated", updated.Content)
}

func TestDeleteMessageAuthorOrOverride(t *testing.T) {
	e, svc, _ := newMessageEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "alice", model.RoleUser)
	other := e.createUser(t, "bob", model.RoleUser)
	manager := e.createUser(t, "mod", model.RoleManager)

	room, err := e.roomService.CreateRoom(ctx, author, CreateRoomRequest{Name: "Lobby"})
	require.NoError(t, err)

	msg, err := svc.Send(ctx, author, room.Slug, SendMessageRequest{Content: "spam"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, other, msg.ID), ErrForbidden)

	// Manager holds delete-any-message.
	require.NoError(t, svc.Delete(ctx, manager, msg.ID))
	_, err = svc.Get(ctx, author, msg.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, author, uuid.New()), ErrNotFound)
}

func TestSearchMessages(t *testing.T) {
	e, svc, _ := newMessageEnv(t)
	ctx := context.Background()
	author := e.createUser(t, "alice", model.RoleUser)

	room, err := e.roomService.CreateRoom(ctx, author, CreateRoomRequest{Name: "Lobby"})
	require.NoError(t, err)

	for _, content := range []string{"deploy finished", "lunch anyone?", "deploy rollback"} {
		_, err := svc.Send(ctx, author, room.Slug, SendMessageRequest{Content: content})
		require.NoError(t, err)
	}

	results, total, err := svc.Search(ctx, author, room.Slug, "deploy", pagination.Params{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, results, 2)
}

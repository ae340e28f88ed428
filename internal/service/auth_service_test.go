package service

import (
	"context"
	"testing"

	"chatspace/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsDefaultRole(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.authService.Register(ctx, RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.Contains(t, resp.User.Roles, model.RoleUser)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "password123"}
	_, err := e.authService.Register(ctx, req)
	require.NoError(t, err)

	_, err = e.authService.Register(ctx, req)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLoginVerifiesPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.authService.Register(ctx, RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	resp, err := e.authService.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = e.authService.Login(ctx, LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.Error(t, err)
}

func TestRefreshRotatesToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	registered, err := e.authService.Register(ctx, RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	refreshed, err := e.authService.Refresh(ctx, registered.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)

	// The old refresh token is single-use.
	_, err = e.authService.Refresh(ctx, registered.RefreshToken)
	assert.Error(t, err)
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	registered, err := e.authService.Register(ctx, RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	require.NoError(t, e.authService.Logout(ctx, registered.RefreshToken))
	_, err = e.authService.Refresh(ctx, registered.RefreshToken)
	assert.Error(t, err)

	// Logging out without a token is a no-op.
	require.NoError(t, e.authService.Logout(ctx, ""))
}

func TestAutoLoginProvisionsUserAndRoom(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	resp, err := e.authService.AutoLogin(ctx, AutoLoginRequest{
		Email:     "tenant@example.com",
		AccountID: "ACME 42",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User)
	assert.Equal(t, "ACME 42", resp.User.AccountID)
	assert.Contains(t, resp.User.Roles, model.RoleUser)

	require.NotNil(t, resp.Room)
	assert.Equal(t, "space-acme-42", resp.Room.Slug)
	assert.Equal(t, "Space #ACME 42", resp.Room.Name)
	assert.True(t, resp.Room.IsPrivate)

	isMember, err := e.members.IsMember(ctx, resp.Room.ID, resp.User.ID)
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestAutoLoginIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	req := AutoLoginRequest{Email: "tenant@example.com", AccountID: "77"}

	first, err := e.authService.AutoLogin(ctx, req)
	require.NoError(t, err)
	second, err := e.authService.AutoLogin(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, first.Room.ID, second.Room.ID)

	var users int64
	require.NoError(t, e.db.Model(&model.User{}).Where("email = ?", req.Email).Count(&users).Error)
	assert.EqualValues(t, 1, users)

	var rooms int64
	require.NoError(t, e.db.Model(&model.Room{}).Where("slug = ?", "space-77").Count(&rooms).Error)
	assert.EqualValues(t, 1, rooms)
}

func TestAutoLoginRejectsPlaceholders(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.authService.AutoLogin(ctx, AutoLoginRequest{
		Email:     "{{user_email}}",
		AccountID: "42",
	})
	assert.Error(t, err)

	_, err = e.authService.AutoLogin(ctx, AutoLoginRequest{
		Email:     "tenant@example.com",
		AccountID: "{{account_id}}",
	})
	assert.Error(t, err)
}

func TestMeReturnsRolesAndPermissions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.roleService.SeedDefaultRolesAndPermissions(ctx))

	registered, err := e.authService.Register(ctx, RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "password123",
	})
	require.NoError(t, err)

	me, err := e.authService.Me(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Contains(t, me.Roles, model.RoleUser)
	assert.Contains(t, me.Permissions, "send-messages")
	assert.NotContains(t, me.Permissions, "delete-any-room")
}

package service

import (
	"context"
	"fmt"
	"testing"

	"chatspace/internal/database"
	"chatspace/internal/model"
	"chatspace/internal/policy"
	"chatspace/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// env bundles the wired repositories and services backed by an in-memory
// sqlite database.
type env struct {
	db       *gorm.DB
	users    repository.UserRepository
	rooms    repository.RoomRepository
	members  repository.MembershipRepository
	messages repository.MessageRepository
	roles    repository.RoleRepository
	policy   *policy.RoomPolicy

	roomService RoomService
	roleService RoleService
	authService AuthService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	e := &env{
		db:       db,
		users:    repository.NewUserRepository(db),
		rooms:    repository.NewRoomRepository(db),
		members:  repository.NewMembershipRepository(db),
		messages: repository.NewMessageRepository(db),
		roles:    repository.NewRoleRepository(db),
	}
	e.policy = policy.NewRoomPolicy(e.members)
	txm := repository.NewTransactionManager(db)
	e.roomService = NewRoomService(e.rooms, e.members, e.policy, txm)
	e.roleService = NewRoleService(e.roles, e.users)
	e.authService = NewAuthService(e.users, e.roles, e.roomService, db)
	return e
}

func (e *env) createUser(t *testing.T, name string, roleNames ...string) *model.User {
	t.Helper()
	ctx := context.Background()

	user := &model.User{
		Name:     name,
		Email:    name + "@example.com",
		Password: "not-a-real-hash",
	}
	require.NoError(t, e.users.Create(ctx, user))

	for _, roleName := range roleNames {
		role, err := e.roles.FindOrCreateByName(ctx, roleName, "")
		require.NoError(t, err)
		require.NoError(t, e.users.AssignRole(ctx, user.ID, role.ID))
	}

	loaded, err := e.users.GetByIDWithRoles(ctx, user.ID)
	require.NoError(t, err)
	return loaded
}

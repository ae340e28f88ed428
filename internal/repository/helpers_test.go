package repository

import (
	"fmt"
	"testing"

	"chatspace/internal/database"
	"chatspace/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a uniquely-named shared in-memory sqlite database and runs
// the production migrations against it.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *model.User {
	t.Helper()

	user := &model.User{
		Name:     name,
		Email:    name + "@example.com",
		Password: "not-a-real-hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestRoom(t *testing.T, db *gorm.DB, name string, isPrivate bool, createdBy uuid.UUID) *model.Room {
	t.Helper()

	room := &model.Room{
		Slug:      name + "-" + uuid.NewString()[:6],
		Name:      name,
		IsPrivate: isPrivate,
		CreatedBy: createdBy,
	}
	require.NoError(t, db.Create(room).Error)
	return room
}

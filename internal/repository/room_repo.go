package repository

import (
	"context"

	"chatspace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomRepository defines the interface for data access of Room entities
type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
	GetBySlug(ctx context.Context, slug string) (*model.Room, error)
	// ListVisible returns rooms the given user may see: public rooms plus
	// rooms the user created or is a member of. A nil userID lists only
	// public rooms (anonymous caller).
	ListVisible(ctx context.Context, userID *uuid.UUID, page, limit int) ([]model.Room, int64, error)
	ListPrivateForUser(ctx context.Context, userID uuid.UUID) ([]model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type roomRepository struct {
	db *gorm.DB
}

// NewRoomRepository returns a new instance of RoomRepository
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *model.Room) error {
	return GetDB(ctx, r.db).Create(room).Error
}

func (r *roomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	if err := GetDB(ctx, r.db).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) GetBySlug(ctx context.Context, slug string) (*model.Room, error) {
	var room model.Room
	if err := GetDB(ctx, r.db).First(&room, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) ListVisible(ctx context.Context, userID *uuid.UUID, page, limit int) ([]model.Room, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.Room{})
	if userID != nil {
		query = query.Where(
			"is_private = ? OR created_by = ? OR id IN (?)",
			false, *userID,
			db.Session(&gorm.Session{NewDB: true}).
				Model(&model.RoomMember{}).
				Select("room_id").
				Where("user_id = ?", *userID),
		)
	} else {
		query = query.Where("is_private = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []model.Room
	offset := (page - 1) * limit
	err := query.Preload("Creator").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, err
	}

	return rooms, total, nil
}

func (r *roomRepository) ListPrivateForUser(ctx context.Context, userID uuid.UUID) ([]model.Room, error) {
	db := GetDB(ctx, r.db)

	var rooms []model.Room
	err := db.Model(&model.Room{}).
		Where("is_private = ?", true).
		Where(
			"created_by = ? OR id IN (?)",
			userID,
			db.Session(&gorm.Session{NewDB: true}).
				Model(&model.RoomMember{}).
				Select("room_id").
				Where("user_id = ?", userID),
		).
		Order("created_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepository) Update(ctx context.Context, room *model.Room) error {
	return GetDB(ctx, r.db).Save(room).Error
}

func (r *roomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Room{}).Error
}

package repository

import (
	"context"
	"time"

	"chatspace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Member is a room member row joined with the user's public fields.
type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

// MembershipRepository records which users belong to which rooms.
// AddMember and RemoveMember are idempotent: adding an existing member or
// removing an absent one is a no-op, never an error. Uniqueness of
// (room_id, user_id) is the table's composite primary key, so concurrent
// adds for the same pair resolve at the database.
type MembershipRepository interface {
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	AddMember(ctx context.Context, roomID, userID uuid.UUID, joinedAt time.Time) error
	RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error
	ListMembers(ctx context.Context, roomID uuid.UUID, page, limit int) ([]Member, int64, error)
	CountMembers(ctx context.Context, roomID uuid.UUID) (int64, error)
}

type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository returns a new instance of MembershipRepository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *membershipRepository) AddMember(ctx context.Context, roomID, userID uuid.UUID, joinedAt time.Time) error {
	member := model.RoomMember{
		RoomID:   roomID,
		UserID:   userID,
		JoinedAt: joinedAt,
	}
	// DO NOTHING keeps the original joined_at when the row already exists.
	return GetDB(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&member).Error
}

func (r *membershipRepository) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&model.RoomMember{}).Error
}

func (r *membershipRepository) ListMembers(ctx context.Context, roomID uuid.UUID, page, limit int) ([]Member, int64, error) {
	db := GetDB(ctx, r.db)

	var total int64
	if err := db.Model(&model.RoomMember{}).Where("room_id = ?", roomID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var members []Member
	offset := (page - 1) * limit
	err := db.Table("room_members").
		Select("users.id AS user_id, users.name, users.email, room_members.joined_at").
		Joins("INNER JOIN users ON users.id = room_members.user_id").
		Where("room_members.room_id = ?", roomID).
		Order("room_members.joined_at ASC").
		Offset(offset).Limit(limit).
		Scan(&members).Error
	if err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

func (r *membershipRepository) CountMembers(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.RoomMember{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

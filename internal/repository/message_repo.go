package repository

import (
	"context"

	"chatspace/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageCursor selects a window of room messages relative to existing
// message ids. Before/After are resolved to the referenced message's
// creation time; both nil means "the latest Limit messages".
type MessageCursor struct {
	Before *uuid.UUID
	After  *uuid.UUID
	Limit  int
}

// MessageRepository defines the interface for data access of Message entities
type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID, cursor MessageCursor) ([]model.Message, error)
	Search(ctx context.Context, roomID uuid.UUID, query string, page, limit int) ([]model.Message, int64, error)
	Update(ctx context.Context, msg *model.Message) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository returns a new instance of MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	return GetDB(ctx, r.db).Create(msg).Error
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	if err := GetDB(ctx, r.db).Preload("User").Preload("Room").First(&msg, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) ListByRoom(ctx context.Context, roomID uuid.UUID, cursor MessageCursor) ([]model.Message, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.Message{}).
		Preload("User").
		Where("room_id = ?", roomID)

	if cursor.Before != nil {
		var anchor model.Message
		if err := db.Select("created_at").First(&anchor, "id = ?", *cursor.Before).Error; err != nil {
			return nil, err
		}
		query = query.Where("created_at < ?", anchor.CreatedAt)
	}
	if cursor.After != nil {
		var anchor model.Message
		if err := db.Select("created_at").First(&anchor, "id = ?", *cursor.After).Error; err != nil {
			return nil, err
		}
		query = query.Where("created_at > ?", anchor.CreatedAt)
	}

	var messages []model.Message
	if err := query.Order("created_at DESC").Limit(cursor.Limit).Find(&messages).Error; err != nil {
		return nil, err
	}

	// Callers expect chronological order unless paging forward from an anchor.
	if cursor.After == nil {
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
	}

	return messages, nil
}

func (r *messageRepository) Search(ctx context.Context, roomID uuid.UUID, query string, page, limit int) ([]model.Message, int64, error) {
	db := GetDB(ctx, r.db)

	base := db.Model(&model.Message{}).
		Where("room_id = ?", roomID).
		Where("content LIKE ?", "%"+query+"%")

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []model.Message
	offset := (page - 1) * limit
	err := base.Preload("User").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}

func (r *messageRepository) Update(ctx context.Context, msg *model.Message) error {
	return GetDB(ctx, r.db).Save(msg).Error
}

func (r *messageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Message{}).Error
}

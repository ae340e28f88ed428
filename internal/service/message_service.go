package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"chatspace/internal/model"
	"chatspace/internal/policy"
	"chatspace/internal/repository"
	"chatspace/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier delivers realtime events to subscribers of a named channel.
// Implemented by the websocket hub.
type Notifier interface {
	BroadcastToChannel(channel string, payload []byte)
}

// --- DTOs ---

type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type UpdateMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

type MessageResponse struct {
	ID         uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"room_id"`
	UserID     uuid.UUID `json:"user_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Content    string    `json:"content"`
	EditedAt   *string   `json:"edited_at,omitempty"`
	CreatedAt  string    `json:"created_at"`
}

// ListMessagesQuery carries the cursor parameters for listing room messages.
type ListMessagesQuery struct {
	Before  string `form:"before" binding:"omitempty,uuid"`
	After   string `form:"after" binding:"omitempty,uuid"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// MessageService handles sending, listing, editing and deleting room messages.
type MessageService interface {
	List(ctx context.Context, viewer *model.User, roomSlug string, q ListMessagesQuery) ([]MessageResponse, error)
	Get(ctx context.Context, viewer *model.User, messageID uuid.UUID) (*MessageResponse, error)
	Send(ctx context.Context, author *model.User, roomSlug string, req SendMessageRequest) (*MessageResponse, error)
	Update(ctx context.Context, actor *model.User, messageID uuid.UUID, req UpdateMessageRequest) (*MessageResponse, error)
	Delete(ctx context.Context, actor *model.User, messageID uuid.UUID) error
	Search(ctx context.Context, viewer *model.User, roomSlug string, query string, p pagination.Params) ([]MessageResponse, int64, error)
}

type messageService struct {
	messages repository.MessageRepository
	rooms    repository.RoomRepository
	roles    repository.RoleRepository
	policy   *policy.RoomPolicy
	notifier Notifier
}

// NewMessageService returns a new instance of MessageService
func NewMessageService(
	messages repository.MessageRepository,
	rooms repository.RoomRepository,
	roles repository.RoleRepository,
	pol *policy.RoomPolicy,
	notifier Notifier,
) MessageService {
	return &messageService{messages: messages, rooms: rooms, roles: roles, policy: pol, notifier: notifier}
}

func toMessageResponse(msg *model.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt.Format(time.RFC3339),
	}
	if msg.User != nil {
		resp.AuthorName = msg.User.Name
	}
	if msg.EditedAt != nil {
		edited := msg.EditedAt.Format(time.RFC3339)
		resp.EditedAt = &edited
	}
	return resp
}

func (s *messageService) roomBySlug(ctx context.Context, roomSlug string) (*model.Room, error) {
	room, err := s.rooms.GetBySlug(ctx, roomSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *messageService) permissionsFor(ctx context.Context, user *model.User) policy.PermissionSet {
	if user == nil {
		return policy.NewPermissionSet(nil)
	}
	codes, err := s.roles.GetPermissionsForUser(ctx, user.ID)
	if err != nil {
		log.Printf("failed to resolve permissions for user %s: %v", user.ID, err)
		return policy.NewPermissionSet(nil)
	}
	return policy.NewPermissionSet(codes)
}

func (s *messageService) List(ctx context.Context, viewer *model.User, roomSlug string, q ListMessagesQuery) ([]MessageResponse, error) {
	room, err := s.roomBySlug(ctx, roomSlug)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanView(ctx, viewer, room) {
		return nil, ErrForbidden
	}

	cursor := repository.MessageCursor{Limit: q.PerPage}
	if cursor.Limit == 0 {
		cursor.Limit = 50
	}
	if q.Before != "" {
		id, err := uuid.Parse(q.Before)
		if err != nil {
			return nil, fmt.Errorf("invalid before cursor: %w", err)
		}
		cursor.Before = &id
	}
	if q.After != "" {
		id, err := uuid.Parse(q.After)
		if err != nil {
			return nil, fmt.Errorf("invalid after cursor: %w", err)
		}
		cursor.After = &id
	}

	messages, err := s.messages.ListByRoom(ctx, room.ID, cursor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	responses := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, *toMessageResponse(&messages[i]))
	}
	return responses, nil
}

func (s *messageService) Get(ctx context.Context, viewer *model.User, messageID uuid.UUID) (*MessageResponse, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, ErrNotFound
	}

	room := msg.Room
	if room == nil {
		room, err = s.rooms.GetByID(ctx, msg.RoomID)
		if err != nil {
			return nil, ErrNotFound
		}
	}

	if !s.policy.CanView(ctx, viewer, room) {
		return nil, ErrForbidden
	}

	return toMessageResponse(msg), nil
}

// Send posts a message to a room. The author must be able to view the room
// and hold the send-messages permission; both checks deny with 403, not 404.
func (s *messageService) Send(ctx context.Context, author *model.User, roomSlug string, req SendMessageRequest) (*MessageResponse, error) {
	room, err := s.roomBySlug(ctx, roomSlug)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanView(ctx, author, room) {
		return nil, ErrForbidden
	}

	perms := s.permissionsFor(ctx, author)
	if !perms.Has(policy.PermSendMessages) {
		return nil, ErrForbidden
	}

	msg := &model.Message{
		RoomID:  room.ID,
		UserID:  author.ID,
		Content: req.Content,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	msg.User = author

	resp := toMessageResponse(msg)
	s.broadcast(room, resp)

	return resp, nil
}

// broadcast publishes a new-message event on the room's channel.
func (s *messageService) broadcast(room *model.Room, msg *MessageResponse) {
	if s.notifier == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event":   "message.sent",
		"channel": "room." + room.Slug,
		"data":    msg,
	})
	if err != nil {
		log.Printf("failed to encode broadcast payload: %v", err)
		return
	}
	s.notifier.BroadcastToChannel("room."+room.Slug, payload)
}

func (s *messageService) Update(ctx context.Context, actor *model.User, messageID uuid.UUID, req UpdateMessageRequest) (*MessageResponse, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, ErrNotFound
	}

	perms := s.permissionsFor(ctx, actor)
	if !policy.CanEditMessage(actor, msg, perms) {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()
	msg.Content = req.Content
	msg.EditedAt = &now

	if err := s.messages.Update(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	return toMessageResponse(msg), nil
}

func (s *messageService) Delete(ctx context.Context, actor *model.User, messageID uuid.UUID) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return ErrNotFound
	}

	perms := s.permissionsFor(ctx, actor)
	if !policy.CanDeleteMessage(actor, msg, perms) {
		return ErrForbidden
	}

	return s.messages.Delete(ctx, msg.ID)
}

func (s *messageService) Search(ctx context.Context, viewer *model.User, roomSlug string, query string, p pagination.Params) ([]MessageResponse, int64, error) {
	room, err := s.roomBySlug(ctx, roomSlug)
	if err != nil {
		return nil, 0, err
	}

	if !s.policy.CanView(ctx, viewer, room) {
		return nil, 0, ErrForbidden
	}

	messages, total, err := s.messages.Search(ctx, room.ID, query, p.Page, p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search messages: %w", err)
	}

	responses := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, *toMessageResponse(&messages[i]))
	}
	return responses, total, nil
}

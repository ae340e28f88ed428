package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatspace/internal/model"
	"chatspace/internal/policy"
	"chatspace/internal/repository"
	"chatspace/pkg/pagination"
	"chatspace/pkg/slug"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description" binding:"max=1000"`
	IsPrivate   bool   `json:"is_private"`
}

type UpdateRoomRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	IsPrivate   *bool   `json:"is_private"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

type RoomResponse struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsPrivate   bool      `json:"is_private"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatorName string    `json:"creator_name,omitempty"`
	MemberCount int64     `json:"member_count"`
	CreatedAt   string    `json:"created_at"`
}

type JoinResponse struct {
	RoomID   uuid.UUID `json:"room_id"`
	UserID   uuid.UUID `json:"user_id"`
	JoinedAt string    `json:"joined_at"`
}

// RoomDefaults holds canonical attributes for find-or-create provisioning.
type RoomDefaults struct {
	Name        string
	Description string
	IsPrivate   bool
	CreatedBy   uuid.UUID
}

// RoomService owns the room lifecycle: creation with the creator-membership
// invariant, slug-based provisioning, and policy-gated mutations.
type RoomService interface {
	ListRooms(ctx context.Context, userID *uuid.UUID, p pagination.Params) ([]RoomResponse, int64, error)
	GetRoom(ctx context.Context, viewer *model.User, slugOrID string) (*RoomResponse, error)
	CreateRoom(ctx context.Context, creator *model.User, req CreateRoomRequest) (*RoomResponse, error)
	UpdateRoom(ctx context.Context, actor *model.User, roomSlug string, req UpdateRoomRequest) (*RoomResponse, error)
	DeleteRoom(ctx context.Context, actor *model.User, roomSlug string) error
	Join(ctx context.Context, actor *model.User, roomSlug string) (*JoinResponse, error)
	AddMember(ctx context.Context, actor *model.User, roomSlug string, memberID uuid.UUID) (bool, error)
	Leave(ctx context.Context, actor *model.User, roomSlug string) error
	ListMembers(ctx context.Context, viewer *model.User, roomSlug string, p pagination.Params) ([]repository.Member, int64, error)
	MyPrivateRooms(ctx context.Context, userID uuid.UUID) ([]RoomResponse, error)
	EnsureMembership(ctx context.Context, room *model.Room, userID uuid.UUID) error
	FindOrCreateBySlug(ctx context.Context, roomSlug string, defaults RoomDefaults) (*model.Room, error)
	GetBySlug(ctx context.Context, roomSlug string) (*model.Room, error)
	Policy() *policy.RoomPolicy
}

type roomService struct {
	rooms   repository.RoomRepository
	members repository.MembershipRepository
	policy  *policy.RoomPolicy
	txm     repository.TransactionManager
}

// NewRoomService returns a new instance of RoomService
func NewRoomService(
	rooms repository.RoomRepository,
	members repository.MembershipRepository,
	pol *policy.RoomPolicy,
	txm repository.TransactionManager,
) RoomService {
	return &roomService{rooms: rooms, members: members, policy: pol, txm: txm}
}

func (s *roomService) Policy() *policy.RoomPolicy {
	return s.policy
}

func (s *roomService) toResponse(ctx context.Context, room *model.Room) *RoomResponse {
	count, err := s.members.CountMembers(ctx, room.ID)
	if err != nil {
		count = 0
	}
	resp := &RoomResponse{
		ID:          room.ID,
		Slug:        room.Slug,
		Name:        room.Name,
		Description: room.Description,
		IsPrivate:   room.IsPrivate,
		CreatedBy:   room.CreatedBy,
		MemberCount: count,
		CreatedAt:   room.CreatedAt.Format(time.RFC3339),
	}
	if room.Creator != nil {
		resp.CreatorName = room.Creator.Name
	}
	return resp
}

func (s *roomService) ListRooms(ctx context.Context, userID *uuid.UUID, p pagination.Params) ([]RoomResponse, int64, error) {
	rooms, total, err := s.rooms.ListVisible(ctx, userID, p.Page, p.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rooms: %w", err)
	}

	responses := make([]RoomResponse, 0, len(rooms))
	for i := range rooms {
		responses = append(responses, *s.toResponse(ctx, &rooms[i]))
	}
	return responses, total, nil
}

func (s *roomService) GetBySlug(ctx context.Context, roomSlug string) (*model.Room, error) {
	room, err := s.rooms.GetBySlug(ctx, roomSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, viewer *model.User, slugOrID string) (*RoomResponse, error) {
	room, err := s.GetBySlug(ctx, slugOrID)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanView(ctx, viewer, room) {
		return nil, ErrForbidden
	}

	return s.toResponse(ctx, room), nil
}

// CreateRoom persists a new room and immediately records the creator as a
// member, keeping the "creator is always a member" invariant within one
// transaction.
func (s *roomService) CreateRoom(ctx context.Context, creator *model.User, req CreateRoomRequest) (*RoomResponse, error) {
	if !s.policy.CanCreate(creator) {
		return nil, ErrForbidden
	}

	room := &model.Room{
		Slug:        slug.WithSuffix(req.Name),
		Name:        req.Name,
		Description: req.Description,
		IsPrivate:   req.IsPrivate,
		CreatedBy:   creator.ID,
	}

	err := s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.rooms.Create(txCtx, room); err != nil {
			return fmt.Errorf("failed to create room: %w", err)
		}
		return s.members.AddMember(txCtx, room.ID, creator.ID, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	return s.toResponse(ctx, room), nil
}

func (s *roomService) UpdateRoom(ctx context.Context, actor *model.User, roomSlug string, req UpdateRoomRequest) (*RoomResponse, error) {
	room, err := s.GetBySlug(ctx, roomSlug)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanUpdate(actor, room) {
		return nil, ErrForbidden
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Description != nil {
		room.Description = *req.Description
	}
	if req.IsPrivate != nil {
		room.IsPrivate = *req.IsPrivate
	}

	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	return s.toResponse(ctx, room), nil
}

func (s *roomService) DeleteRoom(ctx context.Context, actor *model.User, roomSlug string) error {
	room, err := s.GetBySlug(ctx, roomSlug)
	if err != nil {
		return err
	}

	if !s.policy.CanDelete(actor, room) {
		return ErrForbidden
	}

	return s.rooms.Delete(ctx, room.ID)
}

// Join adds the caller to a room they can view. Joining twice is a no-op.
func (s *roomService) Join(ctx context.Context, actor *model.User, roomSlug string) (*JoinResponse, error) {
	room, err := s.GetBySlug(ctx, roomSlug)
	if err != nil {
		return nil, err
	}

	if !s.policy.CanView(ctx, actor, room) {
		return nil, ErrForbidden
	}

	joinedAt := time.Now().UTC()
	if err := s.members.AddMember(ctx, room.ID, actor.ID, joinedAt); err != nil {
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	return &JoinResponse{
		RoomID:   room.ID,
		UserID:   actor.ID,
		JoinedAt: joinedAt.Format(time.RFC3339),
	}, nil
}

// AddMember adds another user to the room. Returns false when the user was
// already a member.
func (s *roomService) AddMember(ctx context.Context, actor *model.User, roomSlug string, memberID uuid.UUID) (bool, error) {
	room, err := s.GetBySlug(ctx, roomSlug)
	if err != nil {
		return false, err
	}

	if !s.policy.CanAddMember(actor, room) {
		return false, ErrForbidden
	}

	already, err := s.members.IsMember(ctx, room.ID, memberID)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	if err := s.members.AddMember(ctx, room.ID, memberID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("failed to add member: %w", err)
	}
	return true, nil
}

func (s *roomService) Leave(ctx context.Context, actor *model.User, roomSlug string) error {
	room, err := s.GetBySlug(ctx, roomSlug)
	if err != nil {
		return err
	}

	if !s.policy.CanLeave(ctx, actor, room) {
		return ErrForbidden
	}

	return s.members.RemoveMember(ctx, room.ID, actor.ID)
}

func (s *roomService) ListMembers(ctx context.Context, viewer *model.User, roomSlug string, p pagination.Params) ([]repository.Member, int64, error) {
	room, err := s.GetBySlug(ctx, roomSlug)
	if err != nil {
		return nil, 0, err
	}

	if !s.policy.CanView(ctx, viewer, room) {
		return nil, 0, ErrForbidden
	}

	return s.members.ListMembers(ctx, room.ID, p.Page, p.Limit)
}

func (s *roomService) MyPrivateRooms(ctx context.Context, userID uuid.UUID) ([]RoomResponse, error) {
	rooms, err := s.rooms.ListPrivateForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list private rooms: %w", err)
	}

	responses := make([]RoomResponse, 0, len(rooms))
	for i := range rooms {
		responses = append(responses, *s.toResponse(ctx, &rooms[i]))
	}
	return responses, nil
}

// EnsureMembership guarantees both the room's creator and the given user are
// members. Safe to call repeatedly: the underlying insert is conflict-free.
func (s *roomService) EnsureMembership(ctx context.Context, room *model.Room, userID uuid.UUID) error {
	now := time.Now().UTC()
	if err := s.members.AddMember(ctx, room.ID, room.CreatedBy, now); err != nil {
		return fmt.Errorf("failed to ensure creator membership: %w", err)
	}
	if userID != room.CreatedBy {
		if err := s.members.AddMember(ctx, room.ID, userID, now); err != nil {
			return fmt.Errorf("failed to ensure user membership: %w", err)
		}
	}
	return nil
}

// FindOrCreateBySlug looks a room up by slug, creating it from defaults when
// absent. When the room exists but its tracked fields drifted from the
// canonical defaults (external integrations reuse deterministic slugs with
// varying payloads), the canonical values win and the row is updated.
func (s *roomService) FindOrCreateBySlug(ctx context.Context, roomSlug string, defaults RoomDefaults) (*model.Room, error) {
	room, err := s.rooms.GetBySlug(ctx, roomSlug)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		room = &model.Room{
			Slug:        roomSlug,
			Name:        defaults.Name,
			Description: defaults.Description,
			IsPrivate:   defaults.IsPrivate,
			CreatedBy:   defaults.CreatedBy,
		}
		err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.rooms.Create(txCtx, room); err != nil {
				return err
			}
			return s.members.AddMember(txCtx, room.ID, room.CreatedBy, time.Now().UTC())
		})
		if err == nil {
			return room, nil
		}
		// A concurrent create won the slug race; fall through to the lookup.
		room, err = s.rooms.GetBySlug(ctx, roomSlug)
		if err != nil {
			return nil, err
		}
	}

	if room.Name != defaults.Name || room.Description != defaults.Description {
		room.Name = defaults.Name
		room.Description = defaults.Description
		if err := s.rooms.Update(ctx, room); err != nil {
			return nil, fmt.Errorf("failed to reconcile room: %w", err)
		}
	}

	return room, nil
}

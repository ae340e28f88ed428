package service

import (
	"context"
	"strings"

	"chatspace/internal/model"
	"chatspace/internal/policy"
	"chatspace/internal/repository"
)

// ChannelService authorizes broadcast-channel subscriptions. Channel names
// bind either a room ("room.{slug}", "room.{slug}.presence") or a single
// user ("user.{id}"); room channels delegate to the room access policy.
type ChannelService interface {
	Authorize(ctx context.Context, user *model.User, channel string) bool
}

type channelService struct {
	rooms  repository.RoomRepository
	policy *policy.RoomPolicy
}

// NewChannelService returns a new instance of ChannelService
func NewChannelService(rooms repository.RoomRepository, pol *policy.RoomPolicy) ChannelService {
	return &channelService{rooms: rooms, policy: pol}
}

func (s *channelService) Authorize(ctx context.Context, user *model.User, channel string) bool {
	switch {
	case strings.HasPrefix(channel, "room."):
		slugPart := strings.TrimPrefix(channel, "room.")
		slugPart = strings.TrimSuffix(slugPart, ".presence")
		if slugPart == "" {
			return false
		}

		// Missing rooms and lookup failures both read as denied.
		room, err := s.rooms.GetBySlug(ctx, slugPart)
		if err != nil {
			return false
		}
		return s.policy.CanView(ctx, user, room)

	case strings.HasPrefix(channel, "user."):
		if user == nil {
			return false
		}
		return strings.TrimPrefix(channel, "user.") == user.ID.String()

	default:
		return false
	}
}

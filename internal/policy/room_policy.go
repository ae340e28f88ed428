// Package policy decides what a user may do with a room. Predicates return
// plain booleans: a denial is false, never an error, and callers map denials
// to 403 responses.
package policy

import (
	"context"

	"chatspace/internal/model"

	"github.com/google/uuid"
)

// MembershipChecker answers whether a user belongs to a room. Lookup
// failures read as "not a member" so policy decisions stay error-free.
type MembershipChecker interface {
	IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

// RoomPolicy evaluates room access predicates against room attributes and
// the membership store.
type RoomPolicy struct {
	members MembershipChecker
}

func NewRoomPolicy(members MembershipChecker) *RoomPolicy {
	return &RoomPolicy{members: members}
}

// CanView reports whether user may see the room and its contents.
// Admin and master roles bypass privacy; public rooms are visible to
// everyone including anonymous callers (user == nil); private rooms require
// membership.
func (p *RoomPolicy) CanView(ctx context.Context, user *model.User, room *model.Room) bool {
	if user.HasAnyRole(model.RoleMaster, model.RoleAdmin) {
		return true
	}
	if !room.IsPrivate {
		return true
	}
	if user == nil {
		return false
	}
	return p.isMember(ctx, room.ID, user.ID)
}

// CanUpdate is owner-only: no role grants an override.
func (p *RoomPolicy) CanUpdate(user *model.User, room *model.Room) bool {
	return user != nil && user.ID == room.CreatedBy
}

// CanDelete is owner-only, matching CanUpdate.
func (p *RoomPolicy) CanDelete(user *model.User, room *model.Room) bool {
	return user != nil && user.ID == room.CreatedBy
}

// CanAddMember allows the room's creator, or a master-role holder.
func (p *RoomPolicy) CanAddMember(user *model.User, room *model.Room) bool {
	if user == nil {
		return false
	}
	return user.HasRole(model.RoleMaster) || user.ID == room.CreatedBy
}

// CanLeave allows members who are not the creator. The creator cannot leave
// the room they own (they delete it instead), but a master-role holder may
// leave regardless, as an administrative escape hatch.
func (p *RoomPolicy) CanLeave(ctx context.Context, user *model.User, room *model.Room) bool {
	if user == nil {
		return false
	}
	if user.HasRole(model.RoleMaster) {
		return true
	}
	if user.ID == room.CreatedBy {
		return false
	}
	return p.isMember(ctx, room.ID, user.ID)
}

// CanCreate: any authenticated user may create rooms.
func (p *RoomPolicy) CanCreate(user *model.User) bool {
	return user != nil
}

func (p *RoomPolicy) isMember(ctx context.Context, roomID, userID uuid.UUID) bool {
	ok, err := p.members.IsMember(ctx, roomID, userID)
	if err != nil {
		return false
	}
	return ok
}

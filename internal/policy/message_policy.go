package policy

import (
	"chatspace/internal/model"
)

// Permission codes used by the message predicates.
const (
	PermSendMessages     = "send-messages"
	PermCreateRooms      = "create-rooms"
	PermLeaveRoom        = "leave-room"
	PermDeleteAnyMessage = "delete-any-message"
	PermEditAnyMessage   = "edit-any-message"
	PermDeleteAnyRoom    = "delete-any-room"
	PermAddMemberRoom    = "add-member-room"
)

// PermissionSet is a user's effective permission codes.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from a list of codes.
func NewPermissionSet(codes []string) PermissionSet {
	set := make(PermissionSet, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the given code.
func (s PermissionSet) Has(code string) bool {
	_, ok := s[code]
	return ok
}

// CanEditMessage allows the author, or a holder of edit-any-message.
func CanEditMessage(user *model.User, msg *model.Message, perms PermissionSet) bool {
	if user == nil {
		return false
	}
	return user.ID == msg.UserID || perms.Has(PermEditAnyMessage)
}

// CanDeleteMessage allows the author, or a holder of delete-any-message.
func CanDeleteMessage(user *model.User, msg *model.Message, perms PermissionSet) bool {
	if user == nil {
		return false
	}
	return user.ID == msg.UserID || perms.Has(PermDeleteAnyMessage)
}

package domain

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserInactive    = errors.New("user is not active")
	ErrUserUnverified  = errors.New("user is not verified")
	ErrRoomNotFound    = errors.New("room not found")
	ErrNotAMember      = errors.New("user is not a member of the room")
	ErrMessageNotFound = errors.New("message not found")
	ErrTooFewMembers   = errors.New("room must have at least two members")
	ErrDuplicateMember = errors.New("room members must be unique")
)

package chat

import "errors"

// Stable error kinds surfaced by the room registry, message pipeline and
// notification quick-reply path. Handlers map these to HTTP statuses.
var (
	ErrNotAMember              = errors.New("not a member of this chatroom")
	ErrBlockedMember           = errors.New("a blocked user is a member of this chatroom")
	ErrSelfConversation        = errors.New("cannot open a direct conversation with yourself")
	ErrRoomNotFound            = errors.New("chatroom not found")
	ErrRoomFull                = errors.New("chatroom member limit exceeded")
	ErrForbidden               = errors.New("not allowed")
	ErrValidation              = errors.New("invalid input")
	ErrUnsupportedNotification = errors.New("notification does not support quick replies")
)

package coaching

import "errors"

var (
	// ErrConversationClosed is returned when messaging a completed conversation.
	ErrConversationClosed = errors.New("conversation is already completed")

	// ErrEmptyMessage is returned for blank user messages.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNothingToReport is returned when a conversation has no user turns.
	ErrNothingToReport = errors.New("conversation has no user messages to report on")

	// ErrMissingUser is returned when a session is started without a user id.
	ErrMissingUser = errors.New("user id is required")
)

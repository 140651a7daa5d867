package chat

import "errors"

// Join errors. These are reported to the client and the connection stays usable.
var (
	ErrInvalidUsername = errors.New("invalid username")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrAlreadyJoined   = errors.New("connection already joined")
)

// Message errors. Messages failing these checks are dropped.
var (
	ErrEmptyText          = errors.New("message text cannot be empty")
	ErrMissingPhotoURL    = errors.New("photo message requires a photo url")
	ErrUnknownMessageKind = errors.New("unknown message type")
	ErrMessageTooLong     = errors.New("message exceeds maximum length")
)

package chat

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Username and history limits.
const (
	MinUsernameLength = 2
	MaxUsernameLength = 20

	DefaultMaxMessages      = 1000
	DefaultHistoryReplay    = 50
	DefaultMaxMessageLength = 5000
)

// Timestamp layouts used on the wire.
const (
	// MessageTimeLayout is the human readable time shown next to a message.
	MessageTimeLayout = "03:04 PM"
	// PresenceTimeLayout is used for join and leave notices.
	PresenceTimeLayout = "15:04:05"
	// FullTimestampLayout is fixed width so that values sort lexically.
	FullTimestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// MessageKind discriminates text and photo messages.
type MessageKind string

const (
	KindText  MessageKind = "text"
	KindPhoto MessageKind = "photo"
)

// ParseMessageKind maps a wire value onto a MessageKind. An empty value is
// treated as text.
func ParseMessageKind(s string) (MessageKind, error) {
	switch MessageKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindText:
		return KindText, nil
	case KindPhoto:
		return KindPhoto, nil
	default:
		return "", ErrUnknownMessageKind
	}
}

// Participant is a connection that has joined the chat under a username.
type Participant struct {
	ConnectionID string    `json:"-"`
	Username     string    `json:"username"`
	JoinedAt     time.Time `json:"joined_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// PresenceEntry is the public view of a participant in the user list.
type PresenceEntry struct {
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message represents a chat message. Values are immutable once built with
// NewTextMessage or NewPhotoMessage.
type Message struct {
	ID            string      `json:"id"`
	Username      string      `json:"username"`
	Text          string      `json:"message"`
	Kind          MessageKind `json:"type"`
	PhotoURL      string      `json:"photo_url,omitempty"`
	Timestamp     string      `json:"timestamp"`
	FullTimestamp string      `json:"full_timestamp"`
}

// NewTextMessage builds a text message. The text must not be blank.
func NewTextMessage(id, username, text string, local, full time.Time) (Message, error) {
	if strings.TrimSpace(text) == "" {
		return Message{}, ErrEmptyText
	}
	return Message{
		ID:            id,
		Username:      username,
		Text:          text,
		Kind:          KindText,
		Timestamp:     local.Format(MessageTimeLayout),
		FullTimestamp: full.UTC().Format(FullTimestampLayout),
	}, nil
}

// NewPhotoMessage builds a photo message. The caption may be empty, the URL
// may not.
func NewPhotoMessage(id, username, caption, photoURL string, local, full time.Time) (Message, error) {
	if strings.TrimSpace(photoURL) == "" {
		return Message{}, ErrMissingPhotoURL
	}
	return Message{
		ID:            id,
		Username:      username,
		Text:          caption,
		Kind:          KindPhoto,
		PhotoURL:      photoURL,
		Timestamp:     local.Format(MessageTimeLayout),
		FullTimestamp: full.UTC().Format(FullTimestampLayout),
	}, nil
}

// ValidateUsername checks the length bounds of an already trimmed username.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return ErrInvalidUsername
	}
	if !utf8.ValidString(username) {
		return ErrInvalidUsername
	}
	return nil
}

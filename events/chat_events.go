package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// ParticipantJoinedEvent is emitted when a connection joins the chat under a username.
type ParticipantJoinedEvent struct {
	Username  string    `json:"username"`
	UserCount int       `json:"user_count"`
	Timestamp time.Time `json:"timestamp"`
}

// ParticipantLeftEvent is emitted when a joined participant leaves or disconnects.
type ParticipantLeftEvent struct {
	Username  string    `json:"username"`
	UserCount int       `json:"user_count"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagePostedEvent is emitted after a message has been recorded in history.
type MessagePostedEvent struct {
	MessageID string    `json:"message_id"`
	Username  string    `json:"username"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	ParticipantJoinedV1 = helper.EventDefinition[ParticipantJoinedEvent](
		"chat",
		"ParticipantJoined",
		"v1",
	)

	ParticipantLeftV1 = helper.EventDefinition[ParticipantLeftEvent](
		"chat",
		"ParticipantLeft",
		"v1",
	)

	MessagePostedV1 = helper.EventDefinition[MessagePostedEvent](
		"chat",
		"MessagePosted",
		"v1",
	)
)

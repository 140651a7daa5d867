package chat

import (
	"encoding/json"

	domain "github.com/example/chatnest/domain/chat"
)

// EventType names an event in the WebSocket envelope.
type EventType string

// Events sent to clients.
const (
	EventConnectionEstablished EventType = "connection_established"
	EventJoinError             EventType = "join_error"
	EventJoinSuccess           EventType = "join_success"
	EventUserJoined            EventType = "user_joined"
	EventUserLeft              EventType = "user_left"
	EventUpdateUsers           EventType = "update_users"
	EventMessageHistory        EventType = "message_history"
	EventNewMessage            EventType = "new_message"
	EventUserTyping            EventType = "user_typing"
)

// Events received from clients.
const (
	EventJoin         EventType = "join"
	EventSendMessage  EventType = "send_message"
	EventTyping       EventType = "typing"
	EventLeave        EventType = "leave"
	EventRequestUsers EventType = "request_users"
)

// Event is an outbound envelope pushed to a Channel.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`

	encoded []byte
}

// Encode returns a copy of e that carries its JSON encoding, so that
// channels sharing the event do not encode it again.
func (e Event) Encode() (Event, error) {
	if e.encoded != nil {
		return e, nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return e, err
	}
	e.encoded = data
	return e, nil
}

// JSON returns the wire encoding of e. The returned slice must not be modified.
func (e Event) JSON() ([]byte, error) {
	if e.encoded != nil {
		return e.encoded, nil
	}
	return json.Marshal(e)
}

// ConnectionEstablishedPayload is sent to a connection right after it opens.
type ConnectionEstablishedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// JoinErrorPayload explains why a join was rejected.
type JoinErrorPayload struct {
	Error string `json:"error"`
}

// JoinSuccessPayload confirms a join to the requester.
type JoinSuccessPayload struct {
	Username  string `json:"username"`
	UserCount int    `json:"user_count"`
}

// PresenceChangePayload is the payload of user_joined and user_left.
type PresenceChangePayload struct {
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	UserCount int    `json:"user_count"`
}

// UpdateUsersPayload carries the current presence list.
type UpdateUsersPayload struct {
	Users []domain.PresenceEntry `json:"users"`
	Count int                    `json:"count"`
}

// MessageHistoryPayload carries the replay sent to a new participant.
type MessageHistoryPayload struct {
	Messages []domain.Message `json:"messages"`
}

// UserTypingPayload reports a typing indicator change.
type UserTypingPayload struct {
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// JoinRequest is the payload of an inbound join event.
type JoinRequest struct {
	Username string `json:"username"`
}

// SendMessageRequest is the payload of an inbound send_message event.
type SendMessageRequest struct {
	Message  string `json:"message"`
	Type     string `json:"type"`
	PhotoURL string `json:"photo_url"`
}

// TypingRequest is the payload of an inbound typing event.
type TypingRequest struct {
	IsTyping *bool `json:"is_typing" validate:"required"`
}

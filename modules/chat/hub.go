package chat

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"

	domain "github.com/example/chatnest/domain/chat"
)

type connState int

const (
	stateConnected connState = iota
	stateJoined
)

// connection is the Hub's view of one live transport connection.
// A closed connection is removed from the Hub entirely.
type connection struct {
	ch       Channel
	state    connState
	username string
}

// Observer is notified of chat activity after the Hub has released its lock.
type Observer interface {
	ParticipantJoined(p domain.Participant, userCount int)
	ParticipantLeft(p domain.Participant, userCount int, leftAt time.Time)
	MessagePosted(msg domain.Message)
}

// Hub coordinates presence, history and fan-out for every connection.
// All handlers are serialized by a single mutex, so each channel observes
// events in the order the Hub processed them.
type Hub struct {
	mu       sync.Mutex
	conns    map[string]*connection
	registry *Registry
	history  *History

	replay       int
	maxMsgLength int
	censor       Censor
	observer     Observer
	now          func() time.Time
	newID        func() string
	lastFull     time.Time

	logger types.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHistoryReplay sets how many messages are replayed to a new participant.
func WithHistoryReplay(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.replay = n
		}
	}
}

// WithMaxMessageLength sets the maximum text length in runes.
func WithMaxMessageLength(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.maxMsgLength = n
		}
	}
}

// WithCensor sets the text censor applied before messages are recorded.
func WithCensor(c Censor) HubOption {
	return func(h *Hub) { h.censor = c }
}

// WithObserver registers an activity observer.
func WithObserver(o Observer) HubOption {
	return func(h *Hub) { h.observer = o }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) HubOption {
	return func(h *Hub) {
		h.now = now
		h.registry.now = now
	}
}

// WithIDGenerator overrides message ID generation.
func WithIDGenerator(newID func() string) HubOption {
	return func(h *Hub) { h.newID = newID }
}

// NewHub creates a Hub whose history holds at most maxMessages messages.
func NewHub(maxMessages int, logger types.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		conns:        make(map[string]*connection),
		registry:     NewRegistry(),
		history:      NewHistory(maxMessages),
		replay:       domain.DefaultHistoryReplay,
		maxMsgLength: domain.DefaultMaxMessageLength,
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// serialize runs fn under the hub lock, then runs the follow-up it returns.
func (h *Hub) serialize(fn func() func()) {
	var after func()
	func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		after = fn()
	}()
	if after != nil {
		after()
	}
}

// OnConnect makes ch addressable and greets it with its connection ID.
func (h *Hub) OnConnect(ch Channel) {
	h.serialize(func() func() {
		id := ch.ID()
		if _, exists := h.conns[id]; exists {
			h.logger.Warn("Duplicate connect ignored", "connectionID", id)
			return nil
		}
		conn := &connection{ch: ch, state: stateConnected}
		h.conns[id] = conn
		h.push(conn, Event{
			Type:    EventConnectionEstablished,
			Payload: ConnectionEstablishedPayload{ConnectionID: id},
		})
		h.logger.Debug("Connection established", "connectionID", id)
		return nil
	})
}

// OnJoin registers ch under username and announces it to everyone.
func (h *Hub) OnJoin(ch Channel, username string) {
	h.serialize(func() func() {
		conn, ok := h.conns[ch.ID()]
		if !ok {
			return nil
		}

		p, err := h.registry.TryRegister(ch.ID(), username)
		if err != nil {
			h.logger.Debug("Join rejected", "connectionID", ch.ID(), "error", err)
			h.push(conn, Event{Type: EventJoinError, Payload: JoinErrorPayload{Error: joinErrorMessage(err)}})
			return nil
		}

		conn.state = stateJoined
		conn.username = p.Username
		count := h.registry.Count()

		h.broadcast(Event{
			Type: EventUserJoined,
			Payload: PresenceChangePayload{
				Username:  p.Username,
				Timestamp: p.JoinedAt.Format(domain.PresenceTimeLayout),
				UserCount: count,
			},
		}, "")
		h.broadcast(h.updateUsersEvent(), "")
		h.push(conn, Event{
			Type:    EventMessageHistory,
			Payload: MessageHistoryPayload{Messages: h.history.LastN(h.replay)},
		})
		h.push(conn, Event{
			Type:    EventJoinSuccess,
			Payload: JoinSuccessPayload{Username: p.Username, UserCount: count},
		})

		h.logger.Info("Participant joined", "username", p.Username, "connectionID", ch.ID(), "userCount", count)
		return func() {
			if h.observer != nil {
				h.observer.ParticipantJoined(p, count)
			}
		}
	})
}

// OnMessage validates, records and broadcasts a message from a joined connection.
func (h *Hub) OnMessage(ch Channel, req SendMessageRequest) {
	h.serialize(func() func() {
		conn, ok := h.conns[ch.ID()]
		if !ok || conn.state != stateJoined {
			return nil
		}

		msg, err := h.buildMessage(conn.username, req)
		if err != nil {
			h.logger.Warn("Dropping invalid message", "username", conn.username, "error", err)
			return nil
		}

		h.registry.Touch(ch.ID())
		h.history.Append(msg)
		h.broadcast(Event{Type: EventNewMessage, Payload: msg}, "")

		h.logger.Debug("Message posted", "username", msg.Username, "messageID", msg.ID, "kind", msg.Kind)
		return func() {
			if h.observer != nil {
				h.observer.MessagePosted(msg)
			}
		}
	})
}

// OnTyping relays a typing indicator to every joined connection except the sender.
func (h *Hub) OnTyping(ch Channel, isTyping bool) {
	h.serialize(func() func() {
		conn, ok := h.conns[ch.ID()]
		if !ok || conn.state != stateJoined {
			return nil
		}
		h.broadcast(Event{
			Type:    EventUserTyping,
			Payload: UserTypingPayload{Username: conn.username, IsTyping: isTyping},
		}, ch.ID())
		return nil
	})
}

// OnRequestUsers sends the current presence list to ch only.
func (h *Hub) OnRequestUsers(ch Channel) {
	h.serialize(func() func() {
		conn, ok := h.conns[ch.ID()]
		if !ok {
			return nil
		}
		h.push(conn, h.updateUsersEvent())
		return nil
	})
}

// OnLeave closes the session of ch. Later events from ch are ignored.
func (h *Hub) OnLeave(ch Channel) {
	h.serialize(func() func() { return h.close(ch.ID(), "leave") })
}

// OnDisconnect closes the session of ch after the transport went away.
// It is a no-op when ch already left.
func (h *Hub) OnDisconnect(ch Channel) {
	h.serialize(func() func() { return h.close(ch.ID(), "disconnect") })
}

func (h *Hub) close(id, reason string) func() {
	if _, ok := h.conns[id]; !ok {
		return nil
	}
	delete(h.conns, id)

	p, ok := h.registry.Remove(id)
	if !ok {
		h.logger.Debug("Connection closed before joining", "connectionID", id, "reason", reason)
		return nil
	}

	count := h.registry.Count()
	leftAt := h.now()
	h.broadcast(Event{
		Type: EventUserLeft,
		Payload: PresenceChangePayload{
			Username:  p.Username,
			Timestamp: leftAt.Format(domain.PresenceTimeLayout),
			UserCount: count,
		},
	}, "")
	h.broadcast(h.updateUsersEvent(), "")

	h.logger.Info("Participant left", "username", p.Username, "connectionID", id, "reason", reason, "userCount", count)
	return func() {
		if h.observer != nil {
			h.observer.ParticipantLeft(p, count, leftAt)
		}
	}
}

// Users returns the current presence snapshot.
func (h *Hub) Users() []domain.PresenceEntry {
	return h.registry.Snapshot()
}

// History returns up to n of the most recent messages.
func (h *Hub) History(n int) []domain.Message {
	return h.history.LastN(n)
}

// HistoryLimit returns the maximum number of messages kept.
func (h *Hub) HistoryLimit() int {
	return h.history.Limit()
}

// MessageCount returns the number of messages in history.
func (h *Hub) MessageCount() int {
	return h.history.Len()
}

// UserCount returns the number of joined participants.
func (h *Hub) UserCount() int {
	return h.registry.Count()
}

// ConnectionCount returns the number of open connections, joined or not.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) buildMessage(username string, req SendMessageRequest) (domain.Message, error) {
	kind, err := domain.ParseMessageKind(req.Type)
	if err != nil {
		return domain.Message{}, err
	}

	text := strings.TrimSpace(req.Message)
	photoURL := strings.TrimSpace(req.PhotoURL)
	if kind == domain.KindPhoto && photoURL == "" {
		// Older clients send the photo URL in the message field.
		photoURL, text = text, ""
	}
	if utf8.RuneCountInString(text) > h.maxMsgLength {
		return domain.Message{}, domain.ErrMessageTooLong
	}
	if h.censor != nil && text != "" {
		text = h.censor.Censor(text)
	}

	local, full := h.timestamps()
	if kind == domain.KindPhoto {
		return domain.NewPhotoMessage(h.newID(), username, text, photoURL, local, full)
	}
	return domain.NewTextMessage(h.newID(), username, text, local, full)
}

// timestamps returns the wall clock time and a full timestamp that is
// strictly greater than any previously issued one.
func (h *Hub) timestamps() (time.Time, time.Time) {
	local := h.now()
	full := local.UTC()
	if !full.After(h.lastFull) {
		full = h.lastFull.Add(time.Nanosecond)
	}
	h.lastFull = full
	return local, full
}

func (h *Hub) updateUsersEvent() Event {
	users := h.registry.Snapshot()
	return Event{
		Type:    EventUpdateUsers,
		Payload: UpdateUsersPayload{Users: users, Count: len(users)},
	}
}

// broadcast pushes evt to every joined connection except excludeID.
// The event is encoded once for all recipients.
func (h *Hub) broadcast(evt Event, excludeID string) {
	evt, err := evt.Encode()
	if err != nil {
		h.logger.Error("Failed to encode event", "event", evt.Type, "error", err)
		return
	}
	for id, conn := range h.conns {
		if conn.state != stateJoined || id == excludeID {
			continue
		}
		h.push(conn, evt)
	}
}

func (h *Hub) push(conn *connection, evt Event) {
	if !conn.ch.Alive() {
		h.logger.Debug("Skipping push to closed channel", "connectionID", conn.ch.ID(), "event", evt.Type)
		return
	}
	if err := conn.ch.Push(evt); err != nil {
		h.logger.Warn("Failed to push event", "connectionID", conn.ch.ID(), "event", evt.Type, "error", err)
	}
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidUsername):
		return "Username must be between 2 and 20 characters"
	case errors.Is(err, domain.ErrUsernameTaken):
		return "Username is already taken"
	case errors.Is(err, domain.ErrAlreadyJoined):
		return "You have already joined the chat"
	default:
		return "Unable to join"
	}
}

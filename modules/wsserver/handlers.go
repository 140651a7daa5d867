package wsserver

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/example/chatnest/modules/broadcast"
	"github.com/example/chatnest/modules/chat"
)

// Defaults used when Settings leaves a field unset.
const (
	defaultSendQueueSize     = 256
	defaultMessagesPerSecond = 10
	defaultMessageBurst      = 20
	defaultMaxFrameBytes     = 1 << 20
)

// Envelope is the wire format of every inbound WebSocket frame.
type Envelope struct {
	Type    chat.EventType  `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Hub is the set of chat handlers a session dispatches to.
type Hub interface {
	OnConnect(ch chat.Channel)
	OnJoin(ch chat.Channel, username string)
	OnMessage(ch chat.Channel, req chat.SendMessageRequest)
	OnTyping(ch chat.Channel, isTyping bool)
	OnLeave(ch chat.Channel)
	OnRequestUsers(ch chat.Channel)
	OnDisconnect(ch chat.Channel)
}

// Tracker keeps the set of open clients so they can be closed on shutdown.
type Tracker interface {
	Add(conn broadcast.Conn) bool
	Remove(id string)
}

// Settings configures WebSocket sessions.
type Settings struct {
	SendQueueSize     int
	PingInterval      time.Duration
	MessagesPerSecond float64
	MessageBurst      int
	MaxFrameBytes     int64
}

// Handler serves WebSocket connections for the chat.
type Handler struct {
	hub      Hub
	clients  Tracker
	settings Settings
	validate *validator.Validate
	logger   types.Logger
	newID    func() string
}

// NewHandler creates a new WebSocket handler.
func NewHandler(hub Hub, clients Tracker, settings Settings, logger types.Logger) *Handler {
	if settings.SendQueueSize <= 0 {
		settings.SendQueueSize = defaultSendQueueSize
	}
	if settings.MessagesPerSecond <= 0 {
		settings.MessagesPerSecond = defaultMessagesPerSecond
	}
	if settings.MessageBurst <= 0 {
		settings.MessageBurst = defaultMessageBurst
	}
	if settings.MaxFrameBytes <= 0 {
		settings.MaxFrameBytes = defaultMaxFrameBytes
	}
	return &Handler{
		hub:      hub,
		clients:  clients,
		settings: settings,
		validate: validator.New(),
		logger:   logger,
		newID:    uuid.NewString,
	}
}

// Serve runs one WebSocket connection until it closes.
func (h *Handler) Serve(conn *websocket.Conn) {
	client := NewClient(h.newID(), conn, h.settings.SendQueueSize, h.settings.PingInterval, h.logger)
	if h.clients != nil && !h.clients.Add(client) {
		h.logger.Warn("Rejecting WebSocket connection during shutdown", "connectionID", client.ID())
		_ = client.Close()
		return
	}

	s := h.newSession(client)
	go client.WritePump()

	// The connection is recycled once Serve returns, so the writer must
	// be gone by then.
	defer func() {
		s.disconnect()
		client.Wait()
	}()

	conn.SetReadLimit(h.settings.MaxFrameBytes)
	if h.settings.PingInterval > 0 {
		pongWait := h.settings.PingInterval * 2
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
	}

	h.logger.Info("WebSocket connected", "connectionID", client.ID())
	h.hub.OnConnect(client)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", "connectionID", client.ID(), "error", err)
			}
			break
		}
		s.dispatch(data)
	}

	h.logger.Info("WebSocket disconnected", "connectionID", client.ID())
}

// session carries the per-connection state of the read loop.
type session struct {
	ch       chat.Channel
	hub      Hub
	clients  Tracker
	limiter  *rate.Limiter
	validate *validator.Validate
	logger   types.Logger
	once     sync.Once
}

func (h *Handler) newSession(ch chat.Channel) *session {
	return &session{
		ch:       ch,
		hub:      h.hub,
		clients:  h.clients,
		limiter:  rate.NewLimiter(rate.Limit(h.settings.MessagesPerSecond), h.settings.MessageBurst),
		validate: h.validate,
		logger:   h.logger,
	}
}

// disconnect reports the disconnect to the hub exactly once.
func (s *session) disconnect() {
	s.once.Do(func() {
		s.hub.OnDisconnect(s.ch)
		if s.clients != nil {
			s.clients.Remove(s.ch.ID())
		}
		if c, ok := s.ch.(*Client); ok {
			_ = c.Close()
		}
	})
}

// dispatch decodes one frame and forwards it to the hub. Malformed or
// rate limited frames are dropped.
func (s *session) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Debug("Dropping malformed frame", "connectionID", s.ch.ID(), "error", err)
		return
	}

	switch env.Type {
	case chat.EventJoin:
		var req chat.JoinRequest
		if err := s.decode(env.Payload, &req); err != nil {
			s.drop(env.Type, err)
			return
		}
		s.hub.OnJoin(s.ch, req.Username)

	case chat.EventSendMessage:
		if !s.limiter.Allow() {
			s.logger.Warn("Rate limit exceeded", "connectionID", s.ch.ID(), "event", env.Type)
			return
		}
		var req chat.SendMessageRequest
		if err := s.decode(env.Payload, &req); err != nil {
			s.drop(env.Type, err)
			return
		}
		s.hub.OnMessage(s.ch, req)

	case chat.EventTyping:
		if !s.limiter.Allow() {
			return
		}
		var req chat.TypingRequest
		if err := s.decode(env.Payload, &req); err != nil {
			s.drop(env.Type, err)
			return
		}
		s.hub.OnTyping(s.ch, *req.IsTyping)

	case chat.EventLeave:
		s.hub.OnLeave(s.ch)

	case chat.EventRequestUsers:
		s.hub.OnRequestUsers(s.ch)

	default:
		s.logger.Debug("Unknown event type", "connectionID", s.ch.ID(), "event", env.Type)
	}
}

// decode unmarshals and validates a payload. A missing payload decodes as {}.
func (s *session) decode(raw json.RawMessage, v any) error {
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}
	}
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func (s *session) drop(evt chat.EventType, err error) {
	s.logger.Debug("Dropping event", "connectionID", s.ch.ID(), "event", evt, "error", err)
}

package chat

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/chatnest/events"
)

// Settings configures the chat module.
type Settings struct {
	MaxMessages      int
	HistoryReplay    int
	MaxMessageLength int
	CensoredWords    []string
	CensorCharacter  rune
}

// Module owns the Hub and publishes chat activity on the event bus.
type Module struct {
	hub      *Hub
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule(settings Settings, logger types.Logger) (*Module, error) {
	m := &Module{logger: logger}

	opts := []HubOption{
		WithHistoryReplay(settings.HistoryReplay),
		WithMaxMessageLength(settings.MaxMessageLength),
		WithObserver(&busPublisher{bus: func() mono.EventBus { return m.eventBus }, logger: logger}),
	}

	moderator, err := NewModerator(settings.CensoredWords, settings.CensorCharacter)
	if err != nil {
		return nil, fmt.Errorf("failed to create moderator: %w", err)
	}
	if moderator != nil {
		opts = append(opts, WithCensor(moderator))
	}

	m.hub = NewHub(settings.MaxMessages, logger, opts...)
	return m, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ParticipantJoinedV1.ToBase(),
		events.ParticipantLeftV1.ToBase(),
		events.MessagePostedV1.ToBase(),
	}
}

// Start starts the chat module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Chat module started",
		"historyLimit", m.hub.HistoryLimit(),
		"historyReplay", m.hub.replay)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Chat module stopped",
		"participants", m.hub.UserCount(),
		"messages", m.hub.MessageCount())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"participants": m.hub.UserCount(),
			"connections":  m.hub.ConnectionCount(),
			"messages":     m.hub.MessageCount(),
		},
	}
}

// Hub returns the broadcast hub for the transport to use.
func (m *Module) Hub() *Hub {
	return m.hub
}

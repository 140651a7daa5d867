package broadcast

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/chatnest/domain/chat"
	"github.com/example/chatnest/events"
)

// BroadcastModule owns the set of open WebSocket clients and tracks chat
// activity published on the event bus.
type BroadcastModule struct {
	clients      *ClientSet
	stats        *Stats
	cancelClient context.CancelFunc
	logger       types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(logger types.Logger) *BroadcastModule {
	return &BroadcastModule{
		clients: NewClientSet(logger),
		stats:   NewStats(),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start starts watching for shutdown of the client set.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelClient = cancel
	go m.clients.Run(ctx)
	m.logger.Info("Broadcast module started")
	return nil
}

// Stop closes every open client.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.clients.Count()
	if m.cancelClient != nil {
		m.cancelClient()
		m.clients.Wait()
	}
	m.logger.Info("Broadcast module stopped", "clients", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	snap := m.stats.Snapshot()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.clients.Count(),
			"participants":      snap.Participants,
			"messages":          snap.Messages,
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ParticipantJoinedV1, m.handleParticipantJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register ParticipantJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.ParticipantLeftV1, m.handleParticipantLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register ParticipantLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessagePostedV1, m.handleMessagePosted, m,
	); err != nil {
		return fmt.Errorf("failed to register MessagePosted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", "ParticipantJoined, ParticipantLeft, MessagePosted")
	return nil
}

// Event handlers

func (m *BroadcastModule) handleParticipantJoined(_ context.Context, event events.ParticipantJoinedEvent, _ *mono.Msg) error {
	m.stats.recordJoin(event.UserCount, event.Timestamp)
	m.logger.Debug("Participant joined", "username", event.Username, "userCount", event.UserCount)
	return nil
}

func (m *BroadcastModule) handleParticipantLeft(_ context.Context, event events.ParticipantLeftEvent, _ *mono.Msg) error {
	m.stats.recordLeave(event.UserCount, event.Timestamp)
	m.logger.Debug("Participant left", "username", event.Username, "userCount", event.UserCount)
	return nil
}

func (m *BroadcastModule) handleMessagePosted(_ context.Context, event events.MessagePostedEvent, _ *mono.Msg) error {
	m.stats.recordMessage(event.Kind == string(domain.KindPhoto), event.Timestamp)
	return nil
}

// Clients returns the client set for the WebSocket handler to use.
func (m *BroadcastModule) Clients() *ClientSet {
	return m.clients
}

// Stats returns the activity counters.
func (m *BroadcastModule) Stats() *Stats {
	return m.stats
}

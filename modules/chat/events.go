package chat

import (
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/chatnest/domain/chat"
	"github.com/example/chatnest/events"
)

// busPublisher forwards Hub activity to the event bus.
type busPublisher struct {
	bus    func() mono.EventBus
	logger types.Logger
}

var _ Observer = (*busPublisher)(nil)

func (p *busPublisher) ParticipantJoined(participant domain.Participant, userCount int) {
	bus := p.bus()
	if bus == nil {
		return
	}
	event := events.ParticipantJoinedEvent{
		Username:  participant.Username,
		UserCount: userCount,
		Timestamp: participant.JoinedAt,
	}
	if err := events.ParticipantJoinedV1.Publish(bus, event, nil); err != nil {
		p.logger.Warn("Failed to publish ParticipantJoined event", "error", err)
	}
}

func (p *busPublisher) ParticipantLeft(participant domain.Participant, userCount int, leftAt time.Time) {
	bus := p.bus()
	if bus == nil {
		return
	}
	event := events.ParticipantLeftEvent{
		Username:  participant.Username,
		UserCount: userCount,
		Timestamp: leftAt,
	}
	if err := events.ParticipantLeftV1.Publish(bus, event, nil); err != nil {
		p.logger.Warn("Failed to publish ParticipantLeft event", "error", err)
	}
}

func (p *busPublisher) MessagePosted(msg domain.Message) {
	bus := p.bus()
	if bus == nil {
		return
	}
	ts, err := time.Parse(domain.FullTimestampLayout, msg.FullTimestamp)
	if err != nil {
		ts = time.Now()
	}
	event := events.MessagePostedEvent{
		MessageID: msg.ID,
		Username:  msg.Username,
		Kind:      string(msg.Kind),
		Timestamp: ts,
	}
	if err := events.MessagePostedV1.Publish(bus, event, nil); err != nil {
		p.logger.Warn("Failed to publish MessagePosted event", "error", err)
	}
}

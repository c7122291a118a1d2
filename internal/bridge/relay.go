package bridge

import (
	"context"
	"log/slog"

	"github.com/birdbridge/birdbridge/pkg/models"
)

// MessageRelay forwards room message events to the outward-posting path.
// It is purely a routing step: no filtering, rate limiting or content
// validation happens here; that belongs to the outward-posting collaborator.
type MessageRelay struct {
	services *Services
	logger   *slog.Logger
}

// NewMessageRelay creates a message relay.
func NewMessageRelay(services *Services) (*MessageRelay, error) {
	if err := services.Validate(); err != nil {
		return nil, err
	}
	if services.Outbound == nil {
		return nil, ErrConfig("outbound poster is required", nil)
	}
	return &MessageRelay{
		services: services,
		logger:   services.Logger.With("component", "relay"),
	}, nil
}

// OnMessageEvent forwards a room message event to the outward-posting path,
// scoped to the bound remote identity. Failures are logged and swallowed.
func (m *MessageRelay) OnMessageEvent(ctx context.Context, evt models.RoomEvent, senderPrincipal string, remote models.RemoteRoomData) {
	if err := evt.Validate(); err != nil {
		m.logger.Error("invalid room event", "error", err)
		return
	}

	if err := m.services.Outbound.PostAsExternalMessage(ctx, evt, senderPrincipal, remote); err != nil {
		m.services.Metrics.RelayFailures.Inc()
		m.logger.Error("could not post message outward",
			"room_id", evt.RoomID,
			"sender", senderPrincipal,
			"error", err)
		return
	}

	m.services.Metrics.MessagesRelayed.Inc()
}
